package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mintyspider/attendance-report/internal/report"
)

const (
	maxSheetNameLen = 31
	titleRow        = 1
	dateRow         = 2
	typeRow         = 3
	firstBodyRow    = 4
)

// Sheet 一张工作表对应一张报表页组
type Sheet struct {
	Name  string
	Title string
	Table *report.TableModel
}

// ═══════════════════════════════════════════════════════════
// Write: 将若干 TableModel 写为 Excel (.xlsx)
// ═══════════════════════════════════════════════════════════
//
// 版式与 PDF 一致：
//   - 第 1 行：标题（合并整行）
//   - 第 2 行：姓名列表头（与第 3 行合并）+ 日期（合并其全部子列）
//   - 第 3 行：课次类型；省略类型子表头时日期与本行合并
//   - 数据行之后为确认行（+ / -）
func Write(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	used := make(map[string]bool)
	for i, s := range sheets {
		name := uniqueSheetName(s.Name, i, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("重命名工作表失败: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("创建工作表失败: %w", err)
		}

		sw := &sheetWriter{f: f, sheet: name, styles: styles}
		sw.write(s)
		if sw.err != nil {
			return fmt.Errorf("写入工作表 %s 失败: %w", name, sw.err)
		}
	}
	f.SetActiveSheet(0)

	return f.Write(w)
}

type styleSet struct {
	title  int
	header int
	cell   int
}

func newStyles(f *excelize.File) (*styleSet, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 10},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	cell, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Border:    border,
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, err
	}
	return &styleSet{title: title, header: header, cell: cell}, nil
}

// sheetWriter 记录第一个错误，后续调用直接跳过
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles *styleSet
	err    error
}

func (sw *sheetWriter) write(s Sheet) {
	t := s.Table
	lastCol := t.ColumnCount() + 1

	sw.colWidth(1, 1, 32)
	if lastCol > 1 {
		sw.colWidth(2, lastCol, 14)
	}

	sw.set(1, titleRow, s.Title)
	sw.merge(1, titleRow, lastCol, titleRow)
	sw.style(1, titleRow, lastCol, titleRow, sw.styles.title)

	// 表头
	sw.set(1, dateRow, t.RowHeader)
	sw.merge(1, dateRow, 1, typeRow)
	col := 2
	for _, g := range t.Groups {
		span := len(g.ClassTypes)
		sw.set(col, dateRow, g.DateLabel)
		if t.SuppressClassTypeLabels {
			sw.merge(col, dateRow, col+span-1, typeRow)
		} else {
			sw.merge(col, dateRow, col+span-1, dateRow)
			for k, ct := range g.ClassTypes {
				sw.set(col+k, typeRow, ct)
			}
		}
		col += span
	}
	sw.style(1, dateRow, lastCol, typeRow, sw.styles.header)

	// 数据行
	row := firstBodyRow
	for _, r := range t.Rows {
		sw.set(1, row, r.Student)
		for j, v := range r.Cells {
			sw.set(j+2, row, v)
		}
		row++
	}

	// 确认行
	sw.set(1, row, report.ConfirmedLabel)
	for i := 0; i < t.ColumnCount(); i++ {
		mark := report.PendingMark
		if t.IsConfirmed(i) {
			mark = report.ConfirmedMark
		}
		sw.set(i+2, row, mark)
	}
	sw.style(1, firstBodyRow, lastCol, row, sw.styles.cell)
}

func (sw *sheetWriter) cellName(col, row int) string {
	if sw.err != nil {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		sw.err = err
	}
	return name
}

func (sw *sheetWriter) set(col, row int, v string) {
	c := sw.cellName(col, row)
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellValue(sw.sheet, c, v)
}

func (sw *sheetWriter) merge(c1, r1, c2, r2 int) {
	if c1 == c2 && r1 == r2 {
		return
	}
	from, to := sw.cellName(c1, r1), sw.cellName(c2, r2)
	if sw.err != nil {
		return
	}
	sw.err = sw.f.MergeCell(sw.sheet, from, to)
}

func (sw *sheetWriter) style(c1, r1, c2, r2, id int) {
	from, to := sw.cellName(c1, r1), sw.cellName(c2, r2)
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellStyle(sw.sheet, from, to, id)
}

func (sw *sheetWriter) colWidth(c1, c2 int, width float64) {
	if sw.err != nil {
		return
	}
	from, err := excelize.ColumnNumberToName(c1)
	if err != nil {
		sw.err = err
		return
	}
	to, err := excelize.ColumnNumberToName(c2)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetColWidth(sw.sheet, from, to, width)
}

// uniqueSheetName Excel 工作表名：去除非法字符、截断至 31 字符并去重
func uniqueSheetName(name string, idx int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Лист %d", idx+1)
	}
	name = truncateRunes(name, maxSheetNameLen)

	candidate := name
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncateRunes(name, maxSheetNameLen-len([]rune(suffix))) + suffix
	}
	used[candidate] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
