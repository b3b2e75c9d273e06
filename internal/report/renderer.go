package report

import (
	"errors"
)

// ErrNilTable 渲染输入为空
var ErrNilTable = errors.New("报表数据为空")

const (
	dateLineRatio = 0.25  // 日期行基线在表头中的相对位置
	typeLineRatio = 0.625 // 类型行基线在表头中的相对位置
	baselineShift = 0.35  // 字号 × 该系数 ≈ 基线相对行中线的下移量
)

// ═══════════════════════════════════════════════════════════
// Render: TableModel → Canvas 绘图调用
// ═══════════════════════════════════════════════════════════
//
// 每页依次绘制：标题、两级表头、至多 RowsPerPage 行数据、确认行、
// 网格竖线、签名行。页与页之间调用 NewPage；最后一页之后不换页，
// 由调用方决定下一张页组的起始。返回输出的页数。
func Render(c Canvas, table *TableModel, geom Geometry, title string) (int, error) {
	if table == nil {
		return 0, ErrNilTable
	}
	if err := geom.Validate(); err != nil {
		return 0, err
	}

	r := &pageRenderer{
		canvas: c,
		table:  table,
		geom:   geom,
		title:  title,
		widths: geom.ColumnWidths(table.ColumnCount()),
	}
	for _, w := range r.widths {
		r.total += w
	}

	perPage := geom.RowsPerPage()
	pages := 0
	for start := 0; ; start += perPage {
		end := start + perPage
		if end > len(table.Rows) {
			end = len(table.Rows)
		}
		if pages > 0 {
			c.NewPage()
		}
		r.drawPage(table.Rows[start:end])
		pages++
		if end >= len(table.Rows) {
			break
		}
	}
	return pages, nil
}

type pageRenderer struct {
	canvas Canvas
	table  *TableModel
	geom   Geometry
	title  string
	widths []float64
	total  float64
}

func (r *pageRenderer) drawPage(rows []Row) {
	g := r.geom
	c := r.canvas
	x0 := g.MarginLeft
	top := g.TableTop

	c.SetFont(g.FontFamily, g.TitleFontSize)
	c.DrawText(x0, g.TitleTop, r.title)
	c.SetFont(g.FontFamily, g.FontSize)

	y := r.drawHeader(top)
	for _, row := range rows {
		y = r.drawRow(y, row)
	}
	y = r.drawConfirmation(y)

	// 竖线：每列左边界 + 最后一列右边界，自表头上沿至确认行下沿
	x := x0
	for _, w := range r.widths {
		c.DrawLine(x, top, x, y)
		x += w
	}
	c.DrawLine(x, top, x, y)

	c.SetFont(g.FontFamily, g.SignatureFontSize)
	c.DrawText(x0, g.PageHeight-g.SignatureBottom, SignatureLine)
	c.SetFont(g.FontFamily, g.FontSize)
}

// drawHeader 绘制表头，返回表头下沿
func (r *pageRenderer) drawHeader(top float64) float64 {
	g := r.geom
	c := r.canvas
	x0 := g.MarginLeft
	dateY := top + g.HeaderHeight*dateLineRatio
	typeY := top + g.HeaderHeight*typeLineRatio

	c.DrawLine(x0, top, x0+r.total, top)
	c.DrawCenteredText(x0+r.widths[0]/2, dateY, r.table.RowHeader)

	x := x0 + r.widths[0]
	idx := 1
	for _, grp := range r.table.Groups {
		span := 0.0
		for k := range grp.ClassTypes {
			span += r.widths[idx+k]
		}
		// 日期居中于其全部子列之上，形成合并表头效果
		c.DrawCenteredText(x+span/2, dateY, grp.DateLabel)

		for _, ct := range grp.ClassTypes {
			if !r.table.SuppressClassTypeLabels {
				c.DrawCenteredText(x+r.widths[idx]/2, typeY, ct)
			}
			x += r.widths[idx]
			idx++
		}
	}

	y := top + g.HeaderHeight
	c.DrawLine(x0, y, x0+r.total, y)
	return y
}

// drawRow 绘制一行数据，返回行下沿
func (r *pageRenderer) drawRow(cellTop float64, row Row) float64 {
	g := r.geom
	x := g.MarginLeft

	// 姓名列不换行
	r.drawCellLines(x, r.widths[0], cellTop, []string{row.Student})
	x += r.widths[0]

	for j, text := range row.Cells {
		w := r.widths[j+1]
		lines := Wrap(r.canvas.MeasureText, text, w-g.CellPadding, g.FontFamily, g.FontSize)
		if len(lines) > g.MaxCellLines {
			lines = lines[:g.MaxCellLines]
		}
		r.drawCellLines(x, w, cellTop, lines)
		x += w
	}

	y := cellTop + g.RowHeight
	r.canvas.DrawLine(g.MarginLeft, y, g.MarginLeft+r.total, y)
	return y
}

// drawConfirmation 绘制确认行，返回其下沿
func (r *pageRenderer) drawConfirmation(cellTop float64) float64 {
	g := r.geom
	x := g.MarginLeft

	r.drawCellLines(x, r.widths[0], cellTop, []string{ConfirmedLabel})
	x += r.widths[0]

	for i := 0; i < r.table.ColumnCount(); i++ {
		mark := PendingMark
		if r.table.IsConfirmed(i) {
			mark = ConfirmedMark
		}
		r.drawCellLines(x, r.widths[i+1], cellTop, []string{mark})
		x += r.widths[i+1]
	}

	y := cellTop + g.RowHeight
	r.canvas.DrawLine(g.MarginLeft, y, g.MarginLeft+r.total, y)
	return y
}

// drawCellLines 在单元格内水平居中、垂直居中地绘制若干行文本
func (r *pageRenderer) drawCellLines(x, width, cellTop float64, lines []string) {
	if len(lines) == 0 {
		return
	}
	g := r.geom
	block := float64(len(lines)-1) * g.LineSpacing
	baseline := cellTop + (g.RowHeight-block)/2 + g.FontSize*baselineShift
	for i, line := range lines {
		r.canvas.DrawCenteredText(x+width/2, baseline+float64(i)*g.LineSpacing, line)
	}
}
