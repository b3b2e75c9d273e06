package report

// 报表固定文案
const (
	RowHeaderLabel = "ФИО студента"
	ConfirmedLabel = "Подтверждено:"
	SignatureLine  = "Подпись преподавателя: ____________________"
	ConfirmedMark  = "+"
	PendingMark    = "-"
)

// ColumnGroup 两级表头中的一组：日期及其下的课次类型列
type ColumnGroup struct {
	DateLabel  string
	ClassTypes []string
}

// Row 一名学生的一行，Cells 与展开后的列顺序对齐
type Row struct {
	Student string
	Cells   []string
}

// Column 展开后的单个数据列
type Column struct {
	DateLabel string
	ClassType string
}

// TableModel 一张报表页组的规范化数据，构建后只读
type TableModel struct {
	Title                   string
	RowHeader               string
	Groups                  []ColumnGroup
	Rows                    []Row
	Confirmed               map[int]bool // 展开列序号 → 是否已确认
	SuppressClassTypeLabels bool
}

// Columns 按分组顺序展开全部数据列
func (t *TableModel) Columns() []Column {
	var cols []Column
	for _, g := range t.Groups {
		for _, ct := range g.ClassTypes {
			cols = append(cols, Column{DateLabel: g.DateLabel, ClassType: ct})
		}
	}
	return cols
}

// ColumnCount 数据列数（不含姓名列）
func (t *TableModel) ColumnCount() int {
	n := 0
	for _, g := range t.Groups {
		n += len(g.ClassTypes)
	}
	return n
}

// Empty 区间内没有任何课次
func (t *TableModel) Empty() bool { return t.ColumnCount() == 0 }

// IsConfirmed 展开列 idx 的确认状态，缺省为 false
func (t *TableModel) IsConfirmed(idx int) bool { return t.Confirmed[idx] }
