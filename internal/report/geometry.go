package report

import (
	"fmt"
	"math"

	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// Geometry 页面版式
type Geometry struct {
	PageWidth         float64
	PageHeight        float64
	MarginLeft        float64
	TitleTop          float64 // 标题基线距页顶
	TableTop          float64 // 表头上沿距页顶
	HeaderHeight      float64 // 两行表头（日期行 + 类型行）
	RowHeight         float64
	NameColumnWidth   float64
	DataColumnWidth   float64
	CellPadding       float64 // 换行宽度 = 列宽 - CellPadding
	LineSpacing       float64
	FontFamily        string
	FontSize          float64
	TitleFontSize     float64
	SignatureFontSize float64
	SignatureBottom   float64 // 签名行基线距页底
	ChromeHeight      float64 // 标题区 + 表头 + 签名区占用的固定高度
	ReservedRows      int     // 每页为确认行等预留的行数
	MaxCellLines      int     // 单元格最多绘制的行数
}

// DefaultGeometry 横向 A4 考勤表
func DefaultGeometry(fontFamily string) Geometry {
	return Geometry{
		PageWidth:         841.89,
		PageHeight:        595.28,
		MarginLeft:        50,
		TitleTop:          50,
		TableTop:          80,
		HeaderHeight:      40,
		RowHeight:         20,
		NameColumnWidth:   150,
		DataColumnWidth:   60,
		CellPadding:       10,
		LineSpacing:       12,
		FontFamily:        fontFamily,
		FontSize:          10,
		TitleFontSize:     16,
		SignatureFontSize: 12,
		SignatureBottom:   50,
		ChromeHeight:      150,
		ReservedRows:      3,
		MaxCellLines:      2,
	}
}

// RowsPerPage 每页数据行数 = floor((页高 - 固定区) / 行高) - 预留行
func (g Geometry) RowsPerPage() int {
	return int(math.Floor((g.PageHeight-g.ChromeHeight)/g.RowHeight)) - g.ReservedRows
}

// ColumnWidths 姓名列 + n 个等宽数据列
func (g Geometry) ColumnWidths(n int) []float64 {
	widths := make([]float64, 0, n+1)
	widths = append(widths, g.NameColumnWidth)
	for i := 0; i < n; i++ {
		widths = append(widths, g.DataColumnWidth)
	}
	return widths
}

// TableWidth n 个数据列时的表格总宽
func (g Geometry) TableWidth(n int) float64 {
	return g.NameColumnWidth + float64(n)*g.DataColumnWidth
}

// FitsWidth 表格是否能在页面宽度内完整绘制
func (g Geometry) FitsWidth(n int) bool {
	return g.MarginLeft+g.TableWidth(n) <= g.PageWidth
}

// Validate 校验版式参数
func (g Geometry) Validate() error {
	positive := []struct {
		field string
		v     float64
	}{
		{"page_width", g.PageWidth},
		{"page_height", g.PageHeight},
		{"header_height", g.HeaderHeight},
		{"row_height", g.RowHeight},
		{"name_column_width", g.NameColumnWidth},
		{"data_column_width", g.DataColumnWidth},
		{"font_size", g.FontSize},
		{"line_spacing", g.LineSpacing},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return apperrors.NewValidationError(p.field, "必须为正")
		}
	}
	if g.ReservedRows < 0 {
		return apperrors.NewValidationError("reserved_rows", "不能为负")
	}
	if g.MaxCellLines < 1 {
		return apperrors.NewValidationError("max_cell_lines", "至少为 1")
	}
	if n := g.RowsPerPage(); n < 1 {
		return apperrors.NewValidationError("page_height", fmt.Sprintf("页面容纳的数据行数为 %d", n))
	}
	return nil
}
