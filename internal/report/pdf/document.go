package pdf

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// CoreFontFamily 未配置字体文件时使用的内置字体（仅 Latin-1）
const CoreFontFamily = "Helvetica"

// Options PDF 文档参数，尺寸单位 pt
type Options struct {
	FontFamily string
	FontFile   string
	PageWidth  float64
	PageHeight float64
	Title      string
}

// Document 基于 fpdf 的 report.Canvas 实现，一个文档可容纳多张页组
type Document struct {
	pdf    *fpdf.Fpdf
	family string
	size   float64
}

// New 创建文档并打开第一页
func New(opts Options) (*Document, error) {
	// 直接按宽高给出页面尺寸，避免 fpdf 按方向交换宽高
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: opts.PageWidth, Ht: opts.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetLineWidth(0.5)
	pdf.SetCreator("attendance-report", true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}

	family := CoreFontFamily
	if opts.FontFile != "" {
		family = opts.FontFamily
		pdf.AddUTF8Font(family, "", opts.FontFile)
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", opts.FontFile, err)
		}
	}

	d := &Document{pdf: pdf, family: family, size: 10}
	pdf.SetFont(family, "", d.size)
	pdf.AddPage()
	return d, pdf.Error()
}

// FontFamily 实际生效的字体族，版式中的 FontFamily 应使用该值
func (d *Document) FontFamily() string { return d.family }

// SetFont 设置当前字体
func (d *Document) SetFont(family string, size float64) {
	d.family, d.size = family, size
	d.pdf.SetFont(family, "", size)
}

// MeasureText 以指定字体测量文本宽度，不改变当前字体
func (d *Document) MeasureText(text, family string, size float64) float64 {
	if family == d.family && size == d.size {
		return d.pdf.GetStringWidth(text)
	}
	d.pdf.SetFont(family, "", size)
	w := d.pdf.GetStringWidth(text)
	d.pdf.SetFont(d.family, "", d.size)
	return w
}

// DrawText 左对齐绘制，y 为基线
func (d *Document) DrawText(x, y float64, text string) {
	d.pdf.Text(x, y, text)
}

// DrawCenteredText 以 x 为中心绘制，y 为基线
func (d *Document) DrawCenteredText(x, y float64, text string) {
	w := d.pdf.GetStringWidth(text)
	d.pdf.Text(x-w/2, y, text)
}

// DrawLine 绘制直线
func (d *Document) DrawLine(x1, y1, x2, y2 float64) {
	d.pdf.Line(x1, y1, x2, y2)
}

// NewPage 开始新的一页，保留当前字体
func (d *Document) NewPage() {
	d.pdf.AddPage()
	d.pdf.SetFont(d.family, "", d.size)
}

// PageCount 已输出的页数
func (d *Document) PageCount() int { return d.pdf.PageNo() }

// Err 绘制过程中累积的错误
func (d *Document) Err() error { return d.pdf.Error() }

// Save 输出 PDF 并关闭文档
func (d *Document) Save(w io.Writer) error {
	if err := d.pdf.Error(); err != nil {
		return err
	}
	return d.pdf.Output(w)
}
