package report

// Canvas 最小绘图能力：文本测量、文本与直线绘制、换页
// 坐标单位为 pt，纵坐标自页面顶部向下增长
type Canvas interface {
	SetFont(family string, size float64)
	MeasureText(text, family string, size float64) float64
	DrawText(x, y float64, text string)
	DrawCenteredText(x, y float64, text string)
	DrawLine(x1, y1, x2, y2 float64)
	NewPage()
}

// MeasureFunc 文本宽度测量函数，通常为 Canvas.MeasureText
type MeasureFunc func(text, family string, size float64) float64
