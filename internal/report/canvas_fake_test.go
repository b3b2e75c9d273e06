package report

import "unicode/utf8"

// ── 记录型 Canvas ──

type canvasOp struct {
	kind   string // font | text | center | line | page
	x, y   float64
	x2, y2 float64
	text   string
	size   float64
}

type recordingCanvas struct {
	ops []canvasOp
}

// 每个字符宽度 = 字号 × 0.5
func fakeMeasure(text, _ string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.5
}

func (c *recordingCanvas) SetFont(_ string, size float64) {
	c.ops = append(c.ops, canvasOp{kind: "font", size: size})
}

func (c *recordingCanvas) MeasureText(text, family string, size float64) float64 {
	return fakeMeasure(text, family, size)
}

func (c *recordingCanvas) DrawText(x, y float64, text string) {
	c.ops = append(c.ops, canvasOp{kind: "text", x: x, y: y, text: text})
}

func (c *recordingCanvas) DrawCenteredText(x, y float64, text string) {
	c.ops = append(c.ops, canvasOp{kind: "center", x: x, y: y, text: text})
}

func (c *recordingCanvas) DrawLine(x1, y1, x2, y2 float64) {
	c.ops = append(c.ops, canvasOp{kind: "line", x: x1, y: y1, x2: x2, y2: y2})
}

func (c *recordingCanvas) NewPage() {
	c.ops = append(c.ops, canvasOp{kind: "page"})
}

// pages 按 NewPage 切分操作序列
func (c *recordingCanvas) pages() [][]canvasOp {
	var out [][]canvasOp
	var cur []canvasOp
	for _, op := range c.ops {
		if op.kind == "page" {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, op)
	}
	return append(out, cur)
}

// centeredAt 某页中横坐标为 x 的居中文本
func centeredAt(ops []canvasOp, x float64) []string {
	var out []string
	for _, op := range ops {
		if op.kind == "center" && op.x == x {
			out = append(out, op.text)
		}
	}
	return out
}

// studentNames 某页姓名列中的学生行
func studentNames(ops []canvasOp, g Geometry) []string {
	var out []string
	for _, t := range centeredAt(ops, g.MarginLeft+g.NameColumnWidth/2) {
		if t == RowHeaderLabel || t == ConfirmedLabel {
			continue
		}
		out = append(out, t)
	}
	return out
}

// confirmationMarks 某页确认行中各列的标记
func confirmationMarks(ops []canvasOp) []string {
	var out []string
	for i, op := range ops {
		if op.kind == "center" && op.text == ConfirmedLabel {
			for _, next := range ops[i+1:] {
				if next.kind != "center" {
					break
				}
				out = append(out, next.text)
			}
		}
	}
	return out
}

func countKind(ops []canvasOp, kind string) int {
	n := 0
	for _, op := range ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

func hasText(ops []canvasOp, text string) bool {
	for _, op := range ops {
		if (op.kind == "center" || op.kind == "text") && op.text == text {
			return true
		}
	}
	return false
}
