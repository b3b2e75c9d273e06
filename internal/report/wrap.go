package report

import "strings"

// Wrap 贪心分行：单词依次追加，超出 maxWidth 时另起一行
// 单个超宽单词独占一行且不拆分
func Wrap(measure MeasureFunc, text string, maxWidth float64, family string, size float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate, family, size) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
