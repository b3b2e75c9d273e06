package report

import (
	"reflect"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	// 字号 10 → 每字符 5pt
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{"空串", "", 50, nil},
		{"仅空白", "   ", 50, nil},
		{"单行", "есть", 50, []string{"есть"}},
		{"贪心分行", "aa bb cc dd", 25, []string{"aa bb", "cc dd"}},
		{"恰好等宽", "abcde", 25, []string{"abcde"}},
		{"超宽单词独占一行", "a verylongword b", 25, []string{"a", "verylongword", "b"}},
		{"多余空白折叠", "a   b", 50, []string{"a b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(fakeMeasure, tt.text, tt.maxWidth, "f", 10)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q)=%q，期望 %q", tt.text, got, tt.want)
			}
		})
	}
}

// Scenario D: 约 15 字符/行时长文本产生多行
func TestWrap_LongCyrillicText(t *testing.T) {
	text := "Алгоритмы и структуры данных продвинутого уровня сложности"
	lines := Wrap(fakeMeasure, text, 75, "f", 10)

	want := []string{"Алгоритмы и", "структуры", "данных", "продвинутого", "уровня", "сложности"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("分行结果不符:\n期望 %q\n实际 %q", want, lines)
	}
}

func TestWrap_Properties(t *testing.T) {
	texts := []string{
		"Алгоритмы и структуры данных продвинутого уровня сложности",
		"a bb ccc dddd eeeee ffffff ggggggg",
		"x",
		"сверхдлинноесловобезпробелов и ещё",
	}
	for _, text := range texts {
		for _, width := range []float64{10, 30, 55, 75, 200} {
			lines := Wrap(fakeMeasure, text, width, "f", 10)

			// 除单词超宽外，任何行都不超过 maxWidth
			for _, l := range lines {
				if fakeMeasure(l, "f", 10) > width && strings.Contains(l, " ") {
					t.Errorf("width=%v 行 %q 超宽且不是单个单词", width, l)
				}
			}

			// 幂等：拼接后再次分行得到相同结果
			again := Wrap(fakeMeasure, strings.Join(lines, " "), width, "f", 10)
			if !reflect.DeepEqual(lines, again) {
				t.Errorf("width=%v 不幂等: %q → %q", width, lines, again)
			}

			// 不丢词
			if strings.Join(lines, " ") != strings.Join(strings.Fields(text), " ") {
				t.Errorf("width=%v 分行丢失内容: %q", width, lines)
			}
		}
	}
}
