package model

import (
	"strings"

	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// Mark 考勤标记，值为存储与报表中使用的短代码
type Mark string

const (
	MarkPresent   Mark = "есть" // 出勤
	MarkExcused   Mark = "б"    // 有正当理由缺勤
	MarkUnexcused Mark = "н"    // 无故缺勤
)

// markAliases 接口层允许的别名 → 短代码
var markAliases = map[string]Mark{
	string(MarkPresent):   MarkPresent,
	string(MarkExcused):   MarkExcused,
	string(MarkUnexcused): MarkUnexcused,
	"present":             MarkPresent,
	"excused":             MarkExcused,
	"excused-absence":     MarkExcused,
	"unexcused":           MarkUnexcused,
	"unexcused-absence":   MarkUnexcused,
}

// ParseMark 解析短代码或别名
func ParseMark(s string) (Mark, error) {
	if m, ok := markAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", apperrors.NewValidationError("mark", "未知的考勤标记 "+s)
}

// Valid 是否为三种合法短代码之一
func (m Mark) Valid() bool {
	switch m {
	case MarkPresent, MarkExcused, MarkUnexcused:
		return true
	}
	return false
}

// Semantic 返回标记的语义名称
func (m Mark) Semantic() string {
	switch m {
	case MarkPresent:
		return "present"
	case MarkExcused:
		return "excused-absence"
	case MarkUnexcused:
		return "unexcused-absence"
	}
	return ""
}
