package model

import (
	"sort"
	"strings"
	"time"

	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// DateLayout 课次日期格式 ДД.ММ.ГГГГ，新写入的日期一律补零
const DateLayout = "02.01.2006"

// parseLayout 日、月允许一位或两位数字（1.2.2024 与 01.02.2024 均合法）
const parseLayout = "2.1.2006"

// ParseDate 解析用户输入的日期；失败返回 ValidationError
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(parseLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, "日期格式应为 ДД.ММ.ГГГГ: "+s)
	}
	return t, nil
}

// FormatDate 格式化为 ДД.ММ.ГГГГ
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Session 一次课次：(课程, 日期, 类型) 下全部学生的标记与确认状态
// Date 保留存储中的原始字符串，可能无法解析
type Session struct {
	Subject   string
	Date      string
	ClassType ClassType
	Marks     map[string]Mark
	Confirmed bool
}

// ParsedDate 解析存储中的日期；ok=false 表示应跳过该课次
func (s *Session) ParsedDate() (time.Time, bool) {
	t, err := time.Parse(parseLayout, s.Date)
	return t, err == nil
}

// AttendanceRecord 单个学生在一次课次中的标记
type AttendanceRecord struct {
	Subject   string
	Date      string
	ClassType ClassType
	Student   string
	Mark      Mark
}

// Records 按学生姓名排序展开为逐条记录
func (s *Session) Records() []AttendanceRecord {
	students := make([]string, 0, len(s.Marks))
	for st := range s.Marks {
		students = append(students, st)
	}
	sort.Strings(students)

	out := make([]AttendanceRecord, 0, len(students))
	for _, st := range students {
		out = append(out, AttendanceRecord{
			Subject:   s.Subject,
			Date:      s.Date,
			ClassType: s.ClassType,
			Student:   st,
			Mark:      s.Marks[st],
		})
	}
	return out
}
