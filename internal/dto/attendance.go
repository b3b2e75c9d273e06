package dto

// ── 考勤模块 DTO ──

// MarkAttendanceRequest 为一次课次提交考勤
// 未出现在 marks 中的名册学生按 "есть" 记录
type MarkAttendanceRequest struct {
	Subject   string            `json:"subject"    binding:"required"`
	Date      string            `json:"date"       binding:"required"` // "03.09.2024"
	ClassType string            `json:"class_type" binding:"required"` // "Лекция" | "Практика" | "Лабораторная работа - 1"
	Marks     map[string]string `json:"marks"`                         // 学生 → есть | н | б（或 present / unexcused / excused）
	Confirmed bool              `json:"confirmed"`
}

// SessionQuery 课次查询参数
type SessionQuery struct {
	Subject string `form:"subject" binding:"required"`
	Start   string `form:"start"` // 为空表示不限
	End     string `form:"end"`
}

// SessionLookup 单个课次定位参数
type SessionLookup struct {
	Subject   string `form:"subject"    binding:"required"`
	Date      string `form:"date"       binding:"required"`
	ClassType string `form:"class_type" binding:"required"`
}

// SessionResponse 课次信息
type SessionResponse struct {
	Subject   string            `json:"subject"`
	Date      string            `json:"date"`
	ClassType string            `json:"class_type"`
	Confirmed bool              `json:"confirmed"`
	Marks     map[string]string `json:"marks"`
}

// ── 课程目录 ──

// ClassTypeResponse 课次类型
type ClassTypeResponse struct {
	Label    string `json:"label"`
	Kind     string `json:"kind"` // lecture | practice | lab
	Subgroup string `json:"subgroup,omitempty"`
}

// RosterResponse 课次类型对应的名册
type RosterResponse struct {
	Subject   string   `json:"subject"`
	ClassType string   `json:"class_type"`
	Students  []string `json:"students"`
}

// ── 日历导入 ──

// ImportCalendarRequest 日历导入参数
type ImportCalendarRequest struct {
	Subject string `form:"subject" binding:"required"`
	Start   string `form:"start"   binding:"required"`
	End     string `form:"end"     binding:"required"`
}

// PlannedSessionResponse 日历中解析出的课次
type PlannedSessionResponse struct {
	Date      string `json:"date"`
	ClassType string `json:"class_type"`
	Created   bool   `json:"created"`
}

// ImportCalendarResponse 日历导入结果
type ImportCalendarResponse struct {
	Created  int                      `json:"created"`
	Skipped  int                      `json:"skipped"`
	Sessions []PlannedSessionResponse `json:"sessions"`
}
