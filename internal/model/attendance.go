package model

import "time"

// AttendanceSession 课次表 对应 attendance_sessions
type AttendanceSession struct {
	SessionID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"                   json:"session_id"`
	Subject     string    `gorm:"type:varchar(200);not null;uniqueIndex:uq_attendance_session"     json:"subject"`
	SessionDate time.Time `gorm:"type:date;not null;uniqueIndex:uq_attendance_session"             json:"session_date"`
	ClassType   string    `gorm:"type:varchar(200);not null;uniqueIndex:uq_attendance_session"     json:"class_type"`
	Confirmed   bool      `gorm:"not null;default:false"                                           json:"confirmed"`
	BaseModel

	// 关联
	Marks []AttendanceMark `gorm:"foreignKey:SessionID;references:SessionID" json:"marks,omitempty"`
}

// TableName 指定表名
func (AttendanceSession) TableName() string { return "attendance_sessions" }

// AttendanceMark 学生标记表 对应 attendance_marks
type AttendanceMark struct {
	SessionID string `gorm:"type:uuid;primaryKey"         json:"session_id"`
	Student   string `gorm:"type:varchar(200);primaryKey" json:"student"`
	Mark      string `gorm:"type:varchar(10);not null"    json:"mark"` // есть | б | н
	BaseModel
}

// TableName 指定表名
func (AttendanceMark) TableName() string { return "attendance_marks" }
