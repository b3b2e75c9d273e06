package handler

import "github.com/mintyspider/attendance-report/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Subject    *SubjectHandler
	Attendance *AttendanceHandler
	Report     *ReportHandler
}

// NewHandler 创建 Handler 聚合；maxUploadBytes 为日历上传的大小上限
func NewHandler(svc *service.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		Subject:    NewSubjectHandler(svc.Attendance),
		Attendance: NewAttendanceHandler(svc.Attendance, maxUploadBytes),
		Report:     NewReportHandler(svc.Report),
	}
}
