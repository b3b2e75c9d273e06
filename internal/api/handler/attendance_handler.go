package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/service"
	"github.com/mintyspider/attendance-report/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc  service.AttendanceService
	maxUploadBytes int64
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, maxUploadBytes int64) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, maxUploadBytes: maxUploadBytes}
}

// MarkAttendance 提交一次课次的考勤
// POST /api/v1/attendance
func (h *AttendanceHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	instructorID, ok := MustGetInstructorID(c)
	if !ok {
		return
	}

	session, err := h.attendanceSvc.Mark(c.Request.Context(), &req, instructorID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, session)
}

// GetSession 获取单个课次
// GET /api/v1/attendance?subject=&date=&class_type=
func (h *AttendanceHandler) GetSession(c *gin.Context) {
	var q dto.SessionLookup
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "subject、date 与 class_type 不能为空")
		return
	}

	session, err := h.attendanceSvc.Session(c.Request.Context(), &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, session)
}

// ListSessions 查询课程的课次
// GET /api/v1/sessions?subject=&start=&end=
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	var q dto.SessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "subject 不能为空")
		return
	}

	sessions, err := h.attendanceSvc.Sessions(c.Request.Context(), &q)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions, "total": len(sessions)})
}

// ImportCalendar 由 ICS 课表批量创建课次
// POST /api/v1/sessions/import?subject=&start=&end=
// multipart/form-data, field="file"
func (h *AttendanceHandler) ImportCalendar(c *gin.Context) {
	var req dto.ImportCalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "subject、start 与 end 不能为空")
		return
	}

	instructorID, ok := MustGetInstructorID(c)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 ICS 文件（字段 file）")
		return
	}
	defer file.Close()

	resp, err := h.attendanceSvc.ImportCalendar(c.Request.Context(), &req, file, instructorID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, resp)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	if !handleDomainError(c, err) {
		response.InternalError(c)
	}
}
