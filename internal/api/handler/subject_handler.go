package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mintyspider/attendance-report/internal/service"
	"github.com/mintyspider/attendance-report/pkg/response"
)

// SubjectHandler 课程目录 HTTP 处理器
type SubjectHandler struct {
	attendanceSvc service.AttendanceService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(attendanceSvc service.AttendanceService) *SubjectHandler {
	return &SubjectHandler{attendanceSvc: attendanceSvc}
}

// ListSubjects 获取课程列表
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	response.OK(c, gin.H{"list": h.attendanceSvc.Subjects(c.Request.Context())})
}

// ListClassTypes 获取课程开设的课次类型
// GET /api/v1/subjects/class-types?subject=
func (h *SubjectHandler) ListClassTypes(c *gin.Context) {
	subject := c.Query("subject")
	if subject == "" {
		response.BadRequest(c, 10001, "subject 不能为空")
		return
	}

	types, err := h.attendanceSvc.ClassTypes(c.Request.Context(), subject)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, gin.H{"list": types})
}

// GetRoster 获取课次类型对应的名册
// GET /api/v1/subjects/roster?subject=&class_type=
func (h *SubjectHandler) GetRoster(c *gin.Context) {
	subject, classType := c.Query("subject"), c.Query("class_type")
	if subject == "" || classType == "" {
		response.BadRequest(c, 10001, "subject 与 class_type 不能为空")
		return
	}

	roster, err := h.attendanceSvc.Roster(c.Request.Context(), subject, classType)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, roster)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	if !handleDomainError(c, err) {
		response.InternalError(c)
	}
}
