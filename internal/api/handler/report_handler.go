package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/service"
	"github.com/mintyspider/attendance-report/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// GenerateReport 生成并下载考勤报表
// GET /api/v1/reports/attendance?subject=&start=&end=&mode=&format=
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "subject、start 与 end 不能为空")
		return
	}

	file, err := h.reportSvc.Generate(c.Request.Context(), &req)
	if err != nil {
		h.handleReportError(c, err)
		return
	}

	c.Header("X-Report-Pages", strconv.Itoa(file.Pages))
	if len(file.Warnings) > 0 {
		// 西里尔字母按 URL 编码写入响应头
		escaped := make([]string, len(file.Warnings))
		for i, w := range file.Warnings {
			escaped[i] = url.PathEscape(w)
		}
		c.Header("X-Report-Warnings", strings.Join(escaped, ","))
	}
	if file.Cached {
		c.Header("X-Report-Cache", "hit")
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

func (h *ReportHandler) handleReportError(c *gin.Context, err error) {
	if handleDomainError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrReportRenderFail):
		response.Error(c, http.StatusInternalServerError, 40001, "生成报表文档失败")
	default:
		response.InternalError(c)
	}
}
