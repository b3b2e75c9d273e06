package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mintyspider/attendance-report/internal/repository"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
	"github.com/mintyspider/attendance-report/pkg/response"
)

// MustGetInstructorID 从 Gin 上下文中安全提取 instructor_id。
// 如果 JWT 中间件未正确注入 instructor_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetInstructorID(c *gin.Context) (string, bool) {
	v, exists := c.Get("instructor_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// handleDomainError 各模块共用的错误 → 业务码映射
// 返回 false 表示未识别的错误，由调用方决定响应
func handleDomainError(c *gin.Context, err error) bool {
	var ve *apperrors.ValidationError
	var ce *apperrors.ConfigurationError
	switch {
	case errors.As(err, &ve):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", ve.Error())
	case errors.As(err, &ce):
		response.ErrorWithDetails(c, http.StatusNotFound, 20001, "课程未配置", ce.Error())
	case errors.Is(err, repository.ErrSessionNotFound):
		response.NotFound(c, 30001, "课次不存在")
	case errors.Is(err, repository.ErrMalformedStore):
		response.Error(c, http.StatusInternalServerError, 30002, "考勤数据格式错误")
	default:
		return false
	}
	return true
}
