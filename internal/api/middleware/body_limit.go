package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mintyspider/attendance-report/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// multipart 上传由各处理器按 server.max_upload_bytes 单独限制
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && !strings.HasPrefix(c.ContentType(), "multipart/") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
