package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/api/handler"
	"github.com/mintyspider/attendance-report/internal/api/middleware"
	"github.com/mintyspider/attendance-report/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不启用报表接口的速率限制
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程目录（无需认证）
		subjects := v1.Group("/subjects")
		{
			subjects.GET("", h.Subject.ListSubjects)
			subjects.GET("/class-types", h.Subject.ListClassTypes)
			subjects.GET("/roster", h.Subject.GetRoster)
		}

		// 查询（无需认证）
		v1.GET("/sessions", h.Attendance.ListSessions)
		v1.GET("/attendance", h.Attendance.GetSession)

		// 报表下载
		v1.GET("/reports/attendance",
			middleware.RateLimit(limiter, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window),
			h.Report.GenerateReport,
		)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			authorized.POST("/attendance", middleware.RoleAuth(jwt.RoleInstructor, jwt.RoleAdmin), h.Attendance.MarkAttendance)
			authorized.POST("/sessions/import", middleware.RoleAuth(jwt.RoleAdmin), h.Attendance.ImportCalendar)
		}
	}

	return r
}
