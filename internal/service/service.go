package service

import (
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Attendance AttendanceService
	Report     ReportService
}

// NewService 创建 Service 聚合；cache 可为 nil（未启用 Redis）
func NewService(
	cfg *config.Config,
	catalog *roster.Catalog,
	repo *repository.Repository,
	cache ReportCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		Attendance: NewAttendanceService(catalog, repo, cache, logger),
		Report:     NewReportService(cfg.Report, catalog, repo, cache, logger),
	}
}
