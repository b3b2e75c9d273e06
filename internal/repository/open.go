package repository

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/pkg/database"
)

// Open 按 storage.driver 创建 Repository 聚合
// 返回的 closeFn 释放底层连接，调用方在退出前调用
func Open(cfg *config.Config, logger *zap.Logger) (*Repository, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := database.NewDB(&cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
		logger.Info("考勤数据存储: PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.Name))
		return NewRepository(db), func() { sqlDB.Close() }, nil

	default:
		logger.Info("考勤数据存储: JSON 文件", zap.String("path", cfg.Storage.AttendanceFile))
		return NewFileRepository(cfg.Storage.AttendanceFile), func() {}, nil
	}
}
