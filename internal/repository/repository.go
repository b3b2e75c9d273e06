package repository

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/mintyspider/attendance-report/internal/model"
)

var (
	// ErrSessionNotFound 指定 (课程, 日期, 类型) 的课次不存在
	ErrSessionNotFound = errors.New("课次不存在")
	// ErrMalformedStore 持久化数据结构损坏，无法安全读写
	ErrMalformedStore = errors.New("考勤数据格式错误")
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// ListSessions 返回课程全部课次，按日期、类型排序；日期无法解析的课次排在最后
	ListSessions(ctx context.Context, subject string) ([]model.Session, error)
	GetSession(ctx context.Context, subject, date string, classType model.ClassType) (*model.Session, error)
	// SaveSession 合并学生标记并覆盖确认状态，课次不存在时创建
	SaveSession(ctx context.Context, session *model.Session) error
	// EnsureSession 课次不存在时创建空课次；返回是否新建
	EnsureSession(ctx context.Context, subject, date string, classType model.ClassType) (bool, error)
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Attendance AttendanceRepository
}

// NewRepository 基于 PostgreSQL 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Attendance: NewAttendanceRepo(db),
	}
}

// NewFileRepository 基于 JSON 文件创建 Repository 聚合
func NewFileRepository(path string) *Repository {
	return &Repository{
		Attendance: NewJSONAttendanceRepo(path),
	}
}

// ── 操作人 ──

type actorKey struct{}

// WithActor 在 context 中记录操作人，写入审计字段 created_by / updated_by
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) *string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return &a
	}
	return nil
}

// sortSessions 日期升序，同日按类型（讲座 → 实践 → 实验分组名）
func sortSessions(sessions []model.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := &sessions[i], &sessions[j]
		ta, okA := a.ParsedDate()
		tb, okB := b.ParsedDate()
		if okA != okB {
			return okA
		}
		if okA && !ta.Equal(tb) {
			return ta.Before(tb)
		}
		if !okA && a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.ClassType.Kind != b.ClassType.Kind {
			return a.ClassType.Kind < b.ClassType.Kind
		}
		return a.ClassType.Subgroup < b.ClassType.Subgroup
	})
}
