package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/model"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	Subjects(ctx context.Context) []string
	ClassTypes(ctx context.Context, subject string) ([]dto.ClassTypeResponse, error)
	Roster(ctx context.Context, subject, classType string) (*dto.RosterResponse, error)
	// Mark 校验全部输入后一次写入；任何校验失败都不会产生写入
	Mark(ctx context.Context, req *dto.MarkAttendanceRequest, instructorID string) (*dto.SessionResponse, error)
	Session(ctx context.Context, q *dto.SessionLookup) (*dto.SessionResponse, error)
	Sessions(ctx context.Context, q *dto.SessionQuery) ([]dto.SessionResponse, error)
	ImportCalendar(ctx context.Context, req *dto.ImportCalendarRequest, calendar io.Reader, instructorID string) (*dto.ImportCalendarResponse, error)
}

type attendanceService struct {
	catalog *roster.Catalog
	repo    *repository.Repository
	cache   ReportCache
	loc     *time.Location
	logger  *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例；cache 可为 nil
func NewAttendanceService(catalog *roster.Catalog, repo *repository.Repository, cache ReportCache, logger *zap.Logger) AttendanceService {
	return &attendanceService{catalog: catalog, repo: repo, cache: cache, loc: time.Local, logger: logger}
}

// ────────────────────── 课程目录 ──────────────────────

func (s *attendanceService) Subjects(_ context.Context) []string {
	return s.catalog.Names()
}

func (s *attendanceService) ClassTypes(_ context.Context, subject string) ([]dto.ClassTypeResponse, error) {
	types, err := s.catalog.ClassTypes(subject)
	if err != nil {
		return nil, err
	}
	result := make([]dto.ClassTypeResponse, 0, len(types))
	for _, t := range types {
		result = append(result, toClassTypeResponse(t))
	}
	return result, nil
}

func (s *attendanceService) Roster(_ context.Context, subject, classType string) (*dto.RosterResponse, error) {
	if _, err := s.catalog.Subject(subject); err != nil {
		return nil, err
	}
	ct, err := model.ParseClassType(classType)
	if err != nil {
		return nil, err
	}
	students, err := s.catalog.Roster(subject, ct)
	if err != nil {
		return nil, err
	}
	return &dto.RosterResponse{Subject: subject, ClassType: ct.Label(), Students: students}, nil
}

// ────────────────────── Mark ──────────────────────

func (s *attendanceService) Mark(ctx context.Context, req *dto.MarkAttendanceRequest, instructorID string) (*dto.SessionResponse, error) {
	// 1. 课程
	cfg, err := s.catalog.Subject(req.Subject)
	if err != nil {
		return nil, err
	}

	// 2. 日期
	day, err := model.ParseDate("date", req.Date)
	if err != nil {
		return nil, err
	}

	// 3. 课次类型
	ct, err := model.ParseClassType(req.ClassType)
	if err != nil {
		return nil, err
	}
	if !cfg.Offers(ct) {
		return nil, apperrors.NewValidationError("class_type", "课程未开设该课次类型: "+ct.Label())
	}

	// 4. 标记：名册学生默认出勤，提交的学生必须在名册中
	students := cfg.RosterFor(ct)
	onRoster := make(map[string]bool, len(students))
	marks := make(map[string]model.Mark, len(students))
	for _, st := range students {
		onRoster[st] = true
		marks[st] = model.MarkPresent
	}
	for st, raw := range req.Marks {
		if !onRoster[st] {
			return nil, apperrors.NewValidationError("marks", fmt.Sprintf("学生 %s 不在 %s 的名册中", st, ct.Label()))
		}
		m, err := model.ParseMark(raw)
		if err != nil {
			return nil, err
		}
		marks[st] = m
	}

	session := &model.Session{
		Subject:   cfg.Name,
		Date:      model.FormatDate(day),
		ClassType: ct,
		Marks:     marks,
		Confirmed: req.Confirmed,
	}
	if err := s.repo.Attendance.SaveSession(repository.WithActor(ctx, instructorID), session); err != nil {
		s.logger.Error("保存考勤失败",
			zap.String("subject", session.Subject),
			zap.String("date", session.Date),
			zap.String("class_type", ct.Label()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("考勤已保存",
		zap.String("subject", session.Subject),
		zap.String("date", session.Date),
		zap.String("class_type", ct.Label()),
		zap.Int("students", len(marks)),
		zap.Bool("confirmed", session.Confirmed),
		zap.String("instructor_id", instructorID),
	)
	s.invalidate(ctx, session.Subject)

	return toSessionResponse(session), nil
}

// ────────────────────── Session / Sessions ──────────────────────

func (s *attendanceService) Session(ctx context.Context, q *dto.SessionLookup) (*dto.SessionResponse, error) {
	if _, err := s.catalog.Subject(q.Subject); err != nil {
		return nil, err
	}
	day, err := model.ParseDate("date", q.Date)
	if err != nil {
		return nil, err
	}
	ct, err := model.ParseClassType(q.ClassType)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.Attendance.GetSession(ctx, q.Subject, model.FormatDate(day), ct)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *attendanceService) Sessions(ctx context.Context, q *dto.SessionQuery) ([]dto.SessionResponse, error) {
	if _, err := s.catalog.Subject(q.Subject); err != nil {
		return nil, err
	}
	start, end, err := parseOptionalRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.Attendance.ListSessions(ctx, q.Subject)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("subject", q.Subject), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		day, ok := sessions[i].ParsedDate()
		if !ok {
			continue
		}
		if (!start.IsZero() && day.Before(start)) || (!end.IsZero() && day.After(end)) {
			continue
		}
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── ImportCalendar ──────────────────────

func (s *attendanceService) ImportCalendar(ctx context.Context, req *dto.ImportCalendarRequest, calendar io.Reader, instructorID string) (*dto.ImportCalendarResponse, error) {
	cfg, err := s.catalog.Subject(req.Subject)
	if err != nil {
		return nil, err
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	planned, err := ParseSessionCalendar(calendar, cfg, start, end, s.loc)
	if err != nil {
		return nil, apperrors.NewValidationError("file", err.Error())
	}

	ctx = repository.WithActor(ctx, instructorID)
	resp := &dto.ImportCalendarResponse{Sessions: make([]dto.PlannedSessionResponse, 0, len(planned))}
	for _, p := range planned {
		created, err := s.repo.Attendance.EnsureSession(ctx, cfg.Name, p.Date, p.ClassType)
		if err != nil {
			s.logger.Error("导入课次失败",
				zap.String("subject", cfg.Name),
				zap.String("date", p.Date),
				zap.Int("created", resp.Created),
				zap.Error(err),
			)
			// 已创建的课次不回滚，但报表缓存必须失效
			if resp.Created > 0 {
				s.invalidate(ctx, cfg.Name)
			}
			return nil, err
		}
		if created {
			resp.Created++
		} else {
			resp.Skipped++
		}
		resp.Sessions = append(resp.Sessions, dto.PlannedSessionResponse{
			Date:      p.Date,
			ClassType: p.ClassType.Label(),
			Created:   created,
		})
	}

	s.logger.Info("日历导入完成",
		zap.String("subject", cfg.Name),
		zap.Int("created", resp.Created),
		zap.Int("skipped", resp.Skipped),
		zap.String("instructor_id", instructorID),
	)
	if resp.Created > 0 {
		s.invalidate(ctx, cfg.Name)
	}
	return resp, nil
}

// ── 辅助函数 ──

// invalidate 写入后清除课程的报表缓存；缓存失败只记录日志
func (s *attendanceService) invalidate(ctx context.Context, subject string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSubject(ctx, subject); err != nil {
		s.logger.Warn("清除报表缓存失败", zap.String("subject", subject), zap.Error(err))
	}
}

// parseRange 解析闭区间 [start, end]；start 晚于 end 时返回 ValidationError
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := model.ParseDate("start", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := model.ParseDate("end", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("start", "开始日期不能晚于结束日期")
	}
	return start, end, nil
}

// parseOptionalRange 空字符串表示不设该端边界
func parseOptionalRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr != "" {
		if start, err = model.ParseDate("start", startStr); err != nil {
			return
		}
	}
	if endStr != "" {
		if end, err = model.ParseDate("end", endStr); err != nil {
			return
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		err = apperrors.NewValidationError("start", "开始日期不能晚于结束日期")
	}
	return
}

func toClassTypeResponse(t model.ClassType) dto.ClassTypeResponse {
	kind := "lecture"
	switch t.Kind {
	case model.KindPractice:
		kind = "practice"
	case model.KindLab:
		kind = "lab"
	}
	return dto.ClassTypeResponse{Label: t.Label(), Kind: kind, Subgroup: t.Subgroup}
}

func toSessionResponse(s *model.Session) *dto.SessionResponse {
	marks := make(map[string]string, len(s.Marks))
	for st, m := range s.Marks {
		marks[st] = string(m)
	}
	return &dto.SessionResponse{
		Subject:   s.Subject,
		Date:      s.Date,
		ClassType: s.ClassType.Label(),
		Confirmed: s.Confirmed,
		Marks:     marks,
	}
}
