package service

import (
	"context"
	"strings"

	"github.com/mintyspider/attendance-report/internal/model"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/pkg/redis"
)

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	sessions map[string]*model.Session
	saves    int

	// ensureErr 非空时，第 ensureFailAt 次（从 1 计）EnsureSession 返回该错误
	ensureErr    error
	ensureFailAt int
	ensures      int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{sessions: make(map[string]*model.Session)}
}

func sessionKey(subject, date string, ct model.ClassType) string {
	return subject + "|" + date + "|" + ct.Label()
}

func (m *mockAttendanceRepo) put(s model.Session) {
	m.sessions[sessionKey(s.Subject, s.Date, s.ClassType)] = &s
}

func (m *mockAttendanceRepo) ListSessions(_ context.Context, subject string) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if s.Subject == subject {
			result = append(result, *s)
		}
	}
	// 与真实实现保持同一顺序
	sortByDate(result)
	return result, nil
}

func (m *mockAttendanceRepo) GetSession(_ context.Context, subject, date string, ct model.ClassType) (*model.Session, error) {
	if s, ok := m.sessions[sessionKey(subject, date, ct)]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockAttendanceRepo) SaveSession(_ context.Context, session *model.Session) error {
	m.saves++
	key := sessionKey(session.Subject, session.Date, session.ClassType)
	existing, ok := m.sessions[key]
	if !ok {
		cp := *session
		cp.Marks = make(map[string]model.Mark, len(session.Marks))
		for k, v := range session.Marks {
			cp.Marks[k] = v
		}
		m.sessions[key] = &cp
		return nil
	}
	for k, v := range session.Marks {
		existing.Marks[k] = v
	}
	existing.Confirmed = session.Confirmed
	return nil
}

func (m *mockAttendanceRepo) EnsureSession(_ context.Context, subject, date string, ct model.ClassType) (bool, error) {
	m.ensures++
	if m.ensureErr != nil && m.ensures == m.ensureFailAt {
		return false, m.ensureErr
	}
	key := sessionKey(subject, date, ct)
	if _, ok := m.sessions[key]; ok {
		return false, nil
	}
	m.sessions[key] = &model.Session{Subject: subject, Date: date, ClassType: ct, Marks: map[string]model.Mark{}}
	return true, nil
}

func sortByDate(sessions []model.Session) {
	for i := 1; i < len(sessions); i++ {
		for j := i; j > 0 && sessionLess(&sessions[j], &sessions[j-1]); j-- {
			sessions[j], sessions[j-1] = sessions[j-1], sessions[j]
		}
	}
}

func sessionLess(a, b *model.Session) bool {
	ta, _ := a.ParsedDate()
	tb, _ := b.ParsedDate()
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	if a.ClassType.Kind != b.ClassType.Kind {
		return a.ClassType.Kind < b.ClassType.Kind
	}
	return a.ClassType.Subgroup < b.ClassType.Subgroup
}

// ── Fake ReportCache ──

type fakeCache struct {
	entries     map[string]*redis.CachedReport
	gets        int
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*redis.CachedReport)}
}

func (f *fakeCache) GetReport(_ context.Context, key string) (*redis.CachedReport, bool, error) {
	f.gets++
	rep, ok := f.entries[key]
	return rep, ok, nil
}

func (f *fakeCache) SetReport(_ context.Context, key string, rep *redis.CachedReport) error {
	f.entries[key] = rep
	return nil
}

func (f *fakeCache) InvalidateSubject(_ context.Context, subject string) error {
	f.invalidated = append(f.invalidated, subject)
	prefix := "report:" + subject + ":"
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}
