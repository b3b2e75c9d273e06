package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mintyspider/attendance-report/internal/model"
)

// confirmedKey 与学生标记同级保存的确认状态键
const confirmedKey = "confirmed"

// jsonDocument 课程 → 日期 → 课次类型标签 → 课次
type jsonDocument map[string]map[string]map[string]*jsonSession

// jsonSession 课次节点：{学生: 标记, ..., "confirmed": bool}
type jsonSession struct {
	Marks     map[string]model.Mark
	Confirmed bool
}

func (s *jsonSession) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Marks = make(map[string]model.Mark, len(raw))
	for key, v := range raw {
		if key == confirmedKey {
			if err := json.Unmarshal(v, &s.Confirmed); err != nil {
				return fmt.Errorf("confirmed 应为布尔值: %s", v)
			}
			continue
		}
		var code string
		if err := json.Unmarshal(v, &code); err != nil {
			return fmt.Errorf("学生 %s 的标记应为字符串: %s", key, v)
		}
		m := model.Mark(code)
		if !m.Valid() {
			return fmt.Errorf("学生 %s 的标记未知: %q", key, code)
		}
		s.Marks[key] = m
	}
	return nil
}

func (s *jsonSession) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Marks)+1)
	for st, m := range s.Marks {
		out[st] = string(m)
	}
	out[confirmedKey] = s.Confirmed
	return json.Marshal(out)
}

type jsonAttendanceRepo struct {
	mu   sync.Mutex
	path string
}

// NewJSONAttendanceRepo 创建基于单个 JSON 文件的 AttendanceRepository
// 每次操作读取整份文件；文件不存在视为空存储
func NewJSONAttendanceRepo(path string) AttendanceRepository {
	return &jsonAttendanceRepo{path: path}
}

func (r *jsonAttendanceRepo) ListSessions(ctx context.Context, subject string) ([]model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	var sessions []model.Session
	for date, byType := range doc[subject] {
		for label, js := range byType {
			ct, _ := model.ParseClassType(label)
			sessions = append(sessions, toSession(subject, date, ct, js))
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func (r *jsonAttendanceRepo) GetSession(ctx context.Context, subject, date string, classType model.ClassType) (*model.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	js, ok := doc[subject][date][classType.Label()]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := toSession(subject, date, classType, js)
	return &s, nil
}

func (r *jsonAttendanceRepo) SaveSession(ctx context.Context, session *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	js := doc.session(session.Subject, session.Date, session.ClassType.Label())
	for st, m := range session.Marks {
		js.Marks[st] = m
	}
	js.Confirmed = session.Confirmed
	return r.save(doc)
}

func (r *jsonAttendanceRepo) EnsureSession(ctx context.Context, subject, date string, classType model.ClassType) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return false, err
	}
	if _, ok := doc[subject][date][classType.Label()]; ok {
		return false, nil
	}
	doc.session(subject, date, classType.Label())
	return true, r.save(doc)
}

// session 取出课次节点，路径不存在时逐级创建
func (d jsonDocument) session(subject, date, label string) *jsonSession {
	if d[subject] == nil {
		d[subject] = make(map[string]map[string]*jsonSession)
	}
	if d[subject][date] == nil {
		d[subject][date] = make(map[string]*jsonSession)
	}
	js := d[subject][date][label]
	if js == nil {
		js = &jsonSession{Marks: make(map[string]model.Mark)}
		d[subject][date][label] = js
	}
	return js
}

func toSession(subject, date string, ct model.ClassType, js *jsonSession) model.Session {
	marks := make(map[string]model.Mark, len(js.Marks))
	for st, m := range js.Marks {
		marks[st] = m
	}
	return model.Session{
		Subject:   subject,
		Date:      date,
		ClassType: ct,
		Marks:     marks,
		Confirmed: js.Confirmed,
	}
}

// ── 文件读写 ──

func (r *jsonAttendanceRepo) load() (jsonDocument, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(jsonDocument), nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取考勤文件失败: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(jsonDocument), nil
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if doc == nil {
		doc = make(jsonDocument)
	}
	for subject, byDate := range doc {
		for date, byType := range byDate {
			for label, js := range byType {
				if js == nil {
					return nil, fmt.Errorf("%w: %s/%s/%s 为空节点", ErrMalformedStore, subject, date, label)
				}
				if _, err := model.ParseClassType(label); err != nil {
					return nil, fmt.Errorf("%w: %s/%s: %v", ErrMalformedStore, subject, date, err)
				}
			}
		}
	}
	return doc, nil
}

// save 先写临时文件再原子替换，写入失败时原文件保持不变
func (r *jsonAttendanceRepo) save(doc jsonDocument) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("序列化考勤数据失败: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入考勤文件失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("写入考勤文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入考勤文件失败: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("替换考勤文件失败: %w", err)
	}
	return nil
}
