package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mintyspider/attendance-report/internal/model"
)

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建基于 PostgreSQL 的 AttendanceRepository
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) ListSessions(ctx context.Context, subject string) ([]model.Session, error) {
	var rows []model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Marks").
		Where("subject = ?", subject).
		Order("session_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sessions := make([]model.Session, 0, len(rows))
	for i := range rows {
		s, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	sortSessions(sessions)
	return sessions, nil
}

func (r *attendanceRepo) GetSession(ctx context.Context, subject, date string, classType model.ClassType) (*model.Session, error) {
	day, err := model.ParseDate("date", date)
	if err != nil {
		return nil, err
	}

	var row model.AttendanceSession
	err = r.db.WithContext(ctx).
		Preload("Marks").
		Where("subject = ? AND session_date = ? AND class_type = ?", subject, day, classType.Label()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	s, err := fromRow(&row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession 在一个事务内 upsert 课次与全部学生标记
func (r *attendanceRepo) SaveSession(ctx context.Context, session *model.Session) error {
	day, err := model.ParseDate("date", session.Date)
	if err != nil {
		return err
	}
	actor := actorFrom(ctx)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &model.AttendanceSession{
			Subject:     session.Subject,
			SessionDate: day,
			ClassType:   session.ClassType.Label(),
			Confirmed:   session.Confirmed,
			BaseModel:   model.BaseModel{CreatedBy: actor, UpdatedBy: actor},
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject"}, {Name: "session_date"}, {Name: "class_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"confirmed":  session.Confirmed,
				"updated_by": actor,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Omit("Marks").Create(row).Error
		if err != nil {
			return fmt.Errorf("保存课次失败: %w", err)
		}

		sessionID, err := lookupSessionID(tx, session.Subject, day, row.ClassType)
		if err != nil {
			return err
		}
		if len(session.Marks) == 0 {
			return nil
		}

		marks := make([]model.AttendanceMark, 0, len(session.Marks))
		for st, m := range session.Marks {
			marks = append(marks, model.AttendanceMark{
				SessionID: sessionID,
				Student:   st,
				Mark:      string(m),
				BaseModel: model.BaseModel{CreatedBy: actor, UpdatedBy: actor},
			})
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "student"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"mark":       gorm.Expr("EXCLUDED.mark"),
				"updated_by": actor,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).Create(&marks).Error
		if err != nil {
			return fmt.Errorf("保存学生标记失败: %w", err)
		}
		return nil
	})
}

func (r *attendanceRepo) EnsureSession(ctx context.Context, subject, date string, classType model.ClassType) (bool, error) {
	day, err := model.ParseDate("date", date)
	if err != nil {
		return false, err
	}
	actor := actorFrom(ctx)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Marks").
		Create(&model.AttendanceSession{
			Subject:     subject,
			SessionDate: day,
			ClassType:   classType.Label(),
			BaseModel:   model.BaseModel{CreatedBy: actor, UpdatedBy: actor},
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func lookupSessionID(tx *gorm.DB, subject string, day time.Time, label string) (string, error) {
	var row model.AttendanceSession
	err := tx.Select("session_id").
		Where("subject = ? AND session_date = ? AND class_type = ?", subject, day, label).
		First(&row).Error
	if err != nil {
		return "", fmt.Errorf("查询课次失败: %w", err)
	}
	return row.SessionID, nil
}

func fromRow(row *model.AttendanceSession) (model.Session, error) {
	ct, err := model.ParseClassType(row.ClassType)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: 课次 %s: %v", ErrMalformedStore, row.SessionID, err)
	}
	marks := make(map[string]model.Mark, len(row.Marks))
	for _, m := range row.Marks {
		mark := model.Mark(m.Mark)
		if !mark.Valid() {
			return model.Session{}, fmt.Errorf("%w: 课次 %s 学生 %s 标记 %q", ErrMalformedStore, row.SessionID, m.Student, m.Mark)
		}
		marks[m.Student] = mark
	}
	return model.Session{
		Subject:   row.Subject,
		Date:      model.FormatDate(row.SessionDate),
		ClassType: ct,
		Marks:     marks,
		Confirmed: row.Confirmed,
	}, nil
}
