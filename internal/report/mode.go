package report

import (
	"strings"

	"github.com/mintyspider/attendance-report/internal/model"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// ModeKind 报表页组类型
type ModeKind int

const (
	ModeCombined    ModeKind = iota + 1 // 讲座 + 实践同表
	ModeLectureOnly                     // 仅讲座
	ModeLab                             // 单个实验分组
)

// Mode 一张报表页组的选取方式
type Mode struct {
	Kind     ModeKind
	Subgroup string
}

// Combined 讲座与实践合并
func Combined() Mode { return Mode{Kind: ModeCombined} }

// LectureOnly 仅讲座
func LectureOnly() Mode { return Mode{Kind: ModeLectureOnly} }

// LabMode 指定实验分组
func LabMode(subgroup string) Mode { return Mode{Kind: ModeLab, Subgroup: subgroup} }

// String 与 ParseMode 互逆
func (m Mode) String() string {
	switch m.Kind {
	case ModeCombined:
		return "combined"
	case ModeLectureOnly:
		return "lecture"
	case ModeLab:
		return "lab:" + m.Subgroup
	}
	return ""
}

// ParseMode 解析 combined | lecture | lab:<分组>；空串返回 nil 表示全部页组
func ParseMode(s string) (*Mode, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, nil
	case s == "combined":
		m := Combined()
		return &m, nil
	case s == "lecture":
		m := LectureOnly()
		return &m, nil
	case strings.HasPrefix(s, "lab:") && strings.TrimSpace(s[len("lab:"):]) != "":
		m := LabMode(strings.TrimSpace(s[len("lab:"):]))
		return &m, nil
	}
	return nil, apperrors.NewValidationError("mode", "应为 combined | lecture | lab:<分组>，实际 "+s)
}

// accepts 该模式是否收录此课次类型
func (m Mode) accepts(t model.ClassType) bool {
	switch m.Kind {
	case ModeCombined:
		return t.Kind == model.KindLecture || t.Kind == model.KindPractice
	case ModeLectureOnly:
		return t.Kind == model.KindLecture
	case ModeLab:
		return t.Kind == model.KindLab && t.Subgroup == m.Subgroup
	}
	return false
}

// title 页眉标题
func (m Mode) title(subject string) string {
	switch m.Kind {
	case ModeLectureOnly:
		return subject + " - " + model.LabelLecture
	case ModeLab:
		return subject + " - " + model.Lab(m.Subgroup).Label()
	}
	return subject
}

// PlanSheets 一次报表需要输出的页组
// 未指定模式时：有讲座或实践则先输出合并表，再按声明顺序输出各实验分组
func PlanSheets(cfg *model.SubjectConfig, mode *Mode) []Mode {
	if mode != nil {
		return []Mode{*mode}
	}
	var sheets []Mode
	if cfg.HasLectures || cfg.HasPractices {
		sheets = append(sheets, Combined())
	}
	for _, sg := range cfg.LabSubgroups {
		sheets = append(sheets, LabMode(sg.Name))
	}
	return sheets
}
