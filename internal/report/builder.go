package report

import (
	"sort"
	"time"

	"github.com/mintyspider/attendance-report/internal/model"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// BuildRequest 构建一张报表页组所需的全部输入
type BuildRequest struct {
	Subject  string
	Config   *model.SubjectConfig
	Sessions []model.Session
	Start    time.Time // 含
	End      time.Time // 含
	Mode     Mode
}

// column 构建过程中的单列
type column struct {
	date      time.Time
	dateLabel string
	classType model.ClassType
	marks     map[string]model.Mark
	confirmed bool
}

// ═══════════════════════════════════════════════════════════
// Build: 考勤记录 → TableModel
// ═══════════════════════════════════════════════════════════
//
//   - 日期无法解析或不在 [Start, End] 内的课次直接跳过
//   - 列由区间内实际存在的 (日期, 类型) 发现，而非由配置生成
//   - 行始终为该模式的完整名册，缺少标记的单元格为空串
//   - 无任何列时返回仅表头的表（合法结果）
func Build(req BuildRequest) (*TableModel, error) {
	cfg := req.Config
	if cfg == nil || cfg.Name != req.Subject {
		return nil, apperrors.NewConfigurationError(req.Subject, "课程未配置", nil)
	}

	var roster []string
	switch req.Mode.Kind {
	case ModeCombined, ModeLectureOnly:
		roster = cfg.Students
	case ModeLab:
		sg, ok := cfg.Subgroup(req.Mode.Subgroup)
		if !ok {
			return nil, apperrors.NewConfigurationError(req.Subject, "实验分组未配置: "+req.Mode.Subgroup, nil)
		}
		roster = sg.Students
	default:
		return nil, apperrors.NewValidationError("mode", "未知的报表模式")
	}

	cols := discoverColumns(req)
	sortColumns(cols, cfg)

	table := &TableModel{
		Title:                   req.Mode.title(req.Subject),
		RowHeader:               RowHeaderLabel,
		Confirmed:               make(map[int]bool, len(cols)),
		SuppressClassTypeLabels: suppressClassTypeLabels(cfg, req.Mode),
	}

	for i, c := range cols {
		n := len(table.Groups)
		if n == 0 || table.Groups[n-1].DateLabel != c.dateLabel {
			table.Groups = append(table.Groups, ColumnGroup{DateLabel: c.dateLabel})
			n++
		}
		table.Groups[n-1].ClassTypes = append(table.Groups[n-1].ClassTypes, c.classType.Label())
		table.Confirmed[i] = c.confirmed
	}

	for _, student := range sortedRoster(roster) {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = string(c.marks[student])
		}
		table.Rows = append(table.Rows, Row{Student: student, Cells: cells})
	}

	return table, nil
}

// discoverColumns 过滤课次并按 (日期原文, 类型) 去重
func discoverColumns(req BuildRequest) []*column {
	type key struct {
		date  string
		label string
	}
	index := make(map[key]*column)
	var cols []*column

	for i := range req.Sessions {
		s := &req.Sessions[i]
		if s.Subject != "" && s.Subject != req.Subject {
			continue
		}
		d, ok := s.ParsedDate()
		if !ok {
			continue
		}
		if d.Before(req.Start) || d.After(req.End) {
			continue
		}
		if !req.Mode.accepts(s.ClassType) {
			continue
		}

		k := key{date: s.Date, label: s.ClassType.Label()}
		c, ok := index[k]
		if !ok {
			c = &column{
				date:      d,
				dateLabel: s.Date,
				classType: s.ClassType,
				marks:     make(map[string]model.Mark),
			}
			index[k] = c
			cols = append(cols, c)
		}
		for student, m := range s.Marks {
			c.marks[student] = m
		}
		c.confirmed = c.confirmed || s.Confirmed
	}
	return cols
}

// sortColumns 日期升序；同日按 讲座 → 实践 → 实验（分组声明顺序）
func sortColumns(cols []*column, cfg *model.SubjectConfig) {
	sort.SliceStable(cols, func(i, j int) bool {
		a, b := cols[i], cols[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.dateLabel != b.dateLabel {
			return a.dateLabel < b.dateLabel
		}
		if a.classType.Kind != b.classType.Kind {
			return a.classType.Kind < b.classType.Kind
		}
		return subgroupLess(cfg, a.classType.Subgroup, b.classType.Subgroup)
	})
}

// subgroupLess 已声明分组按声明顺序，未声明的排在其后并按名称排序
func subgroupLess(cfg *model.SubjectConfig, a, b string) bool {
	ia, ib := cfg.SubgroupIndex(a), cfg.SubgroupIndex(b)
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	}
	return a < b
}

func sortedRoster(roster []string) []string {
	seen := make(map[string]bool, len(roster))
	out := make([]string, 0, len(roster))
	for _, s := range roster {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// suppressClassTypeLabels 每个日期下至多一种课次类型时只显示日期
func suppressClassTypeLabels(cfg *model.SubjectConfig, m Mode) bool {
	switch m.Kind {
	case ModeLab, ModeLectureOnly:
		return true
	}
	return cfg.HasLectures != cfg.HasPractices
}
