package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/mintyspider/attendance-report/internal/model"
)

// ── 日历导入 ──────────────────────────────────────────────
//
// 将 iCalendar (RFC 5545) 课表展开为课次：
//   - SUMMARY 须包含课程名与课次类型标签，实验分组标签优先匹配
//   - 课程只开设一种课次类型时可省略标签
//   - RRULE 仅支持 FREQ=WEEKLY（INTERVAL / COUNT / UNTIL），EXDATE 排除
//   - 无 RRULE 的单次事件按 DTSTART 计
//   - 只保留 [start, end] 区间内的日期
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 5 * 1024 * 1024 // 5MB

// maxOccurrences 单个事件最多展开的次数
const maxOccurrences = 1000

// PlannedSession 日历中解析出的一次课次
type PlannedSession struct {
	Date      string
	ClassType model.ClassType
	Summary   string
}

// ParseSessionCalendar 解析日历并返回课程在区间内的课次（按日期、类型排序，已去重）
func ParseSessionCalendar(reader io.Reader, cfg *model.SubjectConfig, start, end time.Time, loc *time.Location) ([]PlannedSession, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	seen := make(map[string]bool)
	var out []PlannedSession
	for _, evt := range cal.Events() {
		summary := evt.GetProperty(ics.ComponentPropertySummary)
		if summary == nil {
			continue
		}
		ct, ok := matchClassType(summary.Value, cfg)
		if !ok {
			continue
		}
		dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}

		for _, day := range occurrences(evt, dtStart, start, end, loc) {
			date := model.FormatDate(day)
			key := date + "|" + ct.Label()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, PlannedSession{Date: date, ClassType: ct, Summary: strings.TrimSpace(summary.Value)})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, _ := time.Parse(model.DateLayout, out[i].Date)
		dj, _ := time.Parse(model.DateLayout, out[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		a, b := out[i].ClassType, out[j].ClassType
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return cfg.SubgroupIndex(a.Subgroup) < cfg.SubgroupIndex(b.Subgroup)
	})
	return out, nil
}

// matchClassType 由事件标题识别课次类型
func matchClassType(summary string, cfg *model.SubjectConfig) (model.ClassType, bool) {
	s := strings.ToLower(strings.TrimSpace(summary))
	if s == "" || !strings.Contains(s, strings.ToLower(cfg.Name)) {
		return model.ClassType{}, false
	}

	// 长标签优先，避免 "1" 命中 "10"
	labs := make([]model.LabSubgroup, len(cfg.LabSubgroups))
	copy(labs, cfg.LabSubgroups)
	sort.SliceStable(labs, func(i, j int) bool { return len(labs[i].Name) > len(labs[j].Name) })
	for _, sg := range labs {
		if strings.Contains(s, strings.ToLower(model.Lab(sg.Name).Label())) {
			return model.Lab(sg.Name), true
		}
	}
	if cfg.HasPractices && strings.Contains(s, strings.ToLower(model.LabelPractice)) {
		return model.Practice(), true
	}
	if cfg.HasLectures && strings.Contains(s, strings.ToLower(model.LabelLecture)) {
		return model.Lecture(), true
	}

	if types := cfg.ClassTypes(); len(types) == 1 {
		return types[0], true
	}
	return model.ClassType{}, false
}

// occurrences 展开事件在 [start, end] 内的日期
func occurrences(evt *ics.VEvent, dtStart, start, end time.Time, loc *time.Location) []time.Time {
	first := dayOf(dtStart)
	from, to := dayOf(start), dayOf(end)
	inRange := func(d time.Time) bool { return !d.Before(from) && !d.After(to) }

	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		if inRange(first) {
			return []time.Time{first}
		}
		return nil
	}

	rule := parseRRule(rruleProp.Value)
	if rule.freq != "WEEKLY" {
		// 其他重复规则只取首次
		if inRange(first) {
			return []time.Time{first}
		}
		return nil
	}

	exDates := parseExDates(evt, loc)
	interval := rule.interval
	if interval < 1 {
		interval = 1
	}
	var until time.Time
	if !rule.until.IsZero() {
		until = dayOf(rule.until.In(loc))
	}

	var days []time.Time
	current := first
	for n := 0; n < maxOccurrences; n++ {
		if rule.count > 0 && n >= rule.count {
			break
		}
		if !until.IsZero() && current.After(until) {
			break
		}
		if current.After(to) {
			break
		}
		if inRange(current) && !exDates[current.Format("20060102")] {
			days = append(days, current)
		}
		current = current.AddDate(0, 0, 7*interval)
	}
	return days
}

// dayOf 取日期部分，按 UTC 零点表示
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;COUNT=16;INTERVAL=1）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			fmt.Sscanf(kv[1], "%d", &r.interval)
		case "COUNT":
			fmt.Sscanf(kv[1], "%d", &r.count)
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE（可能以逗号分隔多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) map[string]bool {
	exDates := make(map[string]bool)
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			v = strings.TrimSpace(v)
			if t, err := time.Parse("20060102T150405Z", v); err == nil {
				exDates[t.In(loc).Format("20060102")] = true
				continue
			}
			for _, layout := range []string{"20060102T150405", "20060102"} {
				if t, err := time.Parse(layout, v); err == nil {
					exDates[t.Format("20060102")] = true
					break
				}
			}
		}
	}
	return exDates
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
