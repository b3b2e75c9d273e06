package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/model"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

// ── 测试辅助 ──

const testSubject = "Физика"

func newTestCatalog(t *testing.T) *roster.Catalog {
	t.Helper()
	catalog, err := roster.NewCatalog([]model.SubjectConfig{
		{
			Name:         testSubject,
			HasLectures:  true,
			HasPractices: true,
			LabSubgroups: []model.LabSubgroup{
				{Name: "1", Students: []string{"Иванов", "Петров"}},
				{Name: "2", Students: []string{"Сидоров"}},
			},
			Students: []string{"Петров", "Иванов", "Сидоров"},
		},
		{
			Name:        "История",
			HasLectures: true,
			Students:    []string{"Кузнецова"},
		},
	})
	if err != nil {
		t.Fatalf("构建课程目录失败: %v", err)
	}
	return catalog
}

func setupTestAttendanceService(t *testing.T) (AttendanceService, *mockAttendanceRepo, *fakeCache) {
	t.Helper()
	repo := newMockAttendanceRepo()
	cache := newFakeCache()
	svc := NewAttendanceService(newTestCatalog(t), &repository.Repository{Attendance: repo}, cache, zap.NewNop())
	return svc, repo, cache
}

// ── 目录查询 ──

func TestSubjects(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	names := svc.Subjects(context.Background())
	if len(names) != 2 {
		t.Fatalf("期望 2 门课程，实际 %v", names)
	}
}

func TestClassTypes_Order(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	types, err := svc.ClassTypes(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("ClassTypes 返回错误: %v", err)
	}
	want := []string{"Лекция", "Практика", "Лабораторная работа - 1", "Лабораторная работа - 2"}
	if len(types) != len(want) {
		t.Fatalf("期望 %d 个类型，实际 %d", len(want), len(types))
	}
	for i, w := range want {
		if types[i].Label != w {
			t.Errorf("types[%d] = %q，期望 %q", i, types[i].Label, w)
		}
	}
	if types[2].Kind != "lab" || types[2].Subgroup != "1" {
		t.Errorf("实验分组类型解析错误: %+v", types[2])
	}
}

func TestClassTypes_UnknownSubject(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	_, err := svc.ClassTypes(context.Background(), "Химия")
	if !apperrors.IsConfiguration(err) {
		t.Errorf("期望 ConfigurationError，实际 %v", err)
	}
}

func TestRoster_Lab(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	resp, err := svc.Roster(context.Background(), testSubject, "Лабораторная работа - 2")
	if err != nil {
		t.Fatalf("Roster 返回错误: %v", err)
	}
	if len(resp.Students) != 1 || resp.Students[0] != "Сидоров" {
		t.Errorf("期望分组 2 名册 [Сидоров]，实际 %v", resp.Students)
	}
}

func TestRoster_NotOffered(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	_, err := svc.Roster(context.Background(), "История", "Практика")
	if !apperrors.IsValidation(err) {
		t.Errorf("未开设的类型应返回 ValidationError，实际 %v", err)
	}
}

// ── Mark ──

func TestMark_DefaultsToPresent(t *testing.T) {
	svc, repo, _ := setupTestAttendanceService(t)

	resp, err := svc.Mark(context.Background(), &dto.MarkAttendanceRequest{
		Subject:   testSubject,
		Date:      "03.09.2024",
		ClassType: "Лекция",
		Marks:     map[string]string{"Петров": "unexcused"},
	}, "instr-1")
	if err != nil {
		t.Fatalf("Mark 应成功，但返回错误: %v", err)
	}

	if resp.Marks["Петров"] != "н" {
		t.Errorf("Петров 期望 н，实际 %q", resp.Marks["Петров"])
	}
	if resp.Marks["Иванов"] != "есть" || resp.Marks["Сидоров"] != "есть" {
		t.Errorf("未提交的学生应默认出勤: %v", resp.Marks)
	}
	if repo.saves != 1 {
		t.Errorf("期望写入 1 次，实际 %d", repo.saves)
	}

	stored, err := repo.GetSession(context.Background(), testSubject, "03.09.2024", model.Lecture())
	if err != nil {
		t.Fatalf("课次应已保存: %v", err)
	}
	if len(stored.Marks) != 3 {
		t.Errorf("期望 3 条标记，实际 %d", len(stored.Marks))
	}
}

func TestMark_LabRosterOnly(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	resp, err := svc.Mark(context.Background(), &dto.MarkAttendanceRequest{
		Subject:   testSubject,
		Date:      "04.09.2024",
		ClassType: "Лабораторная работа - 1",
		Confirmed: true,
	}, "instr-1")
	if err != nil {
		t.Fatalf("Mark 返回错误: %v", err)
	}
	if len(resp.Marks) != 2 {
		t.Errorf("实验课只应包含分组学生，实际 %v", resp.Marks)
	}
	if _, ok := resp.Marks["Сидоров"]; ok {
		t.Error("Сидоров 不属于分组 1")
	}
	if !resp.Confirmed {
		t.Error("确认状态应为 true")
	}
}

func TestMark_ValidationFailuresDoNotWrite(t *testing.T) {
	tests := []struct {
		name string
		req  dto.MarkAttendanceRequest
	}{
		{"无效日期", dto.MarkAttendanceRequest{Subject: testSubject, Date: "2024-09-03", ClassType: "Лекция"}},
		{"不存在的日期", dto.MarkAttendanceRequest{Subject: testSubject, Date: "31.02.2024", ClassType: "Лекция"}},
		{"未知类型", dto.MarkAttendanceRequest{Subject: testSubject, Date: "03.09.2024", ClassType: "Семинар"}},
		{"未开设的类型", dto.MarkAttendanceRequest{Subject: "История", Date: "03.09.2024", ClassType: "Практика"}},
		{"未知分组", dto.MarkAttendanceRequest{Subject: testSubject, Date: "03.09.2024", ClassType: "Лабораторная работа - 9"}},
		{"未知标记", dto.MarkAttendanceRequest{Subject: testSubject, Date: "03.09.2024", ClassType: "Лекция", Marks: map[string]string{"Иванов": "?"}}},
		{"学生不在名册", dto.MarkAttendanceRequest{Subject: testSubject, Date: "03.09.2024", ClassType: "Лабораторная работа - 2", Marks: map[string]string{"Иванов": "н"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, cache := setupTestAttendanceService(t)

			_, err := svc.Mark(context.Background(), &tt.req, "instr-1")
			if !apperrors.IsValidation(err) {
				t.Fatalf("期望 ValidationError，实际 %v", err)
			}
			if repo.saves != 0 {
				t.Errorf("校验失败不应写入，实际写入 %d 次", repo.saves)
			}
			if len(cache.invalidated) != 0 {
				t.Error("校验失败不应清除缓存")
			}
		})
	}
}

func TestMark_UnknownSubject(t *testing.T) {
	svc, repo, _ := setupTestAttendanceService(t)

	_, err := svc.Mark(context.Background(), &dto.MarkAttendanceRequest{
		Subject: "Химия", Date: "03.09.2024", ClassType: "Лекция",
	}, "instr-1")
	if !apperrors.IsConfiguration(err) {
		t.Errorf("期望 ConfigurationError，实际 %v", err)
	}
	if repo.saves != 0 {
		t.Error("不应写入")
	}
}

func TestMark_InvalidatesCache(t *testing.T) {
	svc, _, cache := setupTestAttendanceService(t)
	cache.entries["report:"+testSubject+":01.09.2024:30.09.2024::pdf"] = nil
	cache.entries["report:История:01.09.2024:30.09.2024::pdf"] = nil

	_, err := svc.Mark(context.Background(), &dto.MarkAttendanceRequest{
		Subject: testSubject, Date: "03.09.2024", ClassType: "Практика",
	}, "instr-1")
	if err != nil {
		t.Fatalf("Mark 返回错误: %v", err)
	}
	if len(cache.entries) != 1 {
		t.Errorf("只应清除本课程缓存，剩余 %d 条", len(cache.entries))
	}
}

// ── Session / Sessions ──

func TestSession_NotFound(t *testing.T) {
	svc, _, _ := setupTestAttendanceService(t)

	_, err := svc.Session(context.Background(), &dto.SessionLookup{
		Subject: testSubject, Date: "03.09.2024", ClassType: "Лекция",
	})
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
}

func TestSessions_RangeFilter(t *testing.T) {
	svc, repo, _ := setupTestAttendanceService(t)
	for _, d := range []string{"02.09.2024", "10.09.2024", "01.10.2024", "bad-date"} {
		repo.put(model.Session{Subject: testSubject, Date: d, ClassType: model.Lecture(), Marks: map[string]model.Mark{}})
	}

	all, err := svc.Sessions(context.Background(), &dto.SessionQuery{Subject: testSubject})
	if err != nil {
		t.Fatalf("Sessions 返回错误: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("日期无法解析的课次应跳过，期望 3 条，实际 %d", len(all))
	}

	sept, err := svc.Sessions(context.Background(), &dto.SessionQuery{Subject: testSubject, Start: "02.09.2024", End: "30.09.2024"})
	if err != nil {
		t.Fatalf("Sessions 返回错误: %v", err)
	}
	if len(sept) != 2 || sept[0].Date != "02.09.2024" || sept[1].Date != "10.09.2024" {
		t.Errorf("区间过滤错误: %+v", sept)
	}

	_, err = svc.Sessions(context.Background(), &dto.SessionQuery{Subject: testSubject, Start: "30.09.2024", End: "01.09.2024"})
	if !apperrors.IsValidation(err) {
		t.Errorf("start 晚于 end 应返回 ValidationError，实际 %v", err)
	}
}

// ── ImportCalendar ──

const testCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:lecture@test\r\n" +
	"SUMMARY:Физика (Лекция)\r\n" +
	"DTSTART:20240902T090000\r\n" +
	"DTEND:20240902T103000\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE:20240909T090000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:lab@test\r\n" +
	"SUMMARY:Физика - Лабораторная работа - 2\r\n" +
	"DTSTART:20240904T120000\r\n" +
	"DTEND:20240904T133000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:other@test\r\n" +
	"SUMMARY:История (Лекция)\r\n" +
	"DTSTART:20240903T090000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportCalendar_CreatesMissingSessions(t *testing.T) {
	svc, repo, _ := setupTestAttendanceService(t)
	existing := model.Session{
		Subject:   testSubject,
		Date:      "16.09.2024",
		ClassType: model.Lecture(),
		Marks:     map[string]model.Mark{"Иванов": model.MarkExcused},
		Confirmed: true,
	}
	repo.put(existing)

	resp, err := svc.ImportCalendar(context.Background(), &dto.ImportCalendarRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024",
	}, strings.NewReader(testCalendar), "admin-1")
	if err != nil {
		t.Fatalf("ImportCalendar 返回错误: %v", err)
	}

	// 讲座 02/16/23（09 被排除）+ 实验 04
	if resp.Created != 3 || resp.Skipped != 1 {
		t.Errorf("期望新建 3 跳过 1，实际 created=%d skipped=%d", resp.Created, resp.Skipped)
	}
	wantDates := []string{"02.09.2024", "04.09.2024", "16.09.2024", "23.09.2024"}
	if len(resp.Sessions) != len(wantDates) {
		t.Fatalf("期望 %d 个课次，实际 %+v", len(wantDates), resp.Sessions)
	}
	for i, d := range wantDates {
		if resp.Sessions[i].Date != d {
			t.Errorf("Sessions[%d].Date = %s，期望 %s", i, resp.Sessions[i].Date, d)
		}
	}

	kept, _ := repo.GetSession(context.Background(), testSubject, "16.09.2024", model.Lecture())
	if kept.Marks["Иванов"] != model.MarkExcused || !kept.Confirmed {
		t.Error("已存在的课次不应被修改")
	}
}

func TestImportCalendar_PartialFailureInvalidatesCache(t *testing.T) {
	svc, repo, cache := setupTestAttendanceService(t)
	storeErr := errors.New("磁盘已满")
	repo.ensureErr, repo.ensureFailAt = storeErr, 3

	_, err := svc.ImportCalendar(context.Background(), &dto.ImportCalendarRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024",
	}, strings.NewReader(testCalendar), "admin-1")
	if !errors.Is(err, storeErr) {
		t.Fatalf("期望存储错误，实际 %v", err)
	}
	// 前两个课次已写入且保留
	if len(repo.sessions) != 2 {
		t.Errorf("期望保留 2 个已创建课次，实际 %d", len(repo.sessions))
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != testSubject {
		t.Errorf("部分导入后应清除课程缓存，实际 %v", cache.invalidated)
	}
}

func TestImportCalendar_InvalidFile(t *testing.T) {
	svc, repo, _ := setupTestAttendanceService(t)

	_, err := svc.ImportCalendar(context.Background(), &dto.ImportCalendarRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024",
	}, strings.NewReader("not a calendar"), "admin-1")
	if !apperrors.IsValidation(err) {
		t.Errorf("期望 ValidationError，实际 %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Error("解析失败不应写入")
	}
}
