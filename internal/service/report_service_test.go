package service

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/model"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
)

func testReportConfig() config.ReportConfig {
	return config.ReportConfig{
		Page: config.PageConfig{
			Width:             841.89,
			Height:            595.28,
			MarginLeft:        50,
			TitleTop:          50,
			TableTop:          80,
			HeaderHeight:      40,
			RowHeight:         20,
			NameColumnWidth:   150,
			DataColumnWidth:   60,
			CellPadding:       10,
			LineSpacing:       12,
			FontSize:          10,
			TitleFontSize:     16,
			SignatureFontSize: 12,
			SignatureBottom:   50,
			ChromeHeight:      150,
			ReservedRows:      3,
			MaxCellLines:      2,
		},
	}
}

func setupTestReportService(t *testing.T) (ReportService, *mockAttendanceRepo, *fakeCache) {
	t.Helper()
	repo := newMockAttendanceRepo()
	cache := newFakeCache()
	svc := NewReportService(testReportConfig(), newTestCatalog(t), &repository.Repository{Attendance: repo}, cache, zap.NewNop())
	return svc, repo, cache
}

func seedSeptember(repo *mockAttendanceRepo) {
	repo.put(model.Session{
		Subject: testSubject, Date: "03.09.2024", ClassType: model.Lecture(), Confirmed: true,
		Marks: map[string]model.Mark{"Иванов": model.MarkPresent, "Петров": model.MarkUnexcused, "Сидоров": model.MarkPresent},
	})
	repo.put(model.Session{
		Subject: testSubject, Date: "03.09.2024", ClassType: model.Practice(),
		Marks: map[string]model.Mark{"Иванов": model.MarkExcused},
	})
	repo.put(model.Session{
		Subject: testSubject, Date: "05.09.2024", ClassType: model.Lab("1"),
		Marks: map[string]model.Mark{"Иванов": model.MarkPresent, "Петров": model.MarkPresent},
	})
}

// ── PDF ──

func TestGenerate_PDF(t *testing.T) {
	svc, repo, _ := setupTestReportService(t)
	seedSeptember(repo)

	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024",
	})
	if err != nil {
		t.Fatalf("Generate 应成功，但返回错误: %v", err)
	}
	if !bytes.HasPrefix(file.Content, []byte("%PDF-")) {
		t.Error("输出应为 PDF 文档")
	}
	if file.ContentType != "application/pdf" {
		t.Errorf("ContentType = %s", file.ContentType)
	}
	if file.Filename != "attendance_report_Физика.pdf" {
		t.Errorf("Filename = %s", file.Filename)
	}
	// 合并表 + 分组 1 + 分组 2，各一页
	if file.Pages != 3 {
		t.Errorf("期望 3 页，实际 %d", file.Pages)
	}
	// 分组 2 区间内无课次
	if len(file.Warnings) != 1 || !strings.Contains(file.Warnings[0], "Лабораторная работа - 2") {
		t.Errorf("期望分组 2 的空结果警告，实际 %v", file.Warnings)
	}
	if file.Cached {
		t.Error("首次生成不应来自缓存")
	}
}

func TestGenerate_EmptyRangeStillRenders(t *testing.T) {
	svc, repo, _ := setupTestReportService(t)
	seedSeptember(repo)

	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: testSubject, Start: "01.01.2025", End: "31.01.2025", Mode: "combined",
	})
	if err != nil {
		t.Fatalf("空区间不应返回错误: %v", err)
	}
	if file.Pages != 1 || len(file.Warnings) != 1 {
		t.Errorf("期望 1 页仅表头报表与 1 条警告，实际 pages=%d warnings=%v", file.Pages, file.Warnings)
	}
}

func TestGenerate_PaginatesLongRoster(t *testing.T) {
	repo := newMockAttendanceRepo()
	students := make([]string, 45)
	for i := range students {
		students[i] = "Студент " + string(rune('А'+i%32)) + string(rune('а'+i/32))
	}
	catalog := mustCatalog(t, model.SubjectConfig{Name: "Химия", HasLectures: true, Students: students})
	svc := NewReportService(testReportConfig(), catalog, &repository.Repository{Attendance: repo}, nil, zap.NewNop())
	repo.put(model.Session{Subject: "Химия", Date: "02.09.2024", ClassType: model.Lecture(), Marks: map[string]model.Mark{}})

	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: "Химия", Start: "01.09.2024", End: "30.09.2024",
	})
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	// floor((595.28 - 150) / 20) - 3 = 19 行/页 → 45 行需要 3 页
	if file.Pages != 3 {
		t.Errorf("期望 3 页，实际 %d", file.Pages)
	}
}

// ── XLSX ──

func TestGenerate_XLSX(t *testing.T) {
	svc, repo, _ := setupTestReportService(t)
	seedSeptember(repo)

	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Format: "XLSX",
	})
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	if file.Filename != "attendance_report_Физика.xlsx" {
		t.Errorf("Filename = %s", file.Filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(file.Content))
	if err != nil {
		t.Fatalf("无法打开生成的工作簿: %v", err)
	}
	defer f.Close()

	want := []string{testSubject, "Лабораторная работа - 1", "Лабораторная работа - 2"}
	got := f.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("工作表 = %v，期望 %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("工作表[%d] = %q，期望 %q", i, got[i], want[i])
		}
	}
	if file.Pages != 3 {
		t.Errorf("xlsx 的 Pages 应为工作表数，实际 %d", file.Pages)
	}
}

func TestGenerate_XLSXLectureOnly(t *testing.T) {
	svc, repo, _ := setupTestReportService(t)
	seedSeptember(repo)

	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Format: "xlsx", Mode: "lecture",
	})
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(file.Content))
	if err != nil {
		t.Fatalf("无法打开生成的工作簿: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 1 || got[0] != "Лекция" {
		t.Errorf("工作表 = %v，期望 [Лекция]", got)
	}
}

// ── 缓存 ──

func TestGenerate_CacheHit(t *testing.T) {
	svc, repo, cache := setupTestReportService(t)
	seedSeptember(repo)
	req := &dto.GenerateReportRequest{Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Mode: "lab:1"}

	first, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("生成后应写入缓存，实际 %d 条", len(cache.entries))
	}
	if _, ok := cache.entries["report:"+testSubject+":01.09.2024:30.09.2024:lab:1:pdf"]; !ok {
		t.Errorf("缓存键不符合预期: %v", cache.entries)
	}

	second, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate 返回错误: %v", err)
	}
	if !second.Cached {
		t.Error("第二次应命中缓存")
	}
	if !bytes.Equal(first.Content, second.Content) || first.Filename != second.Filename {
		t.Error("缓存内容与首次生成不一致")
	}
}

func TestGenerate_MissingFontKeepsCause(t *testing.T) {
	cfg := testReportConfig()
	cfg.FontFamily = "DejaVuSans"
	cfg.FontFile = filepath.Join(t.TempDir(), "missing.ttf")
	repo := newMockAttendanceRepo()
	seedSeptember(repo)
	cache := newFakeCache()
	svc := NewReportService(cfg, newTestCatalog(t), &repository.Repository{Attendance: repo}, cache, zap.NewNop())

	_, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: testSubject, Start: "01.09.2024", End: "30.09.2024",
	})
	if !errors.Is(err, ErrReportRenderFail) {
		t.Fatalf("期望 ErrReportRenderFail，实际 %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("错误链应保留字体文件不存在的原因，实际 %v", err)
	}
	if len(cache.entries) != 0 {
		t.Error("渲染失败不应写入缓存")
	}
}

// ── 参数校验 ──

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.GenerateReportRequest
		wantCfg bool
	}{
		{"未知格式", dto.GenerateReportRequest{Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Format: "docx"}, false},
		{"日期格式", dto.GenerateReportRequest{Subject: testSubject, Start: "2024-09-01", End: "30.09.2024"}, false},
		{"区间颠倒", dto.GenerateReportRequest{Subject: testSubject, Start: "30.09.2024", End: "01.09.2024"}, false},
		{"未知模式", dto.GenerateReportRequest{Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Mode: "weekly"}, false},
		{"未配置课程", dto.GenerateReportRequest{Subject: "Химия", Start: "01.09.2024", End: "30.09.2024"}, true},
		{"未配置分组", dto.GenerateReportRequest{Subject: testSubject, Start: "01.09.2024", End: "30.09.2024", Mode: "lab:7"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, cache := setupTestReportService(t)

			_, err := svc.Generate(context.Background(), &tt.req)
			if tt.wantCfg && !apperrors.IsConfiguration(err) {
				t.Errorf("期望 ConfigurationError，实际 %v", err)
			}
			if !tt.wantCfg && !apperrors.IsValidation(err) {
				t.Errorf("期望 ValidationError，实际 %v", err)
			}
			if len(cache.entries) != 0 {
				t.Error("失败的请求不应写入缓存")
			}
		})
	}
}

func TestReportFilename_SanitizesSeparators(t *testing.T) {
	if got := reportFilename("ОС/Сети\\2", "pdf"); got != "attendance_report_ОС_Сети_2.pdf" {
		t.Errorf("reportFilename = %s", got)
	}
}

func mustCatalog(t *testing.T, subjects ...model.SubjectConfig) *roster.Catalog {
	t.Helper()
	c, err := roster.NewCatalog(subjects)
	if err != nil {
		t.Fatalf("构建课程目录失败: %v", err)
	}
	return c
}
