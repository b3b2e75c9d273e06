package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/model"
	"github.com/mintyspider/attendance-report/internal/report"
	"github.com/mintyspider/attendance-report/internal/report/pdf"
	"github.com/mintyspider/attendance-report/internal/report/xlsx"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	apperrors "github.com/mintyspider/attendance-report/pkg/errors"
	"github.com/mintyspider/attendance-report/pkg/redis"
)

// ── 报表模块业务错误 ──

var ErrReportRenderFail = errors.New("生成报表文档失败")

// 输出格式
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"

	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportCache 已生成报表的缓存，由 pkg/redis 实现
type ReportCache interface {
	GetReport(ctx context.Context, key string) (*redis.CachedReport, bool, error)
	SetReport(ctx context.Context, key string, rep *redis.CachedReport) error
	InvalidateSubject(ctx context.Context, subject string) error
}

// ReportService 报表业务接口
type ReportService interface {
	Generate(ctx context.Context, req *dto.GenerateReportRequest) (*dto.ReportFile, error)
}

type reportService struct {
	catalog *roster.Catalog
	repo    *repository.Repository
	cache   ReportCache
	cfg     config.ReportConfig
	logger  *zap.Logger
}

// NewReportService 创建 ReportService 实例；cache 可为 nil
func NewReportService(cfg config.ReportConfig, catalog *roster.Catalog, repo *repository.Repository, cache ReportCache, logger *zap.Logger) ReportService {
	if cfg.FontFile == "" {
		logger.Warn("未配置 report.font_file，PDF 使用内置字体，西里尔字母无法正常显示")
	}
	return &reportService{catalog: catalog, repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// sheet 一张已构建的页组
type sheet struct {
	mode  report.Mode
	table *report.TableModel
}

// ═══════════════════════════════════════════════════════════
// Generate: 考勤记录 → PDF / XLSX 文档
// ═══════════════════════════════════════════════════════════
//
// 步骤：
//  1. 校验格式、日期区间、模式，解析课程配置
//  2. 命中缓存直接返回
//  3. 读取课程全部课次（一次），按模式规划页组并逐一构建 TableModel
//  4. 按顺序渲染到同一文档；仅表头的页组记为警告
func (s *reportService) Generate(ctx context.Context, req *dto.GenerateReportRequest) (*dto.ReportFile, error) {
	// 1. 校验
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatPDF
	}
	if format != FormatPDF && format != FormatXLSX {
		return nil, apperrors.NewValidationError("format", "仅支持 pdf | xlsx")
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	mode, err := report.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	cfg, err := s.catalog.Subject(req.Subject)
	if err != nil {
		return nil, err
	}

	// 2. 缓存
	modeKey := ""
	if mode != nil {
		modeKey = mode.String()
	}
	cacheKey := redis.ReportKey(cfg.Name, model.FormatDate(start), model.FormatDate(end), modeKey, format)
	if file, ok := s.fromCache(ctx, cacheKey); ok {
		return file, nil
	}

	// 3. 构建
	sessions, err := s.repo.Attendance.ListSessions(ctx, cfg.Name)
	if err != nil {
		s.logger.Error("读取考勤记录失败", zap.String("subject", cfg.Name), zap.Error(err))
		return nil, err
	}

	modes := report.PlanSheets(cfg, mode)
	if len(modes) == 0 {
		return nil, apperrors.NewConfigurationError(cfg.Name, "课程未开设任何课次类型", nil)
	}

	sheets := make([]sheet, 0, len(modes))
	var warnings []string
	for _, m := range modes {
		table, err := report.Build(report.BuildRequest{
			Subject:  cfg.Name,
			Config:   cfg,
			Sessions: sessions,
			Start:    start,
			End:      end,
			Mode:     m,
		})
		if err != nil {
			return nil, err
		}
		if table.Empty() {
			w := &apperrors.EmptyResultWarning{Subject: cfg.Name, Sheet: table.Title}
			warnings = append(warnings, w.Error())
			s.logger.Warn("报表页组无课次",
				zap.String("subject", cfg.Name),
				zap.String("sheet", table.Title),
				zap.String("start", req.Start),
				zap.String("end", req.End),
			)
		}
		sheets = append(sheets, sheet{mode: m, table: table})
	}

	// 4. 渲染
	file := &dto.ReportFile{
		Filename: reportFilename(cfg.Name, format),
		Warnings: warnings,
	}
	switch format {
	case FormatXLSX:
		file.Content, err = s.renderXLSX(sheets)
		file.ContentType = contentTypeXLSX
		file.Pages = len(sheets)
	default:
		file.Content, file.Pages, err = s.renderPDF(cfg.Name, sheets)
		file.ContentType = contentTypePDF
	}
	if err != nil {
		s.logger.Error("渲染报表失败", zap.String("subject", cfg.Name), zap.String("format", format), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReportRenderFail, err)
	}

	s.logger.Info("报表已生成",
		zap.String("subject", cfg.Name),
		zap.String("format", format),
		zap.Int("sheets", len(sheets)),
		zap.Int("pages", file.Pages),
		zap.Int("bytes", len(file.Content)),
	)
	s.toCache(ctx, cacheKey, file)
	return file, nil
}

// renderPDF 全部页组依次渲染到同一份 PDF，页组之间换页
func (s *reportService) renderPDF(subject string, sheets []sheet) ([]byte, int, error) {
	doc, err := pdf.New(pdf.Options{
		FontFamily: s.cfg.FontFamily,
		FontFile:   s.cfg.FontFile,
		PageWidth:  s.cfg.Page.Width,
		PageHeight: s.cfg.Page.Height,
		Title:      subject,
	})
	if err != nil {
		return nil, 0, err
	}
	geom := GeometryFromConfig(s.cfg.Page, doc.FontFamily())

	pages := 0
	for i, sh := range sheets {
		if !geom.FitsWidth(sh.table.ColumnCount()) {
			s.logger.Warn("表格宽度超出页面，右侧列将被裁切",
				zap.String("sheet", sh.table.Title),
				zap.Int("columns", sh.table.ColumnCount()),
				zap.Float64("table_width", geom.TableWidth(sh.table.ColumnCount())),
			)
		}
		if i > 0 {
			doc.NewPage()
		}
		n, err := report.Render(doc, sh.table, geom, sh.table.Title)
		if err != nil {
			return nil, 0, err
		}
		pages += n
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), pages, nil
}

// renderXLSX 每个页组一张工作表
func (s *reportService) renderXLSX(sheets []sheet) ([]byte, error) {
	out := make([]xlsx.Sheet, 0, len(sheets))
	for _, sh := range sheets {
		out = append(out, xlsx.Sheet{
			Name:  sheetName(sh.mode, sh.table),
			Title: sh.table.Title,
			Table: sh.table,
		})
	}
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *reportService) fromCache(ctx context.Context, key string) (*dto.ReportFile, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.GetReport(ctx, key)
	if err != nil {
		s.logger.Warn("读取报表缓存失败", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &dto.ReportFile{
		Content:     cached.Content,
		Filename:    cached.Filename,
		ContentType: cached.ContentType,
		Pages:       cached.Pages,
		Warnings:    cached.Warnings,
		Cached:      true,
	}, true
}

func (s *reportService) toCache(ctx context.Context, key string, file *dto.ReportFile) {
	if s.cache == nil {
		return
	}
	err := s.cache.SetReport(ctx, key, &redis.CachedReport{
		Content:     file.Content,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Pages:       file.Pages,
		Warnings:    file.Warnings,
	})
	if err != nil {
		s.logger.Warn("写入报表缓存失败", zap.String("key", key), zap.Error(err))
	}
}

// ── 辅助函数 ──

// GeometryFromConfig 由配置生成版式
func GeometryFromConfig(p config.PageConfig, fontFamily string) report.Geometry {
	return report.Geometry{
		PageWidth:         p.Width,
		PageHeight:        p.Height,
		MarginLeft:        p.MarginLeft,
		TitleTop:          p.TitleTop,
		TableTop:          p.TableTop,
		HeaderHeight:      p.HeaderHeight,
		RowHeight:         p.RowHeight,
		NameColumnWidth:   p.NameColumnWidth,
		DataColumnWidth:   p.DataColumnWidth,
		CellPadding:       p.CellPadding,
		LineSpacing:       p.LineSpacing,
		FontFamily:        fontFamily,
		FontSize:          p.FontSize,
		TitleFontSize:     p.TitleFontSize,
		SignatureFontSize: p.SignatureFontSize,
		SignatureBottom:   p.SignatureBottom,
		ChromeHeight:      p.ChromeHeight,
		ReservedRows:      p.ReservedRows,
		MaxCellLines:      p.MaxCellLines,
	}
}

// reportFilename attendance_report_<课程>.<格式>，路径分隔符替换为下划线
func reportFilename(subject, format string) string {
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, subject)
	return "attendance_report_" + safe + "." + format
}

// sheetName xlsx 工作表名
func sheetName(m report.Mode, t *report.TableModel) string {
	switch m.Kind {
	case report.ModeLectureOnly:
		return model.LabelLecture
	case report.ModeLab:
		return model.Lab(m.Subgroup).Label()
	}
	return t.Title
}
