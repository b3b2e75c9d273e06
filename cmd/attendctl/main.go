package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mintyspider/attendance-report/config"
	"github.com/mintyspider/attendance-report/internal/dto"
	"github.com/mintyspider/attendance-report/internal/repository"
	"github.com/mintyspider/attendance-report/internal/roster"
	"github.com/mintyspider/attendance-report/internal/service"
	"github.com/mintyspider/attendance-report/pkg/jwt"
	applogger "github.com/mintyspider/attendance-report/pkg/logger"
)

const usage = `attendctl: 考勤报表命令行工具

用法:
  attendctl report -subject S -start ДД.ММ.ГГГГ -end ДД.ММ.ГГГГ [-mode M] [-format pdf|xlsx] [-out DIR]
  attendctl token  -instructor ID [-role instructor|admin]

全局参数:
  -config PATH   配置文件（默认 ./config/config.yaml 或 ./config.yaml）
`

var errUsage = errors.New("参数错误")

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "report":
		return runReport(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return errUsage
}

// ── report ──

func runReport(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "配置文件路径")
	subject := fs.String("subject", "", "课程名称")
	start := fs.String("start", "", "开始日期 ДД.ММ.ГГГГ")
	end := fs.String("end", "", "结束日期 ДД.ММ.ГГГГ")
	mode := fs.String("mode", "", "combined | lecture | lab:<分组>，默认全部页组")
	format := fs.String("format", service.FormatPDF, "pdf | xlsx")
	out := fs.String("out", "", "输出目录，默认 report.output_dir")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *subject == "" || *start == "" || *end == "" {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	catalog, err := roster.Load(cfg.Storage.RosterFile)
	if err != nil {
		return err
	}
	repo, closeRepo, err := repository.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	svc := service.NewReportService(cfg.Report, catalog, repo, nil, logger)
	file, err := svc.Generate(context.Background(), &dto.GenerateReportRequest{
		Subject: *subject,
		Start:   *start,
		End:     *end,
		Mode:    *mode,
		Format:  *format,
	})
	if err != nil {
		return err
	}

	dir := *out
	if dir == "" {
		dir = cfg.Report.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(dir, file.Filename)
	if err := os.WriteFile(path, file.Content, 0o644); err != nil {
		return fmt.Errorf("写入报表失败: %w", err)
	}

	for _, w := range file.Warnings {
		fmt.Fprintf(stderr, "警告: %s\n", w)
	}
	logger.Info("报表已写入", zap.String("path", path), zap.Int("pages", file.Pages))
	fmt.Fprintln(stdout, path)
	return nil
}

// ── token ──

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "配置文件路径")
	instructor := fs.String("instructor", "", "教师 ID")
	role := fs.String("role", jwt.RoleInstructor, "instructor | admin")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *instructor == "" || !jwt.ValidRole(*role) {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Auth.Validate(); err != nil {
		return err
	}

	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(*instructor, *role)
	if err != nil {
		return fmt.Errorf("签发 Token 失败: %w", err)
	}
	fmt.Fprintln(stdout, token)
	return nil
}
