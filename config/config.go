package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Report   ReportConfig   `mapstructure:"report"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	MaxUploadBytes int64           `mapstructure:"max_upload_bytes"`
	MaxBodyBytes   int64           `mapstructure:"max_body_bytes"`
	CORS           CORSConfig      `mapstructure:"cors"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 报表接口速率限制（需启用 Redis），Requests 为 0 时关闭
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig 考勤数据与课程名册来源
type StorageConfig struct {
	Driver         string `mapstructure:"driver"`          // json | postgres
	AttendanceFile string `mapstructure:"attendance_file"` // driver=json 时使用
	RosterFile     string `mapstructure:"roster_file"`     // 课程与学生名册（.json / .yaml）
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig 报表缓存配置
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	ReportTTL time.Duration `mapstructure:"report_ttl"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// Validate 校验签发/验证 Token 所需的配置
func (c *AuthConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("配置校验失败: auth.access_token_ttl 必须为正")
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `mapstructure:"level"`
	Format string   `mapstructure:"format"`
	Output []string `mapstructure:"output"`
}

// ReportConfig 报表输出配置
type ReportConfig struct {
	FontFamily string     `mapstructure:"font_family"`
	FontFile   string     `mapstructure:"font_file"` // 为空时使用内置 Helvetica（不含西里尔字形）
	OutputDir  string     `mapstructure:"output_dir"`
	Page       PageConfig `mapstructure:"page"`
}

// PageConfig 页面版式，单位为 pt，纵坐标自页面顶部向下
type PageConfig struct {
	Width             float64 `mapstructure:"width"`
	Height            float64 `mapstructure:"height"`
	MarginLeft        float64 `mapstructure:"margin_left"`
	TitleTop          float64 `mapstructure:"title_top"`
	TableTop          float64 `mapstructure:"table_top"`
	HeaderHeight      float64 `mapstructure:"header_height"`
	RowHeight         float64 `mapstructure:"row_height"`
	NameColumnWidth   float64 `mapstructure:"name_column_width"`
	DataColumnWidth   float64 `mapstructure:"data_column_width"`
	CellPadding       float64 `mapstructure:"cell_padding"`
	LineSpacing       float64 `mapstructure:"line_spacing"`
	FontSize          float64 `mapstructure:"font_size"`
	TitleFontSize     float64 `mapstructure:"title_font_size"`
	SignatureFontSize float64 `mapstructure:"signature_font_size"`
	SignatureBottom   float64 `mapstructure:"signature_bottom"`
	ChromeHeight      float64 `mapstructure:"chrome_height"`
	ReservedRows      int     `mapstructure:"reserved_rows"`
	MaxCellLines      int     `mapstructure:"max_cell_lines"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ATTEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_bytes", 2<<20)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit.requests", 30)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.attendance_file", "attendance_data.json")
	v.SetDefault("storage.roster_file", "config.json")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "attendance")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Moscow")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.report_ttl", "10m")

	v.SetDefault("auth.access_token_ttl", "720h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", []string{"stdout"})

	v.SetDefault("report.font_family", "OpenSans")
	v.SetDefault("report.font_file", "")
	v.SetDefault("report.output_dir", ".")

	// 横向 A4，与纸质考勤表版式一致
	v.SetDefault("report.page.width", 841.89)
	v.SetDefault("report.page.height", 595.28)
	v.SetDefault("report.page.margin_left", 50)
	v.SetDefault("report.page.title_top", 50)
	v.SetDefault("report.page.table_top", 80)
	v.SetDefault("report.page.header_height", 40)
	v.SetDefault("report.page.row_height", 20)
	v.SetDefault("report.page.name_column_width", 150)
	v.SetDefault("report.page.data_column_width", 60)
	v.SetDefault("report.page.cell_padding", 10)
	v.SetDefault("report.page.line_spacing", 12)
	v.SetDefault("report.page.font_size", 10)
	v.SetDefault("report.page.title_font_size", 16)
	v.SetDefault("report.page.signature_font_size", 12)
	v.SetDefault("report.page.signature_bottom", 50)
	v.SetDefault("report.page.chrome_height", 150)
	v.SetDefault("report.page.reserved_rows", 3)
	v.SetDefault("report.page.max_cell_lines", 2)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Storage.Driver {
	case "json":
		if c.Storage.AttendanceFile == "" {
			return fmt.Errorf("配置校验失败: storage.attendance_file 不能为空")
		}
	case "postgres":
	default:
		return fmt.Errorf("配置校验失败: storage.driver 仅支持 json | postgres，实际 %q", c.Storage.Driver)
	}
	if c.Storage.RosterFile == "" {
		return fmt.Errorf("配置校验失败: storage.roster_file 不能为空")
	}
	if c.Report.Page.Width <= 0 || c.Report.Page.Height <= 0 {
		return fmt.Errorf("配置校验失败: report.page 尺寸必须为正")
	}
	if c.Server.RateLimit.Requests > 0 && c.Server.RateLimit.Window <= 0 {
		return fmt.Errorf("配置校验失败: server.rate_limit.window 必须为正")
	}
	if c.Redis.Enabled && c.Redis.ReportTTL <= 0 {
		return fmt.Errorf("配置校验失败: redis.report_ttl 必须为正")
	}
	return nil
}
