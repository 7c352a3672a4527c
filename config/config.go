package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
	Review   ReviewConfig   `mapstructure:"review"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Seed     SeedConfig     `mapstructure:"seed"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	BaseURL        string        `mapstructure:"base_url"`
	FrontendURL    string        `mapstructure:"frontend_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CORS           CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres | mysql）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
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

// DSN 按驱动生成连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.Name,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置，Addr 为空时不连接
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// MailConfig SMTP 邮件配置
type MailConfig struct {
	SMTPHost      string        `mapstructure:"smtp_host"`
	SMTPPort      int           `mapstructure:"smtp_port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	From          string        `mapstructure:"from"`
	SkipTLSVerify bool          `mapstructure:"skip_tls_verify"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// Enabled SMTP 是否已配置
func (c *MailConfig) Enabled() bool {
	return c.SMTPHost != "" && c.From != ""
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReviewConfig 审稿流程配置
type ReviewConfig struct {
	// SinglePerPaper 为 true 时，同一篇论文只允许分配一位审稿人
	SinglePerPaper bool `mapstructure:"single_reviewer_per_paper"`
}

// OutboxConfig 通知发件箱投递配置
type OutboxConfig struct {
	Schedule    string        `mapstructure:"schedule"`
	BatchSize   int           `mapstructure:"batch_size"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"`
	// Lease 领取后的租约，应不短于 RunTimeout，否则同一消息可能被两轮同时投递
	Lease time.Duration `mapstructure:"lease"`
}

// StorageConfig 摘要归档对象存储配置，Bucket 为空时不启用
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
}

// Enabled 是否启用 S3 归档
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// SeedConfig 启动时初始化的管理员账号，邮箱或密码为空时跳过
type SeedConfig struct {
	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxAbstractBytes int64 `mapstructure:"max_abstract_bytes"`
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 只用于本地开发，文件不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "icodses")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Kolkata")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "24h")
	v.SetDefault("auth.issuer", "icodses")

	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.max_attempts", 3)
	v.SetDefault("mail.retry_backoff", "2s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("review.single_reviewer_per_paper", false)

	v.SetDefault("outbox.schedule", "@every 10s")
	v.SetDefault("outbox.batch_size", 20)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.base_backoff", "30s")
	v.SetDefault("outbox.run_timeout", "2m")
	v.SetDefault("outbox.lease", "5m")

	v.SetDefault("seed.admin_name", "Conference Admin")

	v.SetDefault("upload.max_abstract_bytes", 10<<20)

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
	v.SetEnvPrefix("ICODSES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 未出现在配置文件中的键，AutomaticEnv 不会参与 Unmarshal，需显式绑定
	for _, key := range []string{
		"auth.jwt_secret",
		"db.password",
		"redis.addr", "redis.password",
		"mail.smtp_host", "mail.username", "mail.password", "mail.from",
		"storage.endpoint", "storage.region", "storage.access_key", "storage.secret_key", "storage.bucket",
		"seed.admin_email", "seed.admin_password",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
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

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("配置校验失败: 不支持的 db.driver %q", c.Database.Driver)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("配置校验失败: outbox.batch_size 必须大于 0")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("配置校验失败: outbox.max_attempts 必须大于 0")
	}
	if c.Outbox.Lease > 0 && c.Outbox.Lease < c.Outbox.RunTimeout {
		return fmt.Errorf("配置校验失败: outbox.lease 不能短于 outbox.run_timeout")
	}
	return nil
}
