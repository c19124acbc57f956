package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Tracing     TracingConfig `mapstructure:"tracing"`
	Redis       RedisConfig
	CORS        CORSConfig      `mapstructure:"cors"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	OAuth       OAuthConfig     `mapstructure:"oauth"`
	Alloy       APIConfig       `mapstructure:"alloy"`
	Steamfitter APIConfig       `mapstructure:"steamfitter"`
	Gradebook   GradebookConfig `mapstructure:"gradebook"`
	Lab         LabConfig       `mapstructure:"lab"`
	Log         LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// 锁只用到少量连接
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"` // 为空时 debug 模式用 debug，否则 info
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// OAuthConfig Alloy/Steamfitter 共用的 client credentials 配置
type OAuthConfig struct {
	Issuer       string   `mapstructure:"issuer"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type GradebookConfig struct {
	Driver string `mapstructure:"driver"` // http / none
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
}

type LabConfig struct {
	// 外部事件未设置过期时间时的默认会话时长
	DefaultSessionHours int `mapstructure:"default_session_hours"`
	// 调用 Alloy/Steamfitter 的超时时间（秒）
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds"`
	// (user, activity) 锁的过期时间（秒）
	LockTTLSeconds int `mapstructure:"lock_ttl_seconds"`
	// 前端轮询间隔提示（秒）
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	// 每次延长事件的时长（分钟）
	ExtendMinutes int `mapstructure:"extend_minutes"`
}

func (l LabConfig) DefaultSession() time.Duration {
	return time.Duration(l.DefaultSessionHours) * time.Hour
}

func (l LabConfig) CallTimeout() time.Duration {
	return time.Duration(l.CallTimeoutSeconds) * time.Second
}

func (l LabConfig) LockTTL() time.Duration {
	return time.Duration(l.LockTTLSeconds) * time.Second
}

func (l LabConfig) ExtendBy() time.Duration {
	return time.Duration(l.ExtendMinutes) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("log.file", "logs/crucible.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("gradebook.driver", "none")
	v.SetDefault("lab.default_session_hours", 8)
	v.SetDefault("lab.call_timeout_seconds", 15)
	v.SetDefault("lab.lock_ttl_seconds", 60)
	v.SetDefault("lab.poll_interval_seconds", 5)
	v.SetDefault("lab.extend_minutes", 60)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("CRUCIBLE")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// OAuth / 外部服务
	v.BindEnv("oauth.issuer", "OAUTH_ISSUER")
	v.BindEnv("oauth.token_url", "OAUTH_TOKEN_URL")
	v.BindEnv("oauth.client_id", "OAUTH_CLIENT_ID")
	v.BindEnv("oauth.client_secret", "OAUTH_CLIENT_SECRET")
	v.BindEnv("alloy.base_url", "ALLOY_URL")
	v.BindEnv("steamfitter.base_url", "STEAMFITTER_URL")
	v.BindEnv("gradebook.url", "GRADEBOOK_URL")
	v.BindEnv("gradebook.token", "GRADEBOOK_TOKEN")

	v.BindEnv("log.level", "LOG_LEVEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 缺少签发方或凭据属于配置错误，直接终止启动
func (c *Config) Validate() error {
	if c.OAuth.Issuer == "" && c.OAuth.TokenURL == "" {
		return fmt.Errorf("oauth issuer or token_url is required")
	}
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth client credentials are required")
	}
	if c.Alloy.BaseURL == "" {
		return fmt.Errorf("alloy.base_url is required")
	}
	if c.Steamfitter.BaseURL == "" {
		return fmt.Errorf("steamfitter.base_url is required")
	}
	switch c.Gradebook.Driver {
	case "none":
	case "http":
		if c.Gradebook.URL == "" {
			return fmt.Errorf("gradebook.url is required for http driver")
		}
	default:
		return fmt.Errorf("unknown gradebook driver %q", c.Gradebook.Driver)
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Lab.CallTimeoutSeconds <= 0 {
		return fmt.Errorf("lab.call_timeout_seconds must be positive")
	}
	return nil
}

// Endpoint 返回 token 地址，未显式配置时按 issuer 推导
func (o OAuthConfig) Endpoint() string {
	if o.TokenURL != "" {
		return o.TokenURL
	}
	return o.Issuer + "/connect/token"
}
