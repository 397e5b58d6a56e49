package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Notification NotificationConfig `yaml:"notification"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	TokenCache   TokenCacheConfig   `yaml:"token_cache"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// CronSecret authorizes the batch trigger. Empty disables the trigger endpoint.
	CronSecret string `yaml:"cron_secret"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type NotificationConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type MonitorConfig struct {
	ProbeTimeoutSeconds  int `yaml:"probe_timeout_seconds"`  // 默认 30
	LoginTimeoutSeconds  int `yaml:"login_timeout_seconds"`  // 默认 30
	SSLTimeoutSeconds    int `yaml:"ssl_timeout_seconds"`    // 默认 10
	CycleIntervalSeconds int `yaml:"cycle_interval_seconds"` // 0 表示只接受外部触发
	MaxConcurrency       int `yaml:"max_concurrency"`        // 0 表示不限制
}

// TokenCacheConfig selects the token store. An empty RedisAddr keeps tokens in memory.
type TokenCacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var GlobalConfig Config

// LoadConfig reads .env (optional), then the YAML file (optional), then applies
// environment overrides and defaults into GlobalConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if cfg != nil {
		GlobalConfig = *cfg
	}
	return err
}

// Load is LoadConfig without touching GlobalConfig. A missing file is not an error;
// the returned config is usable even when err is non-nil.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs
	_ = godotenv.Load()

	cfg := &Config{}
	var loadErr error

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			loadErr = err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		loadErr = fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, loadErr
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		var p int
		fmt.Sscanf(port, "%d", &p)
		if p != 0 {
			cfg.Server.Port = p
		}
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.Server.CronSecret = secret
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		cfg.Notification.ResendAPIKey = apiKey
	}
	if from := os.Getenv("NOTIFICATION_FROM_EMAIL"); from != "" {
		cfg.Notification.FromEmail = from
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.TokenCache.RedisAddr = addr
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "api-monitor.db"
	}
	if cfg.Notification.FromEmail == "" {
		cfg.Notification.FromEmail = "noreply@resend.dev"
	}
	if cfg.Notification.FromName == "" {
		cfg.Notification.FromName = "API Monitor"
	}
	if cfg.Monitor.ProbeTimeoutSeconds <= 0 {
		cfg.Monitor.ProbeTimeoutSeconds = 30
	}
	if cfg.Monitor.LoginTimeoutSeconds <= 0 {
		cfg.Monitor.LoginTimeoutSeconds = 30
	}
	if cfg.Monitor.SSLTimeoutSeconds <= 0 {
		cfg.Monitor.SSLTimeoutSeconds = 10
	}
	if cfg.Monitor.CycleIntervalSeconds < 0 {
		cfg.Monitor.CycleIntervalSeconds = 0
	}
	if cfg.Monitor.MaxConcurrency < 0 {
		cfg.Monitor.MaxConcurrency = 0
	}
	if cfg.TokenCache.KeyPrefix == "" {
		cfg.TokenCache.KeyPrefix = "api-monitor:token:"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "logs/api-monitor.log"
	}
}
