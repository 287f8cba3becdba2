package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jobtalk/jobtalk-backend/pkg/logger"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix prefixes every environment override, e.g. JOBTALK_DATABASE_HOST
const envPrefix = "JOBTALK"

// Config application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
	Chat     ChatConfig     `yaml:"chat"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"required,min=1,max=65535"`
	Mode            string        `yaml:"mode" validate:"omitempty,oneof=debug release test"`
	Env             string        `yaml:"env"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

// DatabaseConfig database settings
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" validate:"required,oneof=mysql postgres sqlite"`
	Host            string        `yaml:"host" validate:"required_unless=Driver sqlite"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname" validate:"required"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true"`
}

// RedisConfig Redis settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" validate:"required_if=Enabled true"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" split_words:"true"`
}

// JWTConfig token verification settings
type JWTConfig struct {
	Secret    string `yaml:"secret" validate:"required,min=16"`
	ExpiresIn int    `yaml:"expires_in" split_words:"true"`
}

// CORSConfig allowed origins, comma separated
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins" split_words:"true"`
}

// ChatConfig chat and real-time delivery tuning
type ChatConfig struct {
	MaxMessageLength   int           `yaml:"max_message_length" split_words:"true" validate:"min=1"`
	HistoryPageSize    int           `yaml:"history_page_size" split_words:"true" validate:"min=1"`
	HistoryMaxPageSize int           `yaml:"history_max_page_size" split_words:"true" validate:"gtefield=HistoryPageSize"`
	SendTimeout        time.Duration `yaml:"send_timeout" split_words:"true"`
	SendBuffer         int           `yaml:"send_buffer" split_words:"true" validate:"min=1"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" split_words:"true"`
}

// LogConfig logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in defaults applied before the YAML file
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8082,
			Mode:            "debug",
			Env:             "local",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			Port:            3306,
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Port:     6379,
			PoolSize: 10,
		},
		JWT: JWTConfig{
			ExpiresIn: 900,
		},
		Chat: ChatConfig{
			MaxMessageLength:   4000,
			HistoryPageSize:    50,
			HistoryMaxPageSize: 200,
			SendTimeout:        5 * time.Second,
			SendBuffer:         256,
			RateLimitPerMinute: 120,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path (missing file keeps defaults), applies
// JOBTALK_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		logger.Warn("config file %s not found, using defaults and environment", path)
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs in a local/dev environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "", "local", "dev", "development":
		return true
	}
	return false
}

// GetDSN builds the driver specific data source name
func (d DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "sqlite":
		return d.DBName
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			d.Host, d.Port, d.User, d.Password, d.DBName)
	default:
		mc := mysqldriver.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		mc.DBName = d.DBName
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	}
}

// LogResolved prints the effective configuration without secrets
func LogResolved(cfg *Config) {
	logger.GetLogger().Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Bool("redis", cfg.Redis.Enabled).
		Int("max_message_length", cfg.Chat.MaxMessageLength).
		Dur("ws_send_timeout", cfg.Chat.SendTimeout).
		Msg("config resolved")
}
