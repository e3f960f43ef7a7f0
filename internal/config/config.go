package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Overlay OverlayConfig `mapstructure:"overlay"`
	Handoff HandoffConfig `mapstructure:"handoff"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig ERP 后端。Timeout 为 0 表示不设超时
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// MinIOConfig 附件对象存储；Endpoint 为空时不启用
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type OverlayConfig struct {
	DefaultScale     float64 `mapstructure:"default_scale"`
	DevicePixelRatio float64 `mapstructure:"device_pixel_ratio"`
	// MaxPDFSize 附件下载上限（字节）
	MaxPDFSize int64 `mapstructure:"max_pdf_size"`
}

type HandoffConfig struct {
	// SeedFromUpstream 打开时用上一部门的勾选预填本部门列
	SeedFromUpstream bool `mapstructure:"seed_from_upstream"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 配置文件不存在，使用环境变量
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("backend.base_url", "http://localhost:8080")
	v.SetDefault("backend.timeout", 0)

	v.SetDefault("overlay.default_scale", 1.3)
	v.SetDefault("overlay.device_pixel_ratio", 1.0)
	v.SetDefault("overlay.max_pdf_size", 64<<20)

	v.SetDefault("handoff.seed_from_upstream", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Backend
	v.BindEnv("backend.base_url", "BACKEND_URL")
	v.BindEnv("backend.timeout", "BACKEND_TIMEOUT")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")
	v.BindEnv("minio.use_ssl", "MINIO_USE_SSL")

	// Overlay
	v.BindEnv("overlay.default_scale", "OVERLAY_DEFAULT_SCALE")
	v.BindEnv("overlay.device_pixel_ratio", "OVERLAY_DPR")

	// Handoff
	v.BindEnv("handoff.seed_from_upstream", "HANDOFF_SEED_FROM_UPSTREAM")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.format", "LOG_FORMAT")
}

// Validate 检查必填项
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.MinIO.Endpoint != "" && c.MinIO.Bucket == "" {
		return fmt.Errorf("minio.bucket is required when minio.endpoint is set")
	}
	return nil
}

// GetEnvOrDefault 获取环境变量，如果不存在则返回默认值
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
