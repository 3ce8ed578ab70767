package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 保存应用的全部配置，来源依次为默认值、app.env 文件和环境变量
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	BaseURL         string        `mapstructure:"BASE_URL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	AccessSecret    string        `mapstructure:"JWT_ACCESS_SECRET"`
	RefreshSecret   string        `mapstructure:"JWT_REFRESH_SECRET"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	ShortCodeLength int           `mapstructure:"SHORT_CODE_LENGTH"`
	ShortCodeRetry  int           `mapstructure:"SHORT_CODE_RETRIES"`
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

const (
	defaultAccessSecret  = "change-me-access"
	defaultRefreshSecret = "change-me-refresh"
)

var ErrDefaultSecret = errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set in production")

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:5000")
	v.SetDefault("BASE_URL", "http://localhost:5000")
	v.SetDefault("DATABASE_URL", "file:shortlink.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", defaultAccessSecret)
	v.SetDefault("JWT_REFRESH_SECRET", defaultRefreshSecret)
	v.SetDefault("ACCESS_TOKEN_TTL", 30*time.Minute)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("CORS_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("SHORT_CODE_LENGTH", DefaultShortCodeLength)
	v.SetDefault("SHORT_CODE_RETRIES", 5)
}

// LoadConfig 从 path 目录读取 app.env（可选），环境变量优先
func LoadConfig(path string) (config Config, err error) {
	// .env 仅用于本地开发，缺失时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	if config.ShortCodeRetry < 1 {
		config.ShortCodeRetry = 1
	}
	if config.IsProduction() && (config.AccessSecret == defaultAccessSecret || config.RefreshSecret == defaultRefreshSecret) {
		return config, ErrDefaultSecret
	}
	return config, nil
}
