package cmd

import (
	"context"
	"fmt"

	redisclient "github.com/heimaolst/shortlink/db/redis"
	db "github.com/heimaolst/shortlink/db/store"
	"github.com/heimaolst/shortlink/internal/logging"
	"github.com/heimaolst/shortlink/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "shortlink",
	Short:         "URL shortening service",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing app.env")
	rootCmd.AddCommand(serveCmd, migrateCmd, exportCmd, importCmd, mcpCmd)
}

// bootstrap 加载配置并初始化日志
func bootstrap(opts ...logging.Option) (util.Config, *zap.Logger, error) {
	config, err := util.LoadConfig(configPath)
	if err != nil {
		return config, nil, fmt.Errorf("cannot load config: %w", err)
	}
	logger, err := logging.New(config.AppEnv, config.LogLevel, opts...)
	if err != nil {
		return config, nil, err
	}
	return config, logger, nil
}

func openStore(ctx context.Context, config util.Config, logger *zap.Logger, migrate bool) (*db.Store, error) {
	store, err := db.Open(config.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("cannot connect to db: %w", err)
	}
	logger.Info("已连接数据库")
	if migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}

// openRedis REDIS_URL 为空时返回 nil，表示不启用缓存
func openRedis(ctx context.Context, config util.Config, logger *zap.Logger) (*redis.Client, error) {
	if config.RedisURL == "" {
		logger.Info("REDIS_URL not set, caching disabled")
		return nil, nil
	}
	return redisclient.NewRedisClient(ctx, config.RedisURL, logger)
}
