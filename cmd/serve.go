package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/heimaolst/shortlink/internal/api"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and redirect server",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, config, logger, autoMigrate)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("数据库连接关闭异常", zap.Error(err))
			}
		}()

		rdb, err := openRedis(ctx, config, logger)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer func() {
				if err := rdb.Close(); err != nil {
					logger.Error("Redis 连接关闭异常", zap.Error(err))
				}
			}()
		}

		server, err := api.NewServer(config, store, rdb, logger)
		if err != nil {
			return err
		}
		if err := server.Start(ctx, config.ServerAddress); err != nil {
			return err
		}
		logger.Info("服务已安全关闭")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "run database migrations before serving")
}
