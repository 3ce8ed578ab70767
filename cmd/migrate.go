package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(context.Background(), config, logger, true)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Info("数据库迁移完成")
		return nil
	},
}
