package cmd

import (
	"errors"
	"fmt"

	redisclient "github.com/heimaolst/shortlink/db/redis"
	db "github.com/heimaolst/shortlink/db/store"
	"github.com/heimaolst/shortlink/internal/logging"
	"github.com/heimaolst/shortlink/internal/service"
	"github.com/heimaolst/shortlink/internal/toolserver"
	"github.com/spf13/cobra"
)

var mcpOwner string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve link tools for one account over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap(logging.WithStderr())
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		store, err := openStore(ctx, config, logger, true)
		if err != nil {
			return err
		}
		defer store.Close()

		account, err := store.GetAccountByUsername(ctx, mcpOwner)
		if err != nil {
			if errors.Is(err, db.ErrRecordNotFound) {
				return fmt.Errorf("account %q does not exist", mcpOwner)
			}
			return err
		}

		var cache service.Cache = service.NopCache{}
		rdb, err := openRedis(ctx, config, logger)
		if err != nil {
			return err
		}
		if rdb != nil {
			defer rdb.Close()
			cache = redisclient.NewCache(rdb)
		}

		links := service.NewLinkService(store, cache, logger, service.LinkOptions{
			BaseURL:    config.BaseURL,
			CodeLength: config.ShortCodeLength,
			MaxRetries: config.ShortCodeRetry,
		})
		tools := toolserver.New(links, service.NewStatsService(store, links), account.ID, Version, logger)
		return tools.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpOwner, "owner", "", "username whose links the tools operate on")
	mcpCmd.MarkFlagRequired("owner")
}
