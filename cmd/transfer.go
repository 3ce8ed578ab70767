package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	db "github.com/heimaolst/shortlink/db/store"
	"github.com/heimaolst/shortlink/internal/logging"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/heimaolst/shortlink/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOutput string
	importFile   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump every link as a JSON array",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap(logging.WithStderr())
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(cmd.Context(), config, logger, false)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		n, err := exportLinks(cmd.Context(), store, out)
		if err != nil {
			return err
		}
		logger.Info("export finished", zap.Int("links", n))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load links from a JSON array produced by export",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		store, err := openStore(cmd.Context(), config, logger, true)
		if err != nil {
			return err
		}
		defer store.Close()

		imported, skipped, err := importLinks(cmd.Context(), store, f, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d links, skipped %d\n", imported, skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, - for stdout")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file to import")
	importCmd.MarkFlagRequired("file")
}

func exportLinks(ctx context.Context, store *db.Store, w io.Writer) (int, error) {
	links, err := store.AllLinks(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		return 0, err
	}
	return len(links), nil
}

// importLinks 已存在的 id 或短码会被跳过，不合法的记录也会被跳过
func importLinks(ctx context.Context, store *db.Store, r io.Reader, logger *zap.Logger) (imported, skipped int, err error) {
	var links []model.Link
	if err := json.NewDecoder(r).Decode(&links); err != nil {
		return 0, 0, fmt.Errorf("decode links: %w", err)
	}

	for i := range links {
		link := &links[i]
		if link.ID == "" || link.OwnerID == "" || link.OriginalURL == "" || !util.IsShortCode(link.ShortCode) {
			logger.Warn("skipping invalid link", zap.Int("index", i), zap.String("short_code", link.ShortCode))
			skipped++
			continue
		}
		if link.Clicks < 0 {
			link.Clicks = 0
		}
		if link.Tags == nil {
			link.Tags = model.TagList{}
		}

		ok, err := store.ImportLink(ctx, link)
		if err != nil {
			return imported, skipped, fmt.Errorf("import %s: %w", link.ShortCode, err)
		}
		if ok {
			imported++
		} else {
			skipped++
		}
	}
	return imported, skipped, nil
}
