package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"ArticleShelf/internal/config"
	"ArticleShelf/internal/logging"
)

// cli carries state resolved by the root command for its subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "articleshelf",
		Short: "Save, parse and classify articles from links and feeds",
		Long: `articleshelf ingests article links in the background: it fetches each page,
extracts the title and body, classifies the text and stores it per user.

Commands:
  serve      Run the HTTP API together with the ingestion workers
  enqueue    Submit a link to a shared (redis) ingestion queue
  feed       Print the entries of an RSS or Atom feed
  classify   Classify text read from stdin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $ARTICLE_SHELF_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newEnqueueCmd(c),
		newFeedCmd(c),
		newClassifyCmd(c),
	)

	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if c.configPath != "" {
		c.cfg = config.LoadFile(c.configPath)
	} else {
		c.cfg = config.Load()
	}
	if c.logLevel != "" {
		c.cfg.Logging.Level = c.logLevel
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	c.logger = logging.NewWithWriter(cmd.ErrOrStderr(), c.cfg.Logging.Level, c.cfg.Logging.Format)
	return nil
}
