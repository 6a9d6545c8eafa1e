package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ArticleShelf/internal/app"
	"ArticleShelf/internal/config"
	"ArticleShelf/internal/infrastructure/feed"
	"ArticleShelf/internal/usecase"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the ingestion workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}

			runErr := application.Run(ctx)
			closeErr := application.Close()
			return errors.Join(runErr, closeErr)
		},
	}
}

func newEnqueueCmd(c *cli) *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "enqueue <link>",
		Short: "Submit a link to the shared ingestion queue",
		Long: `enqueue pushes a link onto the redis queue that a running "serve" drains.
The in-memory queue lives inside the serve process, so it cannot be fed from here.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Queue.Backend != config.QueueRedis {
				return fmt.Errorf("enqueue needs queue.backend %q, got %q", config.QueueRedis, c.cfg.Queue.Backend)
			}

			q, err := app.NewQueue(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer q.Close()

			receipt, err := usecase.NewSubmitter(q, c.logger.With("component", "submitter")).
				Submit(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), receipt.JobID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 1, "owner of the article")
	return cmd
}

func newFeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "feed <url>",
		Short: "Fetch a feed and print its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Fetch.Timeout+5*time.Second)
			defer cancel()

			reader := feed.NewFetcher(app.NewFetcher(c.cfg), c.logger.With("component", "feed"))
			summaries, err := reader.FetchFeed(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range summaries {
				fmt.Fprintf(out, "%s\t%s\t%s\n", s.PublishDate.UTC().Format(time.RFC3339), s.Title, s.Link)
			}
			return nil
		},
	}
}

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify text read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			labeler, err := app.NewClassifier(c.cfg, c.logger)
			if err != nil {
				return err
			}

			label, err := labeler.Classify(cmd.Context(), strings.TrimSpace(string(raw)))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
}
