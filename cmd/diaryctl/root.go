package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ai-diary/internal/adapters/parser"
	"ai-diary/internal/adapters/personas"
	"ai-diary/internal/domain"
	"ai-diary/internal/infra/config"
	"ai-diary/internal/infra/db"
	applog "ai-diary/internal/infra/log"
	"ai-diary/internal/infra/queue"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diaryctl",
		Short:         "Administrative tool for the AI diary backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newParseCmd(), newPersonasCmd(), newEnqueueCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back Postgres migrations",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN (defaults to PG_DSN)")
	resolve := func() (string, error) {
		if dsn != "" {
			return dsn, nil
		}
		cfg, err := config.LoadFrom(".env")
		if err != nil {
			return "", err
		}
		if cfg.PGDSN == "" {
			return "", fmt.Errorf("PG_DSN is not set")
		}
		return cfg.PGDSN, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			if err := db.MigrateUp(target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			if err := db.MigrateDown(target, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d step(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolve()
			if err != nil {
				return err
			}
			v, dirty, err := db.MigrationVersion(target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func newParseCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a model reply from stdin and print the extracted fields as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			logger := zerolog.Nop()
			if verbose {
				logger = zerolog.New(cmd.ErrOrStderr())
			}
			return writeJSON(cmd.OutOrStdout(), parser.New(logger).Parse(string(reply)))
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log missing fields to stderr")
	return cmd
}

func newPersonasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the built-in personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := personas.Load(false)
			if err != nil {
				return err
			}
			for _, p := range catalog.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s: %s\n", p.ID, p.Name, p.Description)
			}
			return nil
		},
	}
}

func newEnqueueCmd() *cobra.Command {
	var (
		userID string
		period string
	)
	cmd := &cobra.Command{
		Use:   "enqueue-report",
		Short: "Queue a report rebuild for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFrom(".env")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var client redis.Cmdable
			if cfg.Queues.Backend == queue.BackendRedis || cfg.Queues.Backend == "" {
				redisClient, err := db.ConnectRedis(ctx, cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer redisClient.Close()
				client = redisClient
			}

			q, closeQueue, err := queue.Open(cfg.Queues.Backend, cfg.Queues.RabbitMQURL, cfg.Queues.Report, client)
			if err != nil {
				return err
			}
			defer func() { _ = closeQueue() }()

			job := domain.ReportJob{
				ID:          uuid.NewString(),
				UserID:      userID,
				Period:      p,
				RequestedAt: time.Now().UTC(),
				Cause:       domain.ReportCauseManual,
			}
			if err := q.Enqueue(ctx, job); err != nil {
				return err
			}
			logger := applog.Component(applog.NewLogger(cfg.AppEnv), "diaryctl")
			logger.Info().Str("job_id", job.ID).Str("user", userID).Msg("задача поставлена")
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&period, "period", string(domain.PeriodWeekly), "weekly or monthly")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
