package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/ten99/ten99/internal/config"
	"github.com/ten99/ten99/internal/database"
	"github.com/ten99/ten99/internal/jobs"
	"github.com/ten99/ten99/internal/logging"
	"github.com/ten99/ten99/internal/numbering"
	"github.com/ten99/ten99/internal/server"
	"github.com/ten99/ten99/internal/store"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "ten99",
		Short:         "Business dashboard for independent contractors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", envOr("TEN99_CONFIG", "ten99.yaml"), "config file path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(nextNumberCmd())
	rootCmd.AddCommand(seedNumberCmd())
	rootCmd.AddCommand(backupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openDB loads the config, configures logging and opens the migrated
// database.
func openDB() (*config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, logger, db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			srv := server.New(db, cfg, logger)

			scheduler, err := jobs.NewScheduler(jobs.Config{
				ReminderSpec:     cfg.Reminders.Cron,
				RemindersEnabled: cfg.Reminders.Enabled,
				Location:         cfg.Location(),
			}, srv.SessionStore(), srv.AppointmentStore(), srv.UserStore(), srv.EmailClient(), logger)
			if err != nil {
				return err
			}
			if err := scheduler.AddFunc("@every 10m", srv.RateLimiter().Cleanup); err != nil {
				return err
			}
			if cfg.Backup.Enabled {
				backups := server.NewBackupManager(db, cfg, logger)
				if !backups.Configured() {
					logger.Warn("backups enabled but passphrase or S3 credentials missing")
				} else {
					retention := cfg.Backup.RetentionDays
					if err := scheduler.AddFunc(cfg.Backup.Cron, func() { backups.RunScheduled(retention) }); err != nil {
						return err
					}
				}
			}
			scheduler.Start()

			httpServer := &http.Server{
				Addr:         cfg.Listen,
				Handler:      srv.Router(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("ten99 listening", "addr", cfg.Listen, "db", cfg.DBPath, "timezone", cfg.Timezone)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			scheduler.Stop(shutdownCtx)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := database.Version(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.DBPath, version)
			return nil
		},
	}
}

func nextNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-number <owner-id>",
		Short: "Issue the next invoice number for an owner",
		Long:  "Issues and prints the next invoice number for an owner. The number is consumed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || ownerID <= 0 {
				return fmt.Errorf("invalid owner id %q", args[0])
			}

			cfg, _, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			owner, err := store.NewUserStore(db).GetByID(ownerID)
			if err != nil {
				return err
			}
			if owner == nil {
				return fmt.Errorf("owner %d not found", ownerID)
			}

			numbers := numbering.New(store.NewCounterStore(db), numbering.DomainInvoice, numbering.WithLocation(cfg.Location()))
			number, err := numbers.Next(ownerID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}
}

func seedNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-number <owner-id> <last-number>",
		Short: "Continue an owner's invoice numbering from another tool",
		Long:  "Sets the owner's invoice counter for the current year so the next number issued is last-number+1.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || ownerID <= 0 {
				return fmt.Errorf("invalid owner id %q", args[0])
			}
			last, err := strconv.Atoi(args[1])
			if err != nil || last < 0 {
				return fmt.Errorf("invalid last number %q", args[1])
			}

			cfg, logger, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			owner, err := store.NewUserStore(db).GetByID(ownerID)
			if err != nil {
				return err
			}
			if owner == nil {
				return fmt.Errorf("owner %d not found", ownerID)
			}

			loc := cfg.Location()
			numbers := numbering.New(store.NewCounterStore(db), numbering.DomainInvoice, numbering.WithLocation(loc))
			if err := numbers.Seed(ownerID, last); err != nil {
				return err
			}
			logger.Info("invoice numbering seeded", "owner_id", ownerID, "last_number", last)
			fmt.Fprintf(cmd.OutOrStdout(), "next invoice number: %s\n", numbering.Format(time.Now().In(loc).Year(), last+1))
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage encrypted database backups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Take a backup now and apply retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			backups := server.NewBackupManager(db, cfg, logger)
			b, err := backups.Run(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := backups.Cleanup(cmd.Context(), cfg.Backup.RetentionDays); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d: %s (%d bytes)\n", b.ID, b.ObjectKey, b.SizeBytes)
			return nil
		},
	})

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			backups, err := store.NewBackupStore(db).List(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range backups {
				fmt.Fprintf(out, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.UTC().Format(time.RFC3339), b.Status, b.SizeBytes, b.Filename)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of backups to show")
	cmd.AddCommand(list)

	var output string
	restore := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Download and decrypt a backup into a new database file",
		Long:  "Restores a backup into --output. The live database is not touched; stop the server and swap the file in to complete a restore.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid backup id %q", args[0])
			}

			cfg, logger, db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := server.NewBackupManager(db, cfg, logger).Restore(cmd.Context(), id, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored backup %d to %s\n", id, output)
			return nil
		},
	}
	restore.Flags().StringVar(&output, "output", "ten99-restored.db", "path for the restored database")
	cmd.AddCommand(restore)

	return cmd
}
