package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/backup"
	"github.com/dukerupert/choretracker/internal/config"
	"github.com/dukerupert/choretracker/internal/database"
	"github.com/dukerupert/choretracker/internal/logging"
	"github.com/dukerupert/choretracker/internal/metrics"
	"github.com/dukerupert/choretracker/internal/push"
	"github.com/dukerupert/choretracker/internal/server"
	"github.com/dukerupert/choretracker/internal/store"
	"github.com/dukerupert/choretracker/internal/tracker"
	ws "github.com/dukerupert/choretracker/internal/websocket"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	restoreKey := flag.String("restore", "", "restore the backup with this object key and exit")
	restoreTo := flag.String("restore-to", "", "database path to restore into (defaults to storage.db_path)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer logCloser.Close()

	if *restoreKey != "" {
		dst := *restoreTo
		if dst == "" {
			dst = cfg.Storage.DBPath
		}
		if err := restore(cfg, *restoreKey, dst, logger); err != nil {
			logger.Error("restore failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func backupConfig(cfg *config.Config) backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		Interval:      time.Duration(cfg.Backup.IntervalHours) * time.Hour,
		RetentionDays: cfg.Backup.RetentionDays,
	}
}

func restore(cfg *config.Config, key, dst string, logger *slog.Logger) error {
	mgr := backup.NewManager(backupConfig(cfg), nil, nil, logger.With("component", "backup"), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	return mgr.Restore(ctx, key, dst)
}

// backend is the storage selected by configuration.
type backend struct {
	store    tracker.Store
	accounts auth.AccountStore
	subs     push.SubscriptionStore
	db       *sql.DB
	sqlStore *store.Store
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		t := tracker.New()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &backend{store: t, accounts: auth.NewMemoryAccounts(t), subs: push.NewMemorySubscriptions()}, nil
	}

	dialect, err := database.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.Storage.DBPath
	if dialect == database.Postgres {
		dsn = cfg.Storage.DatabaseURL
	}
	db, err := database.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := store.New(db, dialect)
	return &backend{store: s, accounts: s, subs: s, db: db, sqlStore: s}, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	if be.db != nil {
		defer be.db.Close()
	}

	m := metrics.New()
	hub := ws.NewHub(logger.With("component", "websocket"), ws.WithClientGauge(m.WebsocketClients))

	var notifier *push.Notifier
	if cfg.PushEnabled() {
		svc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		notifier = push.NewNotifier(be.subs, svc, logger.With("component", "push"))
	}
	scheduler := push.NewScheduler(be.store, be.subs, notifier, hub, logger.With("component", "scheduler"),
		push.WithOverdueCounter(m.Assignments.WithLabelValues(metrics.EventOverdue)))

	var backups *backup.Manager
	if be.sqlStore != nil && be.sqlStore.Dialect() == database.SQLite {
		backups = backup.NewManager(backupConfig(cfg), be.db, be.sqlStore, logger.With("component", "backup"), func(s backup.Status) {
			hub.Broadcast(ws.Message{
				Type:   "backup_status",
				Entity: "backup",
				Action: string(s.State),
				Extra: map[string]any{
					"in_progress": s.InProgress,
					"error":       s.Error,
				},
			})
		})
	}

	srv := server.New(server.Deps{
		Store:             be.store,
		Accounts:          be.accounts,
		Subscriptions:     be.subs,
		Issuer:            auth.NewIssuer(cfg.Auth.JWTSecret, cfg.TokenTTL()),
		Hub:               hub,
		Metrics:           m,
		Notifier:          notifier,
		Backups:           backups,
		VAPIDPublicKey:    cfg.Push.VAPIDPublicKey,
		OriginPatterns:    cfg.Server.OriginPatterns,
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   cfg.RateLimitWindow(),
		Logger:            logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RateLimiter().Run(ctx, time.Minute)
	scheduler.Start(ctx)
	defer scheduler.Stop()
	if backups != nil {
		backups.Start(ctx)
		defer backups.Stop()
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("choretracker listening", "addr", httpServer.Addr, "storage", cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
