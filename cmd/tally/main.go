package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/ledger"
	applog "tally/internal/log"
	"tally/internal/notify"
	"tally/internal/settings"
	"tally/internal/storage"
	appsync "tally/internal/sync"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewLogNotifier(logger.Logger)

	settingsSvc := settings.NewService(repo, notifier)
	settingsSvc.Load(ctx)

	store := ledger.NewStore(repo, notifier)
	store.Load(ctx)

	syncClient := appsync.NewClient(store, settingsSvc, notifier, nil)
	if settingsSvc.Current().EndpointURL != "" {
		syncClient.NoteReady()
	}

	autoSaver := appsync.NewAutoSaver(syncClient, settingsSvc, nil, cfg.AutoSaveDebounce)
	defer autoSaver.Stop()

	// Optional AMQP publisher: every ledger mutation becomes an event the
	// mirror worker can react to.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	store.SetMutationHook(func(m ledger.Mutation) {
		autoSaver.OnMutation(m)
		if amqpClient != nil {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := amqpClient.PublishLedgerEvent(pubCtx, m.Op, m.TransactionID, m.Count); err != nil {
				logger.Warn("Failed to publish ledger event", "error", err, "op", m.Op)
			}
		}
	})

	srv := apphttp.NewServer(":"+cfg.Port, store, settingsSvc, syncClient)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting tally server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		autoSaver.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
