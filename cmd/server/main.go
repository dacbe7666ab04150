package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sicko7947/approvalflow"
	"github.com/sicko7947/approvalflow/actiontoken"
	"github.com/sicko7947/approvalflow/auth"
	"github.com/sicko7947/approvalflow/engine"
	"github.com/sicko7947/approvalflow/notify"
	"github.com/sicko7947/approvalflow/server"
	"github.com/sicko7947/approvalflow/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := approvalflow.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := approvalflow.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Logger = logger

	ctx := context.Background()

	recordStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open record store")
	}

	wfEngine := engine.NewEngine(recordStore, engine.WithLogger(logger))

	signer, err := actiontoken.NewSigner(actiontoken.Config{
		Secret: []byte(cfg.ActionTokenSecret),
		TTL:    cfg.ActionTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create action token signer")
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.AuthTokenSecret),
		TTL:    cfg.AuthTokenTTL,
	}, auth.NewMemoryRevocationList(time.Now))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create auth token service")
	}

	dispatcher := notify.NewDispatcher(notify.NewLogSender(logger), logger, notify.DispatcherConfig{
		MaxRetries: cfg.NotifyMaxRetries,
		RetryDelay: cfg.NotifyRetryDelay,
		Backoff:    cfg.NotifyBackoff,
	})

	srv := server.New(server.Deps{
		Workflow: wfEngine,
		Verifier: tokens,
		Revoker:  tokens,
		Tokens:   signer,
		Notifier: dispatcher,
		Logger:   logger,
	}, server.Config{
		ManagerEmail:  cfg.ManagerEmail,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	logger.Info().
		Str("backend", cfg.StoreBackend).
		Str("addr", cfg.ListenAddr).
		Msg("Approval workflow initialized")

	// Start server in a goroutine
	go func() {
		if err := srv.Listen(cfg.ListenAddr); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	if err := srv.Shutdown(shutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	dispatcher.Close()
	if err := recordStore.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close record store")
	}

	logger.Info().Msg("Server exited")
}

// openStore builds the record store selected by configuration
func openStore(ctx context.Context, cfg approvalflow.Config, logger zerolog.Logger) (approvalflow.RecordStore, error) {
	switch cfg.StoreBackend {
	case approvalflow.BackendMemory:
		return store.NewMemoryStore(), nil
	case approvalflow.BackendFile:
		return store.NewFileStore(cfg.DataPath, store.WithFileLogger(logger))
	case approvalflow.BackendSQLite:
		return store.OpenSQLiteStore(cfg.SQLitePath)
	case approvalflow.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return store.NewDynamoDBStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
