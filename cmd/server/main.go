package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"traderesearch/app/internal/auth"
	"traderesearch/app/internal/config"
	appdb "traderesearch/app/internal/db"
	apphttp "traderesearch/app/internal/http"
	applog "traderesearch/app/internal/log"
	"traderesearch/app/internal/research"
	"traderesearch/app/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "research",
		Short:         "Gold Standard Research publishing server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand(), newMigrateCommand(), newCreateAdminCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.close()

			if err := migrateAll(cmd.Context(), env.db, env.logger); err != nil {
				return err
			}

			env.logger.Info("migrations applied")
			return nil
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin <email> <password>",
		Short: "Create an admin account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap()
			if err != nil {
				return err
			}
			defer env.close()

			if err := auth.Migrate(cmd.Context(), env.db, env.logger); err != nil {
				return eris.Wrap(err, "running auth migrations")
			}

			authService, err := auth.NewService(env.db, env.cfg.SessionTTL, env.logger)
			if err != nil {
				return eris.Wrap(err, "creating auth service")
			}

			user, err := authService.Register(cmd.Context(), args[0], args[1], true)
			if err != nil {
				return eris.Wrap(err, "registering admin account")
			}

			env.logger.WithFields(logrus.Fields{
				"user_id": user.ID,
				"email":   user.Email,
			}).Info("admin account created")
			return nil
		},
	}
}

// environment bundles the pieces every subcommand needs before doing real work.
type environment struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	close  func()
}

func bootstrap() (*environment, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "failure initialising logger")
	}

	dbConn, err := appdb.Open(appdb.Options{Path: cfg.DBPath})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	closeFn := func() {
		if closeErr := appdb.Close(dbConn); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}

	return &environment{cfg: cfg, logger: logger, db: dbConn, close: closeFn}, nil
}

func migrateAll(ctx context.Context, dbConn *gorm.DB, logger *logrus.Logger) error {
	if err := auth.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running auth migrations")
	}
	if err := research.Migrate(ctx, dbConn, logger); err != nil {
		return eris.Wrap(err, "running research migrations")
	}
	return nil
}

func runServe(ctx context.Context) error {
	env, err := bootstrap()
	if err != nil {
		return err
	}
	defer env.close()

	cfg := env.cfg
	logger := env.logger

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	if err := migrateAll(ctx, env.db, logger); err != nil {
		return err
	}

	signer, err := storage.NewSigner(cfg.SigningSecret)
	if err != nil {
		return eris.Wrap(err, "building url signer")
	}

	blobs, err := storage.NewFileStore(cfg.StorageDir, signer, logger)
	if err != nil {
		return eris.Wrap(err, "building attachment store")
	}

	repository, err := research.NewRepository(env.db, logger)
	if err != nil {
		return eris.Wrap(err, "building article repository")
	}

	researchService, err := research.NewService(repository, blobs, cfg.SignedURLTTL, logger, sentryHub)
	if err != nil {
		return eris.Wrap(err, "creating research service")
	}

	authService, err := auth.NewService(env.db, cfg.SessionTTL, logger)
	if err != nil {
		return eris.Wrap(err, "creating auth service")
	}

	transport, err := apphttp.NewServer(apphttp.Options{
		Research:  researchService,
		Auth:      authService,
		Blobs:     blobs,
		Database:  env.db,
		Logger:    logger,
		SentryHub: sentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			ClientTTL:         cfg.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return eris.Wrap(err, "initialising http transport")
	}

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
		Handler: transport.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr": httpServer.Addr,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}
