// @title Health Consent API
// @version 1.0
// @description Códigos de consentimiento, sesiones de acceso y grupos familiares sobre la historia clínica.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"health-consent/internal/adapters/auth/jwtverifier"
	"health-consent/internal/adapters/records/httpstore"
	"health-consent/internal/adapters/storage/leveldb"
	pg "health-consent/internal/adapters/storage/postgres"
	"health-consent/internal/domain/consent"
	"health-consent/internal/platform/config"
	"health-consent/internal/platform/logger"
	"health-consent/internal/router"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.String("config", "", "archivo YAML de configuración (o CONSENT_CONFIG)")
	addr := pflag.String("addr", "", "dirección de escucha; pisa server.addr")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewFromEnv().Error("config", map[string]any{"err": err})
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", map[string]any{"err": err})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := router.Options{
		Logger: log,
		Consent: consent.Settings{
			TTL:              cfg.Consent.CodeTTL,
			MaxIssueAttempts: cfg.Consent.MaxIssueAttempts,
		},
	}

	codes, err := consent.NewGenerator(cfg.Consent.CodeLength, cfg.Consent.CodeAlphabet)
	if err != nil {
		return err
	}
	opts.Codes = codes

	switch cfg.Storage.Driver {
	case "postgres":
		db, err := openPostgres(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.DB = db
	case "leveldb":
		ldb, err := leveldb.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer ldb.Close()
		opts.LevelDB = ldb
	}

	if cfg.Auth.Mode == "jwt" {
		opts.AuthVerifier = jwtverifier.New(jwtverifier.Config{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.JWTIssuer,
		})
	}

	if cfg.Records.BaseURL != "" {
		store, err := httpstore.New(httpstore.Config{
			BaseURL: cfg.Records.BaseURL,
			APIKey:  cfg.Records.APIKey,
			Timeout: cfg.Records.Timeout,
		})
		if err != nil {
			return err
		}
		opts.Records = store
	}

	app, err := router.New(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting server", map[string]any{
			"addr":    cfg.Server.Addr,
			"storage": cfg.Storage.Driver,
			"auth":    cfg.Auth.Mode,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return app.Consent.RunSweeper(gctx, cfg.Consent.SweepInterval, log)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openPostgres(ctx context.Context, st config.StorageConfig) (*sql.DB, error) {
	db, err := pg.Open(st.DSN)
	if err != nil {
		return nil, err
	}
	if st.Migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
