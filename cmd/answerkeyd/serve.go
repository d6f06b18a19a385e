package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-answerkey/internal/api/http"
	authmw "github.com/mind-engage/mindengage-answerkey/internal/auth/middleware"
	"github.com/mind-engage/mindengage-answerkey/internal/db"
	"github.com/mind-engage/mindengage-answerkey/internal/history"
	"github.com/mind-engage/mindengage-answerkey/internal/keysheet"
	"github.com/mind-engage/mindengage-answerkey/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web form",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if err := cfg.CheckAuthSecret(); err != nil {
		return err
	}
	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Blobs:          bs,
		Log:            logger,
		Version:        cfg.Version,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    cfg.CORSOrigins,
	}
	opts := []keysheet.Option{keysheet.WithLogger(logger)}

	if db.Driver(cfg.DBDriver) != db.DriverNone {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		cancel()
		if err != nil {
			return err
		}
		defer dbh.Close()
		repo := history.NewRepo(dbh)
		opts = append(opts, keysheet.WithHistory(repo))
		deps.History = repo
		deps.Ready = dbh.PingContext
	} else {
		logger.Warn("history disabled", zap.String("db_driver", cfg.DBDriver))
	}
	deps.Service = keysheet.NewService(bs, opts...)

	if cfg.AuthEnabled() {
		deps.Auth = authmw.NewAuthService(cfg.AuthSecret, cfg.SessionTTL, cfg.Accounts)
	} else {
		logger.Warn("no accounts configured, every request acts as admin")
	}

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("db", cfg.DBDriver),
			zap.String("version", cfg.Version),
			zap.Bool("auth", cfg.AuthEnabled()))
		errc <- s.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return s.Shutdown(shutdownCtx)
}
