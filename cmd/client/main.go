package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/turnsync/internal/api"
	"github.com/DoyleJ11/turnsync/internal/config"
	"github.com/DoyleJ11/turnsync/internal/httpapi"
	"github.com/DoyleJ11/turnsync/internal/hub"
	"github.com/DoyleJ11/turnsync/internal/logging"
	"github.com/DoyleJ11/turnsync/internal/session"
	"github.com/DoyleJ11/turnsync/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) (err error) {
	// The game server tracks the browser session in cookies as well.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	client := api.New(cfg.Router(), cfg.Ext, &http.Client{Jar: jar, Timeout: cfg.HTTPTimeout}, log)

	var repo hub.Repo
	if cfg.DatabaseURL != "" {
		r, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, r.Close()) }()
		repo = r
	}

	// Build the hub first, then the router *with* the hub injected
	h := hub.NewHub(ctx, client, session.Options{Interval: cfg.PollInterval, InputGuard: cfg.SingleInput}, repo, log)
	if n, err := h.Resume(ctx); err != nil {
		log.Warn("resume sessions", zap.Error(err))
	} else if n > 0 {
		log.Info("resumed sessions", zap.Int("count", n))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.SetupRoutes(h, client, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			h.Shutdown(shutdownCtx),
		)
	})
	return g.Wait()
}
