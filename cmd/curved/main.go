// Command curved recalibrates repo curves from a quotes file on a schedule,
// stores every calibration and serves the latest curves over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/latent/config"
	"github.com/meenmo/latent/daemon"
	"github.com/meenmo/latent/internal/jobs"
	"github.com/meenmo/latent/internal/server"
	"github.com/meenmo/latent/logger"
	"github.com/meenmo/latent/store"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	config.SetConfig(cfg.Numerics)

	log := logger.New(logger.Config{
		Level:  cfg.Service.LogLevel,
		Pretty: cfg.Service.LogPretty,
	})
	logger.SetGlobalLogger(log)
	log.Info().Msg("Starting curved")

	if cfg.Service.QuotesPath == "" {
		log.Fatal().Msg("quotes_path is required")
	}

	st, err := store.Open(cfg.Service.DBDriver, cfg.Service.DBDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate store")
	}

	// A cron schedule overrides the default interval.
	interval := cfg.Service.Interval
	if cfg.Service.Schedule != "" {
		interval = 0
	}

	job := jobs.NewRecalibrator(cfg.Service.QuotesPath, st, log)
	d, err := daemon.New(daemon.Config{
		Name:       job.Name(),
		Interval:   interval,
		Schedule:   cfg.Service.Schedule,
		RunOnStart: true,
		Timeout:    5 * time.Minute,
	}, job.Run, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create daemon")
	}

	srv := server.New(server.Config{
		Addr:   cfg.Service.Listen,
		Log:    log,
		Store:  st,
		Daemon: d,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		d.Interrupt()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("curved stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("curved stopped")
}
