package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/fieldcast/internal/adapters/events"
	router "github.com/dkeye/fieldcast/internal/adapters/http"
	"github.com/dkeye/fieldcast/internal/adapters/rtc"
	wssignal "github.com/dkeye/fieldcast/internal/adapters/signal"
	"github.com/dkeye/fieldcast/internal/app"
	"github.com/dkeye/fieldcast/internal/app/orch"
	"github.com/dkeye/fieldcast/internal/config"
)

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Terminal output until config says otherwise.
	setupLogger(config.LogConfig{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg.Log)

	sink, err := events.New(cfg.Sink)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Sink.Driver).Msg("failed to start session sink")
	}

	o := orch.New(sink, app.PolicyFromString(cfg.Policy.OnBackpressure), cfg.Transcript.Separator)

	// Links outlive the signal context so live sessions end with reason shutdown.
	connCtx, closeConns := context.WithCancel(context.Background())
	defer closeConns()

	r := router.SetupRouter(connCtx, cfg, router.Deps{
		Orch:       o,
		Limiter:    wssignal.NewRateLimiter(cfg.RateLimit.Attempts, cfg.RateLimit.Interval),
		ICEServers: rtc.ICEServers(cfg.ICE),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("fieldcast gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// End what is still live so every session yields its record, then drain.
	o.Shutdown()
	closeConns()
	if err := sink.Close(); err != nil {
		log.Error().Err(err).Msg("session sink close")
	}
	log.Info().Msg("Server exited gracefully")
}
