package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loghaan/cablewatch/internal/config"
	"github.com/loghaan/cablewatch/internal/control"
	"github.com/loghaan/cablewatch/internal/log"
	"github.com/loghaan/cablewatch/internal/recorder"
	"github.com/loghaan/cablewatch/internal/scheduler"
	"github.com/loghaan/cablewatch/internal/transcript"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to cablewatch.yaml")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{Level: "info", Service: "cablewatchd", Version: version})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "timezone.invalid").Msg("invalid TIMEZONE")
	}

	dbPath, err := cfg.Get("DATABASE_PATH")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve DATABASE_PATH")
	}
	store, err := transcript.Open(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "transcript.open_failed").Msg("failed to open transcript store")
	}
	defer store.Close()

	abort := func(err error) {
		logger.Error().Err(err).Str("event", "recorder.flap_abort").Msg("recorder aborted itself after a startup flap")
		stop()
	}

	var hub *control.Hub
	onStatus := func(s recorder.Status) {
		if hub != nil {
			hub.OnStatus(s)
		}
	}

	rec, err := recorder.New(cfg, abort, onStatus)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "recorder.new_failed").Msg("failed to construct recorder")
	}
	hub = control.NewHub(rec)

	sched, err := scheduler.New(rec, loc, scheduler.DefaultRecordSchedule, scheduler.DefaultHaltSchedule)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "scheduler.new_failed").Msg("failed to construct scheduler")
	}

	rootDir, err := cfg.Get("WEB_ROOTDIR")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve WEB_ROOTDIR")
	}
	listenAddr, err := cfg.Get("WEB_LISTENADDR")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve WEB_LISTENADDR")
	}
	port, err := cfg.Get("WEB_PORT")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve WEB_PORT")
	}

	r := chi.NewRouter()
	hub.Routes(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", http.FileServer(http.Dir(rootDir)))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", listenAddr, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	rec.Start(ctx)
	sched.Start()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("event", "startup").Str("addr", srv.Addr).Msg("starting cablewatchd")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("event", "server.failed").Msg("http server exited unexpectedly")
		}
	}

	sched.Stop()
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server did not shut down cleanly")
	}
	rec.Stop(shutdownCtx)

	logger.Info().Msg("cablewatchd exiting")
}
