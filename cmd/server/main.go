package main

import (
	"context"
	"errors"
	"flag"
	"flight-control/internal/aircraft"
	"flight-control/internal/api"
	"flight-control/internal/camera"
	"flight-control/internal/config"
	"flight-control/internal/control"
	"flight-control/internal/flight"
	"flight-control/internal/geometry"
	"flight-control/internal/logging"
	"flight-control/internal/metrics"
	"flight-control/internal/sim"
	"flight-control/internal/stall"
	"flight-control/internal/timeutil"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	configDir = flag.String("config", ".", "Directory containing "+config.FileName)
	port      = flag.Int("port", 0, "Port to listen on (overrides http.port)")
	startAlt  = flag.Float64("alt", 1000, "Initial aircraft altitude in meters")
	startLat  = flag.Float64("lat", 0, "Initial latitude (defaults to sim.originLat)")
	startLon  = flag.Float64("lon", 0, "Initial longitude (defaults to sim.originLon)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flight-control: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	logger, err := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		Dir:            cfg.LogsDir,
		GraylogEnabled: cfg.Graylog.Enabled,
		GraylogAddress: cfg.Graylog.Address,
	})
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	instruments, err := metrics.New(nil)
	if err != nil {
		return err
	}

	stallCfg, err := cfg.StallDetector()
	if err != nil {
		return err
	}

	clock := timeutil.RealClock{}
	geo := sim.GeoRef{OriginLat: cfg.Sim.OriginLat, OriginLon: cfg.Sim.OriginLon}
	lat, lon := cfg.Sim.OriginLat, cfg.Sim.OriginLon
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			lat = *startLat
		case "lon":
			lon = *startLon
		}
	})
	ac := aircraft.New(geo.GeoToLocal(lat, lon, *startAlt), cfg.Stall.Recovery)
	aimT := geometry.NewTransform(ac.Transform.Position)

	ctrl := flight.New(cfg.Controller(), flight.Parts{
		Aircraft: ac,
		Aim:      &aimT,
		Rig:      camera.NewRig(cfg.Rig()),
		Viewport: cfg.Viewport(),
		Stall:    stall.New(stallCfg, log, instruments),
		Arbiter:  control.New(cfg.Arbiter(), cfg.Law(), log, instruments),
		Clock:    clock,
		Metrics:  instruments,
	}, log)

	// Create simulation engine
	simEngine := sim.New(sim.Config{
		OriginLat: cfg.Sim.OriginLat,
		OriginLon: cfg.Sim.OriginLon,
		FrameHz:   cfg.Sim.FrameHz,
		FixedHz:   cfg.Sim.FixedHz,
		Clock:     clock,
	}, ctrl, log, instruments)

	server := api.NewServer(simEngine, log)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: server.Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		if err := simEngine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("simulation error")
		}
	}()

	go func() {
		log.Info().Int("port", cfg.HTTP.Port).Str("session", simEngine.Session()).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	cancel()
	<-engineDone

	log.Info().Msg("shutdown complete")
	return nil
}
