package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harubonchi/heat-cycle-demo/internal/compoway"
	"github.com/harubonchi/heat-cycle-demo/internal/config"
	"github.com/harubonchi/heat-cycle-demo/internal/logger"
	"github.com/harubonchi/heat-cycle-demo/internal/monitor"
	"github.com/harubonchi/heat-cycle-demo/internal/pid"
	"github.com/harubonchi/heat-cycle-demo/internal/recorder"
)

// pollerJoinTimeout bounds the wait for the poller's in-flight exchange
// before the serial port is closed under it.
const pollerJoinTimeout = 1500 * time.Millisecond

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to claim pid file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove pid file")
		}
	}()

	roster, err := loadRoster()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load systems roster")
	}

	recorderCfg := recorder.DefaultConfig()
	recorderCfg.Enabled = cfg.Recorder
	recorderCfg.DBPath = cfg.Database
	collector, err := recorder.NewService(recorderCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize recorder")
	}

	client, err := compoway.Open(compoway.Config{
		Address:         cfg.Port,
		BaudRate:        cfg.Baud,
		Session:         cfg.Session,
		ExchangeTimeout: cfg.ExchangeTimeout(),
		SetpointCommand: cfg.SetpointCommand,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open instrument link")
	}

	engine, err := monitor.NewEngine(monitor.Config{
		Window:               cfg.Window(),
		Retention:            cfg.Retention(),
		Tick:                 cfg.Tick(),
		StabilityMinDuration: cfg.StableDuration(),
		StabilityTolerance:   cfg.StableTolerance,
	}, roster.Systems, collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize monitoring engine")
	}

	poller, err := monitor.NewPoller(client, roster.Systems, cfg.PollInterval())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize poller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	readings := make(chan monitor.SystemReading, cfg.QueueDepth)
	pollerDone := make(chan struct{})
	go func() {
		poller.Run(ctx, readings)
		close(pollerDone)
	}()

	engine.Run(ctx, readings)

	cleanup(pollerDone, client, collector)
}

// loadRoster reads the configured roster file, or synthesizes a single
// system from the node defaults when no roster is configured.
func loadRoster() (monitor.Roster, error) {
	var roster monitor.Roster

	if cfg.Roster == "" {
		roster = monitor.Roster{Systems: []monitor.System{{
			ID:          "line-1",
			ThermalNode: cfg.ThermalNode,
			PowerNode:   cfg.PowerNode,
			Color:       "#2563eb",
		}}}
	} else {
		var err error
		roster, err = monitor.LoadRoster(cfg.Roster)
		if err != nil {
			return monitor.Roster{}, err
		}
	}

	roster.Normalize(cfg.Voltage)
	if err := roster.Validate(); err != nil {
		return monitor.Roster{}, err
	}

	return roster, nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// cleanup waits for the poller before tearing the transport down so the
// port is never closed under an in-flight exchange.
func cleanup(pollerDone <-chan struct{}, client *compoway.Client, collector recorder.Collector) {
	select {
	case <-pollerDone:
	case <-time.After(pollerJoinTimeout):
		logger.Warn().Msg("Poller did not stop in time")
	}

	if err := client.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close instrument link")
	}

	if err := collector.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close recorder")
	}

	logger.Info().Msg("Exiting...")
}
