package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/ransched/internal/logger"
	"github.com/marmos91/ransched/internal/telemetry"
	"github.com/marmos91/ransched/pkg/api"
	"github.com/marmos91/ransched/pkg/config"
	"github.com/marmos91/ransched/pkg/metrics"
	"github.com/marmos91/ransched/pkg/sched"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ransched",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "ransched",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	// Metrics first, so the scheduler is built with collectors attached.
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(metrics.ServerConfig{
			Host: cfg.Metrics.Host,
			Port: cfg.Metrics.Port,
		})
	}

	s, err := sched.New(cfg.SchedConfig(), sched.WithMetrics(metrics.NewSchedMetrics()))
	if err != nil {
		return err
	}
	if err := s.CellCfg(cfg.CellConfigs()); err != nil {
		return fmt.Errorf("failed to configure cells: %w", err)
	}
	logger.Info("scheduler ready",
		"cells", s.NumCells(),
		"concurrent_slots", cfg.Scheduler.ConcurrentSlots)

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(api.Config{Host: cfg.API.Host, Port: cfg.API.Port}, s)
	}

	serverDone := make(chan error, 2)
	if metricsServer != nil {
		go func() { serverDone <- metricsServer.Start() }()
	}
	if apiServer != nil {
		go func() { serverDone <- apiServer.Start() }()
	}

	clockDone := make(chan error, 1)
	go func() { clockDone <- runSlotClock(ctx, s, cfg) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("scheduler running, press Ctrl+C to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received")
	case err := <-serverDone:
		if err != nil {
			logger.Error("server error", logger.KeyError, err)
		}
	case err := <-clockDone:
		if err != nil {
			logger.Error("slot clock error", logger.KeyError, err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("api shutdown error", logger.KeyError, err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown error", logger.KeyError, err)
		}
	}
	logger.Info("scheduler stopped")
	return nil
}

// slotDuration derives the TTI length from the subcarrier spacing: 1 ms at
// 15 kHz, halving for each doubling.
func slotDuration(scsKHz uint32) time.Duration {
	if scsKHz == 0 {
		scsKHz = 15
	}
	return time.Duration(uint64(time.Millisecond) * 15 / uint64(scsKHz))
}

// runSlotClock drives the scheduler from a wall-clock ticker, collecting
// every cell's result concurrently, the way the PHY would.
func runSlotClock(ctx context.Context, s *sched.Scheduler, cfg *config.Config) error {
	tick := slotDuration(cfg.Scheduler.Cells[0].SCSKHz)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	results := make([]sched.SlotResult, s.NumCells())
	var slot sched.Slot

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s.SlotIndication(slot)
		g, _ := errgroup.WithContext(ctx)
		for cc := 0; cc < s.NumCells(); cc++ {
			cc := cc
			g.Go(func() error {
				spanCtx, span := telemetry.StartSlotSpan(ctx, uint32(slot), uint32(cc))
				err := s.GenerateSchedResult(slot, uint32(cc), &results[cc])
				if err != nil {
					telemetry.RecordError(spanCtx, err)
				}
				span.End()
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		slot++
	}
}
