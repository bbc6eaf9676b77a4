// cmd/sandbox/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/engine"
	"github.com/opd-ai/go-collide/pkg/health"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
	"github.com/opd-ai/go-collide/pkg/render"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	ticks := flag.Int("ticks", 0, "Run this many ticks as fast as possible and exit (0 runs until interrupted)")
	debugAddr := flag.String("debug-addr", "", "Debug stream listen address (overrides config)")
	terminal := flag.Bool("terminal", false, "Draw the spatial index in the terminal")
	scale := flag.Float64("scale", 4, "World units per terminal cell")
	logPath := flag.String("log", "sandbox.log", "Log file used while the terminal view is active")
	flag.Parse()

	logger := logging.NewLogger()
	if *terminal {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Error(context.Background(), "Failed to open log file", err, "log_path", *logPath)
			os.Exit(1)
		}
		defer f.Close()
		logger = logging.NewLoggerWithWriter(f, slog.LevelInfo)
	}
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	cfg, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		os.Exit(1)
	}
	if *debugAddr != "" {
		cfg.Debug.ListenAddr = *debugAddr
	}

	healthChecker := health.NewHealthChecker()
	stream := debug.NewStreamServer(cfg.Debug,
		debug.WithStreamLogger(logger),
		debug.WithHealthChecker(healthChecker),
	)

	var opts []engine.Option
	opts = append(opts, engine.WithLogger(logger))
	if cfg.Debug.ListenAddr != "" {
		opts = append(opts, engine.WithPublisher(stream))
	}
	world, err := engine.NewWorld(cfg, opts...)
	if err != nil {
		logger.Error(ctx, "Failed to create world", err)
		os.Exit(1)
	}

	healthChecker.AddCheck(health.NewIndexHealthCheck(world))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(500, func() int64 {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return int64(m.Alloc / 1024 / 1024)
	}))

	if cfg.Debug.ListenAddr != "" {
		healthChecker.AddCheck(health.NewStreamHealthCheck(stream.Addr))
		if err := stream.Start(cfg.Debug.ListenAddr); err != nil {
			logger.Error(ctx, "Failed to start debug stream", err,
				"address", cfg.Debug.ListenAddr,
			)
			os.Exit(1)
		}
		defer stream.Stop()
		logger.Info(ctx, "Debug stream listening", "address", stream.Addr())
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *ticks > 0:
		start := time.Now()
		report, err := world.RunTicks(runCtx, *ticks)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(ctx, "Run interrupted", err)
		}
		stats := world.Detector().Stats()
		logger.Info(ctx, "Run complete",
			"ticks", report.Tick,
			"elapsed", time.Since(start).String(),
			"moved", report.Moved,
			"clamped", report.Clamped,
			"stalled", report.Stalled,
			"errors", report.Errors,
			"triggers", stats.Triggers,
			"index_depth", world.Detector().Depth(),
		)
	case *terminal:
		if err := runTerminal(runCtx, world, *scale); err != nil {
			logger.Error(ctx, "Terminal view failed", err)
			os.Exit(1)
		}
	default:
		logger.Info(ctx, "Sandbox running", "tick_rate", cfg.Scene.TickRate)
		if err := world.Run(runCtx); err != nil {
			logger.Error(ctx, "World stopped with error", err)
		}
	}

	logger.Info(ctx, "Shutting down sandbox", "ticks", world.TickCount())
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist, then applies COLLIDE_* environment overrides.
func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", path,
			)
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		return nil, err
	}
	return cfg, nil
}

// runTerminal ticks the world at its configured rate and draws every tick.
// Arrow keys steer the player; q or Esc quits.
func runTerminal(ctx context.Context, world *engine.World, scale float64) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	overlay := render.NewTerminalOverlay(screen, scale)
	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	steer := physics.Vector2D{}
	if p := world.Player(); p != nil {
		steer = p.Intent
	}
	speed := steer.Length()
	if speed == 0 {
		speed = 2
	}

	ticker := time.NewTicker(world.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || (ev.Key() == tcell.KeyRune && ev.Rune() == 'q'):
					return nil
				case ev.Key() == tcell.KeyUp:
					world.Steer(physics.Vector2D{Y: -speed})
				case ev.Key() == tcell.KeyDown:
					world.Steer(physics.Vector2D{Y: speed})
				case ev.Key() == tcell.KeyLeft:
					world.Steer(physics.Vector2D{X: -speed})
				case ev.Key() == tcell.KeyRight:
					world.Steer(physics.Vector2D{X: speed})
				case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
					world.Steer(physics.Vector2D{})
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			world.Tick(ctx)
			snap := world.Snapshot()
			if p := world.Player(); p != nil {
				if c, ok := snap.Collider(p.GetCollider().ID()); ok {
					overlay.SetCenter(c.Bounds.Center())
				}
			}
			render.DrawSnapshot(overlay, &snap)
		}
	}
}
