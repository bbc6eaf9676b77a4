// cmd/viewer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/engine"
	"github.com/opd-ai/go-collide/pkg/logging"
	engorender "github.com/opd-ai/go-collide/pkg/render/engo"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file (local mode)")
	streamURL := flag.String("stream", "", "Debug stream URL, e.g. ws://localhost:9090/ws (empty runs a local world)")
	speed := flag.Float64("speed", 3, "Player speed in world units per tick (local mode)")
	follow := flag.Uint64("follow", 0, "Collider ID the camera follows (0 follows the player in local mode)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode")
	width := flag.Int("width", 1024, "Window width")
	height := flag.Int("height", 768, "Window height")
	flag.Parse()

	logger := logging.NewLogger()
	ctx, cancel := context.WithCancel(logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID()))
	defer cancel()

	var scene *engorender.ViewerScene
	if *streamURL != "" {
		scene = streamScene(ctx, logger, *streamURL, *follow)
	} else {
		var err error
		scene, err = localScene(ctx, logger, *configPath, *speed, *follow)
		if err != nil {
			os.Exit(1)
		}
	}

	opts := engo.RunOptions{
		Title:      "Collision Viewer",
		Width:      *width,
		Height:     *height,
		Fullscreen: *fullscreen,
		VSync:      true,
	}

	engo.Run(opts, scene)
}

// streamScene connects to a running sandbox and draws whatever it publishes.
func streamScene(ctx context.Context, logger *logging.Logger, url string, follow uint64) *engorender.ViewerScene {
	client := debug.NewStreamClient(url,
		debug.WithClientLogger(logger),
		debug.WithReconnect(2*time.Second, 10),
	)
	go func() {
		err := client.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, debug.ErrClientClosed) {
			logger.Error(ctx, "Debug stream ended", err, "url", url)
		}
	}()
	logger.Info(ctx, "Following debug stream", "url", url)

	return engorender.NewViewerScene(engorender.NewStreamSource(client.Snapshots()),
		engorender.WithFollow(follow),
	)
}

// localScene runs the configured world inside the render loop so the
// movement keys steer the player directly.
func localScene(ctx context.Context, logger *logging.Logger, path string, speed float64, follow uint64) (*engorender.ViewerScene, error) {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", path)
			return nil, err
		}
	}
	if err := config.ApplyEnvironmentOverrides(cfg); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		return nil, err
	}

	world, err := engine.NewWorld(cfg, engine.WithLogger(logger))
	if err != nil {
		logger.Error(ctx, "Failed to create world", err)
		return nil, err
	}

	if follow == 0 {
		if p := world.Player(); p != nil {
			follow = p.GetCollider().ID()
		}
	}

	source := engorender.NewWorldSource(ctx, world)
	return engorender.NewViewerScene(source,
		engorender.WithSteering(source, speed),
		engorender.WithEvents(world.Events()),
		engorender.WithFollow(follow),
	), nil
}
