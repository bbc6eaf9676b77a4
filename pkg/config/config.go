// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/opd-ai/go-collide/pkg/physics"
)

// Config is the root configuration for the collision engine and its tools
type Config struct {
	Collision CollisionConfig `json:"collision"`
	Debug     DebugConfig     `json:"debug"`
	Scene     SceneConfig     `json:"scene"`
}

// CollisionConfig tunes the spatial index and the resolution policy
type CollisionConfig struct {
	MinCellWidth      float64 `json:"minCellWidth"`
	MinCellHeight     float64 `json:"minCellHeight"`
	MaxObjectsPerNode int     `json:"maxObjectsPerNode"`
	// Epsilon is the clearance left between a mover and the obstacle it was
	// clamped against, so the next tick does not re-detect the same contact.
	Epsilon float64 `json:"epsilon"`
	// WorldBounds seeds the index root. Nil lets the root size itself.
	WorldBounds *physics.Bounds `json:"worldBounds,omitempty"`
}

// DebugConfig controls the diagnostic snapshot stream
type DebugConfig struct {
	ListenAddr         string `json:"listenAddr"`
	SnapshotEveryTicks int    `json:"snapshotEveryTicks"`
	MaxViewers         int    `json:"maxViewers"`
	WriteTimeoutMs     int    `json:"writeTimeoutMs"`
	BreakerMaxFailures int    `json:"breakerMaxFailures"`
	BreakerCooldownMs  int    `json:"breakerCooldownMs"`

	// MaxConnectsPerMinute bounds viewer connects per remote host. Zero
	// disables the limit.
	MaxConnectsPerMinute int `json:"maxConnectsPerMinute"`
}

// SceneConfig describes the sandbox world driven by the bundled binaries
type SceneConfig struct {
	TickRate int            `json:"tickRate"`
	Entities []EntityConfig `json:"entities"`
}

// EntityConfig places one entity in the sandbox
type EntityConfig struct {
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Bounds   physics.Bounds `json:"bounds"`
	// Intent is the displacement the entity requests every tick.
	Intent physics.Vector2D `json:"intent"`
	// Bounce reverses an intent axis once the entity stalls on it.
	Bounce bool `json:"bounce,omitempty"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultCollisionConfig returns the index and policy defaults: 25x25
// minimum cells, split on the first object, and a 0.01 clearance.
func DefaultCollisionConfig() CollisionConfig {
	return CollisionConfig{
		MinCellWidth:      25,
		MinCellHeight:     25,
		MaxObjectsPerNode: 0,
		Epsilon:           0.01,
	}
}

// DefaultConfig returns a default configuration with a small walled room
func DefaultConfig() *Config {
	return &Config{
		Collision: DefaultCollisionConfig(),
		Debug: DebugConfig{
			ListenAddr:           "",
			SnapshotEveryTicks:   6,
			MaxViewers:           8,
			WriteTimeoutMs:       250,
			BreakerMaxFailures:   3,
			BreakerCooldownMs:    5000,
			MaxConnectsPerMinute: 30,
		},
		Scene: SceneConfig{
			TickRate: 60,
			Entities: []EntityConfig{
				{Name: "player", Category: "pc", Bounds: physics.NewBounds(40, 40, 16, 16), Intent: physics.Vector2D{X: 3, Y: 1.5}, Bounce: true},
				{Name: "wall-north", Category: "scenery", Bounds: physics.NewBounds(0, 0, 320, 16)},
				{Name: "wall-south", Category: "scenery", Bounds: physics.NewBounds(0, 224, 320, 16)},
				{Name: "wall-west", Category: "scenery", Bounds: physics.NewBounds(0, 16, 16, 208)},
				{Name: "wall-east", Category: "scenery", Bounds: physics.NewBounds(304, 16, 16, 208)},
				{Name: "pillar", Category: "scenery", Bounds: physics.NewBounds(144, 96, 32, 32)},
				{Name: "villager", Category: "npc", Bounds: physics.NewBounds(240, 160, 16, 16)},
				{Name: "doorway", Category: "trigger", Bounds: physics.NewBounds(264, 40, 24, 24)},
			},
		},
	}
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if err := c.Collision.Validate(); err != nil {
		return fmt.Errorf("collision: %w", err)
	}
	if err := c.Debug.Validate(); err != nil {
		return fmt.Errorf("debug: %w", err)
	}
	if err := c.Scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}

// Validate checks the collision settings
func (c *CollisionConfig) Validate() error {
	if c.MinCellWidth <= 0 || c.MinCellHeight <= 0 {
		return fmt.Errorf("min cell size must be positive, got %gx%g", c.MinCellWidth, c.MinCellHeight)
	}
	if c.MaxObjectsPerNode < 0 {
		return fmt.Errorf("maxObjectsPerNode must not be negative, got %d", c.MaxObjectsPerNode)
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative, got %g", c.Epsilon)
	}
	if c.WorldBounds != nil && (!c.WorldBounds.Valid() || c.WorldBounds.Width == 0 || c.WorldBounds.Height == 0) {
		return fmt.Errorf("world bounds %v are not a usable region", *c.WorldBounds)
	}
	return nil
}

// Validate checks the debug stream settings
func (c *DebugConfig) Validate() error {
	if c.SnapshotEveryTicks <= 0 {
		return fmt.Errorf("snapshotEveryTicks must be positive, got %d", c.SnapshotEveryTicks)
	}
	if c.MaxViewers <= 0 {
		return fmt.Errorf("maxViewers must be positive, got %d", c.MaxViewers)
	}
	if c.WriteTimeoutMs <= 0 {
		return fmt.Errorf("writeTimeoutMs must be positive, got %d", c.WriteTimeoutMs)
	}
	if c.BreakerMaxFailures <= 0 {
		return fmt.Errorf("breakerMaxFailures must be positive, got %d", c.BreakerMaxFailures)
	}
	if c.MaxConnectsPerMinute < 0 {
		return fmt.Errorf("maxConnectsPerMinute must not be negative, got %d", c.MaxConnectsPerMinute)
	}
	return nil
}

// Validate checks the sandbox scene
func (c *SceneConfig) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %d", c.TickRate)
	}
	names := make(map[string]bool, len(c.Entities))
	for i, e := range c.Entities {
		if err := ValidateEntityName(e.Name); err != nil {
			return fmt.Errorf("entity %d: %w", i, err)
		}
		if names[e.Name] {
			return fmt.Errorf("duplicate entity name %q", e.Name)
		}
		names[e.Name] = true
		if e.Category == "" {
			return fmt.Errorf("entity %q has no category", e.Name)
		}
		if !e.Bounds.Valid() {
			return fmt.Errorf("entity %q: %w", e.Name, errInvalidBounds)
		}
		if !e.Intent.IsFinite() {
			return fmt.Errorf("entity %q has a non-finite intent", e.Name)
		}
	}
	return nil
}

var errInvalidBounds = errors.New("bounds must have non-negative finite size")
