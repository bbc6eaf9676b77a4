// pkg/config/env_config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by ApplyEnvironmentOverrides.
const (
	EnvMinCellSize   = "COLLIDE_MIN_CELL_SIZE"
	EnvMaxObjects    = "COLLIDE_MAX_OBJECTS"
	EnvEpsilon       = "COLLIDE_EPSILON"
	EnvDebugAddr     = "COLLIDE_DEBUG_ADDR"
	EnvSnapshotEvery = "COLLIDE_SNAPSHOT_EVERY"
	EnvTickRate      = "COLLIDE_TICK_RATE"
)

// ApplyEnvironmentOverrides overwrites fields of config with any COLLIDE_*
// variables that are set, then validates the result.
func ApplyEnvironmentOverrides(config *Config) error {
	if v, ok := os.LookupEnv(EnvMinCellSize); ok {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMinCellSize, err)
		}
		config.Collision.MinCellWidth = size
		config.Collision.MinCellHeight = size
	}

	if v, ok := os.LookupEnv(EnvMaxObjects); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxObjects, err)
		}
		config.Collision.MaxObjectsPerNode = n
	}

	if v, ok := os.LookupEnv(EnvEpsilon); ok {
		eps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvEpsilon, err)
		}
		config.Collision.Epsilon = eps
	}

	if v, ok := os.LookupEnv(EnvDebugAddr); ok {
		config.Debug.ListenAddr = v
	}

	if v, ok := os.LookupEnv(EnvSnapshotEvery); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSnapshotEvery, err)
		}
		config.Debug.SnapshotEveryTicks = n
	}

	if v, ok := os.LookupEnv(EnvTickRate); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTickRate, err)
		}
		config.Scene.TickRate = n
	}

	return config.Validate()
}
