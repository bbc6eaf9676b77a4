// Package engine runs the collision sandbox: a set of actors loaded from
// configuration, stepped once per tick against a shared detector.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opd-ai/go-collide/pkg/collision"
	"github.com/opd-ai/go-collide/pkg/config"
	"github.com/opd-ai/go-collide/pkg/debug"
	"github.com/opd-ai/go-collide/pkg/entity"
	"github.com/opd-ai/go-collide/pkg/event"
	"github.com/opd-ai/go-collide/pkg/logging"
	"github.com/opd-ai/go-collide/pkg/physics"
)

var (
	// ErrDuplicateName is returned by Spawn for a name already in use.
	ErrDuplicateName = errors.New("entity name already in use")
	// ErrUnknownEntity is returned by Despawn for a name not in the world.
	ErrUnknownEntity = errors.New("unknown entity")
)

// Publisher receives periodic snapshots. *debug.StreamServer implements it.
type Publisher interface {
	Publish(snap debug.Snapshot) error
}

// TickReport summarises one tick
type TickReport struct {
	Tick    uint64
	Movers  int
	Moved   int
	Clamped int
	Stalled int
	Errors  int
}

// World owns the detector and the actors registered with it. All methods
// are safe for concurrent use; ticks are serialised by the world lock.
type World struct {
	cfg      *config.Config
	detector *collision.Detector
	bus      *event.Bus
	logger   *logging.Logger

	publisher Publisher

	mu     sync.RWMutex
	actors []*entity.Actor
	byName map[string]*entity.Actor
	tick   uint64
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the logger shared by the world and its detector.
func WithLogger(logger *logging.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithEventBus sets the bus the detector publishes on.
func WithEventBus(bus *event.Bus) Option {
	return func(w *World) {
		w.bus = bus
	}
}

// WithPublisher sends a snapshot every Debug.SnapshotEveryTicks ticks.
func WithPublisher(p Publisher) Option {
	return func(w *World) {
		w.publisher = p
	}
}

// NewWorld validates cfg, creates the detector and spawns every scene entity.
func NewWorld(cfg *config.Config, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world config: %w", err)
	}

	w := &World{
		cfg:    cfg,
		byName: make(map[string]*entity.Actor),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewLogger()
	}
	if w.bus == nil {
		w.bus = event.NewEventBus()
	}

	d, err := collision.NewDetector(&cfg.Collision,
		collision.WithEventBus(w.bus),
		collision.WithLogger(w.logger),
	)
	if err != nil {
		return nil, err
	}
	w.detector = d

	for _, ec := range cfg.Scene.Entities {
		if _, err := w.spawnLocked(ec); err != nil {
			return nil, err
		}
	}

	w.logger.Info(context.Background(), "world created",
		"entities", len(w.actors),
		"tick_rate", cfg.Scene.TickRate,
	)
	return w, nil
}

// Spawn adds an entity to the running world
func (w *World) Spawn(ec config.EntityConfig) (*entity.Actor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(ec)
}

func (w *World) spawnLocked(ec config.EntityConfig) (*entity.Actor, error) {
	if err := config.ValidateEntityName(ec.Name); err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}
	if _, exists := w.byName[ec.Name]; exists {
		return nil, fmt.Errorf("spawn %q: %w", ec.Name, ErrDuplicateName)
	}
	category, err := collision.ParseCategory(ec.Category)
	if err != nil {
		return nil, fmt.Errorf("spawn %q: %w", ec.Name, err)
	}
	if !ec.Intent.IsFinite() {
		return nil, fmt.Errorf("spawn %q: %w", ec.Name, collision.ErrInvalidDisplacement)
	}

	a, err := entity.NewActor(ec.Name, ec.Bounds, category)
	if err != nil {
		return nil, err
	}
	a.Intent = ec.Intent
	a.Bounce = ec.Bounce

	if err := w.detector.Register(a.GetCollider()); err != nil {
		return nil, fmt.Errorf("spawn %q: %w", ec.Name, err)
	}
	w.actors = append(w.actors, a)
	w.byName[ec.Name] = a
	return a, nil
}

// Despawn removes the named entity
func (w *World) Despawn(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.byName[name]
	if !ok {
		return fmt.Errorf("despawn %q: %w", name, ErrUnknownEntity)
	}
	if err := w.detector.Remove(a.GetCollider()); err != nil {
		return fmt.Errorf("despawn %q: %w", name, err)
	}
	a.Active = false
	delete(w.byName, name)
	for i, other := range w.actors {
		if other == a {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			break
		}
	}
	return nil
}

// Actor returns the named entity
func (w *World) Actor(name string) (*entity.Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.byName[name]
	return a, ok
}

// Actors returns the entities in spawn order
func (w *World) Actors() []*entity.Actor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*entity.Actor(nil), w.actors...)
}

// Player returns the first player-character actor, or nil
func (w *World) Player() *entity.Actor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.playerLocked()
}

func (w *World) playerLocked() *entity.Actor {
	for _, a := range w.actors {
		if a.GetCollider().Category() == collision.PlayerCharacter {
			return a
		}
	}
	return nil
}

// Steer sets the intent of the player actor. It is a no-op without one.
func (w *World) Steer(intent physics.Vector2D) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p := w.playerLocked(); p != nil {
		p.Steer(intent)
	}
}

// Tick steps every actor once in spawn order, then publishes a snapshot
// when one is due. Movement errors are counted and logged, not returned.
func (w *World) Tick(ctx context.Context) TickReport {
	w.mu.Lock()
	w.tick++
	report := TickReport{Tick: w.tick}

	for _, a := range w.actors {
		if !a.CanMove() {
			continue
		}
		report.Movers++
		intent := a.Intent

		applied, err := a.Step()
		switch {
		case err != nil:
			report.Errors++
			w.logger.Error(ctx, "actor step failed", err,
				"tick", w.tick,
				"actor", a.GetName(),
			)
		case applied.IsZero():
			report.Stalled++
		case applied != intent:
			report.Moved++
			report.Clamped++
		default:
			report.Moved++
		}
	}

	var snap *debug.Snapshot
	if w.publisher != nil && w.tick%uint64(w.cfg.Debug.SnapshotEveryTicks) == 0 {
		s := debug.TakeSnapshot(w.tick, w.detector)
		snap = &s
	}
	w.mu.Unlock()

	if snap != nil {
		if err := w.publisher.Publish(*snap); err != nil && !errors.Is(err, debug.ErrServerClosed) {
			w.logger.Warn(ctx, "snapshot publish failed", "tick", report.Tick, "error", err.Error())
		}
	}
	return report
}

// TickInterval is the wall-clock period of one tick at Scene.TickRate.
func (w *World) TickInterval() time.Duration {
	return time.Second / time.Duration(w.cfg.Scene.TickRate)
}

// Run ticks at Scene.TickRate until ctx is cancelled.
func (w *World) Run(ctx context.Context) error {
	interval := w.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "world running", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "world stopped", "ticks", w.TickCount())
			return nil
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// RunTicks runs n ticks back to back and returns the summed report.
func (w *World) RunTicks(ctx context.Context, n int) (TickReport, error) {
	var total TickReport
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		r := w.Tick(ctx)
		total.Tick = r.Tick
		total.Movers += r.Movers
		total.Moved += r.Moved
		total.Clamped += r.Clamped
		total.Stalled += r.Stalled
		total.Errors += r.Errors
	}
	return total, nil
}

// TickCount returns the number of completed ticks
func (w *World) TickCount() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Snapshot captures the detector under the world lock
func (w *World) Snapshot() debug.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return debug.TakeSnapshot(w.tick, w.detector)
}

// Validate checks the detector's index under the world lock
func (w *World) Validate() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.detector.Validate()
}

// Detector returns the world's detector. Callers must not use it while
// the world is ticking on another goroutine.
func (w *World) Detector() *collision.Detector {
	return w.detector
}

// Events returns the bus the detector publishes on
func (w *World) Events() *event.Bus {
	return w.bus
}
