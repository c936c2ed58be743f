package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tutumagi/soul/agent"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/aoi"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/metrics"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
	"go.uber.org/zap"
)

// ErrUnknownSpecies is returned when spawning a species missing from the config
var ErrUnknownSpecies = errors.New("unknown species")

// Listener receives the agent views after every step
type Listener func(now time.Time, views []agent.View)

// World hosts the player, the agents and the static map. Step must be called
// from a single goroutine.
type World struct {
	cfg       *config.Config
	worldCfg  config.WorldConfig
	tasks     *scheduler.Scheduler
	client    persona.Client
	sink      memory.Sink
	reporters metrics.Reporters
	rng       *rand.Rand

	player    *Player
	objects   []*Object
	obstacles []math32.Rect
	index     *aoi.SweepIndex

	controllers map[string]*agent.Controller
	alive       []*agent.Controller
	graveyard   map[string]time.Time
	counters    map[string]int
	listeners   []Listener
	now         time.Time
}

// Option configures a World
type Option func(*World)

// WithReporters reports world and agent metrics
func WithReporters(rs ...metrics.Reporter) Option {
	return func(w *World) { w.reporters = append(w.reporters, rs...) }
}

// WithSink persists every observation of every agent
func WithSink(s memory.Sink) Option {
	return func(w *World) { w.sink = s }
}

// WithRand seeds the agents' wandering
func WithRand(r *rand.Rand) Option {
	return func(w *World) { w.rng = r }
}

// WithListener is called with the agent views after each step
func WithListener(l Listener) Option {
	return func(w *World) { w.listeners = append(w.listeners, l) }
}

// New creates an empty world around player
func New(cfg *config.Config, tasks *scheduler.Scheduler, client persona.Client, player *Player, opts ...Option) *World {
	w := &World{
		cfg:         cfg,
		worldCfg:    cfg.World(),
		tasks:       tasks,
		client:      client,
		player:      player,
		index:       aoi.NewSweepIndex(),
		controllers: map[string]*agent.Controller{},
		graveyard:   map[string]time.Time{},
		counters:    map[string]int{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	w.index.Enter(player.FullName(), player.Center(), player)
	return w
}

// Spawn creates an agent of species at pos. Full names are numbered per
// species: squid#1, squid#2...
func (w *World) Spawn(species string, pos math32.Vec2) (*agent.Controller, error) {
	sp, ok := w.cfg.Species(species)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpecies, species)
	}
	w.counters[species]++
	name := fmt.Sprintf("%s#%d", species, w.counters[species])

	a := agent.New(uuid.New().String(), name, sp, pos, w.cfg.Agent())
	mem := memory.New(name, w.cfg.Memory(), w.sink)
	c := agent.NewController(a, w, w.tasks, w.client, mem,
		agent.WithRand(rand.New(rand.NewSource(w.rng.Int63()))),
		agent.WithReporters(w.reporters...),
	)
	w.controllers[name] = c
	w.enter(c)
	logger.Debug("agent spawned", zap.String("agent", name), zap.Stringer("pos", pos))
	return c, nil
}

// AddObject places a mineable object
func (w *World) AddObject(name string, pos math32.Vec2) *Object {
	o := &Object{Name: name, Pos: pos}
	w.objects = append(w.objects, o)
	return o
}

// AddObstacle places a wall
func (w *World) AddObstacle(r math32.Rect) {
	w.obstacles = append(w.obstacles, r)
}

// Controller by agent full name, dead agents waiting to respawn included
func (w *World) Controller(name string) (*agent.Controller, bool) {
	c, ok := w.controllers[name]
	return c, ok
}

// Alive agents in spawn order
func (w *World) Alive() []*agent.Controller {
	return append([]*agent.Controller(nil), w.alive...)
}

// Now is the time of the last step
func (w *World) Now() time.Time { return w.now }

// Step runs one tick: every agent updates, the scheduler starts what it
// admits, the dead leave and the listeners get the new views.
func (w *World) Step(now time.Time) {
	start := time.Now()
	w.now = now

	w.player.update(now)
	w.index.Move(w.player.FullName(), w.player.Center())
	w.respawn(now)

	for _, c := range w.alive {
		c.Update(now)
		a := c.Agent()
		w.index.Move(a.FullName(), a.Center())
	}
	w.reap(now)
	w.tasks.Dispatch()

	if len(w.listeners) > 0 {
		views := w.Views()
		for _, l := range w.listeners {
			l(now, views)
		}
	}
	w.reporters.Gauge(metrics.AgentsAlive, nil, float64(len(w.alive)))
	w.reporters.Since(metrics.TickDuration, nil, start)
}

// PlayerAttack hits every live agent within the player's reach and returns
// the number of hits that landed.
func (w *World) PlayerAttack(now time.Time) int {
	if !w.player.Alive() {
		return 0
	}
	hits := 0
	for _, it := range w.index.Nearby(w.player.Center(), w.player.Reach(), w.player.FullName()) {
		if a, ok := it.Data.(*agent.Agent); ok && a.TakeDamage(w.player, now) {
			hits++
		}
	}
	return hits
}

// Views of the live agents in spawn order
func (w *World) Views() []agent.View {
	views := make([]agent.View, 0, len(w.alive))
	for _, c := range w.alive {
		views = append(views, c.View())
	}
	return views
}

func (w *World) enter(c *agent.Controller) {
	a := c.Agent()
	w.alive = append(w.alive, c)
	w.index.Enter(a.FullName(), a.Center(), a)
}

// reap removes the agents that died this tick and drops their pending
// persona requests.
func (w *World) reap(now time.Time) {
	kept := w.alive[:0]
	for _, c := range w.alive {
		a := c.Agent()
		if a.Alive() {
			kept = append(kept, c)
			continue
		}
		w.index.Leave(a.FullName())
		w.tasks.Forget(a.ID())
		if w.worldCfg.RespawnDelay > 0 {
			w.graveyard[a.FullName()] = now
		}
		logger.Info("agent died", zap.String("agent", a.FullName()), zap.Int("level", a.Level()))
	}
	for i := len(kept); i < len(w.alive); i++ {
		w.alive[i] = nil
	}
	w.alive = kept
}

func (w *World) respawn(now time.Time) {
	var due []string
	for name, diedAt := range w.graveyard {
		if now.Sub(diedAt) >= w.worldCfg.RespawnDelay {
			due = append(due, name)
		}
	}
	sort.Strings(due)
	for _, name := range due {
		delete(w.graveyard, name)
		c := w.controllers[name]
		c.Respawn(now)
		w.enter(c)
		logger.Info("agent respawned", zap.String("agent", name))
	}
}

// Player implements agent.World
func (w *World) Player() agent.Entity { return w.player }

// Resolve implements agent.World. Only live agents and objects resolve.
func (w *World) Resolve(name string) (agent.Entity, bool) {
	if it, ok := w.index.Get(name); ok {
		if a, ok := it.Data.(*agent.Agent); ok && a.Alive() {
			return a, true
		}
	}
	for _, o := range w.objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Observables implements agent.World, closest first
func (w *World) Observables(center math32.Vec2, radius float64, exclude string) []memory.Observable {
	items := w.index.Nearby(center, radius, exclude)
	out := make([]memory.Observable, 0, len(items))
	for _, it := range items {
		if o, ok := it.Data.(memory.Observable); ok {
			out = append(out, o)
		}
	}
	return out
}

// Objects implements agent.World
func (w *World) Objects() []memory.Locatable {
	out := make([]memory.Locatable, 0, len(w.objects))
	for _, o := range w.objects {
		out = append(out, o)
	}
	return out
}

// Obstacles implements agent.World
func (w *World) Obstacles() []math32.Rect { return w.obstacles }

// TileSize implements agent.World
func (w *World) TileSize() float64 { return w.worldCfg.TileSize }

// Notify implements agent.World
func (w *World) Notify(from *agent.Agent, radius float64, event string) {
	w.index.Within(from.Center(), radius, func(it *aoi.Item) bool {
		if a, ok := it.Data.(*agent.Agent); ok && a != from && a.Alive() {
			a.ObserveEvent(event)
		}
		return true
	})
}
