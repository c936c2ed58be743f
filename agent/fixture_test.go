package agent

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
)

type fakePlayer struct {
	pos    math32.Vec2
	health int
	max    int
	hits   int
}

func (p *fakePlayer) FullName() string    { return persona.PlayerName }
func (p *fakePlayer) Center() math32.Vec2 { return p.pos }
func (p *fakePlayer) Health() int         { return p.health }
func (p *fakePlayer) MaxHealth() int      { return p.max }
func (p *fakePlayer) Heal(amount int) int { return 0 }
func (p *fakePlayer) Observe() memory.StatBlock {
	return memory.StatBlock{Name: persona.PlayerName, Health: p.health, MaxHealth: p.max, Location: p.pos}
}
func (p *fakePlayer) TakeDamage(from Attacker, now time.Time) bool {
	p.hits++
	p.health -= from.Damage()
	return true
}

type rock struct {
	name string
	pos  math32.Vec2
}

func (r rock) FullName() string    { return r.name }
func (r rock) Center() math32.Vec2 { return r.pos }

type fakeWorld struct {
	player    *fakePlayer
	agents    []*Agent
	objects   []rock
	obstacles []math32.Rect
	notified  []string
}

func (w *fakeWorld) Player() Entity { return w.player }

func (w *fakeWorld) Resolve(name string) (Entity, bool) {
	for _, a := range w.agents {
		if a.FullName() == name && a.Alive() {
			return a, true
		}
	}
	for _, o := range w.objects {
		if o.name == name {
			return o, true
		}
	}
	return nil, false
}

func (w *fakeWorld) Observables(center math32.Vec2, radius float64, exclude string) []memory.Observable {
	out := []memory.Observable{w.player}
	for _, a := range w.agents {
		if a.FullName() != exclude {
			out = append(out, a)
		}
	}
	return out
}

func (w *fakeWorld) Objects() []memory.Locatable {
	out := make([]memory.Locatable, 0, len(w.objects))
	for _, o := range w.objects {
		out = append(out, o)
	}
	return out
}

func (w *fakeWorld) Obstacles() []math32.Rect { return w.obstacles }
func (w *fakeWorld) TileSize() float64        { return 64 }

func (w *fakeWorld) Notify(from *Agent, radius float64, event string) {
	w.notified = append(w.notified, event)
	for _, a := range w.agents {
		if a != from && math32.Distance(a.Center(), from.Center()) <= radius {
			a.ObserveEvent(event)
		}
	}
}

type stubTasks struct {
	submitted []scheduler.TaskKind
}

func (s *stubTasks) Submit(agentID string, kind scheduler.TaskKind, priority float64, task scheduler.TaskFunc) *scheduler.Handle {
	s.submitted = append(s.submitted, kind)
	return &scheduler.Handle{AgentID: agentID, Kind: kind}
}

// Reprioritize and Has report every handle as finished, so each tick decides
// afresh whether to submit.
func (s *stubTasks) Reprioritize(h *scheduler.Handle, priority float64) bool { return false }
func (s *stubTasks) Has(h *scheduler.Handle) bool                            { return false }
func (s *stubTasks) Poll(h *scheduler.Handle) (scheduler.Result, bool) {
	return scheduler.Result{}, false
}

var testConfig = config.NewConfig()

func species(t *testing.T, name string) config.Species {
	t.Helper()
	sp, ok := testConfig.Species(name)
	require.True(t, ok)
	return sp
}

func newTestAgent(t *testing.T, sp, name string, pos math32.Vec2) *Agent {
	return New(name, name, species(t, sp), pos, testConfig.Agent())
}

func newTestController(a *Agent, w *fakeWorld, tasks Scheduler, client persona.Client) *Controller {
	w.agents = append(w.agents, a)
	mem := memory.New(a.FullName(), testConfig.Memory(), nil)
	return NewController(a, w, tasks, client, mem, WithRand(rand.New(rand.NewSource(1))))
}
