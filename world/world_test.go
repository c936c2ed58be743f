package world

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumagi/soul/agent"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
)

type gauges struct {
	mu     sync.Mutex
	values map[string]float64
}

func (g *gauges) ReportCount(string, map[string]string, float64) error   { return nil }
func (g *gauges) ReportSummary(string, map[string]string, float64) error { return nil }
func (g *gauges) ReportGauge(metric string, tags map[string]string, value float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.values == nil {
		g.values = map[string]float64{}
	}
	g.values[metric] = value
	return nil
}

func (g *gauges) get(metric string) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.values[metric]
}

func newTestWorld(t *testing.T, settings map[string]interface{}, opts ...Option) (*World, *scheduler.Scheduler) {
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	cfg := config.NewConfig(v)
	sched := scheduler.New(cfg.Scheduler())
	t.Cleanup(sched.Close)

	player := NewPlayer(math32.NewVec2(1000, 1000), 100, 10, 100, time.Second)
	opts = append([]Option{WithRand(rand.New(rand.NewSource(7)))}, opts...)
	return New(cfg, sched, persona.NewOfflineClient(), player, opts...), sched
}

func TestSpawn(t *testing.T) {
	w, _ := newTestWorld(t, nil)

	a, err := w.Spawn("squid", math32.ZeroVec2)
	require.NoError(t, err)
	b, err := w.Spawn("squid", math32.NewVec2(50, 0))
	require.NoError(t, err)
	c, err := w.Spawn("spirit", math32.NewVec2(100, 0))
	require.NoError(t, err)

	assert.Equal(t, "squid#1", a.Agent().FullName())
	assert.Equal(t, "squid#2", b.Agent().FullName())
	assert.Equal(t, "spirit#1", c.Agent().FullName())
	assert.NotEqual(t, a.Agent().ID(), b.Agent().ID())
	assert.Len(t, w.Alive(), 3)

	_, err = w.Spawn("dragon", math32.ZeroVec2)
	assert.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestResolve(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	c, err := w.Spawn("raccoon", math32.ZeroVec2)
	require.NoError(t, err)
	w.AddObject("rock#1", math32.NewVec2(64, 64))

	e, ok := w.Resolve("raccoon#1")
	require.True(t, ok)
	assert.Same(t, c.Agent(), e)

	e, ok = w.Resolve("rock#1")
	require.True(t, ok)
	assert.Equal(t, math32.NewVec2(64, 64), e.Center())

	_, ok = w.Resolve("ghost#1")
	assert.False(t, ok)

	w.player.damage = 1000
	require.True(t, c.Agent().TakeDamage(w.player, time.Unix(0, 0)))
	_, ok = w.Resolve("raccoon#1")
	assert.False(t, ok, "dead agents do not resolve")
}

func TestObservablesClosestFirst(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	w.player.MoveTo(math32.NewVec2(30, 0))
	_, _ = w.Spawn("squid", math32.ZeroVec2)
	_, _ = w.Spawn("squid", math32.NewVec2(100, 0))
	_, _ = w.Spawn("squid", math32.NewVec2(2000, 0))
	w.Step(time.Unix(0, 0))

	obs := w.Observables(math32.ZeroVec2, 360, "squid#1")
	names := make([]string, 0, len(obs))
	for _, o := range obs {
		names = append(names, o.Observe().Name)
	}
	assert.Equal(t, []string{persona.PlayerName, "squid#2"}, names)
}

func TestNotify(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	a, _ := w.Spawn("squid", math32.ZeroVec2)
	b, _ := w.Spawn("squid", math32.NewVec2(100, 0))
	c, _ := w.Spawn("squid", math32.NewVec2(1000, 0))

	w.Notify(a.Agent(), 200, "squid#1 attack player")
	assert.Equal(t, "squid#1 attack player", b.Agent().ObservedEvent())
	assert.Equal(t, "", c.Agent().ObservedEvent())
	assert.Equal(t, "", a.Agent().ObservedEvent())
}

func TestAgentsHuntThePlayer(t *testing.T) {
	w, _ := newTestWorld(t, nil)
	w.player.MoveTo(math32.NewVec2(150, 0))
	c, err := w.Spawn("squid", math32.ZeroVec2)
	require.NoError(t, err)

	now := time.Unix(0, 0)
	deadline := time.Now().Add(5 * time.Second)
	for w.player.Health() == w.player.MaxHealth() && time.Now().Before(deadline) {
		now = now.Add(16 * time.Millisecond)
		w.Step(now)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, persona.ActionAttack, c.Decision().Action)
	assert.Equal(t, persona.PlayerName, c.Agent().TargetName())
	assert.Less(t, w.player.Health(), w.player.MaxHealth())
	assert.Equal(t, "attacked by squid#1", w.player.Observe().OutsideEvent)
}

func TestDeathAndRespawn(t *testing.T) {
	w, sched := newTestWorld(t, map[string]interface{}{"soul.world.respawndelay": time.Second})
	w.player.MoveTo(math32.NewVec2(200, 0))
	w.player.damage = 1000
	c, err := w.Spawn("squid", math32.ZeroVec2)
	require.NoError(t, err)
	a := c.Agent()

	now := time.Unix(0, 0)
	step := func() {
		now = now.Add(16 * time.Millisecond)
		w.Step(now)
		time.Sleep(time.Millisecond)
	}

	deadline := time.Now().Add(5 * time.Second)
	for math32.Distance(a.Center(), w.player.Center()) > w.player.Reach() && time.Now().Before(deadline) {
		step()
	}
	require.Equal(t, persona.PlayerName, a.TargetName())
	assert.Equal(t, persona.ActionAttack, c.Decision().Action)

	assert.Equal(t, 1, w.PlayerAttack(now))
	assert.False(t, a.Alive())
	step()

	assert.Empty(t, w.Alive())
	assert.Equal(t, 0, sched.Live())
	_, ok := w.Resolve("squid#1")
	assert.False(t, ok)
	assert.Equal(t, 0, w.PlayerAttack(now))

	now = now.Add(time.Second)
	w.Step(now)
	require.Len(t, w.Alive(), 1)
	assert.True(t, a.Alive())
	assert.Equal(t, a.MaxHealth(), a.Health())
	assert.False(t, a.Vulnerable())
	assert.LessOrEqual(t, math32.Distance(a.Center(), math32.ZeroVec2), a.Speed(), "back at the starting point")
	_, ok = w.Resolve("squid#1")
	assert.True(t, ok)

	// the same attack decision comes back and must be applied again,
	// and nothing pushes the agent while its respawn window lasts
	prev := a.Center()
	deadline = time.Now().Add(5 * time.Second)
	for a.TargetName() != persona.PlayerName && time.Now().Before(deadline) {
		step()
		assert.LessOrEqual(t, math32.Distance(prev, a.Center()), a.Speed()+1e-9)
		prev = a.Center()
	}
	require.Equal(t, persona.PlayerName, a.TargetName(), "target acquired again after respawn")
	assert.Equal(t, persona.ActionAttack, c.Decision().Action)

	start := math32.Distance(a.Center(), w.player.Center())
	for i := 0; i < 20; i++ {
		step()
		assert.LessOrEqual(t, math32.Distance(prev, a.Center()), a.Speed()+1e-9)
		prev = a.Center()
	}
	assert.Less(t, math32.Distance(a.Center(), w.player.Center()), start, "seeking the player")
}

func TestDeadStayDeadWithoutRespawn(t *testing.T) {
	w, _ := newTestWorld(t, map[string]interface{}{"soul.world.respawndelay": 0})
	w.player.MoveTo(math32.NewVec2(40, 0))
	w.player.damage = 1000
	_, err := w.Spawn("bamboo", math32.ZeroVec2)
	require.NoError(t, err)

	now := time.Unix(0, 0)
	w.PlayerAttack(now)
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		w.Step(now)
	}
	assert.Empty(t, w.Alive())
	_, ok := w.Controller("bamboo#1")
	assert.True(t, ok)
}

func TestListenerAndMetrics(t *testing.T) {
	g := &gauges{}
	var got []agent.View
	w, _ := newTestWorld(t, nil,
		WithReporters(g),
		WithListener(func(now time.Time, views []agent.View) { got = views }),
	)
	_, _ = w.Spawn("squid", math32.ZeroVec2)
	_, _ = w.Spawn("spirit", math32.NewVec2(10, 10))

	w.Step(time.Unix(0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, "squid#1", got[0].Name)
	assert.Equal(t, "spirit#1", got[1].Name)
	assert.Equal(t, "idle", got[0].State)
	assert.Equal(t, 2.0, g.get("agents_alive"))
}

func TestPlayerVulnerability(t *testing.T) {
	p := NewPlayer(math32.ZeroVec2, 100, 10, 50, time.Second)
	w, _ := newTestWorld(t, nil)
	c, _ := w.Spawn("raccoon", math32.NewVec2(10, 0))

	now := time.Unix(0, 0)
	assert.True(t, p.TakeDamage(c.Agent(), now))
	assert.Equal(t, 60, p.Health())
	assert.False(t, p.TakeDamage(c.Agent(), now.Add(500*time.Millisecond)))

	p.update(now.Add(time.Second))
	assert.True(t, p.TakeDamage(c.Agent(), now.Add(time.Second)))
	assert.Equal(t, 20, p.Health())

	assert.Equal(t, 15, p.Heal(15))
	assert.Equal(t, 65, p.Heal(1000))
	assert.Equal(t, 100, p.Health())
}
