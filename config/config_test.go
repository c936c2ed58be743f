package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := NewConfig()

	s := c.Scheduler()
	assert.Equal(t, 5*time.Second, s.DecisionTimeout)
	assert.Equal(t, 10*time.Second, s.SummaryTimeout)
	assert.Equal(t, 4, s.MaxInFlight)

	a := c.Agent()
	assert.Equal(t, time.Second, a.ActCooldown)
	assert.Equal(t, time.Second, a.VulnerableDuration)
	assert.Equal(t, 500*time.Millisecond, a.MoveUpdateInterval)
	assert.Equal(t, 100, a.UpgradeCost)
	assert.Equal(t, 0.01, a.UpgradePercentage)
	assert.Equal(t, 32.0, a.Hitbox)

	w := c.World()
	assert.Equal(t, 64.0, w.TileSize)
	assert.Equal(t, 16*time.Millisecond, w.TickInterval)

	assert.Equal(t, 10, c.Memory().Size)
	assert.Equal(t, "offline", c.Persona().Driver)
}

func TestSpecies(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, []string{"bamboo", "raccoon", "spirit", "squid"}, c.SpeciesNames())

	sp, ok := c.Species("raccoon")
	require.True(t, ok)
	assert.Equal(t, "raccoon", sp.Name)
	assert.Equal(t, 300, sp.Health)
	assert.Equal(t, 40, sp.Damage)
	assert.Equal(t, 120.0, sp.ActRadius)
	assert.Equal(t, "claw", sp.AttackType)

	_, ok = c.Species("dragon")
	assert.False(t, ok)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	v.Set("soul.scheduler.maxinflight", 9)
	v.Set("soul.species.squid.damage", 99)
	v.Set("soul.species.golem.health", 500)
	v.Set("soul.species.golem.speed", 1)
	c := NewConfig(v)

	assert.Equal(t, 9, c.Scheduler().MaxInFlight)
	sp, _ := c.Species("squid")
	assert.Equal(t, 99, sp.Damage)
	assert.Equal(t, 100, sp.Health, "untouched keys keep their default")

	golem, ok := c.Species("golem")
	require.True(t, ok)
	assert.Equal(t, 500, golem.Health)
	assert.Equal(t, []string{"bamboo", "golem", "raccoon", "spirit", "squid"}, c.SpeciesNames())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SOUL_PERSONA_DRIVER", "nats")
	assert.Equal(t, "nats", NewConfig().Persona().Driver)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soul.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
soul:
  memory:
    sink: redis
    size: 4
  agent:
    decisioninterval: 3s
`), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", c.Memory().Sink)
	assert.Equal(t, 4, c.Memory().Size)
	assert.Equal(t, 3*time.Second, c.Agent().DecisionInterval)
	assert.Equal(t, 6*time.Second, NewConfig().Agent().DecisionInterval)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "file", c.Memory().Sink)
}
