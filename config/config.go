package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a wrapper around a viper config
type Config struct {
	config *viper.Viper
}

// NewConfig creates a new config with a given viper config if given
func NewConfig(cfgs ...*viper.Viper) *Config {
	var cfg *viper.Viper
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	} else {
		cfg = viper.New()
	}

	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	c := &Config{config: cfg}
	c.fillDefaultValues()
	return c
}

// Load reads a config file (yaml, toml, json) into a fresh Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return NewConfig(v), nil
}

func (c *Config) fillDefaultValues() {
	defaultsMap := map[string]interface{}{
		"logger.level":      "info",
		"logger.dir":        "",
		"logger.rotation":   true,
		"logger.stdout":     true,
		"logger.maxsize":    128,
		"logger.maxage":     7,
		"logger.maxbackups": 10,
		"logger.localtime":  true,
		"logger.compress":   false,

		"soul.tick.interval": 16 * time.Millisecond,

		"soul.world.tilesize":     64,
		"soul.world.respawndelay": 10 * time.Second,

		"soul.scheduler.decisiontimeout": 5 * time.Second,
		"soul.scheduler.summarytimeout":  10 * time.Second,
		"soul.scheduler.rate":            2.0,
		"soul.scheduler.burst":           4,
		"soul.scheduler.maxinflight":     4,

		"soul.memory.size":       10,
		"soul.memory.capacity":   64,
		"soul.memory.sink":       "file",
		"soul.memory.dir":        "./memory",
		"soul.memory.maxsize":    16,
		"soul.memory.maxbackups": 3,
		"soul.memory.buffer":     1024,
		"soul.memory.redis.addr": "localhost:6379",
		"soul.memory.redis.key":  "soul:memory",
		"soul.memory.redis.max":  500,

		"soul.agent.actcooldown":        time.Second,
		"soul.agent.vulnerableduration": time.Second,
		"soul.agent.moveupdateinterval": 500 * time.Millisecond,
		"soul.agent.decisioninterval":   6 * time.Second,
		"soul.agent.summaryinterval":    20 * time.Second,
		"soul.agent.hitbox":             32.0,
		"soul.agent.upgradecost":        100,
		"soul.agent.upgradepercentage":  0.01,
		"soul.agent.wanderradius":       100.0,
		"soul.agent.arrivethreshold":    3.0,

		"soul.persona.driver":        "offline",
		"soul.persona.nats.url":      "nats://localhost:4222",
		"soul.persona.nats.subject":  "soul.persona",
		"soul.persona.nats.maxretry": 10,

		"soul.metrics.period":             15 * time.Second,
		"soul.metrics.prometheus.enabled": false,
		"soul.metrics.prometheus.port":    9090,
		"soul.metrics.statsd.enabled":     false,
		"soul.metrics.statsd.host":        "localhost:8125",
		"soul.metrics.statsd.prefix":      "soul.",
		"soul.metrics.statsd.rate":        1.0,

		"soul.monitor.enabled": false,
		"soul.monitor.addr":    ":8088",
	}

	for param := range defaultsMap {
		if c.config.Get(param) == nil {
			c.config.SetDefault(param, defaultsMap[param])
		}
	}

	for name, sp := range defaultSpecies {
		prefix := "soul.species." + name + "."
		c.setDefaultIfNil(prefix+"health", sp.Health)
		c.setDefaultIfNil(prefix+"exp", sp.Exp)
		c.setDefaultIfNil(prefix+"speed", sp.Speed)
		c.setDefaultIfNil(prefix+"damage", sp.Damage)
		c.setDefaultIfNil(prefix+"resistance", sp.Resistance)
		c.setDefaultIfNil(prefix+"actradius", sp.ActRadius)
		c.setDefaultIfNil(prefix+"noticeradius", sp.NoticeRadius)
		c.setDefaultIfNil(prefix+"attacktype", sp.AttackType)
		c.setDefaultIfNil(prefix+"characteristic", sp.Characteristic)
	}
}

func (c *Config) setDefaultIfNil(key string, value interface{}) {
	if c.config.Get(key) == nil {
		c.config.SetDefault(key, value)
	}
}

// GetDuration returns a duration from the inner config
func (c *Config) GetDuration(s string) time.Duration {
	return c.config.GetDuration(s)
}

// GetString returns a string from the inner config
func (c *Config) GetString(s string) string {
	return c.config.GetString(s)
}

// GetInt returns an int from the inner config
func (c *Config) GetInt(s string) int {
	return c.config.GetInt(s)
}

// GetFloat64 returns a float64 from the inner config
func (c *Config) GetFloat64(s string) float64 {
	return c.config.GetFloat64(s)
}

// GetBool returns a boolean from the inner config
func (c *Config) GetBool(s string) bool {
	return c.config.GetBool(s)
}

// GetStringMapString returns a string map string from the inner config
func (c *Config) GetStringMapString(s string) map[string]string {
	return c.config.GetStringMapString(s)
}

// Viper exposes the wrapped viper instance, the logger reads its keys from it.
func (c *Config) Viper() *viper.Viper {
	return c.config
}
