package config

import (
	"sort"
	"strings"
	"time"
)

// WorldConfig configures the simulation host.
type WorldConfig struct {
	TileSize     float64
	TickInterval time.Duration
	// RespawnDelay after death, zero keeps dead agents out of the world.
	RespawnDelay time.Duration
}

// SchedulerConfig configures the shared decision scheduler.
type SchedulerConfig struct {
	DecisionTimeout time.Duration
	SummaryTimeout  time.Duration
	// Rate is the number of persona requests admitted per second.
	Rate        float64
	Burst       int
	MaxInFlight int
}

// MemoryConfig configures observation memories and their durable sink.
type MemoryConfig struct {
	// Size is the number of records that make a summary due.
	Size       int
	Capacity   int
	Sink       string
	Dir        string
	MaxSize    int
	MaxBackups int
	Buffer     int
	RedisAddr  string
	RedisKey   string
	RedisMax   int
}

// AgentConfig holds the timings and leveling rules shared by every agent.
type AgentConfig struct {
	ActCooldown        time.Duration
	VulnerableDuration time.Duration
	MoveUpdateInterval time.Duration
	DecisionInterval   time.Duration
	SummaryInterval    time.Duration
	UpgradeCost        int
	UpgradePercentage  float64
	WanderRadius       float64
	ArriveThreshold    float64
	// Hitbox is the side of the square agent hitbox.
	Hitbox float64
}

// PersonaConfig selects and configures the persona client.
type PersonaConfig struct {
	Driver      string
	NatsURL     string
	NatsSubject string
	MaxRetry    int
}

// MetricsConfig enables the metric reporters.
type MetricsConfig struct {
	Period            time.Duration
	PrometheusEnabled bool
	PrometheusPort    int
	StatsdEnabled     bool
	StatsdHost        string
	StatsdPrefix      string
	StatsdRate        float64
}

// MonitorConfig configures the websocket state feed.
type MonitorConfig struct {
	Enabled bool
	Addr    string
}

// Species are the base stats of one kind of agent.
type Species struct {
	Name           string
	Health         int
	Exp            int
	Speed          float64
	Damage         int
	Resistance     float64
	ActRadius      float64
	NoticeRadius   float64
	AttackType     string
	Characteristic string
}

var defaultSpecies = map[string]Species{
	"squid": {
		Health: 100, Exp: 100, Speed: 3, Damage: 20, Resistance: 3,
		ActRadius: 80, NoticeRadius: 360, AttackType: "slash",
		Characteristic: "sneaky and opportunistic, prefers to strike wounded targets",
	},
	"raccoon": {
		Health: 300, Exp: 250, Speed: 2, Damage: 40, Resistance: 3,
		ActRadius: 120, NoticeRadius: 400, AttackType: "claw",
		Characteristic: "territorial brute that protects its friends",
	},
	"spirit": {
		Health: 100, Exp: 110, Speed: 4, Damage: 8, Resistance: 3,
		ActRadius: 60, NoticeRadius: 350, AttackType: "thunder",
		Characteristic: "gentle healer that avoids conflict",
	},
	"bamboo": {
		Health: 70, Exp: 120, Speed: 3, Damage: 6, Resistance: 3,
		ActRadius: 50, NoticeRadius: 300, AttackType: "leaf_attack",
		Characteristic: "hard working miner, easily scared",
	},
}

// World section
func (c *Config) World() WorldConfig {
	return WorldConfig{
		TileSize:     c.GetFloat64("soul.world.tilesize"),
		TickInterval: c.GetDuration("soul.tick.interval"),
		RespawnDelay: c.GetDuration("soul.world.respawndelay"),
	}
}

// Scheduler section
func (c *Config) Scheduler() SchedulerConfig {
	return SchedulerConfig{
		DecisionTimeout: c.GetDuration("soul.scheduler.decisiontimeout"),
		SummaryTimeout:  c.GetDuration("soul.scheduler.summarytimeout"),
		Rate:            c.GetFloat64("soul.scheduler.rate"),
		Burst:           c.GetInt("soul.scheduler.burst"),
		MaxInFlight:     c.GetInt("soul.scheduler.maxinflight"),
	}
}

// Memory section
func (c *Config) Memory() MemoryConfig {
	return MemoryConfig{
		Size:       c.GetInt("soul.memory.size"),
		Capacity:   c.GetInt("soul.memory.capacity"),
		Sink:       c.GetString("soul.memory.sink"),
		Dir:        c.GetString("soul.memory.dir"),
		MaxSize:    c.GetInt("soul.memory.maxsize"),
		MaxBackups: c.GetInt("soul.memory.maxbackups"),
		Buffer:     c.GetInt("soul.memory.buffer"),
		RedisAddr:  c.GetString("soul.memory.redis.addr"),
		RedisKey:   c.GetString("soul.memory.redis.key"),
		RedisMax:   c.GetInt("soul.memory.redis.max"),
	}
}

// Agent section
func (c *Config) Agent() AgentConfig {
	return AgentConfig{
		ActCooldown:        c.GetDuration("soul.agent.actcooldown"),
		VulnerableDuration: c.GetDuration("soul.agent.vulnerableduration"),
		MoveUpdateInterval: c.GetDuration("soul.agent.moveupdateinterval"),
		DecisionInterval:   c.GetDuration("soul.agent.decisioninterval"),
		SummaryInterval:    c.GetDuration("soul.agent.summaryinterval"),
		UpgradeCost:        c.GetInt("soul.agent.upgradecost"),
		UpgradePercentage:  c.GetFloat64("soul.agent.upgradepercentage"),
		WanderRadius:       c.GetFloat64("soul.agent.wanderradius"),
		ArriveThreshold:    c.GetFloat64("soul.agent.arrivethreshold"),
		Hitbox:             c.GetFloat64("soul.agent.hitbox"),
	}
}

// Persona section
func (c *Config) Persona() PersonaConfig {
	return PersonaConfig{
		Driver:      c.GetString("soul.persona.driver"),
		NatsURL:     c.GetString("soul.persona.nats.url"),
		NatsSubject: c.GetString("soul.persona.nats.subject"),
		MaxRetry:    c.GetInt("soul.persona.nats.maxretry"),
	}
}

// Metrics section
func (c *Config) Metrics() MetricsConfig {
	return MetricsConfig{
		Period:            c.GetDuration("soul.metrics.period"),
		PrometheusEnabled: c.GetBool("soul.metrics.prometheus.enabled"),
		PrometheusPort:    c.GetInt("soul.metrics.prometheus.port"),
		StatsdEnabled:     c.GetBool("soul.metrics.statsd.enabled"),
		StatsdHost:        c.GetString("soul.metrics.statsd.host"),
		StatsdPrefix:      c.GetString("soul.metrics.statsd.prefix"),
		StatsdRate:        c.GetFloat64("soul.metrics.statsd.rate"),
	}
}

// Monitor section
func (c *Config) Monitor() MonitorConfig {
	return MonitorConfig{
		Enabled: c.GetBool("soul.monitor.enabled"),
		Addr:    c.GetString("soul.monitor.addr"),
	}
}

// Species returns the stats of one species, ok is false when it is not configured.
func (c *Config) Species(name string) (Species, bool) {
	prefix := "soul.species." + name + "."
	if c.config.Get(prefix+"health") == nil {
		return Species{}, false
	}
	return Species{
		Name:           name,
		Health:         c.GetInt(prefix + "health"),
		Exp:            c.GetInt(prefix + "exp"),
		Speed:          c.GetFloat64(prefix + "speed"),
		Damage:         c.GetInt(prefix + "damage"),
		Resistance:     c.GetFloat64(prefix + "resistance"),
		ActRadius:      c.GetFloat64(prefix + "actradius"),
		NoticeRadius:   c.GetFloat64(prefix + "noticeradius"),
		AttackType:     c.GetString(prefix + "attacktype"),
		Characteristic: c.GetString(prefix + "characteristic"),
	}, true
}

// SpeciesNames lists configured species in name order.
func (c *Config) SpeciesNames() []string {
	const prefix = "soul.species."
	seen := map[string]bool{}
	var names []string
	for _, key := range c.config.AllKeys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		name := strings.SplitN(strings.TrimPrefix(key, prefix), ".", 2)[0]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
