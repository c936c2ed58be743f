package world

import (
	"time"

	"github.com/tutumagi/soul/agent"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/persona"
)

// Player is the character every agent reacts to. It is moved from outside
// the world by whatever drives the simulation.
type Player struct {
	pos        math32.Vec2
	health     int
	maxHealth  int
	damage     int
	reach      float64
	vulnerable bool
	hurtTime   time.Time
	window     time.Duration
	lastEvent  string
}

// NewPlayer creates a player at pos. window is how long a hit protects it.
func NewPlayer(pos math32.Vec2, health, damage int, reach float64, window time.Duration) *Player {
	return &Player{
		pos:        pos,
		health:     health,
		maxHealth:  health,
		damage:     damage,
		reach:      reach,
		vulnerable: true,
		window:     window,
	}
}

func (p *Player) FullName() string    { return persona.PlayerName }
func (p *Player) Center() math32.Vec2 { return p.pos }
func (p *Player) Health() int         { return p.health }
func (p *Player) MaxHealth() int      { return p.maxHealth }
func (p *Player) Damage() int         { return p.damage }
func (p *Player) Reach() float64      { return p.reach }
func (p *Player) Alive() bool         { return p.health > 0 }

// MoveTo teleports the player
func (p *Player) MoveTo(pos math32.Vec2) {
	p.pos = pos
}

// TakeDamage implements agent.Damageable
func (p *Player) TakeDamage(from agent.Attacker, now time.Time) bool {
	if !p.vulnerable || !p.Alive() {
		return false
	}
	p.health = math32.Clamp(p.health-from.Damage(), 0, p.maxHealth)
	p.vulnerable = false
	p.hurtTime = now
	p.lastEvent = "attacked by " + from.FullName()
	return true
}

// Heal implements agent.Healable
func (p *Player) Heal(amount int) int {
	before := p.health
	p.health = math32.Clamp(p.health+amount, 0, p.maxHealth)
	return p.health - before
}

// Observe implements memory.Observable
func (p *Player) Observe() memory.StatBlock {
	return memory.StatBlock{
		Name:         persona.PlayerName,
		Species:      "human",
		Health:       p.health,
		MaxHealth:    p.maxHealth,
		OutsideEvent: p.lastEvent,
		Location:     p.pos,
	}
}

func (p *Player) update(now time.Time) {
	if !p.vulnerable && now.Sub(p.hurtTime) >= p.window {
		p.vulnerable = true
	}
}

// Object is a mineable tile
type Object struct {
	Name string
	Pos  math32.Vec2
}

func (o *Object) FullName() string    { return o.Name }
func (o *Object) Center() math32.Vec2 { return o.Pos }
