package agent

import (
	"fmt"
	"time"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/memory"
)

// Entity is anything an agent can target by name
type Entity interface {
	FullName() string
	Center() math32.Vec2
}

// Attacker deals damage
type Attacker interface {
	Entity
	Damage() int
}

// Damageable can be attacked. TakeDamage reports whether the hit landed.
type Damageable interface {
	Entity
	TakeDamage(from Attacker, now time.Time) bool
}

// Healable can be healed. Heal returns the health actually restored.
type Healable interface {
	Entity
	Health() int
	MaxHealth() int
	Heal(amount int) int
}

// Agent is one enemy. Its state is only touched by the tick goroutine.
type Agent struct {
	id       string
	fullName string
	species  config.Species
	cfg      config.AgentConfig
	start    math32.Vec2
	hitbox   math32.Rect

	health      int
	maxHealth   int
	energy      int
	maxEnergy   int
	exp         int
	speed       float64
	damage      int
	level       int
	upgradeCost int

	action     Action
	aggression int
	targetName string
	reason     string
	direction  math32.Vec2

	canAct     bool
	actTime    time.Time
	vulnerable bool
	hurtTime   time.Time
	knockback  bool

	internalEvent  string
	outsideEvent   string
	observedEvent  string
	internalDirty  bool
	externalDirty  bool
	targetLocation math32.Vec2
}

// New creates an agent of species sp whose hitbox is centred on pos.
func New(id, fullName string, sp config.Species, pos math32.Vec2, cfg config.AgentConfig) *Agent {
	size := cfg.Hitbox
	if size <= 0 {
		size = 32
	}
	a := &Agent{
		id:       id,
		fullName: fullName,
		species:  sp,
		cfg:      cfg,
		start:    pos,
		hitbox:   math32.RectAround(pos, size, size),
	}
	a.reset()
	return a
}

func (a *Agent) reset() {
	sp := a.species
	a.hitbox = a.hitbox.WithCenter(a.start)
	a.health = sp.Health
	a.maxHealth = sp.Health
	a.energy = sp.Health
	a.maxEnergy = sp.Health
	a.exp = sp.Exp
	a.speed = sp.Speed
	a.damage = sp.Damage
	a.level = 0
	a.upgradeCost = a.cfg.UpgradeCost
	a.action = ActionIdle
	a.targetName = ""
	a.reason = ""
	a.direction = math32.ZeroVec2
	a.canAct = true
	a.vulnerable = true
	a.knockback = false
}

func (a *Agent) String() string {
	return fmt.Sprintf("<Agent>%s(%s) %d/%d at %s", a.fullName, a.species.Name, a.health, a.maxHealth, a.Center())
}

// ID is the scheduler key of the agent
func (a *Agent) ID() string { return a.id }

// FullName unique display name, persona decisions target agents by it
func (a *Agent) FullName() string { return a.fullName }

// Species stats the agent was created with
func (a *Agent) Species() config.Species { return a.species }

// Center of the hitbox
func (a *Agent) Center() math32.Vec2 { return a.hitbox.Center() }

// Hitbox in world space
func (a *Agent) Hitbox() math32.Rect { return a.hitbox }

// StartingPoint the agent spawned at
func (a *Agent) StartingPoint() math32.Vec2 { return a.start }

func (a *Agent) Health() int    { return a.health }
func (a *Agent) MaxHealth() int { return a.maxHealth }
func (a *Agent) Energy() int    { return a.energy }
func (a *Agent) MaxEnergy() int { return a.maxEnergy }
func (a *Agent) Exp() int       { return a.exp }
func (a *Agent) Level() int     { return a.level }
func (a *Agent) Speed() float64 { return a.speed }
func (a *Agent) Damage() int    { return a.damage }

// UpgradeCost is the experience needed for the next level
func (a *Agent) UpgradeCost() int { return a.upgradeCost }

func (a *Agent) Action() Action         { return a.action }
func (a *Agent) Aggression() int        { return a.aggression }
func (a *Agent) TargetName() string     { return a.targetName }
func (a *Agent) Reason() string         { return a.reason }
func (a *Agent) Direction() math32.Vec2 { return a.direction }

// NoticeRadius perception range
func (a *Agent) NoticeRadius() float64 { return a.species.NoticeRadius }

// ActRadius action range
func (a *Agent) ActRadius() float64 { return a.species.ActRadius }

// Alive while health is above zero
func (a *Agent) Alive() bool { return a.health > 0 }

// CanAct reports whether the action cooldown elapsed
func (a *Agent) CanAct() bool { return a.canAct }

// Vulnerable is false during the window after a hit
func (a *Agent) Vulnerable() bool { return a.vulnerable }

// InternalEvent last thing this agent did
func (a *Agent) InternalEvent() string { return a.internalEvent }

// OutsideEvent last thing done to this agent
func (a *Agent) OutsideEvent() string { return a.outsideEvent }

// ObservedEvent last thing this agent saw a neighbor do
func (a *Agent) ObservedEvent() string { return a.observedEvent }

// TakeDamage hits the agent unless it is inside its vulnerability window.
// The hit pushes the agent away from the attacker.
func (a *Agent) TakeDamage(from Attacker, now time.Time) bool {
	if !a.vulnerable || !a.Alive() {
		return false
	}
	a.health = math32.Clamp(a.health-from.Damage(), 0, a.maxHealth)
	_, dir := math32.DistanceDirection(from.Center(), a.Center())
	a.direction = dir
	a.vulnerable = false
	a.hurtTime = now
	a.knockback = true
	a.setOutside("attacked by " + from.FullName())
	return true
}

// Heal restores up to amount health
func (a *Agent) Heal(amount int) int {
	before := a.health
	a.health = math32.Clamp(a.health+amount, 0, a.maxHealth)
	return a.health - before
}

// ObserveEvent is called when a neighbor does something
func (a *Agent) ObserveEvent(event string) {
	if a.observedEvent != event {
		a.observedEvent = event
		a.externalDirty = true
	}
}

// Respawn restores the species stats at the starting point. The agent starts
// inside a vulnerability window.
func (a *Agent) Respawn(now time.Time) {
	a.reset()
	a.vulnerable = false
	a.hurtTime = now
	a.setOutside("respawn")
}

// knockedBack while the hit that ended vulnerability is still pushing.
// A respawn window is not a hit and never pushes.
func (a *Agent) knockedBack() bool {
	return a.knockback
}

func (a *Agent) cooldowns(now time.Time) {
	if !a.canAct && now.Sub(a.actTime) >= a.cfg.ActCooldown {
		a.canAct = true
	}
	if !a.vulnerable && now.Sub(a.hurtTime) >= a.cfg.VulnerableDuration {
		a.vulnerable = true
		a.knockback = false
		if a.action != ActionRunaway {
			a.direction = math32.ZeroVec2
		}
	}
}

// upgrade levels up at most once per call. Cost grows first, then stats, all
// by the same percentage.
func (a *Agent) upgrade() bool {
	if a.upgradeCost <= 0 || a.exp < a.upgradeCost {
		return false
	}
	grow := 1 + a.cfg.UpgradePercentage
	a.level++
	a.upgradeCost += int(float64(a.upgradeCost) * grow)
	a.maxHealth = int(float64(a.maxHealth) * grow)
	a.maxEnergy = int(float64(a.maxEnergy) * grow)
	a.speed = float64(int(a.speed * grow))
	a.damage = int(float64(a.damage) * grow)
	a.health = math32.Clamp(a.health, 0, a.maxHealth)
	a.energy = math32.Clamp(a.energy, 0, a.maxEnergy)
	return true
}

func (a *Agent) setInternal(event string) bool {
	if a.internalEvent == event {
		return false
	}
	a.internalEvent = event
	a.internalDirty = true
	return true
}

func (a *Agent) setOutside(event string) {
	if a.outsideEvent != event {
		a.outsideEvent = event
		a.externalDirty = true
	}
}

// moveBy applies velocity one axis at a time, stopping at obstacle edges.
func (a *Agent) moveBy(v math32.Vec2, obstacles []math32.Rect) {
	hb := a.hitbox
	if v.X != 0 {
		hb.X += v.X
		for _, o := range obstacles {
			if !hb.Overlaps(o) {
				continue
			}
			if v.X > 0 {
				hb.X = o.Left() - hb.W
			} else {
				hb.X = o.Right()
			}
		}
	}
	if v.Y != 0 {
		hb.Y += v.Y
		for _, o := range obstacles {
			if !hb.Overlaps(o) {
				continue
			}
			if v.Y > 0 {
				hb.Y = o.Top() - hb.H
			} else {
				hb.Y = o.Bottom()
			}
		}
	}
	a.hitbox = hb
}

// Observe implements memory.Observable
func (a *Agent) Observe() memory.StatBlock {
	return memory.StatBlock{
		Name:           a.fullName,
		Species:        a.species.Name,
		Health:         a.health,
		MaxHealth:      a.maxHealth,
		Energy:         a.energy,
		MaxEnergy:      a.maxEnergy,
		Exp:            a.exp,
		Action:         a.action.String(),
		TargetName:     a.targetName,
		InternalEvent:  a.internalEvent,
		OutsideEvent:   a.outsideEvent,
		ObservedEvent:  a.observedEvent,
		Location:       a.Center(),
		TargetLocation: a.targetLocation,
	}
}
