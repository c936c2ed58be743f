package agent

import (
	"fmt"
	"time"

	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/persona"
)

// Action an agent performs, exactly one at a time
type Action int8

const (
	ActionIdle Action = iota
	ActionMove
	ActionAttack
	ActionHeal
	ActionMine
	ActionRunaway
)

var actionNames = [...]string{
	ActionIdle:    persona.ActionIdle,
	ActionMove:    persona.ActionMove,
	ActionAttack:  persona.ActionAttack,
	ActionHeal:    persona.ActionHeal,
	ActionMine:    persona.ActionMine,
	ActionRunaway: persona.ActionRunaway,
}

func (a Action) String() string {
	if int(a) < len(actionNames) && a >= 0 {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", int8(a))
}

// ParseAction maps a persona action name to an Action
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return ActionIdle, fmt.Errorf("%w: %q", persona.ErrUnknownAction, s)
}

type actionHandler func(c *Controller, target Entity, now time.Time)

// actions with an effect when the target is within act radius
var actionHandlers = map[Action]actionHandler{
	ActionAttack:  attack,
	ActionHeal:    heal,
	ActionMine:    mine,
	ActionRunaway: runaway,
}

func attack(c *Controller, target Entity, now time.Time) {
	if d, ok := target.(Damageable); ok {
		d.TakeDamage(c.agent, now)
	}
}

func heal(c *Controller, target Entity, now time.Time) {
	a := c.agent
	h, ok := target.(Healable)
	if !ok || h.Health() >= h.MaxHealth() {
		return
	}
	if a.energy <= 0 {
		a.setOutside("out of energy to heal " + target.FullName())
		return
	}
	a.energy = math32.Clamp(a.energy-a.damage, 0, a.maxEnergy)
	h.Heal(a.damage)
}

// mineGain is the share of max energy and health restored per mining action
const mineGain = 0.05

func mine(c *Controller, target Entity, now time.Time) {
	a := c.agent
	if a.energy < a.maxEnergy {
		a.energy = math32.Clamp(a.energy+int(mineGain*float64(a.maxEnergy)), 0, a.maxEnergy)
	}
	if a.health < a.maxHealth {
		a.health = math32.Clamp(a.health+int(mineGain*float64(a.maxHealth)), 0, a.maxHealth)
	}
	a.exp += 10
}

func runaway(c *Controller, target Entity, now time.Time) {
	c.runFrom(target)
}
