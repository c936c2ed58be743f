package persona

import (
	"errors"
	"fmt"
	"strings"
)

// Actions understood by agents
const (
	ActionIdle    = "idle"
	ActionMove    = "move"
	ActionAttack  = "attack"
	ActionHeal    = "heal"
	ActionMine    = "mine"
	ActionRunaway = "runaway"
)

var knownActions = map[string]bool{
	ActionIdle:    true,
	ActionMove:    true,
	ActionAttack:  true,
	ActionHeal:    true,
	ActionMine:    true,
	ActionRunaway: true,
}

var (
	// ErrUnknownAction the decision names an action agents cannot perform
	ErrUnknownAction = errors.New("persona: unknown action")
	// ErrAggressionRange aggression outside [0,100]
	ErrAggressionRange = errors.New("persona: aggression out of range")
)

// Decision is what the persona service wants an agent to do next. Two
// decisions are the same when all fields are equal.
type Decision struct {
	TargetName string `json:"target_name"`
	Action     string `json:"action"`
	Aggression int    `json:"aggression"`
	Reason     string `json:"reason"`
}

// Normalize lower cases the action and maps the "no target" spellings to "".
func (d Decision) Normalize() Decision {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	d.TargetName = strings.TrimSpace(d.TargetName)
	switch strings.ToLower(d.TargetName) {
	case "none", "null", "nil":
		d.TargetName = ""
	}
	return d
}

// Validate rejects decisions agents must never apply
func (d Decision) Validate() error {
	if !knownActions[d.Action] {
		return fmt.Errorf("%w: %q", ErrUnknownAction, d.Action)
	}
	if d.Aggression < 0 || d.Aggression > 100 {
		return fmt.Errorf("%w: %d", ErrAggressionRange, d.Aggression)
	}
	return nil
}

func (d Decision) String() string {
	target := d.TargetName
	if target == "" {
		target = "None"
	}
	return fmt.Sprintf("%s %s (aggression %d)", d.Action, target, d.Aggression)
}

// Summary compacts an agent's recent observations
type Summary struct {
	Text string `json:"summary"`
}
