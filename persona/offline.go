package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/memory"
)

// PlayerName is how agents refer to the player
const PlayerName = "player"

// temperament of a species when no persona service is available
const (
	fighter = iota
	healer
	miner
)

var temperaments = map[string]int{
	"spirit": healer,
	"bamboo": miner,
}

// OfflineClient decides from the request payload alone. Answers are
// deterministic, so it also serves as a stand-in for tests and demos.
type OfflineClient struct {
	// FleeRatio below this health ratio the agent runs away.
	FleeRatio float64
}

// NewOfflineClient with default thresholds
func NewOfflineClient() *OfflineClient {
	return &OfflineClient{FleeRatio: 0.25}
}

// Decide picks a target and action
func (c *OfflineClient) Decide(ctx context.Context, in AgentContext) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	st := in.Stats
	var latest *memory.Entry
	if n := len(in.Observations); n > 0 {
		latest = &in.Observations[n-1]
	}
	attacked := strings.HasPrefix(st.OutsideEvent, "attacked by")

	if ratio(st.Health, st.MaxHealth) < c.FleeRatio {
		return Decision{
			TargetName: PlayerName,
			Action:     ActionRunaway,
			Aggression: 0,
			Reason:     "too hurt to keep fighting",
		}, nil
	}

	switch temperaments[in.Species] {
	case healer:
		if ally, ok := mostWounded(latest); ok {
			if st.Energy > 0 {
				return Decision{TargetName: ally, Action: ActionHeal, Aggression: in.Aggression, Reason: ally + " is hurt"}, nil
			}
			if obj, ok := nearestObject(latest); ok {
				return Decision{TargetName: obj, Action: ActionMine, Aggression: in.Aggression, Reason: "out of energy to heal"}, nil
			}
		}
		if attacked {
			return Decision{TargetName: PlayerName, Action: ActionRunaway, Aggression: in.Aggression, Reason: "avoiding the fight"}, nil
		}
	case miner:
		if attacked {
			return Decision{TargetName: PlayerName, Action: ActionRunaway, Aggression: math32.Clamp(in.Aggression+10, 0, 100), Reason: "scared of the player"}, nil
		}
		if obj, ok := nearestObject(latest); ok {
			return Decision{TargetName: obj, Action: ActionMine, Aggression: in.Aggression, Reason: "gathering resources"}, nil
		}
	default:
		aggression := math32.Clamp(in.Aggression, 50, 100)
		reason := "the player is close"
		if attacked {
			aggression = math32.Clamp(in.Aggression+20, 0, 100)
			reason = "fighting back"
		}
		return Decision{TargetName: PlayerName, Action: ActionAttack, Aggression: aggression, Reason: reason}, nil
	}

	return Decision{Action: ActionMove, Aggression: in.Aggression, Reason: "looking around"}, nil
}

// Summarize describes the latest observations in one line
func (c *OfflineClient) Summarize(ctx context.Context, in AgentContext) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	if len(in.Observations) == 0 {
		return Summary{Text: in.Summary}, nil
	}

	events := make([]string, 0, len(in.Observations))
	seen := map[string]bool{}
	for _, o := range in.Observations {
		for _, ev := range []string{o.Self.OutsideEvent, o.Self.ObservedEvent, o.Self.InternalEvent} {
			if ev != "" && !seen[ev] {
				seen[ev] = true
				events = append(events, ev)
			}
		}
	}
	last := in.Observations[len(in.Observations)-1].Self
	text := fmt.Sprintf("%s at %d/%d health after %d observations", in.FullName, last.Health, last.MaxHealth, len(in.Observations))
	if len(events) > 0 {
		text += ": " + strings.Join(events, "; ")
	}
	return Summary{Text: text}, nil
}

// Close does nothing
func (c *OfflineClient) Close() error { return nil }

func ratio(v, max int) float64 {
	if max <= 0 {
		return 0
	}
	return float64(v) / float64(max)
}

func mostWounded(e *memory.Entry) (string, bool) {
	if e == nil {
		return "", false
	}
	best, name := 1.0, ""
	for _, n := range e.Nearby {
		if n.Name == PlayerName || n.Health <= 0 || n.Health >= n.MaxHealth {
			continue
		}
		if r := ratio(n.Health, n.MaxHealth); r < best {
			best, name = r, n.Name
		}
	}
	return name, name != ""
}

func nearestObject(e *memory.Entry) (string, bool) {
	if e == nil || e.NearestObject == nil {
		return "", false
	}
	return e.NearestObject.Name, true
}
