package agent

import "github.com/tutumagi/soul/engine/math32"

// View is a read-only snapshot of an agent for presentation layers
type View struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Species    string        `json:"species"`
	State      string        `json:"state"`
	Action     string        `json:"action"`
	Target     string        `json:"target,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Position   math32.Vec2   `json:"position"`
	Health     int           `json:"health"`
	MaxHealth  int           `json:"max_health"`
	Energy     int           `json:"energy"`
	MaxEnergy  int           `json:"max_energy"`
	Level      int           `json:"level"`
	Aggression int           `json:"aggression"`
	Vulnerable bool          `json:"vulnerable"`
	Path       []math32.Vec2 `json:"path,omitempty"`
}

// View of the controlled agent
func (c *Controller) View() View {
	a := c.agent
	return View{
		ID:         a.id,
		Name:       a.fullName,
		Species:    a.species.Name,
		State:      c.StateName(),
		Action:     a.action.String(),
		Target:     a.targetName,
		Reason:     a.reason,
		Position:   a.Center(),
		Health:     a.health,
		MaxHealth:  a.maxHealth,
		Energy:     a.energy,
		MaxEnergy:  a.maxEnergy,
		Level:      a.level,
		Aggression: a.aggression,
		Vulnerable: a.vulnerable,
		Path:       c.path.Waypoints(),
	}
}
