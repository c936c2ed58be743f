package memory

import (
	"time"

	"github.com/tutumagi/soul/engine/math32"
)

// StatBlock is what an observer can tell about one entity at one instant.
type StatBlock struct {
	Name           string      `json:"name"`
	Species        string      `json:"species,omitempty"`
	Health         int         `json:"health"`
	MaxHealth      int         `json:"max_health"`
	Energy         int         `json:"energy"`
	MaxEnergy      int         `json:"max_energy"`
	Exp            int         `json:"exp"`
	Action         string      `json:"action,omitempty"`
	TargetName     string      `json:"target_name,omitempty"`
	InternalEvent  string      `json:"internal_event,omitempty"`
	OutsideEvent   string      `json:"outside_event,omitempty"`
	ObservedEvent  string      `json:"observed_event,omitempty"`
	Location       math32.Vec2 `json:"location"`
	TargetLocation math32.Vec2 `json:"target_location"`
}

// ObjectBlock describes a static object such as a mineable tile.
type ObjectBlock struct {
	Name     string      `json:"name"`
	Location math32.Vec2 `json:"location"`
	Distance float64     `json:"distance"`
}

// Entry is one observation. Entries are never modified once recorded.
type Entry struct {
	Time          time.Time    `json:"time"`
	Self          StatBlock    `json:"self"`
	Nearby        []StatBlock  `json:"nearby,omitempty"`
	NearestObject *ObjectBlock `json:"nearest_object,omitempty"`
}

// Observable is anything whose state can be written into a StatBlock
type Observable interface {
	Observe() StatBlock
}

// Observer records what is around it, within its notice radius.
type Observer interface {
	Observable
	NoticeRadius() float64
}

// Locatable is a named thing with a position
type Locatable interface {
	FullName() string
	Center() math32.Vec2
}
