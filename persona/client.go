package persona

import (
	"context"
	"errors"
	"fmt"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/metrics"
)

// ErrUnknownDriver the configured persona driver is not supported
var ErrUnknownDriver = errors.New("persona: unknown driver")

// AgentContext is the request payload. It is a copy taken on the tick
// goroutine, clients may read it from any goroutine.
type AgentContext struct {
	FullName       string           `json:"full_name"`
	Species        string           `json:"species"`
	Characteristic string           `json:"characteristic"`
	AttackType     string           `json:"attack_type"`
	Level          int              `json:"level"`
	Aggression     int              `json:"aggression"`
	Stats          memory.StatBlock `json:"stats"`
	Current        Decision         `json:"current_decision"`
	Summary        string           `json:"summary,omitempty"`
	Observations   []memory.Entry   `json:"observations,omitempty"`
}

// Client talks to the persona service.
//
//go:generate mockgen -destination=mocks/client.go -package=mocks github.com/tutumagi/soul/persona Client
type Client interface {
	Decide(ctx context.Context, in AgentContext) (Decision, error)
	Summarize(ctx context.Context, in AgentContext) (Summary, error)
	Close() error
}

// NewClient builds the client selected by cfg.Driver: "offline" or "nats".
func NewClient(cfg config.PersonaConfig, reporters ...metrics.Reporter) (Client, error) {
	switch cfg.Driver {
	case "", "offline":
		return NewOfflineClient(), nil
	case "nats":
		return NewNatsClient(cfg, reporters...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
