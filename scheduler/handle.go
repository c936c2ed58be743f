package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tutumagi/soul/engine/algo"
)

// TaskKind of a persona request. Every agent may have one live task per kind.
type TaskKind int8

const (
	// KindDecision asks the persona service what to do next
	KindDecision TaskKind = iota
	// KindSummary asks the persona service to compact the observation log
	KindSummary
)

func (k TaskKind) String() string {
	switch k {
	case KindDecision:
		return "decision"
	case KindSummary:
		return "summary"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

var (
	// ErrTaskTimeout the task did not finish within its kind's timeout
	ErrTaskTimeout = errors.New("scheduler: task timed out")
	// ErrTaskCanceled the task was dropped before finishing
	ErrTaskCanceled = errors.New("scheduler: task canceled")
	// ErrTaskPanic the task panicked
	ErrTaskPanic = errors.New("scheduler: task panicked")
)

// TaskFunc performs one request against the persona service
type TaskFunc func(ctx context.Context) (interface{}, error)

// Result of a finished task, Err is set when it failed or timed out
type Result struct {
	Value interface{}
	Err   error
}

// Status of a handle
type Status int32

const (
	// StatusQueued waiting for admission
	StatusQueued Status = iota
	// StatusRunning admitted, the request is in flight
	StatusRunning
	// StatusDone finished, the result slot is filled
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return "unknown"
	}
}

// Handle identifies one asynchronous request owned by one agent. Its mutable
// state is guarded by the Scheduler that created it.
type Handle struct {
	ID      string
	AgentID string
	Kind    TaskKind

	task        TaskFunc
	item        *algo.Item
	status      Status
	result      Result
	submittedAt time.Time
	startedAt   time.Time
	cancel      context.CancelFunc
}

func (h *Handle) key() taskKey {
	return taskKey{agentID: h.AgentID, kind: h.Kind}
}

func (h *Handle) String() string {
	return fmt.Sprintf("<Handle>%s %s/%s", h.ID, h.AgentID, h.Kind)
}

type taskKey struct {
	agentID string
	kind    TaskKind
}
