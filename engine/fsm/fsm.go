package fsm

import (
	"errors"
	"fmt"
	"time"
)

// ErrStateReject the current state does not allow switching to the requested one
var ErrStateReject = errors.New("fsm: state switch rejected")

// ErrStateNoAction the requested state has no Action bound
var ErrStateNoAction = errors.New("fsm: state has no action")

const (
	// Default is the state every machine starts in
	Default StateType = 0
)

// StateType identifies a state
type StateType int32

// StateContext is handed to the Action of the state being entered or ticked
type StateContext interface{}

// Action runs when a state is entered and on every tick spent in it
type Action interface {
	// Execute runs on entering the state. Returning another state chains into
	// it, returning the current state or Default stops.
	Execute(ctx StateContext) StateType
	// Tick runs once per simulation tick while the state is current.
	Tick(dt time.Duration, ctx StateContext)
}

// State binds an Action with the states reachable from it
type State struct {
	Name   string
	Action Action
	States map[StateType]struct{}
}

// NewState creates a state which may switch to the given states
func NewState(name string, act Action, states ...StateType) State {
	s := State{
		Name:   name,
		Action: act,
		States: map[StateType]struct{}{},
	}
	for _, state := range states {
		s.States[state] = struct{}{}
	}
	return s
}

// States maps each state type to its definition
type States map[StateType]State

// StateMachine is a table driven state machine, not goroutine safe
type StateMachine struct {
	Prev   StateType
	Cur    StateType
	States States

	// StateChange is called after Cur changed and before the new Action executes
	StateChange func(prev, cur StateType)
}

// Name of a state, falls back to its number
func (s *StateMachine) Name(typ StateType) string {
	if state, ok := s.States[typ]; ok && state.Name != "" {
		return state.Name
	}
	return fmt.Sprintf("state(%d)", typ)
}

// CanEnter reports whether the current state allows switching to next
func (s *StateMachine) CanEnter(next StateType) bool {
	state, ok := s.States[s.Cur]
	if !ok || state.States == nil {
		return false
	}
	_, ok = state.States[next]
	return ok
}

// EnterState switches to stateTyp and executes its Action, following the
// chain of states the actions return.
func (s *StateMachine) EnterState(stateTyp StateType, ctx StateContext) error {
	for {
		if !s.CanEnter(stateTyp) {
			return ErrStateReject
		}

		state, ok := s.States[stateTyp]
		if !ok || state.Action == nil {
			return ErrStateNoAction
		}

		s.Prev = s.Cur
		s.Cur = stateTyp

		if s.Prev != s.Cur && s.StateChange != nil {
			s.StateChange(s.Prev, s.Cur)
		}

		next := state.Action.Execute(ctx)
		if next == s.Cur || next == Default {
			return nil
		}
		stateTyp = next
	}
}

// Tick the current state's Action
func (s *StateMachine) Tick(dt time.Duration, ctx StateContext) {
	if state, ok := s.States[s.Cur]; ok && state.Action != nil {
		state.Action.Tick(dt, ctx)
	}
}
