package agent

import (
	"time"

	"github.com/tutumagi/soul/engine/fsm"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/engine/utils"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/persona"
	"go.uber.org/zap"
)

// Controller states
const (
	StateIdle fsm.StateType = iota + 1
	StateWandering
	StateSeeking
	StateActing
)

func newMachine(c *Controller) *fsm.StateMachine {
	all := []fsm.StateType{StateIdle, StateWandering, StateSeeking, StateActing}
	m := &fsm.StateMachine{
		Cur: fsm.Default,
		States: fsm.States{
			fsm.Default:    fsm.NewState("spawn", nil, all...),
			StateIdle:      fsm.NewState("idle", idleState{}, all...),
			StateWandering: fsm.NewState("wandering", wanderingState{}, all...),
			StateSeeking:   fsm.NewState("seeking", seekingState{}, all...),
			StateActing:    fsm.NewState("acting", actingState{}, all...),
		},
	}
	m.StateChange = func(prev, cur fsm.StateType) {
		logger.Debug("agent state changed",
			zap.String("agent", c.agent.fullName),
			zap.String("from", m.Name(prev)),
			zap.String("to", m.Name(cur)))
	}
	return m
}

func controller(ctx fsm.StateContext) *Controller {
	return ctx.(*Controller)
}

// idleState: the player is out of notice range
type idleState struct{}

func (idleState) Execute(ctx fsm.StateContext) fsm.StateType {
	c := controller(ctx)
	a := c.agent
	a.action = ActionIdle
	a.direction = math32.ZeroVec2
	a.targetName = ""
	a.reason = ""
	c.target = nil
	c.current = persona.Decision{}
	c.stop()
	return fsm.Default
}

func (idleState) Tick(time.Duration, fsm.StateContext) {}

// wanderingState: no target, roam around the starting point
type wanderingState struct{}

func (wanderingState) Execute(ctx fsm.StateContext) fsm.StateType {
	c := controller(ctx)
	c.agent.action = ActionMove
	c.agent.setInternal("wandering")
	c.wander()
	return fsm.Default
}

func (wanderingState) Tick(_ time.Duration, ctx fsm.StateContext) {
	c := controller(ctx)
	if c.now.Sub(c.lastMoveUpdate) < c.cfg.MoveUpdateInterval {
		return
	}
	if c.arrived() || c.planErr != nil {
		c.wander()
	}
}

func (c *Controller) wander() {
	c.lastMoveUpdate = c.now
	c.path.Clear()
	c.planErr = nil
	c.headFor(utils.RandomPointAround(c.rng, c.agent.start, c.cfg.WanderRadius))
}

// seekingState: follow the path toward the target
type seekingState struct{}

func (seekingState) Execute(ctx fsm.StateContext) fsm.StateType {
	c := controller(ctx)
	if c.agent.action == ActionIdle {
		c.agent.action = ActionMove
	}
	c.trackTarget(true)
	return fsm.Default
}

func (seekingState) Tick(_ time.Duration, ctx fsm.StateContext) {
	controller(ctx).trackTarget(false)
}

// actingState: the target is within act radius
type actingState struct{}

func (actingState) Execute(ctx fsm.StateContext) fsm.StateType {
	return fsm.Default
}

func (actingState) Tick(_ time.Duration, ctx fsm.StateContext) {
	c := controller(ctx)
	c.act(c.now)
	c.trackTarget(false)
}
