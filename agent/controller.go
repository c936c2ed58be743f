package agent

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/fsm"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/engine/pathfind"
	"github.com/tutumagi/soul/engine/utils"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/metrics"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
	"go.uber.org/zap"
)

// World is what a controller needs from the simulation around its agent.
type World interface {
	Player() Entity
	// Resolve finds a live agent or object by full name
	Resolve(name string) (Entity, bool)
	// Observables within radius of center, exclude is skipped
	Observables(center math32.Vec2, radius float64, exclude string) []memory.Observable
	Objects() []memory.Locatable
	Obstacles() []math32.Rect
	TileSize() float64
	// Notify tells every agent within radius of from that it did event
	Notify(from *Agent, radius float64, event string)
}

// Scheduler admits persona requests, *scheduler.Scheduler implements it.
type Scheduler interface {
	Submit(agentID string, kind scheduler.TaskKind, priority float64, task scheduler.TaskFunc) *scheduler.Handle
	Reprioritize(h *scheduler.Handle, priority float64) bool
	Has(h *scheduler.Handle) bool
	Poll(h *scheduler.Handle) (scheduler.Result, bool)
}

// Controller runs the per tick behaviour of one agent.
type Controller struct {
	agent     *Agent
	world     World
	tasks     Scheduler
	client    persona.Client
	memory    *memory.Memory
	cfg       config.AgentConfig
	rng       *rand.Rand
	planner   *pathfind.Planner
	reporters metrics.Reporters

	machine *fsm.StateMachine
	now     time.Time

	target     Entity
	playerDist float64

	path           pathfind.Path
	moveTarget     math32.Vec2
	hasMoveTarget  bool
	planErr        error
	lastMoveUpdate time.Time

	current        persona.Decision
	decision       *scheduler.Handle
	summary        *scheduler.Handle
	lastDecisionAt time.Time
	lastSummaryAt  time.Time
	wantDecision   bool
	wantSummary    bool
	observed       bool
	lastOutside    string
}

// Option configures a Controller
type Option func(*Controller)

// WithRand sets the random source used for wandering
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithPlanner replaces the default path planner
func WithPlanner(p *pathfind.Planner) Option {
	return func(c *Controller) { c.planner = p }
}

// WithReporters reports path planning metrics
func WithReporters(rs ...metrics.Reporter) Option {
	return func(c *Controller) { c.reporters = append(c.reporters, rs...) }
}

// NewController binds an agent to the world, the scheduler shared by every
// agent and the persona client.
func NewController(a *Agent, w World, tasks Scheduler, client persona.Client, mem *memory.Memory, opts ...Option) *Controller {
	c := &Controller{
		agent:   a,
		world:   w,
		tasks:   tasks,
		client:  client,
		memory:  mem,
		cfg:     a.cfg,
		planner: &pathfind.Planner{Margin: pathfind.DefaultSearchMargin},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c.machine = newMachine(c)
	return c
}

// Agent controlled
func (c *Controller) Agent() *Agent { return c.agent }

// Memory of the agent
func (c *Controller) Memory() *memory.Memory { return c.memory }

// State the machine is in
func (c *Controller) State() fsm.StateType { return c.machine.Cur }

// StateName of the current state
func (c *Controller) StateName() string { return c.machine.Name(c.machine.Cur) }

// Decision last applied
func (c *Controller) Decision() persona.Decision { return c.current }

// Target resolved on the last tick, nil when there is none
func (c *Controller) Target() Entity { return c.target }

// Update runs one tick. A panic in the controller is logged and the tick of
// the other agents goes on.
func (c *Controller) Update(now time.Time) {
	if err := utils.CatchPanic(func() { c.update(now) }); err != nil {
		logger.Error("agent update failed", zap.String("agent", c.agent.fullName), zap.Error(err))
	}
}

// Respawn brings the agent back at its starting point and drops everything
// the controller kept from its previous life, so the first decision after a
// respawn is applied even when it matches the last one. Memory survives.
func (c *Controller) Respawn(now time.Time) {
	c.agent.Respawn(now)
	c.machine.Cur = fsm.Default
	c.now = time.Time{}
	c.target = nil
	c.stop()
	c.lastMoveUpdate = time.Time{}
	c.current = persona.Decision{}
	c.decision = nil
	c.summary = nil
	c.lastDecisionAt = time.Time{}
	c.wantDecision = false
	c.wantSummary = false
	c.observed = false
	c.lastOutside = ""
}

func (c *Controller) update(now time.Time) {
	a := c.agent
	if !a.Alive() {
		return
	}
	var dt time.Duration
	if !c.now.IsZero() {
		dt = now.Sub(c.now)
	}
	c.now = now

	a.cooldowns(now)
	a.upgrade()

	c.playerDist = math32.Distance(a.Center(), c.world.Player().Center())

	c.pollTasks()
	c.target = c.resolveTarget()

	if next := c.nextState(); next != c.machine.Cur {
		if err := c.machine.EnterState(next, c); err != nil {
			logger.Warn("agent state switch failed",
				zap.String("agent", a.fullName),
				zap.String("from", c.StateName()),
				zap.String("to", c.machine.Name(next)),
				zap.Error(err))
		}
	}
	c.machine.Tick(dt, c)
	c.move()

	if c.noticesPlayer() {
		c.observe(now)
		c.requestTasks(now)
	}
}

func (c *Controller) noticesPlayer() bool {
	return c.playerDist <= c.agent.NoticeRadius()
}

func (c *Controller) resolveTarget() Entity {
	name := c.agent.targetName
	if name == "" {
		return nil
	}
	if name == persona.PlayerName {
		return c.world.Player()
	}
	if t, ok := c.world.Resolve(name); ok {
		return t
	}
	return nil
}

func (c *Controller) nextState() fsm.StateType {
	if !c.noticesPlayer() {
		return StateIdle
	}
	if c.target == nil {
		return StateWandering
	}
	if math32.Distance(c.agent.Center(), c.target.Center()) > c.agent.ActRadius() {
		return StateSeeking
	}
	if c.agent.canAct || c.machine.Cur == StateActing {
		return StateActing
	}
	return StateSeeking
}

func (c *Controller) pollTasks() {
	if c.decision != nil {
		if res, ok := c.tasks.Poll(c.decision); ok {
			c.decision = nil
			c.applyDecision(res)
		}
	}
	if c.summary != nil {
		if res, ok := c.tasks.Poll(c.summary); ok {
			c.summary = nil
			c.applySummary(res)
		}
	}
}

func (c *Controller) applyDecision(res scheduler.Result) {
	a := c.agent
	if res.Err != nil {
		logger.Warn("persona decision failed, keeping previous one",
			zap.String("agent", a.fullName), zap.Error(res.Err))
		return
	}
	d, ok := res.Value.(persona.Decision)
	if !ok {
		logger.Warn("unexpected decision payload", zap.String("agent", a.fullName), zap.Any("value", res.Value))
		return
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		logger.Warn("rejected persona decision", zap.String("agent", a.fullName), zap.Error(err))
		return
	}
	if d == c.current || !c.noticesPlayer() {
		return
	}
	action, _ := ParseAction(d.Action)

	c.current = d
	a.targetName = d.TargetName
	a.action = action
	a.aggression = d.Aggression
	a.reason = d.Reason
	c.path.Clear()
	c.lastMoveUpdate = time.Time{}
	logger.Debug("apply persona decision", zap.String("agent", a.fullName), zap.Stringer("decision", d))
}

func (c *Controller) applySummary(res scheduler.Result) {
	if res.Err != nil {
		logger.Warn("persona summary failed", zap.String("agent", c.agent.fullName), zap.Error(res.Err))
		return
	}
	if s, ok := res.Value.(persona.Summary); ok {
		c.memory.SetSummary(s.Text)
	}
}

// requestTasks submits the requests this tick calls for. Pending ones only get
// their priority refreshed with the current distance to the player.
func (c *Controller) requestTasks(now time.Time) {
	a := c.agent
	prio := c.playerDist

	if !c.tasks.Reprioritize(c.decision, prio) && !c.tasks.Has(c.decision) {
		if c.wantDecision || c.lastDecisionAt.IsZero() || now.Sub(c.lastDecisionAt) >= c.cfg.DecisionInterval {
			in := c.snapshot()
			client := c.client
			c.decision = c.tasks.Submit(a.id, scheduler.KindDecision, prio, func(ctx context.Context) (interface{}, error) {
				return client.Decide(ctx, in)
			})
			c.lastDecisionAt = now
			c.wantDecision = false
		}
	}

	if !c.tasks.Reprioritize(c.summary, prio) && !c.tasks.Has(c.summary) {
		periodic := c.cfg.SummaryInterval > 0 && c.memory.Len() > 0 &&
			!c.lastSummaryAt.IsZero() && now.Sub(c.lastSummaryAt) >= c.cfg.SummaryInterval
		if c.wantSummary || periodic {
			in := c.snapshot()
			client := c.client
			c.summary = c.tasks.Submit(a.id, scheduler.KindSummary, prio, func(ctx context.Context) (interface{}, error) {
				return client.Summarize(ctx, in)
			})
			c.lastSummaryAt = now
			c.wantSummary = false
		}
	}
	if c.lastSummaryAt.IsZero() {
		c.lastSummaryAt = now
	}
}

// snapshot copies what the persona service needs, the task goroutine never
// reads the live agent.
func (c *Controller) snapshot() persona.AgentContext {
	a := c.agent
	return persona.AgentContext{
		FullName:       a.fullName,
		Species:        a.species.Name,
		Characteristic: a.species.Characteristic,
		AttackType:     a.species.AttackType,
		Level:          a.level,
		Aggression:     a.aggression,
		Stats:          a.Observe(),
		Current:        c.current,
		Summary:        c.memory.Summary(),
		Observations:   c.memory.Recent(c.memory.Size()),
	}
}

// observe records an observation on the first tick and whenever an event
// changed. Changes caused by others also call for a fresh decision, and a new
// outside event is told to the neighbors.
func (c *Controller) observe(now time.Time) {
	a := c.agent
	if c.observed && !a.internalDirty && !a.externalDirty {
		return
	}
	if a.externalDirty {
		c.wantDecision = true
	}
	if a.outsideEvent != c.lastOutside {
		c.lastOutside = a.outsideEvent
		if a.outsideEvent != "" {
			c.world.Notify(a, a.NoticeRadius(), a.fullName+" "+a.outsideEvent)
		}
	}
	a.internalDirty, a.externalDirty = false, false
	c.observed = true

	nearby := c.world.Observables(a.Center(), a.NoticeRadius(), a.fullName)
	if c.memory.Record(a, nearby, c.world.Objects(), now) {
		c.wantSummary = true
	}
}

// act performs the current action on the target and starts the cooldown.
func (c *Controller) act(now time.Time) {
	a := c.agent
	handler, ok := actionHandlers[a.action]
	if !ok || c.target == nil || !a.canAct {
		return
	}
	handler(c, c.target, now)
	a.canAct = false
	a.actTime = now

	event := a.action.String() + " " + c.target.FullName()
	if a.setInternal(event) {
		c.world.Notify(a, a.NoticeRadius(), a.fullName+" "+event)
	}
}

// trackTarget refreshes where the agent heads for, throttled by the internal
// move interval. While knocked back only runaway direction updates apply.
func (c *Controller) trackTarget(force bool) {
	a := c.agent
	if c.target == nil {
		return
	}
	if !force && !c.lastMoveUpdate.IsZero() && c.now.Sub(c.lastMoveUpdate) < c.cfg.MoveUpdateInterval {
		return
	}
	c.lastMoveUpdate = c.now

	if a.action == ActionRunaway {
		c.runFrom(c.target)
		return
	}
	if !a.vulnerable {
		return
	}
	c.headFor(c.target.Center())
	a.targetLocation = c.target.Center()
}

func (c *Controller) runFrom(target Entity) {
	a := c.agent
	if d, dir := math32.DistanceDirection(a.Center(), target.Center()); d != 0 {
		a.direction = dir.Neg()
	}
	c.stop()
}

func (c *Controller) headFor(p math32.Vec2) {
	c.moveTarget = p
	c.hasMoveTarget = true
}

func (c *Controller) stop() {
	c.hasMoveTarget = false
	c.path.Clear()
	c.planErr = nil
}

// move advances the agent one tick along its path, or along its direction
// when knocked back or running away.
func (c *Controller) move() {
	a := c.agent
	var velocity math32.Vec2
	switch {
	case a.knockedBack():
		velocity = a.direction.Scale(a.speed * a.species.Resistance)
	case a.action == ActionRunaway && !c.hasMoveTarget:
		velocity = a.direction.Scale(a.speed)
	case c.hasMoveTarget:
		a.direction = c.steer()
		velocity = a.direction.Scale(a.speed)
	default:
		a.direction = math32.ZeroVec2
	}
	if velocity.IsZero() {
		return
	}
	a.moveBy(velocity, c.world.Obstacles())
}

// steer re-plans when the goal cell changed or no route is left, then
// returns the direction toward the next waypoint.
func (c *Controller) steer() math32.Vec2 {
	a := c.agent
	pos := a.Center()
	ts := c.world.TileSize()
	goal := math32.ToCell(c.moveTarget, ts)

	if c.path.NeedsReplan(goal) {
		waypoints, err := c.planner.Plan(pos, c.moveTarget, c.world.Obstacles(), ts)
		c.path.Reset(waypoints, goal)
		c.planErr = err
		result := "ok"
		if err != nil {
			result = "unreachable"
			if errors.Is(err, pathfind.ErrGoalBlocked) {
				result = "blocked"
			}
		}
		c.reporters.Count(metrics.PathPlans, map[string]string{"result": result}, 1)
	}
	if c.planErr != nil {
		return math32.ZeroVec2
	}
	if dir, ok := c.path.Steer(pos, c.cfg.ArriveThreshold); ok {
		return dir
	}
	if d, dir := math32.DistanceDirection(pos, c.moveTarget); d >= c.cfg.ArriveThreshold {
		return dir
	}
	return math32.ZeroVec2
}

// arrived reports whether the agent reached its move target
func (c *Controller) arrived() bool {
	return !c.hasMoveTarget || math32.Distance(c.agent.Center(), c.moveTarget) < c.cfg.ArriveThreshold
}
