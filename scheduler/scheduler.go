package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/algo"
	"github.com/tutumagi/soul/engine/utils"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Scheduler is the process wide admission queue for persona requests. Pending
// requests are served by ascending priority (distance to the player), ties in
// submission order. At most one live handle exists per (agent, kind).
//
// A kind's timeout bounds both the wait in the queue and the run: a handle
// still queued that long after Submit fails with ErrTaskTimeout on the next
// Dispatch, and a started task gets the full timeout again.
//
// Submit, Has, Poll and Dispatch are meant to be called from the tick loop;
// completions arrive on task goroutines, so every operation takes the lock.
type Scheduler struct {
	mu          sync.Mutex
	queue       *algo.PriorityQueue
	live        map[taskKey]*Handle
	inFlight    int
	maxInFlight int
	limiter     *rate.Limiter
	timeouts    map[TaskKind]time.Duration
	reporters   metrics.Reporters

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithReporters reports queue and task metrics
func WithReporters(rs ...metrics.Reporter) Option {
	return func(s *Scheduler) {
		s.reporters = append(s.reporters, rs...)
	}
}

// WithTimeout overrides the timeout of one task kind
func WithTimeout(kind TaskKind, d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeouts[kind] = d
	}
}

// New creates a scheduler. A non positive rate admits without limit, a non
// positive MaxInFlight does not cap concurrent requests.
func New(cfg config.SchedulerConfig, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		queue:       algo.NewPriorityQueue(),
		live:        map[taskKey]*Handle{},
		maxInFlight: cfg.MaxInFlight,
		timeouts: map[TaskKind]time.Duration{
			KindDecision: cfg.DecisionTimeout,
			KindSummary:  cfg.SummaryTimeout,
		},
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit tracks a request for (agentID, kind). A pending handle only has its
// priority updated and task is ignored; a finished one is replaced by a fresh
// handle, the old handle keeps its result.
func (s *Scheduler) Submit(agentID string, kind TaskKind, priority float64, task TaskFunc) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := taskKey{agentID: agentID, kind: kind}
	if h, ok := s.live[k]; ok {
		switch h.status {
		case StatusQueued:
			s.queue.Update(h.item, priority)
			return h
		case StatusRunning:
			h.item.Priority = priority
			return h
		}
	}

	h := &Handle{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Kind:        kind,
		task:        task,
		status:      StatusQueued,
		submittedAt: time.Now(),
	}
	h.item = s.queue.PushValue(h, priority)
	s.live[k] = h
	s.reporters.Gauge(metrics.SchedulerQueueSize, nil, float64(s.queue.Len()))
	return h
}

// Reprioritize updates the priority of h while it is pending, it reports
// false once h has finished or was dropped.
func (s *Scheduler) Reprioritize(h *Handle, priority float64) bool {
	if h == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live[h.key()] != h {
		return false
	}
	switch h.status {
	case StatusQueued:
		s.queue.Update(h.item, priority)
		return true
	case StatusRunning:
		h.item.Priority = priority
		return true
	}
	return false
}

// Has reports whether h is the live handle of its agent and kind: queued,
// running, or finished and not yet polled.
func (s *Scheduler) Has(h *Handle) bool {
	if h == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[h.key()] == h
}

// Poll never blocks. ok is false while h is pending. Once h finished the
// result is returned and h stops being live.
func (s *Scheduler) Poll(h *Handle) (res Result, ok bool) {
	if h == nil {
		return Result{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.status != StatusDone {
		return Result{}, false
	}
	if s.live[h.key()] == h {
		delete(s.live, h.key())
	}
	return h.result, true
}

// Status of h
func (s *Scheduler) Status(h *Handle) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return h.status
}

// Priority currently recorded for h
func (s *Scheduler) Priority(h *Handle) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return h.item.Priority
}

// Len is the number of queued handles waiting for admission
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// InFlight is the number of running tasks
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Live is the number of live handles
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Dispatch starts queued tasks closest first while the in-flight cap and the
// rate limiter allow. Returns how many were started.
func (s *Scheduler) Dispatch() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return 0
	}

	s.expire(time.Now())

	started := 0
	for s.queue.Len() > 0 {
		if s.maxInFlight > 0 && s.inFlight >= s.maxInFlight {
			break
		}
		if s.limiter != nil && !s.limiter.Allow() {
			break
		}
		h := s.queue.Pop().Value.(*Handle)
		s.start(h)
		started++
	}

	s.reporters.Gauge(metrics.SchedulerQueueSize, nil, float64(s.queue.Len()))
	s.reporters.Gauge(metrics.SchedulerInFlight, nil, float64(s.inFlight))
	return started
}

// expire fails the queued handles that waited longer than their timeout
func (s *Scheduler) expire(now time.Time) {
	for _, h := range s.live {
		if h.status != StatusQueued {
			continue
		}
		timeout := s.timeouts[h.Kind]
		waited := now.Sub(h.submittedAt)
		if timeout <= 0 || waited < timeout {
			continue
		}
		s.queue.Remove(h.item)
		h.status = StatusDone
		h.result = Result{Err: fmt.Errorf("%w: queued for %s", ErrTaskTimeout, waited)}
		logger.Warn("persona task expired in queue",
			zap.String("agent", h.AgentID),
			zap.Stringer("kind", h.Kind),
			zap.Duration("waited", waited))
		s.reporters.Count(metrics.SchedulerTasks, map[string]string{"kind": h.Kind.String(), "outcome": "timeout"}, 1)
	}
}

func (s *Scheduler) start(h *Handle) {
	timeout := s.timeouts[h.Kind]
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}

	h.status = StatusRunning
	h.startedAt = time.Now()
	h.cancel = cancel
	s.inFlight++

	s.wg.Add(1)
	go s.run(ctx, h, h.task)
}

func (s *Scheduler) run(ctx context.Context, h *Handle, task TaskFunc) {
	defer s.wg.Done()
	defer h.cancel()

	done := make(chan Result, 1)
	go func() {
		var res Result
		if err := utils.CatchPanic(func() {
			res.Value, res.Err = task(ctx)
		}); err != nil {
			res = Result{Err: fmt.Errorf("%w: %v", ErrTaskPanic, err)}
		}
		done <- res
	}()

	var res Result
	select {
	case res = <-done:
		if res.Err != nil && errors.Is(res.Err, context.DeadlineExceeded) {
			res = Result{Err: fmt.Errorf("%w: %v", ErrTaskTimeout, res.Err)}
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res = Result{Err: ErrTaskTimeout}
		} else {
			res = Result{Err: ErrTaskCanceled}
		}
	}

	s.finish(h, res)
}

func (s *Scheduler) finish(h *Handle, res Result) {
	s.mu.Lock()
	h.status = StatusDone
	h.result = res
	s.inFlight--
	inFlight := s.inFlight
	elapsed := time.Since(h.startedAt)
	s.mu.Unlock()

	outcome := "ok"
	switch {
	case res.Err == nil:
	case errors.Is(res.Err, ErrTaskTimeout):
		outcome = "timeout"
		logger.Warn("persona task timed out",
			zap.String("agent", h.AgentID),
			zap.Stringer("kind", h.Kind),
			zap.Duration("elapsed", elapsed))
	case errors.Is(res.Err, ErrTaskCanceled):
		outcome = "canceled"
	default:
		outcome = "error"
		logger.Warn("persona task failed",
			zap.String("agent", h.AgentID),
			zap.Stringer("kind", h.Kind),
			zap.Error(res.Err))
	}
	s.reporters.Count(metrics.SchedulerTasks, map[string]string{"kind": h.Kind.String(), "outcome": outcome}, 1)
	s.reporters.Gauge(metrics.SchedulerInFlight, nil, float64(inFlight))
}

// Forget drops every handle of a removed agent, running tasks are canceled.
func (s *Scheduler) Forget(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []TaskKind{KindDecision, KindSummary} {
		k := taskKey{agentID: agentID, kind: kind}
		h, ok := s.live[k]
		if !ok {
			continue
		}
		switch h.status {
		case StatusQueued:
			s.queue.Remove(h.item)
			h.status = StatusDone
			h.result = Result{Err: ErrTaskCanceled}
		case StatusRunning:
			h.cancel()
		}
		delete(s.live, k)
	}
}

// Close cancels running tasks and waits for their goroutines
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
