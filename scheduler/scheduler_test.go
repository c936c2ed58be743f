package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumagi/soul/config"
)

func unlimited() config.SchedulerConfig {
	return config.SchedulerConfig{
		DecisionTimeout: time.Second,
		SummaryTimeout:  time.Second,
	}
}

func value(v interface{}) TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		return v, nil
	}
}

func blocking(release <-chan struct{}) TaskFunc {
	return func(ctx context.Context) (interface{}, error) {
		<-release
		return "late", nil
	}
}

func pollEventually(t *testing.T, s *Scheduler, h *Handle) Result {
	t.Helper()
	var res Result
	require.Eventually(t, func() bool {
		var ok bool
		res, ok = s.Poll(h)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return res
}

func TestSubmitDeduplicates(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	h1 := s.Submit("squid#1", KindDecision, 120, value(1))
	h2 := s.Submit("squid#1", KindDecision, 80, value(2))

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 80.0, s.Priority(h1))
	assert.True(t, s.Has(h1))
}

func TestKindsAreIndependent(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	d := s.Submit("squid#1", KindDecision, 10, value(1))
	m := s.Submit("squid#1", KindSummary, 10, value(2))

	assert.NotSame(t, d, m)
	assert.Equal(t, 2, s.Len())
}

func TestDispatchClosestFirst(t *testing.T) {
	cfg := unlimited()
	cfg.MaxInFlight = 1
	s := New(cfg)
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	far := s.Submit("a", KindDecision, 300, blocking(release))
	near := s.Submit("b", KindDecision, 10, blocking(release))
	mid := s.Submit("c", KindDecision, 50, blocking(release))

	assert.Equal(t, 1, s.Dispatch())
	assert.Equal(t, StatusRunning, s.Status(near))
	assert.Equal(t, StatusQueued, s.Status(mid))
	assert.Equal(t, StatusQueued, s.Status(far))

	// cap reached
	assert.Equal(t, 0, s.Dispatch())
	assert.Equal(t, 1, s.InFlight())
}

func TestPriorityUpdateReordersQueue(t *testing.T) {
	cfg := unlimited()
	cfg.MaxInFlight = 1
	s := New(cfg)
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	a := s.Submit("a", KindDecision, 10, blocking(release))
	b := s.Submit("b", KindDecision, 20, blocking(release))
	s.Submit("b", KindDecision, 5, nil)

	s.Dispatch()
	assert.Equal(t, StatusRunning, s.Status(b))
	assert.Equal(t, StatusQueued, s.Status(a))
}

func TestEqualPrioritiesAreFIFO(t *testing.T) {
	cfg := unlimited()
	cfg.MaxInFlight = 1
	s := New(cfg)
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	first := s.Submit("a", KindDecision, 42, blocking(release))
	second := s.Submit("b", KindDecision, 42, blocking(release))

	s.Dispatch()
	assert.Equal(t, StatusRunning, s.Status(first))
	assert.Equal(t, StatusQueued, s.Status(second))
}

func TestPollConsumesResultOnce(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	h := s.Submit("a", KindDecision, 1, value("attack"))
	_, ok := s.Poll(h)
	assert.False(t, ok, "queued handle must not be ready")

	s.Dispatch()
	res := pollEventually(t, s, h)
	assert.NoError(t, res.Err)
	assert.Equal(t, "attack", res.Value)
	assert.False(t, s.Has(h))
	assert.Equal(t, 0, s.Live())

	// a consumed handle still owns its result
	res, ok = s.Poll(h)
	assert.True(t, ok)
	assert.Equal(t, "attack", res.Value)
}

func TestSubmitAfterCompletionCreatesFreshHandle(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	old := s.Submit("a", KindDecision, 1, value("first"))
	s.Dispatch()
	require.Eventually(t, func() bool { return s.Status(old) == StatusDone }, time.Second, time.Millisecond)

	fresh := s.Submit("a", KindDecision, 1, value("second"))
	assert.NotSame(t, old, fresh)
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.False(t, s.Has(old))
	assert.True(t, s.Has(fresh))

	res, ok := s.Poll(old)
	assert.True(t, ok)
	assert.Equal(t, "first", res.Value)
	assert.True(t, s.Has(fresh), "polling a stale handle must not drop the live one")
}

func TestTimeoutFailsTask(t *testing.T) {
	s := New(unlimited(), WithTimeout(KindDecision, 20*time.Millisecond))
	defer s.Close()

	release := make(chan struct{})
	defer close(release)

	h := s.Submit("a", KindDecision, 1, blocking(release))
	s.Dispatch()

	res := pollEventually(t, s, h)
	assert.True(t, errors.Is(res.Err, ErrTaskTimeout))
	assert.Nil(t, res.Value)
	assert.Equal(t, 0, s.InFlight())
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	s := New(unlimited(), WithTimeout(KindSummary, 10*time.Millisecond))
	defer s.Close()

	h := s.Submit("a", KindSummary, 1, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s.Dispatch()

	res := pollEventually(t, s, h)
	assert.True(t, errors.Is(res.Err, ErrTaskTimeout))
}

func TestTaskErrorAndPanic(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	boom := errors.New("service unavailable")
	failed := s.Submit("a", KindDecision, 1, func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	panicked := s.Submit("b", KindDecision, 2, func(ctx context.Context) (interface{}, error) {
		panic("bad payload")
	})
	assert.Equal(t, 2, s.Dispatch())

	res := pollEventually(t, s, failed)
	assert.True(t, errors.Is(res.Err, boom))

	res = pollEventually(t, s, panicked)
	assert.True(t, errors.Is(res.Err, ErrTaskPanic))
}

func TestForgetDropsEntries(t *testing.T) {
	cfg := unlimited()
	cfg.MaxInFlight = 1
	s := New(cfg)
	defer s.Close()

	var canceled int32
	running := s.Submit("dead", KindDecision, 1, func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		atomic.StoreInt32(&canceled, 1)
		return nil, ctx.Err()
	})
	queued := s.Submit("dead", KindSummary, 2, value("never"))
	other := s.Submit("alive", KindDecision, 3, value("ok"))
	s.Dispatch()
	require.Equal(t, StatusRunning, s.Status(running))

	s.Forget("dead")
	assert.False(t, s.Has(running))
	assert.False(t, s.Has(queued))
	assert.True(t, s.Has(other))
	assert.Equal(t, 1, s.Len())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&canceled) == 1 }, time.Second, time.Millisecond)
	res := pollEventually(t, s, queued)
	assert.True(t, errors.Is(res.Err, ErrTaskCanceled))
}

func TestRateLimitedDispatch(t *testing.T) {
	cfg := unlimited()
	cfg.Rate = 0.001
	cfg.Burst = 2
	s := New(cfg)
	defer s.Close()

	for _, id := range []string{"a", "b", "c", "d"} {
		s.Submit(id, KindDecision, 1, value(id))
	}
	assert.Equal(t, 2, s.Dispatch())
	assert.Equal(t, 0, s.Dispatch())
	assert.Equal(t, 2, s.Len())
}

func TestQueuedTaskExpires(t *testing.T) {
	cfg := unlimited()
	cfg.Rate = 0.001
	cfg.Burst = 1
	s := New(cfg, WithTimeout(KindDecision, 20*time.Millisecond))
	defer s.Close()

	first := s.Submit("a", KindDecision, 1, value("a"))
	held := s.Submit("b", KindDecision, 2, value("b"))
	require.Equal(t, 1, s.Dispatch())
	assert.Equal(t, StatusQueued, s.Status(held))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, s.Dispatch())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, StatusDone, s.Status(held))

	res, ok := s.Poll(held)
	require.True(t, ok)
	assert.True(t, errors.Is(res.Err, ErrTaskTimeout))
	assert.Equal(t, "a", pollEventually(t, s, first).Value)
	assert.Equal(t, 0, s.Live())
}

func TestHasNil(t *testing.T) {
	s := New(unlimited())
	defer s.Close()
	assert.False(t, s.Has(nil))
	_, ok := s.Poll(nil)
	assert.False(t, ok)
}

func TestReprioritize(t *testing.T) {
	s := New(unlimited())
	defer s.Close()

	h := s.Submit("a", KindDecision, 50, value("x"))
	assert.True(t, s.Reprioritize(h, 5))
	assert.Equal(t, 5.0, s.Priority(h))

	s.Dispatch()
	require.Eventually(t, func() bool { return s.Status(h) == StatusDone }, time.Second, time.Millisecond)
	assert.False(t, s.Reprioritize(h, 1))
	assert.Equal(t, 1, s.Live(), "reprioritizing a finished handle must not replace it")
	assert.False(t, s.Reprioritize(nil, 1))
}
