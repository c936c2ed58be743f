package memory

import (
	"math"
	"time"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/engine/math32"
	"github.com/tutumagi/soul/logger"
	"go.uber.org/zap"
)

const (
	defaultSize     = 10
	defaultCapacity = 64
)

// Memory is the bounded observation log of one agent. It keeps the most
// recent Capacity entries and reports a summary as due every Size records.
type Memory struct {
	owner    string
	size     int
	capacity int

	entries []Entry
	head    int
	count   int
	total   int

	summary string
	sink    Sink
}

// New creates the memory of agent owner. A nil sink discards entries.
func New(owner string, cfg config.MemoryConfig, sink Sink) *Memory {
	size := cfg.Size
	if size <= 0 {
		size = defaultSize
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if capacity < size {
		capacity = size
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Memory{
		owner:    owner,
		size:     size,
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
		sink:     sink,
	}
}

// Record snapshots self, every nearby entity within the notice radius of
// self and the single nearest object. summaryDue is true on every Size-th
// call, when the counter resets.
func (m *Memory) Record(self Observer, nearby []Observable, objects []Locatable, now time.Time) (summaryDue bool) {
	e := Snapshot(self, nearby, objects, now)
	m.push(e)

	if err := m.sink.Append(m.owner, e); err != nil {
		logger.Warn("memory sink append failed", zap.String("agent", m.owner), zap.Error(err))
	}

	m.count++
	m.total++
	if m.count >= m.size {
		m.count = 0
		return true
	}
	return false
}

// Snapshot builds an entry without recording it.
func Snapshot(self Observer, nearby []Observable, objects []Locatable, now time.Time) Entry {
	me := self.Observe()
	radius := self.NoticeRadius()
	e := Entry{Time: now, Self: me}

	for _, o := range nearby {
		if o == nil {
			continue
		}
		st := o.Observe()
		if st.Name == me.Name {
			continue
		}
		if math32.Distance(me.Location, st.Location) <= radius {
			e.Nearby = append(e.Nearby, st)
		}
	}

	best := math.MaxFloat64
	for _, o := range objects {
		d := math32.Distance(me.Location, o.Center())
		if d < best {
			best = d
			e.NearestObject = &ObjectBlock{Name: o.FullName(), Location: o.Center(), Distance: d}
		}
	}
	return e
}

func (m *Memory) push(e Entry) {
	if len(m.entries) < m.capacity {
		m.entries = append(m.entries, e)
		return
	}
	m.entries[m.head] = e
	m.head = (m.head + 1) % m.capacity
}

// Owner agent name
func (m *Memory) Owner() string { return m.owner }

// Size is the number of records that make a summary due
func (m *Memory) Size() int { return m.size }

// Len number of entries held
func (m *Memory) Len() int { return len(m.entries) }

// Count records since the last time a summary was due
func (m *Memory) Count() int { return m.count }

// Total records since creation
func (m *Memory) Total() int { return m.total }

// Entries returns the held entries oldest first.
func (m *Memory) Entries() []Entry {
	return m.Recent(len(m.entries))
}

// Recent returns up to n of the newest entries, oldest first.
func (m *Memory) Recent(n int) []Entry {
	l := len(m.entries)
	if n > l {
		n = l
	}
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, n)
	for i := l - n; i < l; i++ {
		out = append(out, m.entries[(m.head+i)%l])
	}
	return out
}

// Latest entry, ok is false when nothing was recorded yet.
func (m *Memory) Latest() (Entry, bool) {
	r := m.Recent(1)
	if len(r) == 0 {
		return Entry{}, false
	}
	return r[0], true
}

// Summary is the last compacted description of the log
func (m *Memory) Summary() string { return m.summary }

// SetSummary stores a summary returned by the persona service
func (m *Memory) SetSummary(s string) { m.summary = s }
