package aoi

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumagi/soul/engine/math32"
)

func ids(items []*Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func assertSorted(t *testing.T, s *SweepIndex) {
	t.Helper()
	for i, it := range s.xs {
		require.Equal(t, i, it.index)
		if i > 0 {
			require.LessOrEqual(t, s.xs[i-1].Pos.X, it.Pos.X)
		}
	}
	require.Equal(t, len(s.xs), len(s.byID))
}

func TestEnterLeave(t *testing.T) {
	s := NewSweepIndex()
	s.Enter("b", math32.NewVec2(20, 0), nil)
	s.Enter("a", math32.NewVec2(10, 0), nil)
	s.Enter("c", math32.NewVec2(30, 0), "payload")
	assertSorted(t, s)
	assert.Equal(t, 3, s.Len())

	it, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, "payload", it.Data)

	assert.True(t, s.Leave("b"))
	assert.False(t, s.Leave("b"))
	assertSorted(t, s)
	assert.Equal(t, []string{"a", "c"}, ids(s.xs))

	// entering twice moves
	s.Enter("a", math32.NewVec2(50, 0), nil)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"c", "a"}, ids(s.xs))
}

func TestMoveKeepsOrder(t *testing.T) {
	s := NewSweepIndex()
	for i := 0; i < 5; i++ {
		s.Enter(fmt.Sprint(i), math32.NewVec2(float64(i*10), 0), nil)
	}
	assert.True(t, s.Move("0", math32.NewVec2(35, 5)))
	assertSorted(t, s)
	assert.Equal(t, []string{"1", "2", "3", "0", "4"}, ids(s.xs))

	assert.True(t, s.Move("4", math32.NewVec2(-1, 0)))
	assertSorted(t, s)
	assert.Equal(t, "4", s.xs[0].ID)

	assert.False(t, s.Move("missing", math32.ZeroVec2))
}

func TestNearby(t *testing.T) {
	s := NewSweepIndex()
	s.Enter("self", math32.NewVec2(0, 0), nil)
	s.Enter("close", math32.NewVec2(3, 4), nil)
	s.Enter("tie", math32.NewVec2(-5, 0), nil)
	s.Enter("corner", math32.NewVec2(8, 8), nil)
	s.Enter("far", math32.NewVec2(100, 0), nil)

	got := s.Nearby(math32.ZeroVec2, 10, "self")
	assert.Equal(t, []string{"close", "tie"}, ids(got))
}

func TestWithinStops(t *testing.T) {
	s := NewSweepIndex()
	for i := 0; i < 10; i++ {
		s.Enter(fmt.Sprint(i), math32.NewVec2(float64(i), 0), nil)
	}
	n := 0
	s.Within(math32.ZeroVec2, 100, func(*Item) bool {
		n++
		return n < 3
	})
	assert.Equal(t, 3, n)
}

func TestWithinMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := NewSweepIndex()
	pos := map[string]math32.Vec2{}
	for i := 0; i < 200; i++ {
		id := fmt.Sprint(i)
		p := math32.NewVec2(r.Float64()*1000, r.Float64()*1000)
		pos[id] = p
		s.Enter(id, p, nil)
	}
	for i := 0; i < 100; i++ {
		id := fmt.Sprint(r.Intn(200))
		p := pos[id].Add(math32.NewVec2(r.Float64()*60-30, r.Float64()*60-30))
		pos[id] = p
		s.Move(id, p)
	}
	assertSorted(t, s)

	for q := 0; q < 20; q++ {
		center := math32.NewVec2(r.Float64()*1000, r.Float64()*1000)
		radius := 50 + r.Float64()*150

		var want []string
		for id, p := range pos {
			if math32.Distance(center, p) <= radius {
				want = append(want, id)
			}
		}
		var got []string
		s.Within(center, radius, func(it *Item) bool {
			got = append(got, it.ID)
			return true
		})
		sort.Strings(want)
		sort.Strings(got)
		assert.Equal(t, want, got)
	}
}
