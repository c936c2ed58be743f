package aoi

import (
	"sort"

	"github.com/tutumagi/soul/engine/math32"
)

// Item is one indexed entity
type Item struct {
	ID   string
	Pos  math32.Vec2
	Data interface{}

	index int
}

// SweepIndex keeps items sorted along the x axis. A radius query walks the
// sweep list from the first item inside [x-r, x+r] and filters by distance.
// Not safe for concurrent use.
type SweepIndex struct {
	xs   []*Item
	byID map[string]*Item
}

// NewSweepIndex creates an empty index
func NewSweepIndex() *SweepIndex {
	return &SweepIndex{byID: map[string]*Item{}}
}

// Len number of items
func (s *SweepIndex) Len() int {
	return len(s.xs)
}

// Get item by id
func (s *SweepIndex) Get(id string) (*Item, bool) {
	it, ok := s.byID[id]
	return it, ok
}

// Enter adds an item, an existing id is moved instead.
func (s *SweepIndex) Enter(id string, pos math32.Vec2, data interface{}) *Item {
	if it, ok := s.byID[id]; ok {
		it.Data = data
		s.Move(id, pos)
		return it
	}
	it := &Item{ID: id, Pos: pos, Data: data}
	i := sort.Search(len(s.xs), func(i int) bool { return s.xs[i].Pos.X > pos.X })
	s.xs = append(s.xs, nil)
	copy(s.xs[i+1:], s.xs[i:])
	s.xs[i] = it
	s.reindex(i, len(s.xs)-1)
	s.byID[id] = it
	return it
}

// Leave removes an item
func (s *SweepIndex) Leave(id string) bool {
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	i := it.index
	copy(s.xs[i:], s.xs[i+1:])
	s.xs[len(s.xs)-1] = nil
	s.xs = s.xs[:len(s.xs)-1]
	s.reindex(i, len(s.xs)-1)
	delete(s.byID, id)
	it.index = -1
	return true
}

// Move updates the position of an item. Positions change a little per tick,
// so the item is shifted toward its new slot instead of re-sorting.
func (s *SweepIndex) Move(id string, pos math32.Vec2) bool {
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	oldX := it.Pos.X
	it.Pos = pos
	i := it.index
	switch {
	case pos.X > oldX:
		for i+1 < len(s.xs) && s.xs[i+1].Pos.X < pos.X {
			s.xs[i] = s.xs[i+1]
			s.xs[i].index = i
			i++
		}
	case pos.X < oldX:
		for i > 0 && s.xs[i-1].Pos.X > pos.X {
			s.xs[i] = s.xs[i-1]
			s.xs[i].index = i
			i--
		}
	}
	s.xs[i] = it
	it.index = i
	return true
}

func (s *SweepIndex) reindex(from, to int) {
	for i := from; i <= to; i++ {
		s.xs[i].index = i
	}
}

// Within calls fn for every item at most radius away from center, in x
// order, until fn returns false.
func (s *SweepIndex) Within(center math32.Vec2, radius float64, fn func(*Item) bool) {
	minX, maxX := center.X-radius, center.X+radius
	i := sort.Search(len(s.xs), func(i int) bool { return s.xs[i].Pos.X >= minX })
	for ; i < len(s.xs) && s.xs[i].Pos.X <= maxX; i++ {
		it := s.xs[i]
		dy := it.Pos.Y - center.Y
		if dy > radius || dy < -radius {
			continue
		}
		if math32.Distance(center, it.Pos) <= radius {
			if !fn(it) {
				return
			}
		}
	}
}

// Nearby returns the items within radius of center, closest first, ties by
// id. exclude is skipped.
func (s *SweepIndex) Nearby(center math32.Vec2, radius float64, exclude string) []*Item {
	var out []*Item
	s.Within(center, radius, func(it *Item) bool {
		if it.ID != exclude {
			out = append(out, it)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		di, dj := math32.Distance(center, out[i].Pos), math32.Distance(center, out[j].Pos)
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
