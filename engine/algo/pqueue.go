package algo

import "container/heap"

// Item is an element of PriorityQueue. It remembers its own heap index so the
// queue can change its priority or remove it in O(log n).
type Item struct {
	Value    interface{}
	Priority float64

	seq   uint64
	index int
}

// NewItem ctor
func NewItem(value interface{}, priority float64) *Item {
	return &Item{Value: value, Priority: priority, index: -1}
}

// PriorityQueue is a min-heap on Item.Priority. Items with equal priority are
// served in insertion order. It is not goroutine safe.
type PriorityQueue struct {
	h   _Heap
	seq uint64
}

// NewPriorityQueue ctor
func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

// Len number of queued items
func (q *PriorityQueue) Len() int {
	return len(q.h)
}

// Contains reports whether item is currently queued in q.
func (q *PriorityQueue) Contains(item *Item) bool {
	return item != nil && item.index >= 0 && item.index < len(q.h) && q.h[item.index] == item
}

// Push adds item to the queue. Pushing an item that is already queued only
// updates its priority.
func (q *PriorityQueue) Push(item *Item) {
	if q.Contains(item) {
		q.Update(item, item.Priority)
		return
	}
	q.seq++
	item.seq = q.seq
	heap.Push(&q.h, item)
}

// PushValue wraps value in a new item and queues it.
func (q *PriorityQueue) PushValue(value interface{}, priority float64) *Item {
	item := NewItem(value, priority)
	q.Push(item)
	return item
}

// Pop removes and returns the item with the lowest priority, nil if empty.
func (q *PriorityQueue) Pop() *Item {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Item)
}

// Peek returns the item with the lowest priority without removing it.
func (q *PriorityQueue) Peek() *Item {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

// Update changes the priority of a queued item in place. The item keeps its
// insertion order among equal priorities. Returns false if item is not queued.
func (q *PriorityQueue) Update(item *Item, priority float64) bool {
	if !q.Contains(item) {
		return false
	}
	item.Priority = priority
	heap.Fix(&q.h, item.index)
	return true
}

// Remove drops item from the queue, false if it was not queued.
func (q *PriorityQueue) Remove(item *Item) bool {
	if !q.Contains(item) {
		return false
	}
	heap.Remove(&q.h, item.index)
	return true
}

type _Heap []*Item

func (h _Heap) Len() int { return len(h) }

func (h _Heap) Less(i, j int) bool {
	if h[i].Priority == h[j].Priority {
		return h[i].seq < h[j].seq
	}
	return h[i].Priority < h[j].Priority
}

func (h _Heap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *_Heap) Push(x interface{}) {
	item := x.(*Item)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *_Heap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
