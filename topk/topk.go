// Package topk implements the bounded top-K selection used by search.
//
// The selector is a fixed-capacity min-heap keyed by score: while below
// capacity every candidate is admitted, afterwards a candidate only enters
// by evicting the current minimum when its score is strictly greater.
// Ties keep whichever candidate reached the heap first; the relative order
// of equal scores in the drained output is not guaranteed.
package topk

import "github.com/hupe1980/vectra/record"

// Item is a scored candidate held by the selector.
type Item struct {
	Score  float64
	Record record.Record
}

// Selector retains the K highest-scoring candidates seen so far.
type Selector struct {
	k     int
	items []Item
}

// New creates a selector with capacity k. k must be positive.
func New(k int) *Selector {
	if k < 1 {
		k = 1
	}
	return &Selector{
		k:     k,
		items: make([]Item, 0, k),
	}
}

// Push offers a candidate to the selector.
func (s *Selector) Push(rec record.Record, score float64) {
	if len(s.items) < s.k {
		s.items = append(s.items, Item{Score: score, Record: rec})
		s.siftUp(len(s.items) - 1)
		return
	}
	// Full: replace the minimum only when strictly better.
	if score > s.items[0].Score {
		s.items[0] = Item{Score: score, Record: rec}
		s.siftDown(0)
	}
}

// Len returns the number of candidates currently held.
func (s *Selector) Len() int {
	return len(s.items)
}

// Results drains the selector and returns the retained candidates in
// descending score order. The selector is empty afterwards.
func (s *Selector) Results() []Item {
	out := make([]Item, len(s.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = s.pop()
	}
	return out
}

func (s *Selector) pop() (Item, bool) {
	n := len(s.items)
	if n == 0 {
		return Item{}, false
	}
	item := s.items[0]
	s.items[0] = s.items[n-1]
	s.items = s.items[:n-1]
	if len(s.items) > 0 {
		s.siftDown(0)
	}
	return item, true
}

func (s *Selector) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if s.items[i].Score >= s.items[parent].Score {
			break
		}
		s.items[i], s.items[parent] = s.items[parent], s.items[i]
		i = parent
	}
}

func (s *Selector) siftDown(i int) {
	n := len(s.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && s.items[right].Score < s.items[left].Score {
			child = right
		}
		if s.items[child].Score >= s.items[i].Score {
			break
		}
		s.items[i], s.items[child] = s.items[child], s.items[i]
		i = child
	}
}
