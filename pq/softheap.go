// Package pq provides approximate priority queues.
package pq

import (
	"cmp"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmpty is returned when removing from or peeking an empty heap.
	ErrEmpty = errors.New("pq: empty heap")
	// ErrEpsilon rejects error rates outside (0, 1/2].
	ErrEpsilon = errors.New("pq: epsilon must be in (0, 0.5]")
)

// Item is an element with its original key.
type Item[K cmp.Ordered, V any] struct {
	Key   K
	Value V
}

type node[K cmp.Ordered, V any] struct {
	ckey  K
	rank  int
	size  int
	left  *node[K, V]
	right *node[K, V]
	items []Item[K, V]
}

func (x *node[K, V]) leaf() bool {
	return x.left == nil && x.right == nil
}

// SoftHeap is a soft heap: DeleteMin and FindMin run in amortised constant
// time, Insert in O(log 1/ε), at the price of "corrupting" keys. An item
// may be reported with a current key (ckey) above its own key; at most εn
// items are corrupted at any time, n being the number of insertions.
//
// Nodes up to the threshold rank hold a single item and are exact, so a
// small enough ε yields an exact heap.
type SoftHeap[K cmp.Ordered, V any] struct {
	epsilon   float64
	threshold int
	roots     []*node[K, V] // roots[r] is the root of rank r, or nil
	n         int
	inserted  int
}

// New returns an empty soft heap with error rate epsilon.
func New[K cmp.Ordered, V any](epsilon float64) (*SoftHeap[K, V], error) {
	if !(epsilon > 0 && epsilon <= 0.5) {
		return nil, fmt.Errorf("pq.New: %g: %w", epsilon, ErrEpsilon)
	}
	return &SoftHeap[K, V]{
		epsilon:   epsilon,
		threshold: int(math.Ceil(math.Log2(6 / epsilon))),
	}, nil
}

// Epsilon is the configured error rate.
func (h *SoftHeap[K, V]) Epsilon() float64 { return h.epsilon }

// Len is the number of items held.
func (h *SoftHeap[K, V]) Len() int { return h.n }

// Insert adds an item.
func (h *SoftHeap[K, V]) Insert(key K, value V) {
	h.carry(&node[K, V]{
		ckey:  key,
		size:  1,
		items: []Item[K, V]{{Key: key, Value: value}},
	})
	h.n++
	h.inserted++
}

// carry links x into the root list, combining equal ranks upward.
func (h *SoftHeap[K, V]) carry(x *node[K, V]) {
	r := x.rank
	for {
		for len(h.roots) <= r {
			h.roots = append(h.roots, nil)
		}
		if h.roots[r] == nil {
			h.roots[r] = x
			return
		}
		x = h.combine(h.roots[r], x)
		h.roots[r] = nil
		r++
	}
}

func (h *SoftHeap[K, V]) combine(x, y *node[K, V]) *node[K, V] {
	z := &node[K, V]{rank: x.rank + 1, left: x, right: y, size: 1}
	if z.rank > h.threshold {
		z.size = (3*x.size + 1) / 2
	}
	h.sift(z)
	return z
}

// sift refills x's item list from its children until it reaches x.size or
// x becomes a leaf. Emptied leaf children are dropped.
func (h *SoftHeap[K, V]) sift(x *node[K, V]) {
	for len(x.items) < x.size && !x.leaf() {
		if x.left == nil || (x.right != nil && x.right.ckey < x.left.ckey) {
			x.left, x.right = x.right, x.left
		}
		x.items = append(x.items, x.left.items...)
		x.ckey = x.left.ckey
		x.left.items = nil
		if x.left.leaf() {
			x.left = nil
		} else {
			h.sift(x.left)
		}
	}
}

func (h *SoftHeap[K, V]) minRoot() int {
	best := -1
	for r, x := range h.roots {
		if x != nil && (best < 0 || x.ckey < h.roots[best].ckey) {
			best = r
		}
	}
	return best
}

// FindMin returns an item with the smallest current key without removing it.
func (h *SoftHeap[K, V]) FindMin() (Item[K, V], K, error) {
	var zero K
	if h.n == 0 {
		return Item[K, V]{}, zero, ErrEmpty
	}
	x := h.roots[h.minRoot()]
	return x.items[len(x.items)-1], x.ckey, nil
}

// DeleteMin removes and returns an item with the smallest current key,
// together with that current key. The item's own Key is never larger.
func (h *SoftHeap[K, V]) DeleteMin() (Item[K, V], K, error) {
	var zero K
	if h.n == 0 {
		return Item[K, V]{}, zero, ErrEmpty
	}
	r := h.minRoot()
	x := h.roots[r]
	last := len(x.items) - 1
	it, ckey := x.items[last], x.ckey
	x.items[last] = Item[K, V]{}
	x.items = x.items[:last]

	if len(x.items) == 0 {
		if x.leaf() {
			h.roots[r] = nil
			h.trim()
		} else {
			h.sift(x)
		}
	}
	h.n--
	return it, ckey, nil
}

func (h *SoftHeap[K, V]) trim() {
	for len(h.roots) > 0 && h.roots[len(h.roots)-1] == nil {
		h.roots = h.roots[:len(h.roots)-1]
	}
}

// Meld moves every item of other into h, leaving other empty. Both heaps
// must share the same error rate.
func (h *SoftHeap[K, V]) Meld(other *SoftHeap[K, V]) error {
	if other == nil || other == h {
		return nil
	}
	if other.epsilon != h.epsilon {
		return fmt.Errorf("pq.Meld: epsilon %g and %g differ", h.epsilon, other.epsilon)
	}
	for _, x := range other.roots {
		if x != nil {
			h.carry(x)
		}
	}
	h.n += other.n
	h.inserted += other.inserted
	other.roots, other.n, other.inserted = nil, 0, 0
	return nil
}

// Corrupted counts items whose current key exceeds their own key.
func (h *SoftHeap[K, V]) Corrupted() int {
	count := 0
	var walk func(x *node[K, V])
	walk = func(x *node[K, V]) {
		if x == nil {
			return
		}
		for _, it := range x.items {
			if it.Key < x.ckey {
				count++
			}
		}
		walk(x.left)
		walk(x.right)
	}
	for _, x := range h.roots {
		walk(x)
	}
	return count
}

// Inserted is the number of insertions, including melded ones.
func (h *SoftHeap[K, V]) Inserted() int { return h.inserted }
