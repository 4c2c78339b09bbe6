package pq

import (
	"cmp"
	"fmt"
	"slices"
)

// ApproximateSelect returns a key whose rank r (1-based, counting ties
// once per element) satisfies k <= r <= k+ε·n. It deletes k items from a
// soft heap holding all keys and returns the largest original key among
// them. Any item left behind with a smaller key must have been corrupted.
func ApproximateSelect[K cmp.Ordered](keys []K, k int, epsilon float64) (K, error) {
	var zero K
	if k < 1 || k > len(keys) {
		return zero, fmt.Errorf("pq.ApproximateSelect: k=%d out of range [1, %d]", k, len(keys))
	}
	h, err := New[K, struct{}](epsilon)
	if err != nil {
		return zero, err
	}
	for _, key := range keys {
		h.Insert(key, struct{}{})
	}
	best, _, err := h.DeleteMin()
	if err != nil {
		return zero, err
	}
	for i := 1; i < k; i++ {
		it, _, err := h.DeleteMin()
		if err != nil {
			return zero, err
		}
		if it.Key > best.Key {
			best = it
		}
	}
	return best.Key, nil
}

const selectCutoff = 16

// Select returns the k-th smallest key (1-based) in linear time, using
// soft heap pivots with ε = 1/3 to discard a constant fraction per round.
func Select[K cmp.Ordered](keys []K, k int) (K, error) {
	var zero K
	if k < 1 || k > len(keys) {
		return zero, fmt.Errorf("pq.Select: k=%d out of range [1, %d]", k, len(keys))
	}
	work := slices.Clone(keys)
	for {
		if len(work) <= selectCutoff {
			slices.Sort(work)
			return work[k-1], nil
		}
		pivot, err := ApproximateSelect(work, max(1, len(work)/3), 1.0/3)
		if err != nil {
			return zero, err
		}
		var less, greater []K
		equal := 0
		for _, v := range work {
			switch {
			case v < pivot:
				less = append(less, v)
			case v > pivot:
				greater = append(greater, v)
			default:
				equal++
			}
		}
		switch {
		case k <= len(less):
			work = less
		case k <= len(less)+equal:
			return pivot, nil
		default:
			k -= len(less) + equal
			work = greater
		}
	}
}
