package game

import (
	"runtime"
	"sync/atomic"
)

// cacheLinePad prevents false sharing between the producer and consumer cursors.
type cacheLinePad [64]byte

// Ring is a bounded multi-producer single-consumer queue.
// Producers never block: TryPush fails when the ring is full.
type Ring[T any] struct {
	_     cacheLinePad
	head  uint64 // next write position (producers)
	_     cacheLinePad
	tail  uint64 // next read position (single consumer)
	_     cacheLinePad
	mask  uint64
	slots []ringSlot[T]
}

type ringSlot[T any] struct {
	seq  uint64 // atomic: published sequence
	item T
}

// NewRing creates a ring with capacity rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	size := 1
	for size < capacity {
		size <<= 1
	}
	r := &Ring[T]{
		mask:  uint64(size - 1),
		slots: make([]ringSlot[T], size),
	}
	for i := range r.slots {
		r.slots[i].seq = uint64(i)
	}
	return r
}

// TryPush appends item, returning false when the ring is full.
func (r *Ring[T]) TryPush(item T) bool {
	for {
		head := atomic.LoadUint64(&r.head)
		slot := &r.slots[head&r.mask]
		seq := atomic.LoadUint64(&slot.seq)

		switch {
		case seq == head:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				slot.item = item
				atomic.StoreUint64(&slot.seq, head+1)
				return true
			}
		case seq < head:
			return false // full: consumer has not freed this slot yet
		}
		runtime.Gosched()
	}
}

// TryPop removes the oldest item. Single consumer only.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	tail := r.tail
	slot := &r.slots[tail&r.mask]
	if atomic.LoadUint64(&slot.seq) != tail+1 {
		return zero, false
	}
	item := slot.item
	slot.item = zero
	atomic.StoreUint64(&slot.seq, tail+r.mask+1)
	atomic.StoreUint64(&r.tail, tail+1)
	return item, true
}

// DrainTo pops up to len(buf) items into buf and returns the count.
func (r *Ring[T]) DrainTo(buf []T) int {
	n := 0
	for n < len(buf) {
		item, ok := r.TryPop()
		if !ok {
			break
		}
		buf[n] = item
		n++
	}
	return n
}

// Len returns the approximate number of queued items.
func (r *Ring[T]) Len() int {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head < tail {
		return 0
	}
	return int(head - tail)
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return int(r.mask + 1)
}
