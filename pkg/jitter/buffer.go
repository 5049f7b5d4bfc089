// ABOUTME: Lock-free single-producer/single-consumer jitter buffer
// ABOUTME: Bounded FIFO handing frames from the network goroutine to the audio callback
package jitter

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Push when the buffer has no free slot
var ErrFull = errors.New("jitter: buffer full")

// cacheLine keeps the producer and consumer counters on separate cache lines
const cacheLine = 64

// ring is the shared storage. head is written only by the consumer and tail
// only by the producer; each side reads the other's counter atomically, so a
// slot is never read before its write is published and never overwritten
// before its read has completed.
type ring[T any] struct {
	slots []T
	size  uint64

	head atomic.Uint64 // next slot to read
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // next slot to write
	_    [cacheLine - 8]byte
}

// Producer is the write side of a buffer. It must be used by one goroutine.
type Producer[T any] struct {
	r *ring[T]
}

// Consumer is the read side of a buffer. It must be used by one goroutine.
type Consumer[T any] struct {
	r *ring[T]
}

// New creates a buffer holding up to capacity values and returns its two ends.
// A capacity below 1 is raised to 1.
func New[T any](capacity int) (*Producer[T], *Consumer[T]) {
	if capacity < 1 {
		capacity = 1
	}
	r := &ring[T]{
		slots: make([]T, capacity),
		size:  uint64(capacity),
	}
	return &Producer[T]{r: r}, &Consumer[T]{r: r}
}

func (r *ring[T]) len() int {
	// Load head first: tail only grows, so tail-head never underflows
	head := r.head.Load()
	tail := r.tail.Load()
	n := tail - head
	if n > r.size {
		n = r.size
	}
	return int(n)
}

// Push appends v without blocking. It returns ErrFull and drops v when the
// buffer is at capacity.
func (p *Producer[T]) Push(v T) error {
	r := p.r
	tail := r.tail.Load()
	if tail-r.head.Load() >= r.size {
		return ErrFull
	}
	r.slots[tail%r.size] = v
	r.tail.Store(tail + 1)
	return nil
}

// Len returns the approximate number of buffered values
func (p *Producer[T]) Len() int { return p.r.len() }

// Cap returns the buffer capacity
func (p *Producer[T]) Cap() int { return int(p.r.size) }

// Pop removes the oldest value without blocking. ok is false on underrun.
func (c *Consumer[T]) Pop() (v T, ok bool) {
	r := c.r
	head := r.head.Load()
	if head == r.tail.Load() {
		return v, false
	}
	v = r.slots[head%r.size]
	r.head.Store(head + 1)
	return v, true
}

// Discard drops up to n of the oldest values and returns how many were dropped
func (c *Consumer[T]) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	r := c.r
	head := r.head.Load()
	available := r.tail.Load() - head
	if uint64(n) > available {
		n = int(available)
	}
	r.head.Store(head + uint64(n))
	return n
}

// Len returns the approximate number of buffered values
func (c *Consumer[T]) Len() int { return c.r.len() }

// Cap returns the buffer capacity
func (c *Consumer[T]) Cap() int { return int(c.r.size) }
