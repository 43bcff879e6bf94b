// Package quote holds live market quotes that rate helpers read at solve time.
package quote

import (
	"fmt"
	"math"
	"sync"
)

// Quote is a read-only view of a market value.
type Quote interface {
	Value() float64
}

// SimpleQuote is a settable quote with a change signal.
//
// Subscribers receive an empty struct on a buffered channel after every
// change; notifications coalesce when a subscriber is slow.
type SimpleQuote struct {
	mu      sync.RWMutex
	value   float64
	version uint64
	subs    []chan struct{}
}

// NewSimpleQuote creates a quote with an initial value. Non-finite values are rejected.
func NewSimpleQuote(v float64) (*SimpleQuote, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("quote: non-finite value %v", v)
	}
	return &SimpleQuote{value: v}, nil
}

// MustSimpleQuote is NewSimpleQuote for literals.
func MustSimpleQuote(v float64) *SimpleQuote {
	q, err := NewSimpleQuote(v)
	if err != nil {
		panic(err)
	}
	return q
}

// Value returns the current value.
func (q *SimpleQuote) Value() float64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.value
}

// Version increments on every effective change.
func (q *SimpleQuote) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// Set stores v and notifies subscribers. It reports whether the value changed.
func (q *SimpleQuote) Set(v float64) (bool, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false, fmt.Errorf("quote: non-finite value %v", v)
	}
	q.mu.Lock()
	if q.value == v {
		q.mu.Unlock()
		return false, nil
	}
	q.value = v
	q.version++
	subs := append([]chan struct{}(nil), q.subs...)
	q.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true, nil
}

// Subscribe returns a channel signalled after each change and a function that
// stops the notifications. The channel is never closed.
func (q *SimpleQuote) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	q.mu.Lock()
	q.subs = append(q.subs, ch)
	q.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			for i, c := range q.subs {
				if c == ch {
					q.subs = append(q.subs[:i], q.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers is the number of active subscriptions.
func (q *SimpleQuote) Subscribers() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.subs)
}
