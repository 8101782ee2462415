// Package queue implements the single-consumer application event queue.
//
// Producers (timers, foreign goroutines) post tagged messages without
// blocking; exactly one goroutine drains the queue and is therefore the only
// code that re-enters the transport core.
package queue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/sbdt/transport"
)

var (
	// ErrQueueFull is returned by Post when the queue is at capacity.
	ErrQueueFull = errors.New("event queue full")
	// ErrQueueClosed is returned by Post after Close.
	ErrQueueClosed = errors.New("event queue closed")
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 32

// Kind tags a Message.
type Kind uint8

const (
	// KindReleaseBuffer hands a data buffer back to the core.
	KindReleaseBuffer Kind = iota + 1
	// KindFinalizeResponse acknowledges a finalize request.
	KindFinalizeResponse
	// KindCancel cancels a transfer from the application side.
	KindCancel
	// KindCall runs an arbitrary closure on the consumer.
	KindCall
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindReleaseBuffer:
		return "release_buffer"
	case KindFinalizeResponse:
		return "finalize_response"
	case KindCancel:
		return "cancel"
	case KindCall:
		return "call"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Message is one queued event. Only the fields relevant to Kind are set.
type Message struct {
	Kind   Kind
	FileID uint32
	Buffer transport.Buffer
	Status transport.FinalStatus
	Reason transport.RejectReason
	Call   func()
	// Done, when set, runs after the consumer has handled the message.
	Done func()
}

// Queue is a bounded FIFO with non-blocking producers.
type Queue struct {
	ch     chan Message
	mu     sync.RWMutex
	closed bool
}

// New creates a queue holding at most capacity pending messages.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan Message, capacity)}
}

// Post enqueues msg without blocking.
func (q *Queue) Post(msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropping %s for file %d", ErrQueueFull, msg.Kind, msg.FileID)
	}
}

// TryNext dequeues one message if any is pending.
func (q *Queue) TryNext() (Message, bool) {
	select {
	case msg := <-q.ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// C exposes the receive side for select loops.
func (q *Queue) C() <-chan Message {
	return q.ch
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close makes further posts fail. Pending messages can still be drained.
// The channel itself is never closed so racing producers cannot panic.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// Closed reports whether Close was called.
func (q *Queue) Closed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
