package provider

import (
	"context"
	"sync"
	"time"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
)

const (
	// DefaultErrorCapacity is how many recent errors an ErrorContext keeps
	DefaultErrorCapacity = 50
	// SubscriberChannelBufferSize is the buffer size for subscriber channels
	SubscriberChannelBufferSize = 16
)

// ErrorRecord is one failed client operation
type ErrorRecord struct {
	Operation string    `json:"operation"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Time      time.Time `json:"time"`
	Err       error     `json:"-"`
}

// ErrorContext is the application-wide view of client failures. It keeps a
// bounded ring of recent errors and fans each new one out to subscribers.
type ErrorContext struct {
	mu          sync.RWMutex
	ring        []ErrorRecord
	next        int
	full        bool
	subscribers []chan ErrorRecord
	closed      bool
	now         func() time.Time
}

// NewErrorContext creates an ErrorContext holding at most capacity records
func NewErrorContext(capacity int) *ErrorContext {
	if capacity <= 0 {
		capacity = DefaultErrorCapacity
	}
	return &ErrorContext{
		ring: make([]ErrorRecord, capacity),
		now:  time.Now,
	}
}

// Report records err. Its signature matches gqlclient.ErrorHandler.
func (e *ErrorContext) Report(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	rec := ErrorRecord{
		Operation: operation,
		Code:      errors.Code(err),
		Message:   err.Error(),
		RequestID: logger.RequestIDFromContext(ctx),
		Time:      e.now().UTC(),
		Err:       err,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ring[e.next] = rec
	e.next = (e.next + 1) % len(e.ring)
	if e.next == 0 {
		e.full = true
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- rec:
		default:
			// slow subscriber, drop
		}
	}
}

// Recent returns the retained records, oldest first
func (e *ErrorContext) Recent() []ErrorRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.full {
		return append([]ErrorRecord(nil), e.ring[:e.next]...)
	}
	out := make([]ErrorRecord, 0, len(e.ring))
	out = append(out, e.ring[e.next:]...)
	return append(out, e.ring[:e.next]...)
}

// Last returns the most recent record
func (e *ErrorContext) Last() (ErrorRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.full && e.next == 0 {
		return ErrorRecord{}, false
	}
	i := (e.next - 1 + len(e.ring)) % len(e.ring)
	return e.ring[i], true
}

// Len reports how many records are retained
func (e *ErrorContext) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.full {
		return len(e.ring)
	}
	return e.next
}

// Clear drops all retained records. Subscribers stay registered.
func (e *ErrorContext) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ring = make([]ErrorRecord, len(e.ring))
	e.next = 0
	e.full = false
}

// Subscribe returns a channel receiving every new record. The channel is
// closed when the ErrorContext is closed; after that Subscribe returns a
// closed channel.
func (e *ErrorContext) Subscribe() <-chan ErrorRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan ErrorRecord, SubscriberChannelBufferSize)
	if e.closed {
		close(ch)
		return ch
	}
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Unsubscribe stops delivery to ch and closes it
func (e *ErrorContext) Unsubscribe(ch <-chan ErrorRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subscribers {
		if sub == ch {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// close releases every subscriber. Records stay readable.
func (e *ErrorContext) close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, ch := range e.subscribers {
		close(ch)
	}
	e.subscribers = nil
}
