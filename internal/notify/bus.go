// Package notify carries operator-facing notices (warnings, transport
// errors) from the components that talk to the backend to whatever
// surface displays them.
package notify

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Source describes which component produced a notice.
type Source string

const (
	SourceResolver Source = "runtime_resolver"
	SourcePipeline Source = "request_pipeline"
	SourceConsole  Source = "console"
)

// Notice is a single operator-facing message.
type Notice struct {
	ID        string
	Severity  Severity
	Source    Source
	Message   string
	Timestamp time.Time
}

const defaultBuffer = 64

// Bus fans notices out to subscribers. Publishing never blocks; when a
// subscriber's channel is full the notice is dropped for that subscriber
// and the drop is logged.
type Bus struct {
	logger *log.Logger
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
}

// BusOption customises bus behaviour.
type BusOption func(*Bus)

// WithLogger overrides the logger used for drop warnings.
func WithLogger(logger *log.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBuffer sets the channel buffer for new subscriptions.
func WithBuffer(size int) BusOption {
	return func(b *Bus) {
		if size > 0 {
			b.buffer = size
		}
	}
}

// New constructs a bus.
func New(opts ...BusOption) *Bus {
	bus := &Bus{
		logger: log.Default(),
		subs:   make(map[uint64]*Subscription),
		buffer: defaultBuffer,
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Publish delivers a notice to all subscribers. A nil bus is a no-op so
// components can treat the bus as optional.
func (b *Bus) Publish(severity Severity, source Source, message string) {
	if b == nil {
		return
	}
	n := Notice{
		ID:        uuid.NewString(),
		Severity:  severity,
		Source:    source,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.deliver(n, b.logger)
	}
}

// Warnf publishes a formatted warning notice.
func (b *Bus) Warnf(source Source, format string, args ...any) {
	b.Publish(SeverityWarning, source, fmt.Sprintf(format, args...))
}

// Errorf publishes a formatted error notice.
func (b *Bus) Errorf(source Source, format string, args ...any) {
	b.Publish(SeverityError, source, fmt.Sprintf(format, args...))
}

// Subscribe registers a consumer. If b is nil the returned Subscription
// has a closed channel and Close is a no-op.
func (b *Bus) Subscribe() *Subscription {
	if b == nil {
		ch := make(chan Notice)
		close(ch)
		sub := &Subscription{ch: ch}
		sub.closed.Store(true)
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		ch:  make(chan Notice, b.buffer),
		bus: b,
	}
	b.subs[sub.id] = sub
	return sub
}

// Shutdown closes every subscription. A nil bus is a no-op.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		sub.closeLocked()
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		sub.closeLocked()
		delete(b.subs, id)
	}
}

// Subscription represents a consumer listening for notices.
type Subscription struct {
	id      uint64
	ch      chan Notice
	bus     *Bus
	closed  atomic.Bool
	dropped atomic.Uint64
}

// C exposes the notice channel. It is closed when the subscription closes.
func (s *Subscription) C() <-chan Notice {
	return s.ch
}

// Close removes the subscription and closes the channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	if s.bus == nil {
		return
	}
	s.bus.unsubscribe(s.id)
}

// Dropped reports how many notices were discarded because the channel
// was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) closeLocked() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

func (s *Subscription) deliver(n Notice, logger *log.Logger) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- n:
	default:
		dropped := s.dropped.Add(1)
		if logger != nil {
			logger.Printf("[Notify] subscriber %d full, dropped notice (total %d)", s.id, dropped)
		}
	}
}
