// Package broadcast fans out new query log entries to live subscribers. The
// broadcaster is an explicit instance handed to publishers and subscribers;
// there is no package-level state.
package broadcast

import (
	"sync"

	"go.uber.org/zap"

	"github.com/notely/assist/internal/models"
)

// Subscriber is one open streaming connection. Entries arrive on C until
// Unsubscribe, which closes it.
type Subscriber struct {
	C chan *models.QueryLogEntry

	id    uint64
	close sync.Once
}

// Broadcaster delivers each published entry to every connected subscriber.
// A slow subscriber never blocks publishing: when its buffer is full the
// entry is dropped for that subscriber only.
type Broadcaster struct {
	logger  *zap.Logger
	bufSize int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscriber
	closed bool
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Broadcaster) {
		b.logger = logger
	}
}

// NewBroadcaster creates a broadcaster whose subscribers each buffer up to
// bufSize entries.
func NewBroadcaster(bufSize int, opts ...Option) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 16
	}
	b := &Broadcaster{
		logger:  zap.NewNop(),
		bufSize: bufSize,
		subs:    make(map[uint64]*Subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber. Returns nil after Close.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	sub := &Subscriber{
		C:  make(chan *models.QueryLogEntry, b.bufSize),
		id: b.nextID,
	}
	b.nextID++
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call more than
// once and safe concurrently with Publish.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()
	// Taking the write lock waited out any Publish mid-iteration, and later
	// publishes no longer see the subscriber, so closing here cannot race a
	// send.
	sub.close.Do(func() { close(sub.C) })
}

// Publish delivers entry to every current subscriber. Non-blocking: full
// buffers drop the entry for that subscriber.
func (b *Broadcaster) Publish(entry *models.QueryLogEntry) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.C <- entry:
		default:
			b.logger.Warn("subscriber buffer full, dropping entry",
				zap.Uint64("subscriber", sub.id),
				zap.String("entry_id", entry.ID))
		}
	}
}

// Count returns the number of connected subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects all subscribers and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.close.Do(func() { close(sub.C) })
	}
}
