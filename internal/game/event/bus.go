package event

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Handler receives events published on a channel it subscribed to.
type Handler func(Event)

// Subscription is the handle returned by Subscribe and consumed by Unsubscribe.
type Subscription struct {
	channel Channel
	id      uint64
}

// Channel reports the channel this subscription listens on.
func (s Subscription) Channel() Channel { return s.channel }

type registration struct {
	id      uint64
	handler Handler
	removed atomic.Bool
}

// Bus is a synchronous publish/subscribe registry. Handlers run inline, in
// subscription order, before Publish returns.
//
// Invariant: a handler unsubscribed during a dispatch is not invoked by the
// remainder of that dispatch.
type Bus struct {
	mu       sync.Mutex
	handlers map[Channel][]*registration
	nextID   uint64
	now      func() time.Time
	logger   *zap.Logger
}

// NewBus creates an empty Bus. A nil logger is replaced by a no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[Channel][]*registration),
		now:      time.Now,
		logger:   logger,
	}
}

// Subscribe registers h on ch.
//
// Precondition: h must be non-nil.
// Postcondition: h is invoked for every subsequent Publish on ch until unsubscribed.
func (b *Bus) Subscribe(ch Channel, h Handler) Subscription {
	if h == nil {
		panic("event: Subscribe called with nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[ch] = append(b.handlers[ch], &registration{id: b.nextID, handler: h})
	return Subscription{channel: ch, id: b.nextID}
}

// Unsubscribe removes the registration behind sub. Returns false when sub was
// already removed or never existed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[sub.channel]
	for i, r := range regs {
		if r.id != sub.id {
			continue
		}
		r.removed.Store(true)
		b.handlers[sub.channel] = append(regs[:i:i], regs[i+1:]...)
		return true
	}
	return false
}

// Publish delivers payload to every handler on ch and returns the envelope.
// A panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ch Channel, payload any) Event {
	b.mu.Lock()
	regs := make([]*registration, len(b.handlers[ch]))
	copy(regs, b.handlers[ch])
	b.mu.Unlock()

	evt := Event{ID: ulid.Make(), Channel: ch, Timestamp: b.now(), Payload: payload}
	for _, r := range regs {
		if r.removed.Load() {
			continue
		}
		b.dispatch(r, evt)
	}
	return evt
}

func (b *Bus) dispatch(r *registration, evt Event) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("event handler panicked",
				zap.String("channel", string(evt.Channel)),
				zap.Stringer("event_id", evt.ID),
				zap.Error(fmt.Errorf("%v", rec)),
			)
		}
	}()
	r.handler(evt)
}

// HandlerCount reports how many handlers are registered on ch.
func (b *Bus) HandlerCount(ch Channel) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[ch])
}

// On subscribes a typed handler. Events whose payload is not a T are ignored.
func On[T any](b *Bus, ch Channel, fn func(T)) Subscription {
	return b.Subscribe(ch, func(e Event) {
		if p, ok := e.Payload.(T); ok {
			fn(p)
		}
	})
}

// Subscriptions collects handles so a component can release them together at
// teardown.
type Subscriptions struct {
	bus  *Bus
	subs []Subscription
}

// NewSubscriptions binds a collector to bus.
func NewSubscriptions(bus *Bus) *Subscriptions {
	return &Subscriptions{bus: bus}
}

// Add records sub for later release.
func (s *Subscriptions) Add(sub Subscription) {
	s.subs = append(s.subs, sub)
}

// Close unsubscribes every recorded handle. Safe to call more than once.
func (s *Subscriptions) Close() {
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}
