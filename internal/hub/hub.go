package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tracklive/internal/metrics"
	"tracklive/internal/track"
)

const defaultBuffer = 16

// Snapshots provides the current state pushed to a subscriber on connect.
type Snapshots interface {
	Get(ctx context.Context, key string) (track.OrderState, error)
}

// Subscriber is one live viewer bound to a single order key. Updates are
// consumed from Updates; Done is closed once the hub lets go of the
// subscriber and no further updates will arrive.
type Subscriber struct {
	id   string
	key  string
	ch   chan track.Update
	done chan struct{}
	once sync.Once
}

func (s *Subscriber) ID() string  { return s.id }
func (s *Subscriber) Key() string { return s.key }

// Updates is the stream of state snapshots for the subscribed order.
func (s *Subscriber) Updates() <-chan track.Update { return s.ch }

// Done is closed when the hub drops the subscriber.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// send queues an update without blocking. It reports false when the
// subscriber is gone or its buffer is full.
func (s *Subscriber) send(u track.Update) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- u:
		return true
	case <-s.done:
		return false
	default:
		return false
	}
}

// Hub keeps the per-order subscriber sets and fans state updates out to
// them. A subscriber that cannot keep up is dropped rather than allowed to
// stall delivery to the others.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}

	snapshots Snapshots
	buffer    int
	log       *zap.Logger
}

func New(snapshots Snapshots, buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:      make(map[string]map[*Subscriber]struct{}),
		snapshots: snapshots,
		buffer:    buffer,
		log:       log.With(zap.String("component", "hub")),
	}
}

// Connect registers a new subscriber for key and queues the current state
// as its first update, so every viewer renders something immediately.
func (h *Hub) Connect(ctx context.Context, key string) (*Subscriber, error) {
	sub := &Subscriber{
		id:   uuid.NewString(),
		key:  key,
		ch:   make(chan track.Update, h.buffer),
		done: make(chan struct{}),
	}

	// The gauge moves together with registration; Disconnect decrements
	// only for subscribers it finds registered.
	h.mu.Lock()
	set := h.subs[key]
	if set == nil {
		set = make(map[*Subscriber]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	metrics.LiveSubscribers.Inc()
	h.mu.Unlock()

	st, err := h.snapshots.Get(ctx, key)
	if err != nil {
		h.Disconnect(sub)
		return nil, fmt.Errorf("snapshot for %q: %w", key, err)
	}
	sub.send(track.Update{Order: key, OrderState: st})

	h.log.Debug("subscriber connected",
		zap.String("order", key),
		zap.String("subscriber", sub.id))
	return sub, nil
}

// Disconnect removes the subscriber from its key set and wakes its
// consumer. Calling it more than once is harmless.
func (h *Hub) Disconnect(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	set := h.subs[sub.key]
	_, present := set[sub]
	if present {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.key)
		}
	}
	h.mu.Unlock()

	sub.close()
	if present {
		metrics.LiveSubscribers.Dec()
		h.log.Debug("subscriber disconnected",
			zap.String("order", sub.key),
			zap.String("subscriber", sub.id))
	}
}

// Broadcast delivers st to every subscriber of key. Delivery to one
// subscriber never blocks on another; whoever fails to take the update is
// dropped after the fan-out.
func (h *Hub) Broadcast(key string, st track.OrderState) {
	h.mu.RLock()
	targets := make([]*Subscriber, 0, len(h.subs[key]))
	for sub := range h.subs[key] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	metrics.BroadcastsTotal.Inc()

	u := track.Update{Order: key, OrderState: st}
	var dropped []*Subscriber
	for _, sub := range targets {
		if !sub.send(u) {
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		metrics.BroadcastFailuresTotal.Inc()
		h.log.Warn("dropping unresponsive subscriber",
			zap.String("order", key),
			zap.String("subscriber", sub.id))
		h.Disconnect(sub)
	}
}

// HasSubscribers reports whether any live viewer is watching key.
func (h *Hub) HasSubscribers(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key]) > 0
}
