package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tracklive/internal/hub"
	"tracklive/internal/journal"
	"tracklive/internal/metrics"
	"tracklive/internal/store"
	"tracklive/internal/track"
)

// Rejection reasons reported back to webhook callers.
const (
	ReasonNoKey      = "no key"
	ReasonStoreError = "store error"
)

// Result is the outcome of processing one webhook event. Accepted is false
// when the event carried no recognizable order key or the merge failed; the
// caller still answers 200 so the sender does not retry.
type Result struct {
	Accepted bool   `json:"accepted"`
	Order    string `json:"order,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Engine ties the normalizer, the order store, the broadcast hub and the
// journal together. All mutations and new subscriptions for one order key
// are serialized, so subscribers observe merges in commit order.
type Engine struct {
	store   store.Store
	hub     *hub.Hub
	journal *journal.Journal
	log     *zap.Logger
	locks   *keyMutex
}

func New(st store.Store, h *hub.Hub, jr *journal.Journal, log *zap.Logger) *Engine {
	return &Engine{
		store:   st,
		hub:     h,
		journal: jr,
		log:     log.With(zap.String("component", "engine")),
		locks:   newKeyMutex(),
	}
}

// ProcessEvent runs one already-authenticated webhook payload through
// normalize, merge and broadcast. Events without an order key are dropped;
// everything else merges, even when no field is recognized.
func (e *Engine) ProcessEvent(ctx context.Context, payload map[string]any) Result {
	key, patch, label, ok := track.Normalize(payload)
	if !ok {
		metrics.EventsRejectedTotal.WithLabelValues("no_key").Inc()
		e.log.Debug("event without order key ignored")
		return Result{Accepted: false, Reason: ReasonNoKey}
	}

	unlock := e.locks.lock(key)
	defer unlock()

	st, err := e.store.Merge(ctx, key, patch, label)
	if err != nil {
		metrics.EventsRejectedTotal.WithLabelValues("store").Inc()
		e.log.Error("merge failed", zap.String("order", key), zap.Error(err))
		return Result{Accepted: false, Order: key, Reason: ReasonStoreError}
	}
	e.hub.Broadcast(key, st)
	e.record(key, st)

	metrics.EventsProcessedTotal.Inc()
	e.log.Info("event processed",
		zap.String("order", key),
		zap.String("status", string(st.Status)))
	return Result{Accepted: true, Order: key}
}

// QueryState returns the current state for key. Unknown keys and store
// failures both come back as the pending view; viewers never see an error.
func (e *Engine) QueryState(ctx context.Context, key string) track.OrderState {
	st, err := e.store.Get(ctx, key)
	if err != nil {
		e.log.Error("query failed, serving pending view",
			zap.String("order", key), zap.Error(err))
		return track.Pending()
	}
	return st
}

// MockEvent injects a raw status for key the way a real webhook would.
// Unrecognized text merges an empty patch, which only refreshes the
// timestamp.
func (e *Engine) MockEvent(ctx context.Context, key, rawStatus string) (track.OrderState, error) {
	var patch track.Patch
	var label string
	if status, ok := track.Classify(rawStatus); ok {
		patch.Status = &status
		label = track.Label(status)
	}

	unlock := e.locks.lock(key)
	defer unlock()

	st, err := e.store.Merge(ctx, key, patch, label)
	if err != nil {
		return track.OrderState{}, fmt.Errorf("mock merge for %q: %w", key, err)
	}
	e.hub.Broadcast(key, st)
	e.record(key, st)

	e.log.Info("mock event injected",
		zap.String("order", key),
		zap.String("raw_status", rawStatus),
		zap.String("status", string(st.Status)))
	return st, nil
}

// Subscribe opens a live update stream on key. The subscriber comes back
// with the connection-time snapshot already queued, and no merge for the
// key can slip between that snapshot and the first broadcast.
func (e *Engine) Subscribe(ctx context.Context, key string) (*hub.Subscriber, error) {
	unlock := e.locks.lock(key)
	defer unlock()
	return e.hub.Connect(ctx, key)
}

// Unsubscribe drops the subscriber from the hub.
func (e *Engine) Unsubscribe(sub *hub.Subscriber) {
	e.hub.Disconnect(sub)
}

// Janitor evicts orders idle for longer than ttl every interval, keeping
// any key that still has live viewers. It blocks until ctx is done; a ttl
// of zero disables sweeping entirely.
func (e *Engine) Janitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := e.store.Sweep(ctx, time.Now().Add(-ttl), e.hub.HasSubscribers)
			if err != nil {
				e.log.Error("sweep failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				e.log.Info("evicted idle orders", zap.Int("count", len(removed)))
			}
		}
	}
}

func (e *Engine) record(key string, st track.OrderState) {
	if e.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:     uuid.NewString(),
		Order:  key,
		Status: st.Status,
		At:     time.Now(),
	}
	if st.UpdatedAt != nil {
		entry.At = *st.UpdatedAt
	}
	e.journal.Record(entry)
}
