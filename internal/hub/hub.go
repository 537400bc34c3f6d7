package hub

import (
	"log/slog"
	"sync"

	"github.com/ghanabus/bustracker/track"
)

// Subscriber is one connected push-channel endpoint eligible for broadcasts.
//
// Implementations wrap a transport connection (the server wraps a
// websocket). Send must be safe for concurrent use; Ready reports whether
// the channel is still in an open state. A subscriber is never reused after
// it has been detached.
type Subscriber interface {
	// ID identifies the subscriber for registry bookkeeping and logs.
	ID() string

	// Ready reports whether the channel can currently accept a send.
	Ready() bool

	// Send delivers one message. An error marks a transient delivery
	// failure; the hub logs it and moves on.
	Send(msg track.Message) error
}

// Hub is the subscriber registry.
//
// Attach and Detach are idempotent and never fail. Broadcast iterates all
// registered subscribers under the registry lock, mirroring the single
// logical timeline of the design: an attach cannot interleave between a
// state replacement and the broadcast that follows it.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]Subscriber
	logger *slog.Logger

	onCountChange func(n int)
}

// New creates an empty Hub. onCountChange, if non-nil, observes the
// registry size after every attach/detach (used for the clients gauge).
func New(logger *slog.Logger, onCountChange func(n int)) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:          make(map[string]Subscriber),
		logger:        logger,
		onCountChange: onCountChange,
	}
}

// Attach sends the subscriber exactly one INITIAL_DATA message carrying
// snapshot, then registers it for future broadcasts.
//
// The one-time snapshot goes out before registration so the subscriber's
// first observation is always a consistent full state, never a partial
// diff. Attaching an already-registered subscriber is a no-op.
func (h *Hub) Attach(sub Subscriber, snapshot track.VehicleState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.ID()]; ok {
		return
	}

	if sub.Ready() {
		if err := sub.Send(track.NewInitialData(snapshot)); err != nil {
			h.logger.Warn("initial snapshot send failed",
				"subscriber", sub.ID(),
				"error", err,
			)
		}
	}

	h.subs[sub.ID()] = sub
	h.logger.Info("subscriber attached", "subscriber", sub.ID(), "active", len(h.subs))
	h.notifyCount()
}

// Detach removes the subscriber with the given ID. Safe to call for an
// unknown or already-detached subscriber.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	h.logger.Info("subscriber detached", "subscriber", id, "active", len(h.subs))
	h.notifyCount()
}

// Broadcast delivers msg to every currently-ready subscriber.
//
// Subscribers that are not ready are skipped silently, not removed: the
// transport dispatches the close event that triggers Detach. A failed send
// is logged and the iteration continues, so one bad subscriber cannot
// starve the rest. Broadcasting with no subscribers is a no-op.
func (h *Hub) Broadcast(msg track.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		if !sub.Ready() {
			continue
		}
		if err := sub.Send(msg); err != nil {
			h.logger.Warn("broadcast send failed",
				"subscriber", id,
				"type", msg.Type.String(),
				"error", err,
			)
		}
	}
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// notifyCount must be called with the lock held.
func (h *Hub) notifyCount() {
	if h.onCountChange != nil {
		h.onCountChange(len(h.subs))
	}
}
