package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"cargoport/internal/logging"
)

// Subscriber receives serialized events.
type Subscriber interface {
	// Deliver hands one serialized event to the subscriber. It must not block
	// for long; a returned error removes the subscriber.
	Deliver(payload []byte) error
	Close() error
}

// Handle identifies a registration.
type Handle uint64

// Publisher is the narrow surface producers depend on.
type Publisher interface {
	Publish(ev Event) int
}

// Hub is a registry of subscribers.
type Hub struct {
	mu     sync.Mutex
	nextID Handle
	subs   map[Handle]Subscriber
	logger *slog.Logger
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subs:   make(map[Handle]Subscriber),
		logger: logging.NewComponentLogger(logger, "broadcast"),
	}
}

// Subscribe registers sub and returns its handle.
func (h *Hub) Subscribe(sub Subscriber) Handle {
	h.mu.Lock()
	h.nextID++
	handle := h.nextID
	h.subs[handle] = sub
	count := len(h.subs)
	h.mu.Unlock()

	h.logger.Debug("subscriber registered", logging.Uint64("handle", uint64(handle)), logging.Int("subscribers", count))
	return handle
}

// Unsubscribe removes and closes the subscriber. Unknown handles are ignored.
func (h *Hub) Unsubscribe(handle Handle) {
	h.mu.Lock()
	sub, ok := h.subs[handle]
	if ok {
		delete(h.subs, handle)
	}
	count := len(h.subs)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = sub.Close()
	h.logger.Debug("subscriber removed", logging.Uint64("handle", uint64(handle)), logging.Int("subscribers", count))
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish serializes ev once and delivers it to every current subscriber.
// It returns the number of successful deliveries.
func (h *Hub) Publish(ev Event) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("event serialization failed",
			logging.String(logging.FieldEventType, string(ev.Kind)),
			logging.Error(err),
		)
		return 0
	}

	type entry struct {
		handle Handle
		sub    Subscriber
	}
	h.mu.Lock()
	snapshot := make([]entry, 0, len(h.subs))
	for handle, sub := range h.subs {
		snapshot = append(snapshot, entry{handle: handle, sub: sub})
	}
	h.mu.Unlock()

	delivered := 0
	var failed []entry
	for _, e := range snapshot {
		if err := e.sub.Deliver(payload); err != nil {
			failed = append(failed, e)
			continue
		}
		delivered++
	}

	for _, e := range failed {
		h.mu.Lock()
		_, ok := h.subs[e.handle]
		if ok {
			delete(h.subs, e.handle)
		}
		h.mu.Unlock()
		if ok {
			_ = e.sub.Close()
		}
	}
	if len(failed) > 0 {
		h.logger.Debug("pruned failed subscribers",
			logging.String(logging.FieldEventType, string(ev.Kind)),
			logging.Int("pruned", len(failed)),
		)
	}
	return delivered
}

// Close removes and closes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[Handle]Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
}
