package notify

import (
	"sync"

	"jobserver/internal/domain"
)

// Event is a job status change delivered to listeners of the job's owner.
type Event struct {
	JobID   string           `json:"job_id"`
	JobType domain.JobType   `json:"job_type"`
	OwnerID string           `json:"owner_id"`
	Status  domain.JobStatus `json:"status"`
	Error   string           `json:"error,omitempty"`
}

const subscriberBuffer = 16

// Hub fans job status changes out to per-owner subscribers. Delivery is
// strictly best effort: no listener at transition time, or a listener with a
// full buffer, means the event is dropped. The job row remains the durable
// source of truth.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for the owner's job events. The returned
// cancel func must be called when the listener goes away; it closes the
// channel.
func (h *Hub) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[ownerID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[ownerID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[ownerID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, ownerID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to the owner's subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
