// Package realtime pushes check-in notices to dashboards over websockets.
package realtime

import (
	"log/slog"
	"sync"

	"guestcheckin/internal/domain"
)

const subscriberBuffer = 32

// Hub fans check-in notices out to the subscribers of each event.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	rooms map[string]map[*Subscription]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{logger: logger, rooms: make(map[string]map[*Subscription]struct{})}
}

// Subscription receives the notices of one event until Close is called.
type Subscription struct {
	C <-chan domain.CheckInNotice

	hub     *Hub
	eventID string
	ch      chan domain.CheckInNotice
	once    sync.Once
}

// Subscribe registers a new subscriber for eventID.
func (h *Hub) Subscribe(eventID string) *Subscription {
	ch := make(chan domain.CheckInNotice, subscriberBuffer)
	sub := &Subscription{C: ch, hub: h, eventID: eventID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[eventID]
	if !ok {
		room = make(map[*Subscription]struct{})
		h.rooms[eventID] = room
	}
	room[sub] = struct{}{}
	return sub
}

// Close unregisters the subscription and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if room, ok := h.rooms[s.eventID]; ok {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, s.eventID)
			}
		}
		close(s.ch)
	})
}

// Publish delivers notice to every subscriber of its event. Subscribers that are not
// keeping up miss the notice.
func (h *Hub) Publish(notice domain.CheckInNotice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[notice.EventID] {
		select {
		case sub.ch <- notice:
		default:
			h.logger.Warn("dropping check-in notice for slow subscriber", "event_id", notice.EventID, "guest_id", notice.GuestID)
		}
	}
}

// Subscribers returns the number of live subscriptions for eventID.
func (h *Hub) Subscribers(eventID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[eventID])
}
