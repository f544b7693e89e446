package broadcast

import (
	"sync"
)

// Scope selects which subscribers receive a published message.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeHost
	ScopeBeamer
)

// Message is a single outbound event. Payload is whatever the transport
// layer will serialize, typically a map or a protocol struct.
type Message struct {
	Event   string
	Payload any
}

const subscriptionBuffer = 32

// Hub fans messages out to subscribers. Delivery is best-effort: a
// subscriber whose buffer is full misses the message. Connections
// recover via the full snapshot they receive on connect and via the
// recurring tally/stats broadcasts.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

type Subscription struct {
	hub    *Hub
	ch     chan Message
	host   bool
	beamer bool

	closeOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. Host subscribers additionally
// receive ScopeHost messages, beamer subscribers ScopeBeamer ones.
func (h *Hub) Subscribe(host, beamer bool) *Subscription {
	sub := &Subscription{
		hub:    h,
		ch:     make(chan Message, subscriptionBuffer),
		host:   host,
		beamer: beamer,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish delivers msg to every subscriber matching scope and reports
// how many actually received it. Full buffers drop the message.
func (h *Hub) Publish(scope Scope, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for sub := range h.subs {
		switch scope {
		case ScopeHost:
			if !sub.host {
				continue
			}
		case ScopeBeamer:
			if !sub.beamer {
				continue
			}
		}
		select {
		case sub.ch <- msg:
			delivered++
		default:
			// slow subscriber, drop
		}
	}
	return delivered
}

// SubscriberCount reports the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close terminates every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// C is the receive side of the subscription.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
