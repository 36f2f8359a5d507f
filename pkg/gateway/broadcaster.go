package gateway

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// subscriberBuffer bounds how many undelivered events a slow subscriber may
// hold before new events are dropped for it.
const subscriberBuffer = 32

// EventBroadcaster fans server-initiated events out to every subscribed
// transport session. Subscribers receive on a buffered channel; a full
// buffer drops the event for that subscriber rather than stalling the rest.
type EventBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan EventMessage
	logger      zerolog.Logger
	seq         atomic.Int64
}

// NewEventBroadcaster creates a new event broadcaster
func NewEventBroadcaster(logger zerolog.Logger) *EventBroadcaster {
	return &EventBroadcaster{
		subscribers: make(map[string]chan EventMessage),
		logger:      logger.With().Str("component", "broadcast").Logger(),
	}
}

// Subscribe registers a subscriber and returns its event channel.
func (b *EventBroadcaster) Subscribe(id string) <-chan EventMessage {
	ch := make(chan EventMessage, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.logger.Debug().Str("subscriber", id).Msg("Subscriber added")
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBroadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
		b.logger.Debug().Str("subscriber", id).Msg("Subscriber removed")
	}
}

// Broadcast sends an event to all subscribers
func (b *EventBroadcaster) Broadcast(event string, data any) {
	b.broadcastMessage(EventMessage{
		Event: event,
		Data:  data,
	})
}

// BroadcastTool sends a tool-stream event with the given phase.
func (b *EventBroadcaster) BroadcastTool(event, phase string, data any) {
	b.broadcastMessage(EventMessage{
		Event:  event,
		Stream: StreamTypeTool,
		Phase:  phase,
		Data:   data,
	})
}

// SubscriberCount returns the number of live subscribers.
func (b *EventBroadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func (b *EventBroadcaster) broadcastMessage(msg EventMessage) {
	msg.Seq = b.seq.Add(1)
	msg.Timestamp = time.Now().UnixMilli()

	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for id, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			dropped++
			b.logger.Warn().
				Str("subscriber", id).
				Str("event", msg.Event).
				Int64("seq", msg.Seq).
				Msg("Subscriber buffer full, dropping event")
		}
	}

	b.logger.Debug().
		Str("event", msg.Event).
		Str("phase", msg.Phase).
		Int64("seq", msg.Seq).
		Int("subscribers", len(b.subscribers)).
		Int("dropped", dropped).
		Msg("Event broadcast complete")
}
