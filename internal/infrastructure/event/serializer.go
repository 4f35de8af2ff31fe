package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/purchasing/internal/domain/shared"
)

// EventSerializer encodes outbox payloads as JSON and decodes them back into
// the concrete event type registered for their name.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates a serializer with no registered types
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// Register binds eventType to the event struct T. Decoded events are *T.
func Register[T any, PT interface {
	*T
	shared.DomainEvent
}](s *EventSerializer, eventType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = func() shared.DomainEvent { return PT(new(T)) }
}

func (s *EventSerializer) factory(eventType string) (func() shared.DomainEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.factories[eventType]
	return f, ok
}

// Serialize encodes a registered event
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if _, ok := s.factory(event.EventType()); !ok {
		return nil, fmt.Errorf("unregistered event type: %s", event.EventType())
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into a fresh event of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	newEvent, ok := s.factory(eventType)
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	event := newEvent()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	return event, nil
}
