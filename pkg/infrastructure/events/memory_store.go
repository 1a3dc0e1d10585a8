package events

import (
	"sync"

	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

type InMemoryEventStore struct {
	streams     map[string][]Event
	versions    map[string]int
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	allEvents   []Event
	dropped     int // events trimmed from the front of allEvents
	log         *logger.Logger
	async       bool

	// retention caps events kept per stream and in the global log; zero keeps all
	perStream int
	total     int
}

// NewInMemoryEventStore creates a store that notifies subscribers on their own goroutines
func NewInMemoryEventStore(log *logger.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		versions:    make(map[string]int),
		subscribers: make(map[string][]EventHandler),
		log:         log.With("component", "events"),
		async:       true,
	}
}

// NewSyncEventStore creates a store that notifies subscribers before AppendEvent returns
func NewSyncEventStore(log *logger.Logger) *InMemoryEventStore {
	s := NewInMemoryEventStore(log)
	s.async = false
	return s
}

// NewBoundedEventStore creates an async store that keeps only the newest
// perStream events of each stream and the newest total events overall.
// Versions and positions keep counting past trimmed events.
func NewBoundedEventStore(log *logger.Logger, perStream, total int) *InMemoryEventStore {
	s := NewInMemoryEventStore(log)
	s.perStream = perStream
	s.total = total
	return s
}

// Verify interface compliance
var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	s.versions[streamID]++
	versioned := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: s.versions[streamID],
	}
	stream := append(s.streams[streamID], versioned)
	if s.perStream > 0 && len(stream) > s.perStream {
		stream = append([]Event(nil), stream[len(stream)-s.perStream:]...)
	}
	s.streams[streamID] = stream
	s.allEvents = append(s.allEvents, versioned)
	if s.total > 0 && len(s.allEvents) > s.total {
		trim := len(s.allEvents) - s.total
		s.allEvents = append([]Event(nil), s.allEvents[trim:]...)
		s.dropped += trim
	}
	handlers := append([]EventHandler(nil), s.subscribers[versioned.EventType]...)
	s.mutex.Unlock()

	if s.async {
		go s.notify(handlers, versioned)
	} else {
		s.notify(handlers, versioned)
	}
	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := []Event{}
	for _, e := range s.streams[streamID] {
		if e.Version() >= fromVersion {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	idx := fromPosition - s.dropped
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.allEvents) {
		return []Event{}, nil
	}
	return append([]Event(nil), s.allEvents[idx:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		kept := handlers[:0:0]
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		s.subscribers[eventType] = kept
	}
	return nil
}

func (s *InMemoryEventStore) notify(handlers []EventHandler, event Event) {
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			s.log.Warn("event handler failed", "event", event.Type(), "stream", event.StreamID(), "error", err)
		}
	}
}
