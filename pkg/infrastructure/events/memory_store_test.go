package events

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

func TestInMemoryEventStore_VersionsPerStream(t *testing.T) {
	store := NewSyncEventStore(logger.NewNop())
	jobA, jobB := JobStream(uuid.New()), JobStream(uuid.New())
	now := time.Now()

	for _, stream := range []string{jobA, jobA, jobB} {
		if err := store.AppendEvent(stream, NewEvent(JobAcceptedEvent, stream, JobAccepted{}, now)); err != nil {
			t.Fatalf("Expected append to succeed: %v", err)
		}
	}

	events, err := store.ReadEvents(jobA, 0)
	if err != nil {
		t.Fatalf("Expected read to succeed: %v", err)
	}
	if len(events) != 2 || events[0].Version() != 1 || events[1].Version() != 2 {
		t.Fatalf("Expected versions 1 and 2 for job A, got %v", events)
	}

	tail, _ := store.ReadEvents(jobA, 2)
	if len(tail) != 1 {
		t.Errorf("Expected 1 event from version 2, got %d", len(tail))
	}

	all, _ := store.ReadAllEvents(1)
	if len(all) != 2 || all[1].StreamID() != jobB {
		t.Errorf("Expected 2 events from position 1 ending with job B, got %v", all)
	}

	none, _ := store.ReadEvents("job:missing", 1)
	if len(none) != 0 {
		t.Errorf("Expected no events for unknown stream, got %d", len(none))
	}
}

func TestInMemoryEventStore_SubscribersReceiveMatchingTypes(t *testing.T) {
	store := NewSyncEventStore(logger.NewNop())
	var seen []string
	handler := &HandlerFunc{
		Types: []string{BatchShippedEvent},
		Fn: func(e Event) error {
			seen = append(seen, e.Type())
			return errors.New("handler errors are logged, not returned")
		},
	}
	if err := store.Subscribe([]string{BatchShippedEvent, JobClosedEvent}, handler); err != nil {
		t.Fatalf("Expected subscribe to succeed: %v", err)
	}

	_ = store.AppendEvent(LedgerStream, NewEvent(BatchShippedEvent, LedgerStream, BatchShipped{}, time.Now()))
	_ = store.AppendEvent(LedgerStream, NewEvent(JobClosedEvent, LedgerStream, JobClosed{}, time.Now()))

	if len(seen) != 1 || seen[0] != BatchShippedEvent {
		t.Fatalf("Expected only batch.shipped to be handled, got %v", seen)
	}

	_ = store.Unsubscribe(handler)
	_ = store.AppendEvent(LedgerStream, NewEvent(BatchShippedEvent, LedgerStream, BatchShipped{}, time.Now()))
	if len(seen) != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %v", seen)
	}
}

func TestBoundedEventStore_TrimsOldestAndKeepsCounting(t *testing.T) {
	store := NewBoundedEventStore(logger.NewNop(), 2, 3)
	jobA, jobB := JobStream(uuid.New()), JobStream(uuid.New())
	now := time.Now()

	for _, stream := range []string{jobA, jobA, jobA, jobB} {
		if err := store.AppendEvent(stream, NewEvent(JobAcceptedEvent, stream, JobAccepted{}, now)); err != nil {
			t.Fatalf("Expected append to succeed: %v", err)
		}
	}

	kept, _ := store.ReadEvents(jobA, 0)
	if len(kept) != 2 || kept[0].Version() != 2 || kept[1].Version() != 3 {
		t.Fatalf("Expected versions 2 and 3 to survive for job A, got %v", kept)
	}
	tail, _ := store.ReadEvents(jobA, 3)
	if len(tail) != 1 || tail[0].Version() != 3 {
		t.Errorf("Expected only version 3 from version 3, got %v", tail)
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 3 {
		t.Fatalf("Expected the global log capped at 3, got %d", len(all))
	}
	fromTwo, _ := store.ReadAllEvents(3)
	if len(fromTwo) != 1 || fromTwo[0].StreamID() != jobB {
		t.Errorf("Expected position 3 to be job B's event, got %v", fromTwo)
	}
}
