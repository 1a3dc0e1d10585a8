package shared

import (
	"testing"
	"time"
)

func TestDayWindow(t *testing.T) {
	at := time.Date(2025, 4, 3, 15, 30, 0, 0, time.UTC)
	start, end := DayWindow(at)
	if !start.Equal(time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected midnight start, got %v", start)
	}
	if !end.Before(time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC)) || end.Day() != 3 {
		t.Errorf("Expected end within the same day, got %v", end)
	}
}
