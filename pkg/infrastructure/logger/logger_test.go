package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("service", "workflow").Info("job accepted", "job_id", "j-1")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["service"] != "workflow" || fields["job_id"] != "j-1" {
		t.Errorf("Expected service and job_id fields, got %v", fields)
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("Expected logger for mode %q: %v", mode, err)
		}
		l.Debug("probe")
	}
	NewNop().Error("discarded")
}
