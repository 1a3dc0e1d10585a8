package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestNotFound(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	err := NotFound("job", id)

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected NotFound to match ErrNotFound")
	}
	if errors.Is(err, ErrInvalidState) {
		t.Errorf("NotFound must not match ErrInvalidState")
	}
	want := "job not found [job 11111111-1111-1111-1111-111111111111]"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantOp   string
	}{
		{
			name:     "domain error keeps kind and gains op",
			err:      InvalidState("", "batch not received", "line 1"),
			wantKind: KindInvalidState,
			wantOp:   "ShipEquipmentBatch",
		},
		{
			name:     "foreign error becomes operation failed",
			err:      fmt.Errorf("connection reset"),
			wantKind: KindOperationFailed,
			wantOp:   "ShipEquipmentBatch",
		},
		{
			name:     "wrapped domain error is unwrapped",
			err:      fmt.Errorf("load: %w", Validation("qty must be positive")),
			wantKind: KindValidation,
			wantOp:   "ShipEquipmentBatch",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := Wrap("ShipEquipmentBatch", tc.err)
			var de *Error
			if !errors.As(wrapped, &de) {
				t.Fatalf("expected *Error, got %T", wrapped)
			}
			if de.Kind != tc.wantKind {
				t.Errorf("expected kind %s, got %s", tc.wantKind, de.Kind)
			}
			if de.Op != tc.wantOp {
				t.Errorf("expected op %s, got %s", tc.wantOp, de.Op)
			}
		})
	}

	if Wrap("x", nil) != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap("CloseJobWithValidation", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to reach the cause")
	}
	if !errors.Is(err, ErrOperationFailed) {
		t.Errorf("expected ErrOperationFailed")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Wrap("AcceptJob", fmt.Errorf("query: %w", context.DeadlineExceeded))) {
		t.Errorf("deadline expiry should be retryable")
	}
	if IsRetryable(Wrap("AcceptJob", errors.New("boom"))) {
		t.Errorf("plain failure should not be retryable")
	}
	if IsRetryable(InvalidState("AcceptJob", "job already accepted")) {
		t.Errorf("invalid state should not be retryable")
	}
}
