package types

import (
	"errors"
	"testing"
)

func TestAppError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAppError(ErrNetwork, "API request failed", cause)

	if err.Code != ErrNetwork {
		t.Errorf("expected code %s, got %s", ErrNetwork, err.Code)
	}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	err := NewAppErrorWithDetails(ErrAPICall, "API server error", "status 503: overloaded", nil)
	if err.Details != "status 503: overloaded" {
		t.Errorf("unexpected details: %q", err.Details)
	}
	if err.Unwrap() != nil {
		t.Error("expected nil cause")
	}
}
