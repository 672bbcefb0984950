package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"not found", NotFound("Session"), CodeNotFound, http.StatusNotFound, "Session not found"},
		{"not found with id", NotFoundWithID("Availability", "abc"), CodeNotFound, http.StatusNotFound, "Availability not found"},
		{"validation", Validation("End time must be after start time", nil), CodeValidation, http.StatusBadRequest, "End time must be after start time"},
		{"invalid input", InvalidInput("Missing required fields"), CodeInvalidInput, http.StatusBadRequest, "Missing required fields"},
		{"unauthorized", Unauthorized("Unauthorized"), CodeUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", Forbidden("Only therapists can manage availability"), CodeForbidden, http.StatusForbidden, "Only therapists can manage availability"},
		{"conflict", Conflict("Slot already booked"), CodeConflict, http.StatusConflict, "Slot already booked"},
		{"internal", Internal("Failed to book session", cause), CodeInternal, http.StatusInternalServerError, "Failed to book session"},
		{"timeout", Timeout("Request timeout"), CodeTimeout, http.StatusGatewayTimeout, "Request timeout"},
		{"unavailable", Unavailable("Event bus"), CodeUnavailable, http.StatusServiceUnavailable, "Event bus is temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.StatusCode())
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, tt.err.Message)
			}
		})
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Session", "65f0c0ffee")
	if err.Details["id"] != "65f0c0ffee" {
		t.Errorf("expected id detail, got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Session" {
		t.Errorf("expected resource detail, got %v", err.Details["resource"])
	}
}

func TestAppError_Error(t *testing.T) {
	plain := Conflict("Slot already booked")
	if got := plain.Error(); got != "CONFLICT: Slot already booked" {
		t.Errorf("unexpected Error(): %q", got)
	}

	wrapped := Internal("Failed to list sessions", errors.New("socket closed"))
	if got := wrapped.Error(); got != "INTERNAL_ERROR: Failed to list sessions (caused by: socket closed)" {
		t.Errorf("unexpected Error(): %q", got)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("write conflict")
	appErr := Wrap(cause, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	err := &AppError{Code: "CUSTOM", Message: "no status"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500 for missing status, got %d", err.StatusCode())
	}
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("Slot already booked")
	if AsAppError(conflict) != conflict {
		t.Error("AsAppError should return the same AppError")
	}

	wrapped := fmt.Errorf("transaction failed: %w", conflict)
	if AsAppError(wrapped) != conflict {
		t.Error("AsAppError should find an AppError through wrapping")
	}
	if !IsAppError(wrapped) {
		t.Error("IsAppError should see through wrapping")
	}

	plain := errors.New("boom")
	result := AsAppError(plain)
	if result.Code != CodeInternal || result.Err != plain {
		t.Errorf("expected plain error to become internal, got %+v", result)
	}
	if IsAppError(plain) {
		t.Error("IsAppError should be false for plain errors")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("Session"))
	if !HasCode(err, CodeNotFound) {
		t.Error("expected HasCode to match NOT_FOUND")
	}
	if HasCode(err, CodeConflict) {
		t.Error("expected HasCode not to match CONFLICT")
	}
	if HasCode(errors.New("x"), CodeInternal) {
		t.Error("plain errors carry no code")
	}
}

func TestWithDetails(t *testing.T) {
	err := Conflict("blocked").WithDetails(map[string]any{"active_sessions": 2})
	if err.Details["active_sessions"] != 2 {
		t.Errorf("expected details to be attached, got %v", err.Details)
	}
}
