package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("upstream connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "sailing not found",
			},
			expected: "NOT_FOUND: sailing not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeBookingFailed,
				Message: "booking creation failed",
				Err:     errors.New("gateway returned 502"),
			},
			expected: "BOOKING_FAILED: booking creation failed (caused by: gateway returned 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestBookingFailed_Retryable(t *testing.T) {
	err := BookingFailed("booking creation failed", errors.New("timeout"))

	if !err.Retryable {
		t.Errorf("booking failures must carry a retry affordance")
	}
	if !IsRetryable(err) {
		t.Errorf("IsRetryable() should report true for booking failures")
	}
	if IsRetryable(errors.New("plain")) {
		t.Errorf("IsRetryable() should report false for plain errors")
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeInternal {
		t.Errorf("expected plain errors to map to %s, got %s", CodeInternal, appErr.Code)
	}

	orig := SessionExpired("payment session lapsed")
	if AsAppError(orig) != orig {
		t.Errorf("expected AsAppError to return the original AppError")
	}
}
