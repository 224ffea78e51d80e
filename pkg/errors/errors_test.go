package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidDimension, "could not parse %q", "1.2kg")

	if err.Code != ErrCodeInvalidDimension {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidDimension)
	}

	if err.Message != `could not parse "1.2kg"` {
		t.Errorf("Message = %v, want %v", err.Message, `could not parse "1.2kg"`)
	}

	expected := `INVALID_DIMENSION: could not parse "1.2kg"`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodePostprocess, cause, "rewriting figure")

	if err.Code != ErrCodePostprocess {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodePostprocess)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeInvalidColor, "bad color"), ErrCodeInvalidColor, true},
		{"different code", New(ErrCodeInvalidColor, "bad color"), ErrCodeInvalidDimension, false},
		{"wrapped matching", fmt.Errorf("outer: %w", New(ErrCodeUnknownKey, "nope")), ErrCodeUnknownKey, true},
		{"plain error", errors.New("plain"), ErrCodeInternal, false},
		{"nil error", nil, ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeUnknownTracker, "no tracker")); got != ErrCodeUnknownTracker {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeUnknownTracker)
	}

	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidColumns, "document has 2 columns, figure requested 3")
	if got := UserMessage(err); got != "document has 2 columns, figure requested 3" {
		t.Errorf("UserMessage() = %v", got)
	}

	plain := errors.New("plain message")
	if got := UserMessage(plain); got != "plain message" {
		t.Errorf("UserMessage() = %v", got)
	}
}
