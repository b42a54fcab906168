package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeBuildFailed, "test error message")

	if err.Code != ErrCodeBuildFailed {
		t.Errorf("expected code %s, got %s", ErrCodeBuildFailed, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Code != ErrCodeFileReadFailed {
		t.Errorf("expected code %s, got %s", ErrCodeFileReadFailed, err.Code)
	}

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *DeployError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeConfigUnknownToggle, "unknown toggle"),
			wantCode: "CONFIG-001",
			wantMsg:  "unknown toggle",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeTransferCopy, "copy failed", fmt.Errorf("connection reset")),
			wantCode: "TRANSFER-002",
			wantMsg:  "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}
			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message %s, got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestSuggestions(t *testing.T) {
	err := NewMissingBaseURLError()

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("expected suggestions section, got: %s", errStr)
	}
	if !strings.Contains(errStr, "DRS_BASE_URL") {
		t.Errorf("expected suggestion to mention DRS_BASE_URL, got: %s", errStr)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  *DeployError
		want string
	}{
		{New(ErrCodeBuildFailed, "x"), "BUILD"},
		{New(ErrCodeSessionTeardown, "x"), "SESSION"},
		{New(ErrCodeLaunchFailed, "x"), "LAUNCH"},
		{New(ErrCodeConfigMissingURL, "x"), "CONFIG"},
	}

	for _, tt := range tests {
		if got := tt.err.Category(); got != tt.want {
			t.Errorf("Category() = %s, want %s", got, tt.want)
		}
	}
}
