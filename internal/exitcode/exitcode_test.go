package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/melvinsat/melvinctl/internal/errors"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, Success},
		{"plain error", fmt.Errorf("something broke"), GeneralError},
		{"config validation", errors.NewUnknownToggleError("BOGUS"), ConfigValidationFailure},
		{"missing base url", errors.NewMissingBaseURLError(), ConfigValidationFailure},
		{"build failure", errors.NewBuildFailedError("x86_64-unknown-linux-gnu", fmt.Errorf("cc not found")), BuildFailure},
		{"transfer failure", errors.NewTransferError("/home/melvin/melvin-ob", fmt.Errorf("eof")), TransferFailure},
		{"teardown failure", errors.NewTeardownError("melvin", fmt.Errorf("tmux exploded")), SessionTeardownFailure},
		{"launch failure", errors.NewLaunchError("melvin", fmt.Errorf("no such file")), LaunchFailure},
		{"credentials failure", errors.New(errors.ErrCodeCredKeyInvalid, "bad key"), CredentialsFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromError(tt.err))
		})
	}
}

func TestFromErrorWrapped(t *testing.T) {
	// FromError must see through fmt.Errorf wrapping.
	inner := errors.NewLaunchError("melvin", fmt.Errorf("exit status 1"))
	wrapped := fmt.Errorf("deploy: %w", inner)

	assert.Equal(t, LaunchFailure, FromError(wrapped))
}

func TestDistinctCodes(t *testing.T) {
	codes := []int{Success, GeneralError, UsageError, BuildFailure, TransferFailure,
		SessionTeardownFailure, LaunchFailure, ConfigValidationFailure, CredentialsFailure, Interrupted}

	seen := make(map[int]bool)
	for _, c := range codes {
		assert.False(t, seen[c], "exit code %d assigned twice", c)
		seen[c] = true
	}
}

func TestDescription(t *testing.T) {
	for _, c := range []int{Success, BuildFailure, TransferFailure, SessionTeardownFailure, LaunchFailure, ConfigValidationFailure} {
		assert.NotEqual(t, "Unknown error", Description(c))
	}
	assert.Equal(t, "Unknown error", Description(99))
}
