package exitcode

import (
	goerrors "errors"
	"os"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// Exit codes for consistent error handling across the CLI.
// The deployment failure classes get distinct codes so retry tooling
// can tell a broken build from a dead host.
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// BuildFailure indicates artifact compilation failed
	BuildFailure = 10

	// TransferFailure indicates the artifact or session config could not be copied
	TransferFailure = 11

	// SessionTeardownFailure indicates an existing session could not be killed
	SessionTeardownFailure = 12

	// LaunchFailure indicates the new session could not be started
	LaunchFailure = 13

	// ConfigValidationFailure indicates an unrecognized or malformed environment toggle
	ConfigValidationFailure = 14

	// CredentialsFailure indicates the supplied credentials could not be used
	CredentialsFailure = 15

	// Interrupted indicates the run was cancelled by the operator
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(FromError(err))
}

// FromError maps an error to its exit code. Typed DeployErrors map by
// category; anything else is a general error.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var derr *errors.DeployError
	if !goerrors.As(err, &derr) {
		return GeneralError
	}

	switch derr.Category() {
	case "CONFIG":
		return ConfigValidationFailure
	case "BUILD":
		return BuildFailure
	case "TRANSFER":
		return TransferFailure
	case "SESSION":
		return SessionTeardownFailure
	case "LAUNCH":
		return LaunchFailure
	case "CRED":
		return CredentialsFailure
	default:
		return GeneralError
	}
}

// Description returns a human-readable description of an exit code
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case BuildFailure:
		return "Artifact build failed"
	case TransferFailure:
		return "Artifact or config transfer failed"
	case SessionTeardownFailure:
		return "Session teardown failed"
	case LaunchFailure:
		return "Session launch failed"
	case ConfigValidationFailure:
		return "Environment configuration validation failed"
	case CredentialsFailure:
		return "Credentials unusable"
	case Interrupted:
		return "Interrupted by operator"
	default:
		return "Unknown error"
	}
}
