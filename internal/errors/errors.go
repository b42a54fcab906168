package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigUnknownToggle ErrorCode = "CONFIG-001"
	ErrCodeConfigMissingURL    ErrorCode = "CONFIG-002"
	ErrCodeConfigBadValue      ErrorCode = "CONFIG-003"
	ErrCodeConfigBadObjective  ErrorCode = "CONFIG-004"
	ErrCodeConfigFileInvalid   ErrorCode = "CONFIG-005"

	// Build errors (BUILD-001 to BUILD-099)
	ErrCodeBuildToolMissing ErrorCode = "BUILD-001"
	ErrCodeBuildFailed      ErrorCode = "BUILD-002"
	ErrCodeBuildNoArtifact  ErrorCode = "BUILD-003"

	// Transfer errors (TRANSFER-001 to TRANSFER-099)
	ErrCodeTransferDial     ErrorCode = "TRANSFER-001"
	ErrCodeTransferCopy     ErrorCode = "TRANSFER-002"
	ErrCodeTransferVerify   ErrorCode = "TRANSFER-003"
	ErrCodeTransferDaemon   ErrorCode = "TRANSFER-004"
	ErrCodeTransferTimeout  ErrorCode = "TRANSFER-005"
	ErrCodeTransferRetrieve ErrorCode = "TRANSFER-006"

	// Session errors (SESSION-001 to SESSION-099)
	ErrCodeSessionTeardown ErrorCode = "SESSION-001"
	ErrCodeSessionQuery    ErrorCode = "SESSION-002"

	// Launch errors (LAUNCH-001 to LAUNCH-099)
	ErrCodeLaunchFailed ErrorCode = "LAUNCH-001"
	ErrCodeLaunchDirty  ErrorCode = "LAUNCH-002"

	// Credential errors (CRED-001 to CRED-099)
	ErrCodeCredKeyUnreadable ErrorCode = "CRED-001"
	ErrCodeCredKeyInvalid    ErrorCode = "CRED-002"
	ErrCodeCredAgentMissing  ErrorCode = "CRED-003"

	// CI errors (CI-001 to CI-099)
	ErrCodeCIRenderFailed ErrorCode = "CI-001"
	ErrCodeCIRunCancelled ErrorCode = "CI-002"

	// IO errors (IO-001 to IO-099)
	ErrCodeFileNotFound   ErrorCode = "IO-001"
	ErrCodeFileReadFailed ErrorCode = "IO-002"
	ErrCodeFileWriteError ErrorCode = "IO-003"
)

// DeployError is the rich error type used across the CLI.
// It carries a stable code for exit-code mapping, an operator-facing
// message, the wrapped cause, and optional remediation suggestions.
type DeployError struct {
	Code        ErrorCode
	Message     string
	Cause       error
	Suggestions []string
}

// Error implements the error interface
func (e *DeployError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *DeployError) Unwrap() error {
	return e.Cause
}

// New creates a new DeployError
func New(code ErrorCode, message string) *DeployError {
	return &DeployError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new DeployError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *DeployError {
	return &DeployError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *DeployError) WithSuggestion(suggestion string) *DeployError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// Category returns the category prefix of the error code (e.g. "BUILD")
func (e *DeployError) Category() string {
	code := string(e.Code)
	if i := strings.IndexByte(code, '-'); i > 0 {
		return code[:i]
	}
	return code
}

// NewUnknownToggleError creates an error for an unrecognized environment toggle
func NewUnknownToggleError(name string) *DeployError {
	return New(ErrCodeConfigUnknownToggle, fmt.Sprintf("unrecognized environment toggle %q", name)).
		WithSuggestion("run 'melvinctl env list' to see the recognized toggles")
}

// NewMissingBaseURLError creates an error for a configuration without DRS_BASE_URL
func NewMissingBaseURLError() *DeployError {
	return New(ErrCodeConfigMissingURL, "DRS_BASE_URL is mandatory and was not provided").
		WithSuggestion("set DRS_BASE_URL to the backend endpoint, e.g. http://10.100.10.3:33000")
}

// NewBuildFailedError creates an error for a failed artifact build
func NewBuildFailedError(triple string, cause error) *DeployError {
	return Wrap(ErrCodeBuildFailed, fmt.Sprintf("build for target %s failed", triple), cause)
}

// NewTransferError creates an error for a failed artifact or config transfer
func NewTransferError(remotePath string, cause error) *DeployError {
	return Wrap(ErrCodeTransferCopy, fmt.Sprintf("transfer to %s failed", remotePath), cause).
		WithSuggestion("re-run the deployment; transfers are not retried automatically")
}

// NewTeardownError creates an error for a failed session teardown
func NewTeardownError(name string, cause error) *DeployError {
	return Wrap(ErrCodeSessionTeardown, fmt.Sprintf("could not tear down session %q", name), cause)
}

// NewLaunchError creates an error for a failed session launch
func NewLaunchError(name string, cause error) *DeployError {
	return Wrap(ErrCodeLaunchFailed, fmt.Sprintf("could not launch session %q", name), cause).
		WithSuggestion("the host has no running session now; re-run the full deployment")
}
