package utils

import (
	"errors"
	"fmt"

	"github.com/dl-alexandre/mrisync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Auth errors (10-19)
	ExitAuthRequired = 10
	ExitAuthExpired  = 11
	ExitAuthInvalid  = 12
	// File operation errors (20-29)
	ExitFileNotFound     = 20
	ExitPermissionDenied = 21
	ExitQuotaExceeded    = 22
	// Network errors (30-39)
	ExitNetworkError      = 30
	ExitTimeout           = 31
	ExitRateLimited       = 32
	ExitEnumerationFailed = 34
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	ExitAmbiguousPath   = 42
	ExitConfigInvalid   = 44
	// Policy errors (50-59)
	ExitPolicyViolation = 50
	// Partial failures
	ExitSyncPartialFailure = 60
	// Interrupted by signal or timeout
	ExitCancelled = 130
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeAuthRequired       = "AUTH_REQUIRED"
	ErrCodeAuthExpired        = "AUTH_EXPIRED"
	ErrCodeAuthInvalid        = "AUTH_INVALID"
	ErrCodeFileNotFound       = "FILE_NOT_FOUND"
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrCodeNetworkError       = "NETWORK_ERROR"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeEnumerationFailed  = "ENUMERATION_FAILED"
	ErrCodeInvalidArgument    = "INVALID_ARGUMENT"
	ErrCodeInvalidPath        = "INVALID_PATH"
	ErrCodeAmbiguousPath      = "AMBIGUOUS_PATH"
	ErrCodeConfigInvalid      = "CONFIG_INVALID"
	ErrCodePolicyViolation    = "POLICY_VIOLATION"
	ErrCodeSyncPartialFailure = "SYNC_PARTIAL_FAILURE"
	ErrCodeCancelled          = "CANCELLED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeUnknown            = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithHTTPStatus(status int) *CLIErrorBuilder {
	b.err.HTTPStatus = status
	return b
}

func (b *CLIErrorBuilder) WithDriveReason(reason string) *CLIErrorBuilder {
	b.err.DriveReason = reason
	return b
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeAuthRequired:       ExitAuthRequired,
		ErrCodeAuthExpired:        ExitAuthExpired,
		ErrCodeAuthInvalid:        ExitAuthInvalid,
		ErrCodeFileNotFound:       ExitFileNotFound,
		ErrCodePermissionDenied:   ExitPermissionDenied,
		ErrCodeQuotaExceeded:      ExitQuotaExceeded,
		ErrCodeNetworkError:       ExitNetworkError,
		ErrCodeTimeout:            ExitTimeout,
		ErrCodeRateLimited:        ExitRateLimited,
		ErrCodeEnumerationFailed:  ExitEnumerationFailed,
		ErrCodeInvalidArgument:    ExitInvalidArgument,
		ErrCodeInvalidPath:        ExitInvalidPath,
		ErrCodeAmbiguousPath:      ExitAmbiguousPath,
		ErrCodeConfigInvalid:      ExitConfigInvalid,
		ErrCodePolicyViolation:    ExitPolicyViolation,
		ErrCodeSyncPartialFailure: ExitSyncPartialFailure,
		ErrCodeCancelled:          ExitCancelled,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}

// ExitCodeFor returns the exit code for any error, unwrapping to find an AppError
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return GetExitCode(appErr.CLIError.Code)
	}
	return ExitUnknown
}

// ConfigError builds the AppError returned for unusable configuration
func ConfigError(message string, cause error) *AppError {
	builder := NewCLIError(ErrCodeConfigInvalid, message)
	if cause != nil {
		builder.WithContext("cause", cause.Error())
	}
	return NewAppError(builder.Build())
}
