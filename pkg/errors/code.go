package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20999: Execution errors
// 21000-21999: Request validation errors
const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidInput        ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004

	// Configuration errors (10100-10199)
	ConfigError        ErrorCode = 10100
	ConfigFileMissing  ErrorCode = 10101
	ConfigParseFailed  ErrorCode = 10102
	ConfigInvalidValue ErrorCode = 10103

	// ========== Execution Errors (20000-20999) ==========

	// Run outcomes (20000-20099)
	SandboxError  ErrorCode = 20000
	Timeout       ErrorCode = 20001
	LimitExceeded ErrorCode = 20002
	Cancelled     ErrorCode = 20003

	// Environment (20100-20199)
	SandboxUnavailable ErrorCode = 20100
	ImagePullFailed    ErrorCode = 20101
	WorkspaceFailed    ErrorCode = 20102

	// ========== Request Validation Errors (21000-21999) ==========

	LanguageNotSupported ErrorCode = 21000
	UnsafeFilename       ErrorCode = 21001
	EmptyCommandList     ErrorCode = 21002
	InvalidCapacity      ErrorCode = 21003
	ArchiveTooLarge      ErrorCode = 21004
	ValidationFailed     ErrorCode = 21005
)

var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidInput:        "Invalid input",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",

	ConfigError:        "Execution config error",
	ConfigFileMissing:  "Execution config file not found",
	ConfigParseFailed:  "Failed to parse execution config",
	ConfigInvalidValue: "Invalid value in execution config",

	SandboxError:  "Sandbox error",
	Timeout:       "Execution timed out",
	LimitExceeded: "Resource limit exceeded",
	Cancelled:     "Run cancelled by caller",

	SandboxUnavailable: "Sandbox environment unreachable",
	ImagePullFailed:    "Failed to pull sandbox image",
	WorkspaceFailed:    "Failed to prepare workspace",

	LanguageNotSupported: "Language not supported",
	UnsafeFilename:       "Unsafe filename in file bundle",
	EmptyCommandList:     "Command list is empty",
	InvalidCapacity:      "Capacity must be at least 1",
	ArchiveTooLarge:      "Uncompressed archive size exceeds allowed maximum",
	ValidationFailed:     "Validation failed",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Tag returns the stable variant tag used in API error bodies.
func (c ErrorCode) Tag() string {
	switch {
	case c == Success:
		return "ok"
	case c >= 21000 && c < 22000:
		return "invalid_input"
	case c == InvalidInput:
		return "invalid_input"
	case c >= 10100 && c < 10200:
		return "config_error"
	case c == Timeout:
		return "timeout"
	case c == LimitExceeded:
		return "limit_exceeded"
	case c == Cancelled:
		return "cancelled"
	case c >= 20000 && c < 21000:
		return "sandbox_error"
	default:
		return "internal_error"
	}
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == InvalidInput, c >= 21000 && c < 22000:
		return 400
	case c == NotFound:
		return 404
	case c == SandboxUnavailable, c == ImagePullFailed, c == WorkspaceFailed:
		return 502
	case c == ServiceUnavailable:
		return 503
	default:
		return 500
	}
}
