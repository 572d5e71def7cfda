// Package types defines core data types and enums shared across the PDF translator.
package types

// Config holds the application configuration.
type Config struct {
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"` // base URL of an OpenAI-compatible API
	OpenAIModel   string `json:"openai_model"`
	// TargetLanguage is a BCP 47 tag, e.g. "ko" or "zh-Hans".
	TargetLanguage string `json:"target_language"`
	WorkDirectory  string `json:"work_directory"`
	CachePath      string `json:"cache_path"`
	// FontFamily and FontFile configure the output font used for composed pages.
	FontFamily string `json:"font_family"`
	FontFile   string `json:"font_file"`
	// MaxRetries for gateway calls; 0 means the built-in default.
	MaxRetries int `json:"max_retries"`
	// RequestTimeoutSeconds for a single gateway call; 0 means the default.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// ProcessPhase enumerates the phases of a translation run.
type ProcessPhase string

const (
	PhaseIdle        ProcessPhase = "idle"
	PhaseExtracting  ProcessPhase = "extracting"
	PhaseTranslating ProcessPhase = "translating"
	PhaseComposing   ProcessPhase = "composing"
	PhaseFinalizing  ProcessPhase = "finalizing"
	PhaseComplete    ProcessPhase = "complete"
	PhaseError       ProcessPhase = "error"
)

// Status reports run progress to callers.
type Status struct {
	Phase    ProcessPhase `json:"phase"`
	Progress int          `json:"progress"` // 0-100
	Message  string       `json:"message"`
	Error    string       `json:"error,omitempty"`
}

// ErrorCode classifies application-level errors.
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit ErrorCode = "API_RATE_LIMIT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
)

// AppError is the application error type.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
