package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyContent indicates an uploaded file had no content
	ErrEmptyContent = errors.New("empty content")

	// ErrFileTooLarge indicates an uploaded file exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedFileType indicates the file extension is not supported
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyQuery indicates a search was requested with no query text
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates an upstream service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ErrorCategory classifies a failure for user-facing degradation.
// Categories are attached where the failure happens; callers switch on
// the category instead of inspecting error text.
type ErrorCategory string

const (
	CategoryDatabase   ErrorCategory = "database"   // vector collection / document registry
	CategoryUpstream   ErrorCategory = "upstream"   // embedding or chat endpoint
	CategoryProcessing ErrorCategory = "processing" // extraction / chunking
	CategoryUnknown    ErrorCategory = "unknown"
)

// CategorizedError carries an ErrorCategory alongside the underlying cause.
type CategorizedError struct {
	Category ErrorCategory
	Err      error
}

func (e *CategorizedError) Error() string {
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// WithCategory wraps err with the given category. Returns nil for nil err.
func WithCategory(category ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &CategorizedError{Category: category, Err: err}
}

// CategoryOf extracts the category from an error chain.
// Returns CategoryUnknown when no category was attached.
func CategoryOf(err error) ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryUnknown
}
