package domain

import "errors"

var (
	// ErrValidation marks bad caller input. It is never retried.
	ErrValidation = errors.New("validation error")

	// ErrEmptyQuestion is returned when a question is empty or whitespace.
	ErrEmptyQuestion = &ValidationError{Message: "question is required"}

	// ErrNothingToStudy is returned when a tenant has no retrievable notes.
	ErrNothingToStudy = &ValidationError{Message: "upload at least one note before generating study questions"}

	// ErrNoText is returned when a document yields no chunks.
	ErrNoText = &ValidationError{Message: "could not extract any text from the file"}

	// ErrUnsupportedFormat is returned by parsers for unrecognised documents.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrRateLimited is the transient provider overload signal.
	ErrRateLimited = errors.New("rate limited")

	// ErrProvider wraps any other generation failure.
	ErrProvider = errors.New("provider error")

	// ErrMalformedOutput means structured output could not be recovered.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrInvalidConfig marks a configuration mistake detected at construction.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidArgument marks a programming error such as an empty tenant ID.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationError carries a user-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrValidation) match every ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) error { return &ValidationError{Message: msg} }
