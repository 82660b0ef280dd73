package backend

import "errors"

// Sentinel kinds for backend errors.
var (
	ErrAnalysisTransport  = errors.New("analysis request failed")
	ErrFactCheckTransport = errors.New("fact-check request failed")
	ErrFactCheckNotFound  = errors.New("no fact-check available")
	ErrEmptyClaim         = errors.New("no claim provided")
	ErrAuthentication     = errors.New("authentication failed")
)

// User-facing fallback messages.
const (
	DefaultAnalysisMessage = "Failed to analyze. Please try again."
	DefaultLoginMessage    = "Login failed. Please try again."
	DefaultNotFoundMessage = "No fact-check available for this claim."
)

// AnalysisError is returned for any failed analysis attempt. Message is safe
// to show to the user.
type AnalysisError struct {
	Message    string
	StatusCode int // zero when no response arrived
	Err        error
}

func (e *AnalysisError) Error() string { return e.Message }

func (e *AnalysisError) Unwrap() error { return e.Err }

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisTransport }

// AuthError carries the backend's explanation for a rejected login.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

// FactCheckError reports a failed or empty fact-check lookup.
type FactCheckError struct {
	Message string
	kind    error
	Err     error
}

func (e *FactCheckError) Error() string { return e.Message }

func (e *FactCheckError) Unwrap() error { return e.Err }

func (e *FactCheckError) Is(target error) bool { return target == e.kind }
