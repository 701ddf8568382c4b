// Package apperr defines the error taxonomy shared across the engine.
// Every component that surfaces a failure to a caller wraps it in one of
// the seven kinds here rather than returning ad-hoc error strings, so
// callers can switch on Kind instead of matching text.
package apperr

import "fmt"

// Kind identifies one of the seven error categories the engine surfaces.
// The kind is the contract; its string spelling may change.
type Kind int

const (
	// KindConfigurationMissing means a required credential or provider
	// choice was never set. Surfaced as an actionable prompt.
	KindConfigurationMissing Kind = iota
	// KindAuthenticationExpired means a 401 from a provider or a failed
	// token refresh. Recovered transparently when possible.
	KindAuthenticationExpired
	// KindCsrfMismatch means an OAuth callback's state did not match the
	// state placed in the authorization URL. Never recovered or retried.
	KindCsrfMismatch
	// KindNetworkFailure covers connect/timeout/DNS failures. Bubbled up
	// verbatim; callers may retry.
	KindNetworkFailure
	// KindProviderError means a non-2xx HTTP response with a parseable
	// body.
	KindProviderError
	// KindParseFailure means malformed JSON, or an SSE stream that ended
	// without a terminal event.
	KindParseFailure
	// KindInputTooLarge means the pre-flight size guard tripped.
	KindInputTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "ConfigurationMissing"
	case KindAuthenticationExpired:
		return "AuthenticationExpired"
	case KindCsrfMismatch:
		return "CsrfMismatch"
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindProviderError:
		return "ProviderError"
	case KindParseFailure:
		return "ParseFailure"
	case KindInputTooLarge:
		return "InputTooLarge"
	default:
		return "Unknown"
	}
}

// Error is the concrete type returned for every taxonomy failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match on Kind alone via a zero-value sentinel of the
// same Kind, e.g. errors.Is(err, apperr.New(apperr.KindNetworkFailure, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error that carries a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, reporting ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return 0, false
	}
	return e.Kind, true
}
