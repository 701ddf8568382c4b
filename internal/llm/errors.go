package llm

import (
	"regexp"
	"strings"
)

// ErrorType refines the opaque ProviderError kind into categories that
// decide whether a caller should retry, fail over to another provider,
// or surface the error to the user as something actionable.
type ErrorType string

const (
	ErrorTypeUnknown         ErrorType = "unknown"
	ErrorTypeContextOverflow ErrorType = "context_overflow"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeOverloaded      ErrorType = "overloaded"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeBilling         ErrorType = "billing"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeFormat          ErrorType = "format"
	ErrorTypeMaxTokens       ErrorType = "max_tokens"
)

func containsAny(lower string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// IsContextOverflowMessage reports whether msg describes the provider
// rejecting a request for exceeding its context window.
func IsContextOverflowMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower,
		"context size has been exceeded", "context_length_exceeded",
		"context length exceeded", "maximum context length",
		"prompt is too long", "request_too_large",
	) || (strings.Contains(lower, "413") && strings.Contains(lower, "too large"))
}

// IsRateLimitMessage reports whether msg describes a 429/rate-limit response.
func IsRateLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "429", "rate_limit", "rate limit", "too many requests", "resource_exhausted")
}

// IsOverloadedMessage reports whether msg describes a transient
// capacity/overload response (e.g. a 503 from the provider).
func IsOverloadedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "overloaded", "503", "service unavailable", "capacity")
}

// IsAuthMessage reports whether msg describes an authentication failure.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "401", "403", "invalid api key", "unauthorized", "forbidden", "token has expired", "authentication_error")
}

// IsBillingMessage reports whether msg describes a billing/quota failure.
func IsBillingMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "402", "payment required", "insufficient credits", "insufficient_quota", "billing")
}

// IsTimeoutMessage reports whether msg describes a request timeout.
func IsTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "408", "504", "timeout", "deadline exceeded")
}

// IsFormatMessage reports whether msg describes a malformed request the
// provider rejected for structural reasons.
func IsFormatMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return containsAny(lower, "roles must alternate", "tool_use.id", "invalid_request_error", "unexpected end of json input")
}

var maxTokensPatterns = []*regexp.Regexp{
	regexp.MustCompile(`max_tokens[:=]\s*(\d+)\s*>\s*(\d+)`),
	regexp.MustCompile(`max_tokens.*maximum.*?(\d+)`),
	regexp.MustCompile(`(\d+)\s+is the maximum`),
}

// ParseMaxTokensLimit extracts a numeric limit from a provider message
// like "max_tokens: 8192 > 4096, which is the maximum allowed...".
func ParseMaxTokensLimit(msg string) (bool, int) {
	for _, re := range maxTokensPatterns {
		if m := re.FindStringSubmatch(strings.ToLower(msg)); m != nil {
			// The limit is the last captured numeric group.
			for i := len(m) - 1; i >= 1; i-- {
				if m[i] != "" {
					n := 0
					for _, c := range m[i] {
						n = n*10 + int(c-'0')
					}
					return true, n
				}
			}
		}
	}
	return false, 0
}

// ClassifyError inspects a raw error/response message and returns the
// most specific category it matches. Order matters: max_tokens is
// checked first so a 400 about token limits isn't misclassified as an
// auth failure, and context_overflow precedes the generic format check.
func ClassifyError(msg string) ErrorType {
	if ok, _ := ParseMaxTokensLimit(msg); ok {
		return ErrorTypeMaxTokens
	}
	switch {
	case IsContextOverflowMessage(msg):
		return ErrorTypeContextOverflow
	case IsRateLimitMessage(msg):
		return ErrorTypeRateLimit
	case IsOverloadedMessage(msg):
		return ErrorTypeOverloaded
	case IsBillingMessage(msg):
		return ErrorTypeBilling
	case IsAuthMessage(msg):
		return ErrorTypeAuth
	case IsTimeoutMessage(msg):
		return ErrorTypeTimeout
	case IsFormatMessage(msg):
		return ErrorTypeFormat
	default:
		return ErrorTypeUnknown
	}
}

// IsFailoverError reports whether a classified error justifies trying a
// different provider rather than retrying the same one. max_tokens is
// explicitly excluded: the caller should retry with a capped budget
// first. context_overflow and format errors won't be fixed by failover
// either, since they describe the request itself, not the provider.
func IsFailoverError(errType ErrorType) bool {
	switch errType {
	case ErrorTypeRateLimit, ErrorTypeAuth, ErrorTypeBilling, ErrorTypeTimeout, ErrorTypeOverloaded:
		return true
	default:
		return false
	}
}

// FormatErrorForUser renders a one-line, human-readable message for a
// classified error, matching the "no stack traces leaked" rule.
func FormatErrorForUser(msg string, errType ErrorType) string {
	switch errType {
	case ErrorTypeContextOverflow:
		return "Context overflow: prompt too large for the model. Try a new session or wait for auto-compaction."
	case ErrorTypeRateLimit:
		return "Rate limited by the provider. Retrying later should succeed."
	case ErrorTypeOverloaded:
		return "Provider is temporarily overloaded. Retrying later should succeed."
	case ErrorTypeAuth:
		return "Authentication expired or invalid. Re-authenticate to continue."
	case ErrorTypeBilling:
		return "Provider billing/quota issue. Check your account."
	case ErrorTypeTimeout:
		return "Request to the provider timed out."
	case ErrorTypeMaxTokens:
		return "Requested max output tokens exceeds the model's limit."
	case ErrorTypeFormat:
		return "Request was rejected for its shape; this is likely an engine bug."
	default:
		return msg
	}
}
