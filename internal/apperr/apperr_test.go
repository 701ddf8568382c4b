package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindConfigurationMissing:  "ConfigurationMissing",
		KindAuthenticationExpired: "AuthenticationExpired",
		KindCsrfMismatch:          "CsrfMismatch",
		KindNetworkFailure:        "NetworkFailure",
		KindProviderError:         "ProviderError",
		KindParseFailure:          "ParseFailure",
		KindInputTooLarge:         "InputTooLarge",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindNetworkFailure, "provider call failed", cause)

	require.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.Error())
}

func TestKindOf(t *testing.T) {
	err := New(KindCsrfMismatch, "state mismatch")
	wrapped := fmt.Errorf("auth flow: %w", err)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindCsrfMismatch, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := New(KindProviderError, "first message")
	b := New(KindProviderError, "second message")
	assert.ErrorIs(t, a, b, "errors of same Kind should match via Is regardless of Message")

	c := New(KindNetworkFailure, "first message")
	assert.NotErrorIs(t, a, c, "errors of different Kind should not match via Is")
}
