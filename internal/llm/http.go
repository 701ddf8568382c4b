package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/termai-dev/termai/internal/apperr"
	. "github.com/termai-dev/termai/internal/logging"
)

// inputWarnThreshold is the character count past which a dispatcher
// warns to stderr that a request is large, well short of the hard
// inputSafetyCeiling rejection.
const inputWarnThreshold = 10_000

// checkInputLen enforces the shared pre-flight size guard common to all
// three dispatcher flavors: reject before ever building the request.
func checkInputLen(total int) error {
	if total > inputWarnThreshold {
		L_warn("llm: request input is large", "chars", total)
	}
	if total > inputSafetyCeiling {
		return apperr.New(apperr.KindInputTooLarge,
			fmt.Sprintf("input is %d characters, exceeding the %d character ceiling", total, inputSafetyCeiling))
	}
	return nil
}

// classifyProviderError turns a non-2xx status and response body into a
// taxonomy error: a 401 (or a body ClassifyError recognizes as an auth
// failure despite a different status) becomes AuthenticationExpired;
// everything else becomes ProviderError, with the message naming
// whether IsFailoverError would consider it retryable against another
// provider.
func classifyProviderError(status int, body []byte) error {
	bodyStr := truncateBody(body, 1000)
	if status == http.StatusUnauthorized {
		return apperr.New(apperr.KindAuthenticationExpired, "provider rejected credentials")
	}

	errType := ClassifyError(bodyStr)
	if errType == ErrorTypeAuth {
		return apperr.New(apperr.KindAuthenticationExpired, FormatErrorForUser(bodyStr, errType))
	}

	detail := FormatErrorForUser(bodyStr, errType)
	if IsFailoverError(errType) {
		return apperr.New(apperr.KindProviderError,
			fmt.Sprintf("provider returned %d, retryable (%s): %s", status, errType, detail))
	}
	return apperr.New(apperr.KindProviderError,
		fmt.Sprintf("provider returned %d: %s", status, detail))
}

// doJSONRequest POSTs body to url with the given bearer credential and
// returns the raw response body, classifying non-2xx statuses through
// classifyProviderError.
func doJSONRequest(ctx context.Context, client *http.Client, url string, cred Credential, body []byte, extraHeaders map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "build provider request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "provider request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "read provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyProviderError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func truncateBody(b []byte, n int) string {
	s := string(b)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
