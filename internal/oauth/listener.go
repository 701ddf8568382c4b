// Package oauth drives the PKCE authorization-code flow: a localhost
// callback listener, the client that builds the auth URL and exchanges
// codes for tokens, and a token manager layering expiry/refresh logic
// over the Config Service.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/termai-dev/termai/internal/apperr"
	. "github.com/termai-dev/termai/internal/logging"
)

// CallbackResult is what the authorization server's redirect carried,
// decoded from its query string.
type CallbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// IsError reports whether the callback signaled denial or server refusal
// rather than success.
func (r *CallbackResult) IsError() bool { return r.Error != "" }

const successPage = `<!doctype html><html><body><h1>Authentication complete</h1><p>You may close this window and return to the terminal.</p></body></html>`

func errorPage(description string) string {
	return fmt.Sprintf(`<!doctype html><html><body><h1>Authentication failed</h1><p>%s</p></body></html>`, description)
}

// Listener binds a fixed localhost port and accepts exactly one OAuth
// redirect before shutting down.
type Listener struct {
	Port int
	Path string
}

// NewListener builds a Listener for the given port and callback path
// (e.g. "/auth/callback").
func NewListener(port int, path string) *Listener {
	return &Listener{Port: port, Path: path}
}

// WaitForCallback binds the socket, serves exactly one request, and
// returns its decoded CallbackResult. Two timeouts compose: an outer
// wait of timeout+5s on this call, and an inner request-receive timeout
// of timeout on the listener itself; whichever fires first yields a
// NetworkFailure-kind timeout error.
func (l *Listener) WaitForCallback(ctx context.Context, timeout time.Duration) (*CallbackResult, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", l.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetworkFailure, "bind callback listener", err)
	}

	resultCh := make(chan *CallbackResult, 1)
	errCh := make(chan error, 1)
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc(l.Path, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body) // drain fully before responding
		_ = r.Body.Close()

		q := r.URL.Query()
		result := &CallbackResult{
			Code:             q.Get("code"),
			State:            q.Get("state"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}

		switch {
		case result.Error != "":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, errorPage(result.ErrorDescription))
			once.Do(func() { resultCh <- result })
		case result.Code != "" && result.State != "":
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, successPage)
			once.Do(func() { resultCh <- result })
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, errorPage("missing required query parameters"))
			once.Do(func() {
				errCh <- apperr.New(apperr.KindParseFailure, "callback request carried neither code/state nor error")
			})
		}
	})

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L_warn("oauth: callback listener stopped", "error", err)
		}
	}()
	defer srv.Close()

	innerTimer := time.AfterFunc(timeout, func() {
		once.Do(func() {
			errCh <- apperr.New(apperr.KindNetworkFailure, "timed out waiting for OAuth callback")
		})
	})
	defer innerTimer.Stop()

	select {
	case result := <-resultCh:
		return result, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(timeout + 5*time.Second):
		return nil, apperr.New(apperr.KindNetworkFailure, "timed out waiting for OAuth callback")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
