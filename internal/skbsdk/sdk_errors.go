package skbsdk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL = errors.New("sdk: server url missing")
	ErrNoSigner    = errors.New("sdk: signer missing")
	ErrNoKey       = errors.New("sdk: private key missing")

	// api
	ErrNotFound     = errors.New("sdk: not found")
	ErrUnauthorized = errors.New("sdk: signature rejected")

	// info
	ErrIllegalServerState = errors.New("sdk: server is neither verified nor confirmed")
)

// APIError is a non 2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// Is maps well known status codes onto the sdk sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		return fmt.Errorf("%s: %w", operation, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(resp.String()),
		})
	}

	return nil
}
