package hub

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for the hub package.
//
// Check with errors.Is(); the concrete cause is wrapped alongside:
//
//	if errors.Is(err, hub.ErrDiscovery) {
//	    // keep the last known device list
//	}
var (
	// ErrAuth is returned when the API token could not be exchanged for a session key.
	ErrAuth = errors.New("hub: authentication failed")

	// ErrTransport is returned for network failures, timeouts, non-2xx responses,
	// and undecodable bodies.
	ErrTransport = errors.New("hub: transport failure")

	// ErrNotFound matches a 404 from the controller. It is always wrapped by ErrTransport.
	ErrNotFound = errors.New("hub: resource not found")

	// ErrUnauthorized matches a 401 from the controller (expired or revoked session key).
	ErrUnauthorized = errors.New("hub: unauthorized")

	// ErrDiscovery is returned when a required collection could not be fetched.
	ErrDiscovery = errors.New("hub: discovery failed")

	// ErrCommand is returned when a write to the controller failed.
	ErrCommand = errors.New("hub: command failed")

	// ErrNotSupported marks an optional collection the controller does not expose.
	ErrNotSupported = errors.New("hub: collection not supported")
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// StatusError describes a non-2xx response from the controller.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is match ErrNotFound and ErrUnauthorized by status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

func newStatusError(method, path string, status int, body []byte) *StatusError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       string(body),
	}
}
