package monitor

import (
	"errors"
	"fmt"
)

// ErrNoState is returned by a StateStore when no state has been persisted.
var ErrNoState = errors.New("monitor: no persisted state")

// ErrEmptyContent is returned when a page yields no extractable text.
var ErrEmptyContent = errors.New("monitor: page has no text content")

// TransportError is a network-level failure (DNS, connect, TLS, timeout)
// while probing or fetching a URL.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("monitor: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the server answered with a status
// outside the 2xx range.
type HTTPStatusError struct {
	Op         string
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("monitor: %s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
}

// ParseError is returned when a document cannot be parsed at all.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("monitor: parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError wraps state store failures, including corrupt records.
type PersistenceError struct {
	Op      string
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("monitor: %s state (%s): %v", e.Op, e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError is returned when a channel fails to deliver.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("monitor: notify via %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
