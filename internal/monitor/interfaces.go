package monitor

import (
	"context"
	"time"
)

// Prober reports whether a URL currently serves a page. Implementations
// return *HTTPStatusError for non-2xx answers and *TransportError when the
// server could not be reached, so callers can tell "absent" from "broken".
type Prober interface {
	Exists(ctx context.Context, rawURL string) (bool, error)
}

// Fetcher retrieves a page body. Non-2xx responses are errors.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Extractor reduces an HTML document to comparable text. The returned
// string names the strategy that matched.
type Extractor interface {
	Extract(body []byte) (text string, strategy string, err error)
}

// Hasher computes fingerprints over extracted text.
type Hasher interface {
	Fingerprint(text string) Fingerprint
}

// StateStore persists the single monitor state record. Load returns
// ErrNoState when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Notifier delivers a notification to one or more channels.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
