package monitor

import (
	"time"
)

// Fingerprint is the hex-encoded digest of a page's normalized text.
type Fingerprint string

// Status classifies the result of one check run.
type Status string

// Run outcomes, in the precedence order the detector evaluates them.
const (
	StatusFetchFailed    Status = "fetch_failed"
	StatusFirstRun       Status = "first_run"
	StatusPeriodRollover Status = "period_rollover"
	StatusContentChanged Status = "content_changed"
	StatusNoChange       Status = "no_change"
)

// ShouldNotify reports whether the status warrants a notification.
func (s Status) ShouldNotify() bool {
	return s == StatusPeriodRollover || s == StatusContentChanged
}

// Target is the URL chosen for a run together with the period label it
// represents. Generic targets carry a sentinel label and a zero Period.
type Target struct {
	Period  Period
	Label   string
	URL     string
	Generic bool
}

// DisplayName renders the target for humans, e.g. "March 2024".
func (t Target) DisplayName() string {
	if t.Generic || t.Period.IsZero() {
		return "New Arrivals"
	}
	return t.Period.DisplayName()
}

// State is the record persisted between runs.
type State struct {
	Fingerprint Fingerprint
	URL         string
	Period      string
	LastCheck   time.Time
}

// Page is the raw response returned by a Fetcher.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Snapshot is the fingerprinted view of a fetched page.
type Snapshot struct {
	URL         string
	Text        string
	Strategy    string
	Fingerprint Fingerprint
	FetchedIn   time.Duration
}

// Notification is the message handed to notification channels.
type Notification struct {
	RunID   string
	Status  Status
	Subject string
	Body    string
	URL     string
	Context string
	Target  Target
	SentAt  time.Time
}

// Outcome summarizes a completed run. Err carries the cause for
// StatusFetchFailed; NotifyErr and SaveErr are recorded but never change
// the status.
type Outcome struct {
	RunID       string
	Status      Status
	Target      Target
	Fingerprint Fingerprint
	Previous    *State
	Notified    bool
	Err         error
	NotifyErr   error
	SaveErr     error
}
