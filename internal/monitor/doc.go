// Package monitor implements the release-page change detector: it resolves the
// period URL to watch (with adjacent-month and generic fallbacks), reduces the
// page to a text fingerprint, compares it with the persisted state, and
// decides whether a notification is due.
package monitor
