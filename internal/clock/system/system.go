// Package system provides a real clock implementation.
package system

import (
	"fmt"
	"time"
)

// Clock implements monitor.Clock using time.Now in a fixed location. The
// location decides which calendar month a run belongs to.
type Clock struct {
	loc *time.Location
}

// New creates a Clock for loc; nil means time.Local.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc}
}

// NewInZone creates a Clock for an IANA zone name. "" and "Local" use the
// host's zone.
func NewInZone(name string) (*Clock, error) {
	if name == "" || name == "Local" {
		return New(time.Local), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc), nil
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clock's location.
func (c *Clock) Location() *time.Location {
	return c.loc
}
