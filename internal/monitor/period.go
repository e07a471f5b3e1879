package monitor

import (
	"fmt"
	"time"
)

const periodSuffix = "_new"

// Period identifies a calendar month of releases.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Prev returns the preceding month, rolling back a year from January.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following month, rolling forward a year from December.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// String returns the canonical label, e.g. "202403_new".
func (p Period) String() string {
	return fmt.Sprintf("%04d%02d%s", p.Year, int(p.Month), periodSuffix)
}

// DisplayName returns e.g. "March 2024".
func (p Period) DisplayName() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}
