// Package state holds the JSON record format shared by the file and object
// state stores. Field names match the files written by earlier versions of
// the monitor so existing state carries over.
package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// naiveLayouts are the timezone-less forms older state files carry.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type record struct {
	Hash      string `json:"hash"`
	URL       string `json:"url"`
	MonthStr  string `json:"month_str"`
	LastCheck string `json:"last_check"`
}

// Encode renders s as an indented JSON document.
func Encode(s monitor.State) ([]byte, error) {
	rec := record{
		Hash:     string(s.Fingerprint),
		URL:      s.URL,
		MonthStr: s.Period,
	}
	if !s.LastCheck.IsZero() {
		rec.LastCheck = s.LastCheck.Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

// Decode parses a state document. A record without a hash is rejected
// since it cannot serve as a comparison baseline. An unreadable last_check
// only loses the timestamp.
func Decode(data []byte) (monitor.State, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return monitor.State{}, fmt.Errorf("decode state: %w", err)
	}
	if strings.TrimSpace(rec.Hash) == "" {
		return monitor.State{}, fmt.Errorf("decode state: missing hash")
	}
	lastCheck, err := ParseTimestamp(rec.LastCheck)
	if err != nil {
		zap.L().Warn("ignoring unreadable last_check in state", zap.Error(err))
		lastCheck = time.Time{}
	}
	return monitor.State{
		Fingerprint: monitor.Fingerprint(rec.Hash),
		URL:         rec.URL,
		Period:      rec.MonthStr,
		LastCheck:   lastCheck,
	}, nil
}

// ParseTimestamp accepts RFC 3339 and naive ISO timestamps. Naive values
// are interpreted in the local zone. An empty string yields the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	var err error
	for _, layout := range naiveLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse last_check %q: %w", raw, err)
}
