// Package promote fetches pages statically and re-renders them in a
// headless browser when the static HTML looks like a client-side app.
package promote

import (
	"bytes"
	"strings"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// DefaultBodyThreshold is the body size under which script-heavy pages
// are considered unrendered shells.
const DefaultBodyThreshold = 2048

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new heuristic. A zero threshold uses the default.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = DefaultBodyThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-app"),
}

// ShouldPromote reports whether page needs a headless render.
func (h *Heuristic) ShouldPromote(page monitor.Page) bool {
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return false
	}
	body := page.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether <script> elements cover at least a
// quarter of the document.
func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagEnd := strings.IndexByte(lower[start:], '>')
		if tagEnd == -1 {
			// Malformed trailing tag: count the rest.
			coverage += total - start
			break
		}
		contentStart := start + tagEnd + 1

		end := total
		if relEnd := strings.Index(lower[contentStart:], closeTag); relEnd != -1 {
			end = contentStart + relEnd + len(closeTag)
		}
		coverage += end - start
		pos = end
	}

	return coverage > 0 && coverage*100/total >= 25
}
