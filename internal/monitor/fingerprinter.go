package monitor

import (
	"context"
	"fmt"
	"strings"
)

// ContentFingerprinter fetches a page and reduces it to a Fingerprint.
type ContentFingerprinter struct {
	fetcher   Fetcher
	extractor Extractor
	hasher    Hasher
}

// NewContentFingerprinter wires the fetch, extract and hash steps.
func NewContentFingerprinter(fetcher Fetcher, extractor Extractor, hasher Hasher) *ContentFingerprinter {
	return &ContentFingerprinter{
		fetcher:   fetcher,
		extractor: extractor,
		hasher:    hasher,
	}
}

// Fingerprint fetches rawURL and fingerprints its extracted text.
func (f *ContentFingerprinter) Fingerprint(ctx context.Context, rawURL string) (Snapshot, error) {
	page, err := f.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return Snapshot{}, err
	}
	text, strategy, err := f.extractor.Extract(page.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("extract %s: %w", rawURL, err)
	}
	if strings.TrimSpace(text) == "" {
		return Snapshot{}, fmt.Errorf("extract %s: %w", rawURL, ErrEmptyContent)
	}
	return Snapshot{
		URL:         rawURL,
		Text:        text,
		Strategy:    strategy,
		Fingerprint: f.hasher.Fingerprint(text),
		FetchedIn:   page.Duration,
	}, nil
}
