// Package md5 provides the page fingerprint hasher.
package md5

import (
	"crypto/md5" //nolint:gosec // change detection only, inputs are not adversarial
	"encoding/hex"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// Hasher implements monitor.Hasher using MD5 over the UTF-8 text.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Fingerprint hashes text and returns the 32-character hex digest.
func (h *Hasher) Fingerprint(text string) monitor.Fingerprint {
	sum := md5.Sum([]byte(text)) //nolint:gosec // see import
	return monitor.Fingerprint(hex.EncodeToString(sum[:]))
}
