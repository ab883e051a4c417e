package fetch

import (
	"bytes"
	"strings"
)

// Detector decides whether a plain HTTP response actually carried the listing
// or an anti-bot/JS interstitial that needs a headless render.
type Detector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewDetector constructs a Detector. A body shorter than minBytes or
// containing any keyword (case-insensitive) is flagged for promotion.
func NewDetector(minBytes int, keywords []string) *Detector {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &Detector{
		minHTMLBytes: minBytes,
		keywords:     lowered,
	}
}

// NeedsJS inspects the body for signals that the plain fetch was served a
// challenge page instead of content.
func (d *Detector) NeedsJS(body []byte) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	return d.containsKeyword(body)
}

func (d *Detector) containsKeyword(body []byte) bool {
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lowered := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
