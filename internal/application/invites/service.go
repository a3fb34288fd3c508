// Package invites builds the self-service link for a guest and renders it as
// a QR image. The link embeds only the opaque identifier; the code stays a
// keypad-entry fallback and never appears in the payload.
package invites

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

type Service struct {
	// BaseURL of the guest-facing RSVP frontend, e.g. https://rsvp.gatelist.app
	BaseURL string
}

// Link returns the self-service RSVP URL for a guest identifier.
func (s *Service) Link(identifier string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/rsvp/" + identifier
}

// QRPNG renders the guest's link as a PNG. Size <= 0 falls back to the
// default edge length in pixels.
func (s *Service) QRPNG(identifier string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	return qrcode.Encode(s.Link(identifier), qrcode.Medium, size)
}
