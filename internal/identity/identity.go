// Package identity generates the two tokens a guest carries: a globally
// unique opaque identifier (QR payload / self-service link) and a short
// numeric code for manual entry at the door.
package identity

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
)

// IdentifierLength is the rendered length of NewIdentifier (128 random bits, hex).
const IdentifierLength = 32

// CodeLength is the rendered length of NewCode.
const CodeLength = 4

const codeSpace = 10000 // 0000..9999

// NewIdentifier returns a 128-bit cryptographically random token rendered
// as 32 lowercase hex characters. Collision probability is negligible at
// guest-list scale, so global uniqueness is assumed (and still backed by a
// unique index at insert time).
func NewIdentifier() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// NewCode returns a zero-padded 4-digit numeric string. The code space is
// tiny, so collisions within a couple are expected at scale: the caller must
// check the candidate against the couple's existing codes and re-roll on
// conflict. No uniqueness is guaranteed here.
func NewCode() string {
	var raw [8]byte
	rand.Read(raw[:])
	n := binary.BigEndian.Uint64(raw[:]) % codeSpace
	return renderCode(int(n))
}

func renderCode(n int) string {
	digits := [CodeLength]byte{}
	for i := CodeLength - 1; i >= 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[:])
}
