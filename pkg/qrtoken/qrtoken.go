// Package qrtoken generates the opaque scannable identifiers printed on
// product labels. The format carries no meaning inside the core; rendering a
// token as an actual QR image is a frontend concern.
package qrtoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Prefix distinguishes product tokens from other identifiers in scanned input.
const Prefix = "QR-"

const randomBytes = 6

// New returns a collision-resistant token of the form QR-XXXXXXXXXXXX where
// X is an uppercase hex digit.
func New() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// Valid reports whether s looks like a token produced by New. Stores still
// treat unknown tokens as not found; this only guards obviously bad input.
func Valid(s string) bool {
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	body := strings.TrimPrefix(s, Prefix)
	if len(body) != randomBytes*2 {
		return false
	}
	for _, c := range body {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
