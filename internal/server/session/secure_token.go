package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// SecureToken generates a unique random token of n random bytes rendered as
// hexadecimal. n must be at least 16 so a token carries 128 bits of entropy.
func SecureToken(n int) string {
	if n < 16 {
		n = 16
	}

	payload := make([]byte, n)
	if _, err := rand.Read(payload); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}

	return hex.EncodeToString(payload)
}

// SecureCompare compares the givens strings in a constant time.
// So length info is not leaked via timing attacks.
func SecureCompare(s1, s2 string) bool {
	return subtle.ConstantTimeCompare([]byte(s1), []byte(s2)) == 1
}
