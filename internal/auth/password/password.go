// Package password hashes and verifies user passwords. Digests are opaque to
// every other package: nothing outside this boundary may decode, log, or
// compare them.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 32
	keyLength  = 32

	// PBKDF2-SHA256 iteration count. Raising it changes new digests only;
	// stored digests keep verifying because the count is fixed per format.
	iterations = 210_000
)

// Hash derives a storable digest from a plaintext password: a fresh random
// salt concatenated with the PBKDF2 derived key, URL-safe base64 encoded.
// Two calls with the same password produce different digests.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return base64.URLEncoding.EncodeToString(append(salt, key...)), nil
}

// Verify reports whether password matches the stored digest. Malformed or
// truncated digests verify as false; decoding failure is a verification
// failure, never an error.
func Verify(password, digest string) bool {
	decoded, err := base64.URLEncoding.DecodeString(digest)
	if err != nil {
		return false
	}
	if len(decoded) != saltLength+keyLength {
		return false
	}
	salt, key := decoded[:saltLength], decoded[saltLength:]
	candidate := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(key, candidate) == 1
}
