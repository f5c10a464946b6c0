package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Fingerprint returns the hex SHA-256 of a secret (session credential, 2FA secret).
// Used wherever a credential must be identified in logs or events without exposing it.
func Fingerprint(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// ShortFingerprint returns the first 12 hex characters of Fingerprint, or "" for an empty secret.
func ShortFingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Fingerprint(secret)[:12]
}

// FingerprintEqual performs constant-time comparison of the secret's fingerprint with stored.
func FingerprintEqual(secret, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(Fingerprint(secret)), []byte(stored)) == 1
}

// MaskPhone keeps the leading "+" with two digits and the last two digits of a phone number.
// Short inputs are fully masked.
func MaskPhone(phone string) string {
	p := strings.TrimSpace(phone)
	if len(p) <= 6 {
		return strings.Repeat("*", len(p))
	}
	head := 2
	if strings.HasPrefix(p, "+") {
		head = 3
	}
	return p[:head] + strings.Repeat("*", len(p)-head-2) + p[len(p)-2:]
}
