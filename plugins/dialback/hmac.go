package dialback

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateKey computes the dialback key per XEP-0220 §4.2.1: an
// HMAC-SHA-256 of "target || origin || stream-id" keyed by a secret shared
// only between servers that trust each other's dialback (typically derived
// once per outbound stream and never persisted).
func GenerateKey(secret, target, origin, streamID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(target))
	mac.Write([]byte(origin))
	mac.Write([]byte(streamID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyKey reports whether key matches the dialback key computed from the
// given parameters, using constant-time comparison to avoid a timing
// side-channel on the secret.
func VerifyKey(secret, target, origin, streamID, key string) bool {
	want := GenerateKey(secret, target, origin, streamID)
	return hmac.Equal([]byte(want), []byte(key))
}
