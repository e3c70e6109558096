package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignData returns the base64url-encoded HMAC-SHA256 of data under key.
func SignData(data string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignedData reports whether signature is a valid HMAC for data.
// Comparison is constant-time.
func ValidateSignedData(data, signature string, key []byte) bool {
	expected, err := base64.RawURLEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return hmac.Equal(mac.Sum(nil), expected)
}
