package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 derives deterministic hex keys from a secret. It satisfies Hash
// so it can stand in wherever a keyed digest is enough.
type HMACSHA256 struct {
	secret []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Key returns the lowercase hex digest of input.
func (s *HMACSHA256) Key(input string) string {
	return hex.EncodeToString(s.sum(input))
}

// Hash returns the same value as Key, as bytes.
func (s *HMACSHA256) Hash(input string) ([]byte, error) {
	return []byte(s.Key(input)), nil
}

func (s *HMACSHA256) Verify(hashed, input string) bool {
	want, err := hex.DecodeString(hashed)
	if err != nil {
		return false
	}
	return hmac.Equal(want, s.sum(input))
}

func (s *HMACSHA256) sum(input string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return mac.Sum(nil)
}
