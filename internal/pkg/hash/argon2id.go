package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	keyLength   uint32
}

var defaultArgon2Params = argon2Params{
	memory:      32 * 1024,
	iterations:  3,
	parallelism: 2,
	keyLength:   32,
}

const argon2SaltLength = 16

// Argon2id hashes account passwords into PHC strings of the form
// $argon2id$v=19$m=...,t=...,p=...$salt$key.
type Argon2id struct {
	params argon2Params
	pepper string
}

// NewArgon2id returns an Argon2id hasher using 32MiB, 3 passes and 2 lanes.
func NewArgon2id(pepper string) *Argon2id {
	return &Argon2id{params: defaultArgon2Params, pepper: pepper}
}

func (a *Argon2id) Hash(plaintext string) ([]byte, error) {
	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hash: read salt: %w", err)
	}

	p := a.params
	key := argon2.IDKey([]byte(plaintext+a.pepper), salt, p.iterations, p.memory, p.parallelism, p.keyLength)

	return fmt.Appendf(nil, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in hashed, so
// hashes produced with older parameters keep verifying.
func (a *Argon2id) Verify(hashed, plaintext string) bool {
	p, salt, want, ok := decodeArgon2(hashed)
	if !ok || plaintext == "" {
		return false
	}

	got := argon2.IDKey([]byte(plaintext+a.pepper), salt, p.iterations, p.memory, p.parallelism, p.keyLength)
	return subtle.ConstantTimeCompare(want, got) == 1
}

func decodeArgon2(encoded string) (argon2Params, []byte, []byte, bool) {
	var p argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}
	p.keyLength = uint32(len(key))

	return p, salt, key, true
}
