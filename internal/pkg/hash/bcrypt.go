package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt silently truncates after 72 bytes; longer input is rejected
// instead so two passwords sharing a prefix never collide.
const bcryptMaxInput = 72

var ErrPasswordTooLong = errors.New("hash: password exceeds 72 bytes")

// Bcrypt hashes account passwords with bcrypt. The pepper is appended to
// the plaintext and must live in configuration, never next to the hashes.
type Bcrypt struct {
	cost   int
	pepper string
}

// NewBcrypt clamps cost into bcrypt's accepted range.
func NewBcrypt(cost int, pepper string) *Bcrypt {
	cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	return &Bcrypt{cost: cost, pepper: pepper}
}

func (b *Bcrypt) Hash(plaintext string) ([]byte, error) {
	input := []byte(plaintext + b.pepper)
	if len(input) > bcryptMaxInput {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword(input, b.cost)
}

func (b *Bcrypt) Verify(hashed, plaintext string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext+b.pepper)) == nil
}
