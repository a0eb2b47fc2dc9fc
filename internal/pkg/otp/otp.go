package otp

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Length is the number of digits in every issued code.
const Length = 6

// Generator produces numeric one-time codes.
type Generator interface {
	Generate() (string, error)
}

// Numeric generates codes of Length digits, each uniform over 0-9.
type Numeric struct {
	rand io.Reader
}

// NewNumeric returns a Numeric generator reading from crypto/rand.
func NewNumeric() *Numeric {
	return &Numeric{rand: rand.Reader}
}

var ten = big.NewInt(10)

// Generate returns a new code. It performs no I/O besides reading randomness.
func (n *Numeric) Generate() (string, error) {
	buf := make([]byte, Length)
	for i := range buf {
		d, err := rand.Int(n.rand, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + d.Int64())
	}
	return string(buf), nil
}

// IsCode reports whether s is exactly Length ASCII digits.
func IsCode(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
