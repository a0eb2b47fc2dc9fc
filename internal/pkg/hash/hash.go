package hash

// Hash hashes secrets and verifies plaintext against a stored hash.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// New returns the password hasher selected by algorithm ("bcrypt" or
// "argon2id"). Unknown names fall back to bcrypt.
func New(algorithm string, bcryptCost int, pepper string) Hash {
	if algorithm == "argon2id" {
		return NewArgon2id(pepper)
	}
	return NewBcrypt(bcryptCost, pepper)
}
