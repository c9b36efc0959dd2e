package cryptox

// Core bundles the package functions behind a value so callers can accept
// an interface and tests can substitute instrumented implementations.
type Core struct{}

func (Core) DeriveKey(passphrase, salt []byte, p ScryptParams) ([]byte, error) {
	return DeriveKey(passphrase, salt, p)
}

func (Core) HashPassword(passphrase, salt []byte, iterations int) (PasswordHash, error) {
	return HashPassword(passphrase, salt, iterations)
}

func (Core) VerifyPassword(passphrase, hash, salt []byte, iterations int) bool {
	return VerifyPassword(passphrase, hash, salt, iterations)
}

func (Core) Encrypt(plaintext, key []byte) (Sealed, error) {
	return Encrypt(plaintext, key)
}

func (Core) Decrypt(s Sealed, key []byte) ([]byte, error) {
	return Decrypt(s, key)
}
