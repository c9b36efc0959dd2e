package cryptox

import (
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	// KeySize is the length of derived data keys (AES-256).
	KeySize = 32
	// SaltSize is the length of generated salts.
	SaltSize = 32
	// HashSize is the length of PBKDF2 verification hashes.
	HashSize = 64

	MinScryptN              = 1 << 14
	MinPBKDF2Iterations     = 100_000
	DefaultPBKDF2Iterations = 210_000
)

var (
	ErrWeakParams = errors.New("cryptox: KDF cost parameters below minimum")
	ErrEmptySalt  = errors.New("cryptox: salt must not be empty")
)

// ScryptParams are the cost factors of the data-key derivation.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// DefaultScrypt is used for new vaults.
var DefaultScrypt = ScryptParams{N: 1 << 15, R: 8, P: 1}

// Validate reports whether the parameters are acceptable for a data key.
func (p ScryptParams) Validate() error {
	if p.N < MinScryptN || p.N&(p.N-1) != 0 || p.R < 1 || p.P < 1 {
		return fmt.Errorf("%w: scrypt N=%d r=%d p=%d", ErrWeakParams, p.N, p.R, p.P)
	}
	return nil
}

// DeriveKey stretches passphrase with scrypt into a KeySize-byte key.
// The key is only ever used for payload encryption and must not be stored.
func DeriveKey(passphrase, salt []byte, p ScryptParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, ErrEmptySalt
	}
	return scrypt.Key(passphrase, salt, p.N, p.R, p.P, KeySize)
}

// PasswordHash is a login verifier together with the salt that produced it.
type PasswordHash struct {
	Hash []byte
	Salt []byte
}

// HashPassword derives a PBKDF2-SHA512 verifier. A fresh SaltSize-byte salt
// is generated when salt is nil.
func HashPassword(passphrase, salt []byte, iterations int) (PasswordHash, error) {
	if iterations < MinPBKDF2Iterations {
		return PasswordHash{}, fmt.Errorf("%w: pbkdf2 iterations=%d", ErrWeakParams, iterations)
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(SaltSize)
	}
	if len(salt) == 0 {
		return PasswordHash{}, ErrEmptySalt
	}
	hash := pbkdf2.Key(passphrase, salt, iterations, HashSize, sha512.New)
	return PasswordHash{Hash: hash, Salt: salt}, nil
}

// VerifyPassword re-derives the verifier with the stored salt and compares
// it in constant time. It never returns an error: any mismatch, including
// malformed stored values, is reported as false.
func VerifyPassword(passphrase, storedHash, storedSalt []byte, iterations int) bool {
	if len(storedHash) == 0 || len(storedSalt) == 0 || iterations < 1 {
		return false
	}
	candidate := pbkdf2.Key(passphrase, storedSalt, iterations, len(storedHash), sha512.New)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, storedHash) == 1
}
