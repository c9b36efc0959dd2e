package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
)

const (
	// NonceSize is the length of nonces generated by Encrypt.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16

	maxNonceSize = 16
)

// Sealed is one encrypted field: ciphertext, detached GCM tag and nonce.
type Sealed struct {
	Ciphertext []byte
	Tag        []byte
	Nonce      []byte
}

func newGCM(key []byte, nonceSize int) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if nonceSize == NonceSize {
		return cipher.NewGCM(block)
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// Encrypt seals plaintext under key with a fresh random nonce.
func Encrypt(plaintext, key []byte) (Sealed, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, err
	}
	return EncryptWithNonce(plaintext, key, nonce)
}

// EncryptWithNonce seals plaintext with a caller supplied nonce of 12 to 16
// bytes. The caller guarantees the nonce is never reused with the same key.
func EncryptWithNonce(plaintext, key, nonce []byte) (Sealed, error) {
	if len(nonce) < NonceSize || len(nonce) > maxNonceSize {
		return Sealed{}, fmt.Errorf("cryptox: nonce must be %d-%d bytes, got %d", NonceSize, maxNonceSize, len(nonce))
	}
	aead, err := newGCM(key, len(nonce))
	if err != nil {
		return Sealed{}, err
	}

	out := aead.Seal(nil, nonce, plaintext, nil)
	split := len(out) - TagSize

	return Sealed{
		Ciphertext: out[:split:split],
		Tag:        out[split:],
		Nonce:      append([]byte(nil), nonce...),
	}, nil
}

// Decrypt opens s with key. Every failure, including malformed envelopes,
// yields common.ErrDecryptionFailed so callers cannot tell a wrong key from
// a tampered record.
func Decrypt(s Sealed, key []byte) ([]byte, error) {
	if len(s.Tag) != TagSize || len(s.Nonce) < NonceSize || len(s.Nonce) > maxNonceSize {
		return nil, common.ErrDecryptionFailed
	}
	aead, err := newGCM(key, len(s.Nonce))
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}

	buf := make([]byte, 0, len(s.Ciphertext)+TagSize)
	buf = append(buf, s.Ciphertext...)
	buf = append(buf, s.Tag...)

	plaintext, err := aead.Open(nil, s.Nonce, buf, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}
