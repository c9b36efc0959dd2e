package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testScrypt = ScryptParams{N: MinScryptN, R: 8, P: 1}

func TestDeriveKey_DeterministicPerSalt(t *testing.T) {
	pass := []byte("correct-horse-battery")
	salt1 := bytes.Repeat([]byte{1}, SaltSize)
	salt2 := bytes.Repeat([]byte{2}, SaltSize)

	k1, err := DeriveKey(pass, salt1, testScrypt)
	require.NoError(t, err)
	k1again, err := DeriveKey(pass, salt1, testScrypt)
	require.NoError(t, err)
	k2, err := DeriveKey(pass, salt2, testScrypt)
	require.NoError(t, err)

	assert.Len(t, k1, KeySize)
	assert.Equal(t, k1, k1again)
	assert.NotEqual(t, k1, k2)
}

func TestDeriveKey_RejectsWeakParams(t *testing.T) {
	salt := []byte("salt")
	tests := []struct {
		name string
		p    ScryptParams
	}{
		{"N too small", ScryptParams{N: 1 << 10, R: 8, P: 1}},
		{"N not power of two", ScryptParams{N: 20000, R: 8, P: 1}},
		{"zero r", ScryptParams{N: MinScryptN, R: 0, P: 1}},
		{"zero p", ScryptParams{N: MinScryptN, R: 8, P: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey([]byte("x"), salt, tt.p)
			assert.ErrorIs(t, err, ErrWeakParams)
		})
	}

	_, err := DeriveKey([]byte("x"), nil, testScrypt)
	assert.ErrorIs(t, err, ErrEmptySalt)
}

func TestHashPassword_GeneratesSalt(t *testing.T) {
	h, err := HashPassword([]byte("pw"), nil, MinPBKDF2Iterations)
	require.NoError(t, err)
	assert.Len(t, h.Salt, SaltSize)
	assert.Len(t, h.Hash, HashSize)

	h2, err := HashPassword([]byte("pw"), nil, MinPBKDF2Iterations)
	require.NoError(t, err)
	assert.NotEqual(t, h.Salt, h2.Salt)
	assert.NotEqual(t, h.Hash, h2.Hash)
}

func TestHashPassword_RejectsLowIterations(t *testing.T) {
	_, err := HashPassword([]byte("pw"), nil, 1000)
	assert.ErrorIs(t, err, ErrWeakParams)
}

func TestVerifyPassword(t *testing.T) {
	h, err := HashPassword([]byte("right"), nil, MinPBKDF2Iterations)
	require.NoError(t, err)

	assert.True(t, VerifyPassword([]byte("right"), h.Hash, h.Salt, MinPBKDF2Iterations))
	assert.False(t, VerifyPassword([]byte("wrong"), h.Hash, h.Salt, MinPBKDF2Iterations))
	assert.False(t, VerifyPassword([]byte("right"), h.Hash, []byte("other-salt"), MinPBKDF2Iterations))
	assert.False(t, VerifyPassword([]byte("right"), nil, h.Salt, MinPBKDF2Iterations))
	assert.False(t, VerifyPassword([]byte("right"), h.Hash, nil, MinPBKDF2Iterations))
}

func TestVerificationHashIsNotDataKey(t *testing.T) {
	pass := []byte("same passphrase")
	h, err := HashPassword(pass, nil, MinPBKDF2Iterations)
	require.NoError(t, err)
	key, err := DeriveKey(pass, h.Salt, testScrypt)
	require.NoError(t, err)

	assert.False(t, bytes.Contains(h.Hash, key))
	assert.NotEqual(t, h.Hash[:KeySize], key)
}
