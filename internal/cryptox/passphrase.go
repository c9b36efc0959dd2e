package cryptox

import (
	"crypto/rand"
	"errors"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// DefaultCharset is the alphabet used when no charset is configured.
const DefaultCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()_-+=<>?"

// DefaultPassphraseLength is the generator length when none is configured.
const DefaultPassphraseLength = 16

var ErrInvalidCharset = errors.New("cryptox: charset must hold 1 to 256 distinct symbols")

// GeneratePassphrase draws length symbols uniformly from the distinct symbols
// of charset using rejection sampling over crypto/rand bytes. Repeated symbols
// do not gain weight.
func GeneratePassphrase(length int, charset string) (string, error) {
	if length < 1 {
		return "", errors.New("cryptox: passphrase length must be positive")
	}
	if !utf8.ValidString(charset) {
		return "", ErrInvalidCharset
	}
	symbols := distinctRunes(charset)
	n := len(symbols)
	if n == 0 || n > 256 {
		return "", ErrInvalidCharset
	}

	// bytes >= limit would make the low residues more likely
	limit := 256 - 256%n

	out := make([]rune, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, symbols[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

func distinctRunes(s string) []rune {
	seen := make(map[rune]struct{}, len(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Strength scores passphrase from 0 (trivial) to 4 (very strong). userInputs
// are penalised when they appear in the passphrase, e.g. the username.
func Strength(passphrase string, userInputs ...string) int {
	if passphrase == "" {
		return 0
	}
	return zxcvbn.PasswordStrength(passphrase, userInputs).Score
}
