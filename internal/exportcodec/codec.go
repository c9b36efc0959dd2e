// Package exportcodec seals vault entries into a portable envelope
// protected by an export passphrase, independent of any master key, and
// stores envelopes on disk or in S3.
package exportcodec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/cryptox"
	"github.com/dmitrijs2005/passvault/internal/models"
)

// Version is the only envelope format this package reads or writes.
const Version = "1.0"

// ScryptParams are fixed per envelope version so an export stays readable
// whatever the vault's configured cost.
var ScryptParams = cryptox.ScryptParams{N: 1 << 14, R: 8, P: 1}

// Envelope is the on-disk export. Byte fields are base64 in JSON.
type Envelope struct {
	Version      string    `json:"version"`
	Salt         []byte    `json:"salt"`
	Ciphertext   []byte    `json:"ciphertext"`
	Tag          []byte    `json:"tag"`
	Nonce        []byte    `json:"nonce"`
	ExportedAt   time.Time `json:"exportedAt"`
	EntriesCount int       `json:"entriesCount"`
}

type Codec struct {
	now func() time.Time
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func New(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Seal serializes entries and encrypts them under a key derived from
// passphrase and a fresh salt.
func (c *Codec) Seal(entries []models.EntryPlaintext, passphrase string) (*Envelope, error) {
	if entries == nil {
		entries = []models.EntryPlaintext{}
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal entries: %w", err)
	}
	defer common.WipeByteArray(blob)

	salt := common.GenerateRandByteArray(cryptox.SaltSize)
	key, err := cryptox.DeriveKey([]byte(passphrase), salt, ScryptParams)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	sealed, err := cryptox.Encrypt(blob, key)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Version:      Version,
		Salt:         salt,
		Ciphertext:   sealed.Ciphertext,
		Tag:          sealed.Tag,
		Nonce:        sealed.Nonce,
		ExportedAt:   c.now().UTC(),
		EntriesCount: len(entries),
	}, nil
}

// Open decrypts env. A wrong passphrase and a tampered envelope both fail
// with common.ErrImportDecryption.
func (c *Codec) Open(env *Envelope, passphrase string) ([]models.EntryPlaintext, error) {
	if err := check(env); err != nil {
		return nil, err
	}

	key, err := cryptox.DeriveKey([]byte(passphrase), env.Salt, ScryptParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptEnvelope, err)
	}
	defer common.WipeByteArray(key)

	blob, err := cryptox.Decrypt(cryptox.Sealed{Ciphertext: env.Ciphertext, Tag: env.Tag, Nonce: env.Nonce}, key)
	if err != nil {
		return nil, common.ErrImportDecryption
	}
	defer common.WipeByteArray(blob)

	var entries []models.EntryPlaintext
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptEnvelope, err)
	}
	if len(entries) != env.EntriesCount {
		return nil, fmt.Errorf("%w: holds %d entries, header says %d", common.ErrCorruptEnvelope, len(entries), env.EntriesCount)
	}
	return entries, nil
}

func check(env *Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: empty", common.ErrCorruptEnvelope)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %q", common.ErrUnsupportedVersion, env.Version)
	}
	if len(env.Salt) == 0 || len(env.Tag) != cryptox.TagSize || len(env.Nonce) == 0 {
		return fmt.Errorf("%w: missing salt, tag or nonce", common.ErrCorruptEnvelope)
	}
	return nil
}

// Encode renders env as indented JSON.
func Encode(env *Envelope) ([]byte, error) {
	return json.MarshalIndent(env, "", "  ")
}

// Decode parses an envelope and rejects unknown versions before looking at
// any other field.
func Decode(data []byte) (*Envelope, error) {
	var head struct {
		Version *string `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptEnvelope, err)
	}
	if head.Version == nil {
		return nil, fmt.Errorf("%w: no version", common.ErrCorruptEnvelope)
	}
	if *head.Version != Version {
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedVersion, *head.Version)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorruptEnvelope, err)
	}
	if err := check(&env); err != nil {
		return nil, err
	}
	return &env, nil
}
