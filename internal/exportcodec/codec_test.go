package exportcodec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sample() []models.EntryPlaintext {
	return []models.EntryPlaintext{
		{ID: "a", Title: "Mail", Username: "alice", Category: "general", Password: "p@ss"},
		{ID: "b", Title: "Bank", Category: "finance", Password: "1234", Notes: "pin for card"},
		{ID: "c", Title: "VPN", URL: "https://vpn.example", Category: "work", Password: "vpn-pass"},
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	c := New(WithClock(func() time.Time { return exportedAt }))

	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	assert.Equal(t, Version, env.Version)
	assert.Equal(t, 3, env.EntriesCount)
	assert.Equal(t, exportedAt, env.ExportedAt)
	assert.Len(t, env.Salt, 32)
	assert.NotContains(t, string(env.Ciphertext), "p@ss")

	got, err := c.Open(env, "X")
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestSeal_FreshSaltAndNonce(t *testing.T) {
	c := New()
	a, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	b, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestSeal_Empty(t *testing.T) {
	c := New()
	env, err := c.Seal(nil, "X")
	require.NoError(t, err)
	assert.Zero(t, env.EntriesCount)

	got, err := c.Open(env, "X")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_WrongPassphrase(t *testing.T) {
	c := New()
	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)

	_, err = c.Open(env, "Y")
	assert.ErrorIs(t, err, common.ErrImportDecryption)
	assert.ErrorIs(t, err, common.ErrCodec)
}

func TestOpen_Tampered(t *testing.T) {
	c := New()
	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	env.Ciphertext[0] ^= 0xff

	_, err = c.Open(env, "X")
	assert.ErrorIs(t, err, common.ErrImportDecryption)
}

func TestOpen_CountMismatch(t *testing.T) {
	c := New()
	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	env.EntriesCount = 2

	_, err = c.Open(env, "X")
	assert.ErrorIs(t, err, common.ErrCorruptEnvelope)
}

func TestOpen_UnsupportedVersion(t *testing.T) {
	c := New()
	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)
	env.Version = "2.0"

	_, err = c.Open(env, "X")
	assert.ErrorIs(t, err, common.ErrUnsupportedVersion)
}

func TestEncodeDecode(t *testing.T) {
	c := New(WithClock(func() time.Time { return exportedAt }))
	env, err := c.Seal(sample(), "X")
	require.NoError(t, err)

	data, err := Encode(env)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"version", "salt", "ciphertext", "tag", "nonce", "exportedAt", "entriesCount"} {
		assert.Contains(t, raw, k)
	}
	assert.Equal(t, "2024-03-01T12:00:00Z", raw["exportedAt"])
	assert.Equal(t, float64(3), raw["entriesCount"])

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, env, back)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{{`, common.ErrCorruptEnvelope},
		{"no version", `{"salt":"AA=="}`, common.ErrCorruptEnvelope},
		{"unknown version", `{"version":"0.9","salt":"!!"}`, common.ErrUnsupportedVersion},
		{"bad base64", `{"version":"1.0","salt":"!!"}`, common.ErrCorruptEnvelope},
		{"missing fields", `{"version":"1.0"}`, common.ErrCorruptEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
