package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedDialectsMatch(t *testing.T) {
	lite, err := fs.Glob(SQLite(), "*.sql")
	require.NoError(t, err)
	pg, err := fs.Glob(Postgres(), "*.sql")
	require.NoError(t, err)

	require.NotEmpty(t, lite)
	assert.Equal(t, lite, pg, "every migration must exist for both dialects")
}
