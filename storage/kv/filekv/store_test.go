package filekv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/core"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(ctx, "plans")
	assert.Equal(t, core.ErrNoData, err)

	require.NoError(t, s.Save(ctx, "plans", []byte(`[{"id":"P001"}]`)))
	require.NoError(t, s.Save(ctx, "plans", []byte(`[]`)))
	data, err := s.Load(ctx, "plans")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	raw, err := os.ReadFile(filepath.Join(dir, "plans.json"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))

	for _, key := range []string{"../etc/passwd", "Plans", ""} {
		assert.Error(t, s.Save(ctx, key, nil), key)
		_, err := s.Load(ctx, key)
		assert.Error(t, err, key)
	}
}
