package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/epa/internal/dto"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/require"
)

// SeedDescriptions writes automaton description documents (file name to
// content) into a fresh temporary directory and opens it as a Loam
// repository. It returns the absolute directory, for code that opens the
// repository itself, and a typed repository over it.
func SeedDescriptions(t *testing.T, docs map[string]string) (string, *loam.TypedRepository[dto.AutomatonDescription]) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	for name, content := range docs {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "seed %s", name)
	}

	// Files are on disk already, so the repository must not redirect to a
	// sandbox of its own.
	repo, err := loam.Init(dir, loam.WithVersioning(false), loam.WithForceTemp(false))
	require.NoError(t, err, "init loam repository")

	return dir, loam.NewTypedRepository[dto.AutomatonDescription](repo)
}
