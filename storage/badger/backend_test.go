package badger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)

	assert.False(t, backend.IsClosed())

	err = backend.Close()
	require.NoError(t, err)

	assert.True(t, backend.IsClosed())
}

func TestOpenBackend_FileIsNotDirectory(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

	_, err := OpenBackend(tmpFile, false)
	assert.Error(t, err)
}

func TestL2Distance(t *testing.T) {
	assert.Equal(t, float32(0), l2Distance([]float32{1, 2, 3}, []float32{1, 2, 3}))
	assert.InDelta(t, 5.0, l2Distance([]float32{0, 0}, []float32{3, 4}), 1e-6)
}

func TestDropPrefix(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.WithTx(func(tx *badger.Txn) error {
		require.NoError(t, tx.Set([]byte("a:1"), []byte("x")))
		require.NoError(t, tx.Set([]byte("b:1"), []byte("y")))
		return tx.Commit()
	}, true))

	require.NoError(t, backend.DropPrefix([]byte("a:")))

	var keys []string
	require.NoError(t, backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range []string{"a:", "b:"} {
			if err := backend.scanPrefix(tx, []byte(prefix), func(key, _ []byte) error {
				keys = append(keys, string(key))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}, false))
	assert.Equal(t, []string{"b:1"}, keys)
}
