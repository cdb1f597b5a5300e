package diag

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listBundle(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()
	tr := tar.NewReader(zr)

	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[hdr.Name] = string(data)
	}
	return files
}

func TestBundle(t *testing.T) {
	logs := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.MkdirAll(filepath.Join(logs, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(logs, "a.log"), []byte("aaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logs, "sub", "b.log"), []byte("bbb"), 0o644))
	handoff := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(handoff, []byte(`{"job_id":"1"}`), 0o600))

	out := filepath.Join(t.TempDir(), "bundle.tar.zst")
	require.NoError(t, Bundle(out, logs, handoff))

	files := listBundle(t, out)
	var names []string
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"logs/a.log", "logs/sub/b.log", "session.json"}, names)
	assert.Equal(t, "aaa", files["logs/a.log"])
	assert.Equal(t, `{"job_id":"1"}`, files["session.json"])
}

func TestBundleSkipsMissingRoots(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bundle.tar.zst")
	require.NoError(t, Bundle(out, filepath.Join(t.TempDir(), "absent")))
	assert.Empty(t, listBundle(t, out))
}
