package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	rec := HandoffRecord{JobID: "123", Port: "8000", Node: "node01"}

	require.NoError(t, WriteHandoff(path, rec))
	got, err := LoadHandoff(path)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestHandoffFieldNames(t *testing.T) {
	// The record is read by independent tools; field names are a contract.
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, WriteHandoff(path, HandoffRecord{JobID: "1", Port: "2", Node: "n"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id"`)
	assert.Contains(t, string(data), `"port"`)
	assert.Contains(t, string(data), `"node"`)
}

func TestLoadHandoffMissing(t *testing.T) {
	_, err := LoadHandoff(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, ErrNoHandoff)
}

func TestLoadHandoffCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))
	_, err := LoadHandoff(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoHandoff)
}

func TestRemoveHandoff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, WriteHandoff(path, HandoffRecord{}))
	require.NoError(t, RemoveHandoff(path))
	// Removing again is fine.
	require.NoError(t, RemoveHandoff(path))
}
