package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_SaveLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".samply", "session.json")

	want := New("http://127.0.0.1:12345/abc123", "/tmp/profile.json")
	require.NoError(t, want.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSession_ExistsAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.False(t, Exists(path))

	sess := New("http://127.0.0.1:1/tok", "/tmp/p.json")
	require.NoError(t, sess.Save(path))
	require.True(t, Exists(path))

	require.NoError(t, Remove(path))
	require.False(t, Exists(path))
}

func TestSession_RemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
}

func TestSession_IsAliveForOwnProcess(t *testing.T) {
	sess := New("http://127.0.0.1:1/tok", "/tmp/p.json")
	require.True(t, sess.IsAlive())
}

func TestSession_IsAliveFalseForImplausiblePID(t *testing.T) {
	sess := New("http://127.0.0.1:1/tok", "/tmp/p.json")
	sess.PID = 1 << 30
	require.False(t, sess.IsAlive())
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSession_SaveCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "session.json")

	sess := New("http://127.0.0.1:1/tok", "/tmp/p.json")
	require.NoError(t, sess.Save(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
