package verify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ducks/llmux/apply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuccess(t *testing.T) {
	dir := t.TempDir()
	r, err := Run("echo hello", dir, time.Second)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, 0, r.ExitCode)
	assert.Contains(t, r.Stdout, "hello")
}

func TestRunFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	r, err := Run("exit 7", dir, time.Second)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, 7, r.ExitCode)
}

func TestRunCapturesStderr(t *testing.T) {
	dir := t.TempDir()
	r, err := Run("echo oops 1>&2", dir, time.Second)
	require.NoError(t, err)
	assert.Contains(t, r.Stderr, "oops")
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	_, err := Run("sleep 5", dir, 50*time.Millisecond)
	require.Error(t, err)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestRollbackBackupRestoresModifiedAndRemovesCreated(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(changed, []byte("new"), 0o644))
	backup := filepath.Join(dir, "a.txt.bak")
	require.NoError(t, os.WriteFile(backup, []byte("old"), 0o644))
	created := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(created, []byte("fresh"), 0o644))

	m := &apply.Manifest{
		Changed: []apply.FileChange{{Path: changed, BackupPath: backup}},
		Created: []string{created},
	}

	res, err := Rollback(StrategyBackup, dir, m)
	require.NoError(t, err)
	assert.Len(t, res.Failed, 0)

	got, err := os.ReadFile(changed)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))

	_, err = os.Stat(created)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(backup)
	assert.True(t, os.IsNotExist(err))
}

func TestRollbackNoneIsNoOp(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(changed, []byte("new"), 0o644))

	m := &apply.Manifest{Changed: []apply.FileChange{{Path: changed, BackupPath: "/nonexistent"}}}
	res, err := Rollback(StrategyNone, dir, m)
	require.NoError(t, err)
	assert.Empty(t, res.Restored)

	got, _ := os.ReadFile(changed)
	assert.Equal(t, "new", string(got))
}

func TestRollbackPartialFailureReported(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(changed, []byte("new"), 0o644))

	m := &apply.Manifest{
		Changed: []apply.FileChange{{Path: changed, BackupPath: "/does/not/exist"}},
	}
	_, err := Rollback(StrategyBackup, dir, m)
	require.Error(t, err)
	var rpe *RollbackPartialError
	require.ErrorAs(t, err, &rpe)
	assert.Len(t, rpe.Failed, 1)
}

func TestCleanupRemovesBackupBlobs(t *testing.T) {
	dir := t.TempDir()
	backup := filepath.Join(dir, "a.txt.bak")
	require.NoError(t, os.WriteFile(backup, []byte("old"), 0o644))

	m := &apply.Manifest{Changed: []apply.FileChange{{Path: filepath.Join(dir, "a.txt"), BackupPath: backup}}}
	require.NoError(t, Cleanup(m))

	_, err := os.Stat(backup)
	assert.True(t, os.IsNotExist(err))
}
