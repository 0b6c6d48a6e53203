package config

import (
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeDirEntry string

func (f fakeDirEntry) Name() string               { return string(f) }
func (f fakeDirEntry) IsDir() bool                 { return false }
func (f fakeDirEntry) Type() fs.FileMode            { return 0 }
func (f fakeDirEntry) Info() (fs.FileInfo, error)   { return fakeFileInfo(f), nil }

type fakeFileInfo string

func (f fakeFileInfo) Name() string       { return string(f) }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() interface{}   { return nil }

func teamFixture() map[string]Team {
	return map[string]Team{
		"rust": {Detect: []string{"Cargo.toml"}},
		"node": {Detect: []string{"package.json"}},
		"go":   {Detect: []string{"go.mod"}},
	}
}

func TestDetectTeamMatchesMarkerFile(t *testing.T) {
	entries := []os.DirEntry{fakeDirEntry("Cargo.toml"), fakeDirEntry("README.md")}
	got := DetectTeam(entries, teamFixture(), []string{"rust", "node", "go"}, "")
	assert.Equal(t, "rust", got)
}

func TestDetectTeamNoMatch(t *testing.T) {
	entries := []os.DirEntry{fakeDirEntry("README.md")}
	got := DetectTeam(entries, teamFixture(), []string{"rust", "node", "go"}, "")
	assert.Equal(t, "", got)
}

func TestDetectTeamOverrideWins(t *testing.T) {
	entries := []os.DirEntry{fakeDirEntry("Cargo.toml")}
	got := DetectTeam(entries, teamFixture(), []string{"rust", "node", "go"}, "node")
	assert.Equal(t, "node", got)
}

func TestDetectTeamUnknownOverridePassesThrough(t *testing.T) {
	got := DetectTeam(nil, teamFixture(), []string{"rust"}, "totally-unknown")
	assert.Equal(t, "totally-unknown", got)
}
