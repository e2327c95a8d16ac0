package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hm-skb/skb/internal/client/sync"
	"github.com/hm-skb/skb/internal/skbsdk/skbtest"
)

func setupServer(t *testing.T) (string, *skbtest.Server) {
	t.Helper()
	dir := isolateEnv(t)
	keyPath, key := writeKey(t, dir)
	srv := skbtest.New(t, &key.PublicKey)

	t.Setenv("SKB_SERVER_URL", srv.URL())
	t.Setenv("SKB_KEY_PATH", keyPath)
	return dir, srv
}

func touch(t *testing.T, path, content string, mtime int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	setMtime(t, path, mtime)
}

func setMtime(t *testing.T, path string, mtime int64) {
	t.Helper()
	ts := time.Unix(mtime, 0)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func TestFileCommands_EndToEnd(t *testing.T) {
	dir, srv := setupServer(t)
	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes, "v1", 1000)

	out, code := runCLI(t, "file", "add", notes)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "File saved on server: "+notes)

	saved, ok := srv.File(notes)
	require.True(t, ok)
	assert.Equal(t, "v1", string(saved.Content))
	assert.Equal(t, int64(1000), saved.LastModified)

	out, code = runCLI(t, "file", "add", notes)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "already saved")

	out, code = runCLI(t, "file", "list")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "UP TO DATE: "+notes)

	// local edit: download is refused, update goes through
	touch(t, notes, "v2", 2000)

	out, code = runCLI(t, "file", "download", notes)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "Local file is newer")

	out, code = runCLI(t, "file", "update", notes)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Server file updated with local version")

	saved, _ = srv.File(notes)
	assert.Equal(t, "v2", string(saved.Content))
	assert.Equal(t, int64(2000), saved.LastModified)

	// older local copy: forced update needed
	setMtime(t, notes, 1500)
	out, code = runCLI(t, "file", "update", notes)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "Server file is newer")

	out, code = runCLI(t, "file", "update", "-f", notes)
	require.Equal(t, 0, code, out)

	out, code = runCLI(t, "file", "delete", notes)
	require.Equal(t, 0, code, out)
	_, ok = srv.File(notes)
	assert.False(t, ok)
	assert.FileExists(t, notes)

	out, code = runCLI(t, "file", "update", notes)
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "not saved on the server")
}

func TestFileCommands_PathsAreNotNormalized(t *testing.T) {
	dir, srv := setupServer(t)
	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes, "local", 2000)
	srv.AddFile("notes.txt", []byte("remote"), 1000)

	for _, arg := range []string{notes, "./notes.txt"} {
		out, code := runCLIIn(t, dir, "file", "update", arg)
		assert.Equal(t, 1, code, out)
		assert.Contains(t, out, "not saved on the server", arg)
	}

	out, code := runCLIIn(t, dir, "file", "update", "notes.txt")
	require.Equal(t, 0, code, out)

	saved, ok := srv.File("notes.txt")
	require.True(t, ok)
	assert.Equal(t, "local", string(saved.Content))
	assert.Equal(t, int64(2000), saved.LastModified)

	_, ok = srv.File(notes)
	assert.False(t, ok)
}

func TestFileSync_EndToEnd(t *testing.T) {
	dir, srv := setupServer(t)

	photo := filepath.Join(dir, "restored", "photo.jpg")
	srv.AddFile(photo, []byte("jpeg bytes"), 1500)

	report := filepath.Join(dir, "report.txt")
	touch(t, report, "local report", 3000)
	srv.AddFile(report, []byte("old report"), 1000)

	out, code := runCLI(t, "file", "sync")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "downloaded "+photo)
	assert.Contains(t, out, "uploaded   "+report)
	assert.Contains(t, out, "1 uploaded, 1 downloaded, 0 up to date")

	got, err := os.ReadFile(photo)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(got))
	info, err := os.Stat(photo)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), info.ModTime().Unix())

	saved, _ := srv.File(report)
	assert.Equal(t, "local report", string(saved.Content))

	srv.ResetCalls()
	out, code = runCLI(t, "file", "sync")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "0 uploaded, 0 downloaded, 2 up to date")
	assert.Empty(t, srv.ActionCalls())

	out, code = runCLI(t, "status")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Info for server "+srv.URL())
	assert.Contains(t, out, photo)
	assert.Contains(t, out, report)
}

func TestFileCommands_MissingKey(t *testing.T) {
	dir, _ := setupServer(t)
	t.Setenv("SKB_KEY_PATH", filepath.Join(dir, "nope.pem"))

	out, code := runCLI(t, "file", "list")
	assert.Equal(t, 1, code, out)
	assert.Contains(t, out, "private key not found")
}

func TestPrintListings(t *testing.T) {
	var out bytes.Buffer
	printListings(&out, []sync.FileListing{
		{Path: "/a", Status: sync.StatusOutdated},
		{Path: "/b", Status: sync.StatusNotFoundLocally},
	})

	assert.Equal(t, "OUTDATED: /a\nNOT FOUND LOCALLY: /b\n", stripANSI(out.String()))
}

func TestPrintHint(t *testing.T) {
	cases := map[error]string{
		sync.ErrServerVersionNewer: "Force update with -f flag",
		sync.ErrLocalVersionNewer:  "Force download with -f flag",
		sync.ErrNotTrackedRemotely: "skb file add",
		sync.ErrAlreadyTracked:     "skb file update",
	}

	for err, want := range cases {
		var out bytes.Buffer
		printHint(&out, errors.Join(errors.New("wrapped"), err))
		assert.Contains(t, stripANSI(out.String()), want)
	}

	var out bytes.Buffer
	printHint(&out, errors.New("network down"))
	assert.Empty(t, out.String())
}
