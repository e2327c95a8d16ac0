package sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hm-skb/skb/internal/skbsdk"
)

// fakeRemote is an in-memory server that records every call it gets.
type fakeRemote struct {
	files     []skbsdk.InfoFile
	content   map[string][]byte
	snapshots int
	calls     []string
	fail      map[string]error // keyed by "<op> <id>"
	nextID    int

	omitLastModified bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{content: map[string][]byte{}, fail: map[string]error{}}
}

func (f *fakeRemote) track(path string, content string, mtime int64) string {
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	f.files = append(f.files, skbsdk.InfoFile{ID: id, Path: path, LastModified: mtime})
	f.content[id] = []byte(content)
	return id
}

func (f *fakeRemote) record(op, id string) error {
	call := op + " " + id
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeRemote) file(id string) *skbsdk.InfoFile {
	for i := range f.files {
		if f.files[i].ID == id {
			return &f.files[i]
		}
	}
	return nil
}

func (f *fakeRemote) GetInfo(context.Context) (*skbsdk.InfoResponse, error) {
	f.snapshots++
	return &skbsdk.InfoResponse{Files: slices.Clone(f.files)}, nil
}

func (f *fakeRemote) Create(_ context.Context, path string) (string, error) {
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	if err := f.record("create", id); err != nil {
		return "", err
	}
	f.files = append(f.files, skbsdk.InfoFile{ID: id, Path: path})
	return id, nil
}

func (f *fakeRemote) Upload(_ context.Context, id string, content []byte, modTime time.Time) error {
	if err := f.record("upload", id); err != nil {
		return err
	}
	f.content[id] = content
	f.file(id).LastModified = modTime.Unix()
	return nil
}

func (f *fakeRemote) Update(_ context.Context, id string, content []byte, modTime time.Time) error {
	if err := f.record("update", id); err != nil {
		return err
	}
	f.content[id] = content
	f.file(id).LastModified = modTime.Unix()
	return nil
}

func (f *fakeRemote) Download(_ context.Context, id string) (*skbsdk.DownloadedFile, error) {
	if err := f.record("download", id); err != nil {
		return nil, err
	}
	if f.omitLastModified {
		return &skbsdk.DownloadedFile{Content: f.content[id], LastModified: time.Now(), LastModifiedMissing: true}, nil
	}
	return &skbsdk.DownloadedFile{Content: f.content[id], LastModified: time.Unix(f.file(id).LastModified, 0)}, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	if err := f.record("delete", id); err != nil {
		return err
	}
	f.files = slices.DeleteFunc(f.files, func(i skbsdk.InfoFile) bool { return i.ID == id })
	return nil
}

func writeFile(t *testing.T, fs afero.Fs, path, content string, mtime int64) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	ts := time.Unix(mtime, 0)
	require.NoError(t, fs.Chtimes(path, ts, ts))
}

func mtimeOf(t *testing.T, fs afero.Fs, path string) int64 {
	t.Helper()
	info, err := fs.Stat(path)
	require.NoError(t, err)
	return info.ModTime().Unix()
}

func newTestEngine() (*SyncEngine, *fakeRemote, afero.Fs) {
	remote := newFakeRemote()
	fs := afero.NewMemMapFs()
	return NewSyncEngine(remote, remote, fs), remote, fs
}

func TestSyncEngine_SyncAll(t *testing.T) {
	se, remote, fs := newTestEngine()
	ctx := context.Background()

	idNewer := remote.track("/data/newer.txt", "old", 1000)
	remote.track("/data/same.txt", "same", 1000)
	idMissing := remote.track("/data/sub/missing.txt", "remote copy", 1000)
	idOlder := remote.track("/data/older.txt", "remote v2", 3000)

	writeFile(t, fs, "/data/newer.txt", "local v2", 2000)
	writeFile(t, fs, "/data/same.txt", "same", 1000)
	writeFile(t, fs, "/data/older.txt", "local v1", 2000)

	report, err := se.SyncAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, remote.snapshots)
	assert.Equal(t, []string{
		"update " + idNewer,
		"download " + idMissing,
		"download " + idOlder,
	}, remote.calls)
	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 2, report.Downloaded)
	assert.Equal(t, 1, report.UpToDate)
	require.Len(t, report.Results, 4)
	assert.Equal(t, "/data/newer.txt", report.Results[0].Path)

	assert.Equal(t, []byte("local v2"), remote.content[idNewer])
	assert.Equal(t, int64(2000), remote.file(idNewer).LastModified)

	got, err := afero.ReadFile(fs, "/data/sub/missing.txt")
	require.NoError(t, err)
	assert.Equal(t, "remote copy", string(got))
	assert.Equal(t, int64(1000), mtimeOf(t, fs, "/data/sub/missing.txt"))

	got, err = afero.ReadFile(fs, "/data/older.txt")
	require.NoError(t, err)
	assert.Equal(t, "remote v2", string(got))
	assert.Equal(t, int64(3000), mtimeOf(t, fs, "/data/older.txt"))

	// a second sweep finds nothing to do
	remote.calls = nil
	report, err = se.SyncAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote.calls)
	assert.Equal(t, 4, report.UpToDate)
}

func TestSyncEngine_SyncAll_WithoutLastModified(t *testing.T) {
	se, remote, fs := newTestEngine()
	ctx := context.Background()
	remote.omitLastModified = true
	remote.track("/data/a.txt", "remote", 1000)

	report, err := se.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Downloaded)
	assert.Equal(t, int64(1000), mtimeOf(t, fs, "/data/a.txt"))

	remote.calls = nil
	report, err = se.SyncAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote.calls)
	require.Len(t, report.Results, 1)
	assert.Equal(t, VerdictUpToDate, report.Results[0].Verdict)
}

func TestSyncEngine_SyncAll_AbortsOnFirstFailure(t *testing.T) {
	se, remote, fs := newTestEngine()

	boom := errors.New("connection reset")
	idFirst := remote.track("/data/a.txt", "a", 1000)
	idSecond := remote.track("/data/b.txt", "b", 1000)
	remote.fail["download "+idFirst] = boom

	report, err := se.SyncAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/data/a.txt")

	assert.Equal(t, []string{"download " + idFirst}, remote.calls)
	assert.NotContains(t, remote.calls, "download "+idSecond)
	assert.Empty(t, report.Results)

	exists, err := afero.Exists(fs, "/data/b.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatLocal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/dir", 0o755))
	writeFile(t, fs, "/data/a.txt", "abc", 1234)

	assert.False(t, statLocal(fs, "/data/dir").Exists, "directories count as missing")
	assert.False(t, statLocal(fs, "/data/none.txt").Exists)

	st := statLocal(fs, "/data/a.txt")
	assert.True(t, st.Exists)
	assert.Equal(t, int64(3), st.Size)
	assert.Equal(t, int64(1234), st.ModifiedAt.Unix())
}

func TestWriteLocal_KeepsPermissions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/a.sh", []byte("old"), 0o755))

	ts := time.Unix(4242, 0)
	require.NoError(t, writeLocal(fs, "/data/a.sh", []byte("new"), ts))

	info, err := fs.Stat("/data/a.sh")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), info.ModTime().Unix())
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())
	got, err := afero.ReadFile(fs, "/data/a.sh")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestSyncEngine_Update(t *testing.T) {
	cases := []struct {
		name      string
		localAt   int64
		remoteAt  int64
		force     bool
		wantErr   error
		wantCalls int
		verdict   Verdict
	}{
		{name: "local newer", localAt: 2000, remoteAt: 1000, wantCalls: 1, verdict: VerdictUploadNeeded},
		{name: "server newer", localAt: 1000, remoteAt: 2000, wantErr: ErrServerVersionNewer, verdict: VerdictConflictServerNewer},
		{name: "server newer forced", localAt: 1000, remoteAt: 2000, force: true, wantCalls: 1, verdict: VerdictUploadNeeded},
		{name: "equal forced", localAt: 1000, remoteAt: 1000, force: true, verdict: VerdictUpToDate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			se, remote, fs := newTestEngine()
			id := remote.track("/data/a.txt", "remote", tc.remoteAt)
			writeFile(t, fs, "/data/a.txt", "local", tc.localAt)

			res, err := se.Update(context.Background(), "/data/a.txt", tc.force)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tc.verdict, res.Verdict)
			assert.Equal(t, 1, remote.snapshots)
			assert.Len(t, remote.calls, tc.wantCalls)

			if tc.wantCalls == 1 {
				assert.Equal(t, "update "+id, remote.calls[0])
				assert.Equal(t, tc.localAt, remote.file(id).LastModified)
				assert.Equal(t, []byte("local"), remote.content[id])
			}
		})
	}
}

func TestSyncEngine_Update_Preconditions(t *testing.T) {
	se, remote, fs := newTestEngine()
	remote.track("/data/tracked.txt", "x", 1000)
	writeFile(t, fs, "/data/untracked.txt", "x", 1000)

	_, err := se.Update(context.Background(), "/data/tracked.txt", false)
	assert.ErrorIs(t, err, ErrNotFoundLocally)

	_, err = se.Update(context.Background(), "/data/untracked.txt", true)
	assert.ErrorIs(t, err, ErrNotTrackedRemotely)

	assert.Empty(t, remote.calls)
}

func TestSyncEngine_Download(t *testing.T) {
	t.Run("local absent", func(t *testing.T) {
		se, remote, fs := newTestEngine()
		remote.track("/data/a.txt", "remote", 1000)

		res, err := se.Download(context.Background(), "/data/a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, VerdictDownloadNeeded, res.Verdict)
		assert.Equal(t, int64(6), res.Size)
		assert.Equal(t, int64(1000), mtimeOf(t, fs, "/data/a.txt"))
	})

	t.Run("local older downloads", func(t *testing.T) {
		se, remote, fs := newTestEngine()
		remote.track("/data/a.txt", "remote", 2000)
		writeFile(t, fs, "/data/a.txt", "local", 1000)

		res, err := se.Download(context.Background(), "/data/a.txt", false)
		require.NoError(t, err)
		assert.Equal(t, VerdictDownloadNeeded, res.Verdict)
		assert.Equal(t, int64(2000), mtimeOf(t, fs, "/data/a.txt"))
	})

	t.Run("local newer refused", func(t *testing.T) {
		se, remote, fs := newTestEngine()
		remote.track("/data/a.txt", "remote", 1000)
		writeFile(t, fs, "/data/a.txt", "local", 2000)

		res, err := se.Download(context.Background(), "/data/a.txt", false)
		assert.ErrorIs(t, err, ErrLocalVersionNewer)
		assert.Equal(t, VerdictConflictLocalNewer, res.Verdict)
		assert.Empty(t, remote.calls)

		got, err := afero.ReadFile(fs, "/data/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "local", string(got))
	})

	t.Run("local newer forced", func(t *testing.T) {
		se, remote, fs := newTestEngine()
		remote.track("/data/a.txt", "remote", 1000)
		writeFile(t, fs, "/data/a.txt", "local", 2000)

		_, err := se.Download(context.Background(), "/data/a.txt", true)
		require.NoError(t, err)

		got, err := afero.ReadFile(fs, "/data/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "remote", string(got))
		assert.Equal(t, int64(1000), mtimeOf(t, fs, "/data/a.txt"))
	})

	t.Run("untracked", func(t *testing.T) {
		se, remote, _ := newTestEngine()
		_, err := se.Download(context.Background(), "/data/a.txt", true)
		assert.ErrorIs(t, err, ErrNotTrackedRemotely)
		assert.Empty(t, remote.calls)
	})
}

func TestSyncEngine_AddThenSyncIsUpToDate(t *testing.T) {
	se, remote, fs := newTestEngine()
	ctx := context.Background()
	writeFile(t, fs, "/data/new.txt", "hello", 1500)

	res, err := se.Add(ctx, "/data/new.txt")
	require.NoError(t, err)
	assert.Equal(t, VerdictUploadNeeded, res.Verdict)
	assert.Equal(t, int64(5), res.Size)
	require.Len(t, remote.calls, 2)
	assert.Equal(t, "create id-1", remote.calls[0])
	assert.Equal(t, "upload id-1", remote.calls[1])
	assert.Equal(t, int64(1500), remote.file("id-1").LastModified)

	remote.calls = nil
	report, err := se.SyncAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, remote.calls)
	require.Len(t, report.Results, 1)
	assert.Equal(t, VerdictUpToDate, report.Results[0].Verdict)
}

func TestSyncEngine_Add_Preconditions(t *testing.T) {
	se, remote, fs := newTestEngine()
	remote.track("/data/a.txt", "x", 1000)
	writeFile(t, fs, "/data/a.txt", "x", 1000)

	_, err := se.Add(context.Background(), "/data/a.txt")
	assert.ErrorIs(t, err, ErrAlreadyTracked)

	_, err = se.Add(context.Background(), "/data/missing.txt")
	assert.ErrorIs(t, err, ErrNotFoundLocally)

	assert.Empty(t, remote.calls)
}

func TestSyncEngine_Delete(t *testing.T) {
	se, remote, fs := newTestEngine()
	id := remote.track("/data/a.txt", "x", 1000)
	writeFile(t, fs, "/data/a.txt", "x", 1000)

	res, err := se.Delete(context.Background(), "/data/a.txt")
	require.NoError(t, err)
	assert.Equal(t, VerdictDeleteNeeded, res.Verdict)
	assert.Equal(t, []string{"delete " + id}, remote.calls)
	assert.Empty(t, remote.files)

	// the local copy stays
	exists, err := afero.Exists(fs, "/data/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = se.Delete(context.Background(), "/data/a.txt")
	assert.ErrorIs(t, err, ErrNotTrackedRemotely)
}

func TestSyncEngine_PathsMatchExactly(t *testing.T) {
	se, remote, fs := newTestEngine()
	remote.track("/data/a.txt", "x", 1000)
	writeFile(t, fs, "/data/./a.txt", "x", 2000)

	_, err := se.Update(context.Background(), "/data/./a.txt", false)
	assert.ErrorIs(t, err, ErrNotTrackedRemotely)
}

func TestSyncEngine_List(t *testing.T) {
	se, remote, fs := newTestEngine()
	remote.track("/data/outdated.txt", "x", 2000)
	remote.track("/data/same.txt", "x", 1000)
	remote.track("/data/notsynced.txt", "x", 1000)
	remote.track("/data/missing.txt", "x", 1000)

	writeFile(t, fs, "/data/outdated.txt", "x", 1000)
	writeFile(t, fs, "/data/same.txt", "x", 1000)
	writeFile(t, fs, "/data/notsynced.txt", "x", 2000)

	listings, err := se.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 4)

	got := make([]FileStatus, 0, len(listings))
	for _, l := range listings {
		got = append(got, l.Status)
	}
	assert.Equal(t, []FileStatus{StatusOutdated, StatusUpToDate, StatusNotSynced, StatusNotFoundLocally}, got)
	assert.True(t, listings[3].LocalModifiedAt.IsZero())
	assert.Empty(t, remote.calls)
	assert.Equal(t, 1, remote.snapshots)
}
