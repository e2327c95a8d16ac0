package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/hm-skb/skb/internal/skbsdk"
)

// Snapshotter fetches the authoritative remote state.
type Snapshotter interface {
	GetInfo(ctx context.Context) (*skbsdk.InfoResponse, error)
}

// FileTransfer moves file content between this machine and the server.
type FileTransfer interface {
	Create(ctx context.Context, path string) (string, error)
	Upload(ctx context.Context, id string, content []byte, modTime time.Time) error
	Update(ctx context.Context, id string, content []byte, modTime time.Time) error
	Download(ctx context.Context, id string) (*skbsdk.DownloadedFile, error)
	Delete(ctx context.Context, id string) error
}

// SyncEngine applies reconcile verdicts. Every operation fetches exactly one
// snapshot and processes files one at a time.
type SyncEngine struct {
	info  Snapshotter
	files FileTransfer
	fs    afero.Fs
}

func NewSyncEngine(info Snapshotter, files FileTransfer, fs afero.Fs) *SyncEngine {
	return &SyncEngine{
		info:  info,
		files: files,
		fs:    fs,
	}
}

// SyncAll brings every tracked file in line with the server. The first failed
// transfer stops the sweep; the report holds everything done until then.
func (se *SyncEngine) SyncAll(ctx context.Context) (*SyncReport, error) {
	info, err := se.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &SyncReport{}

	for i := range info.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		remote := trackedFromInfo(&info.Files[i])
		local := statLocal(se.fs, remote.Path)
		verdict := Reconcile(ReconcileInput{Direction: DirSync, Local: local, Remote: remote})

		res, err := se.apply(ctx, verdict, local, remote)
		if err != nil {
			slog.Error("sync", "op", verdict, "path", remote.Path, "error", err)
			return report, fmt.Errorf("sync %s: %w", remote.Path, err)
		}
		report.add(res)
	}

	slog.Info("sync complete",
		"files", len(info.Files),
		"uploaded", report.Uploaded,
		"downloaded", report.Downloaded,
		"upToDate", report.UpToDate,
		"size", humanize.Bytes(uint64(report.Bytes)),
		"took", time.Since(start),
	)
	return report, nil
}

// Add registers a local file with the server and uploads its content.
func (se *SyncEngine) Add(ctx context.Context, path string) (*OpResult, error) {
	remote, err := se.lookup(ctx, path)
	if err != nil {
		return nil, err
	}

	local := statLocal(se.fs, path)
	verdict := Reconcile(ReconcileInput{Direction: DirAdd, Local: local, Remote: remote})
	if err := verdict.Err(); err != nil {
		return &OpResult{Path: path, Verdict: verdict}, fmt.Errorf("add %s: %w", path, err)
	}

	content, err := readLocal(se.fs, path)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", path, err)
	}

	id, err := se.files.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", path, err)
	}

	if err := se.files.Upload(ctx, id, content, local.ModifiedAt); err != nil {
		slog.Warn("sync file registered without content", "path", path, "id", id)
		return nil, fmt.Errorf("add %s: %w", path, err)
	}

	slog.Info("sync", "op", DirAdd, "path", path, "id", id, "size", humanize.Bytes(uint64(len(content))))
	return &OpResult{Path: path, Verdict: verdict, Size: int64(len(content))}, nil
}

// Update uploads a tracked file. A newer server copy is kept unless force is set.
func (se *SyncEngine) Update(ctx context.Context, path string, force bool) (*OpResult, error) {
	return se.explicit(ctx, DirUpdate, path, force)
}

// Download overwrites the local copy. A newer local copy is kept unless force is set.
func (se *SyncEngine) Download(ctx context.Context, path string, force bool) (*OpResult, error) {
	return se.explicit(ctx, DirDownload, path, force)
}

// Delete drops the server copy only.
func (se *SyncEngine) Delete(ctx context.Context, path string) (*OpResult, error) {
	return se.explicit(ctx, DirDelete, path, false)
}

// List reports the status of every tracked file without changing anything.
func (se *SyncEngine) List(ctx context.Context) ([]FileListing, error) {
	info, err := se.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]FileListing, 0, len(info.Files))
	for i := range info.Files {
		remote := trackedFromInfo(&info.Files[i])
		local := statLocal(se.fs, remote.Path)

		listings = append(listings, FileListing{
			ID:               remote.ID,
			Path:             remote.Path,
			Status:           FileStatusOf(local, remote),
			RemoteModifiedAt: remote.ModifiedAt,
			LocalModifiedAt:  local.ModifiedAt,
		})
	}
	return listings, nil
}

func (se *SyncEngine) explicit(ctx context.Context, dir Direction, path string, force bool) (*OpResult, error) {
	op := strings.ToLower(string(dir))
	remote, err := se.lookup(ctx, path)
	if err != nil {
		return nil, err
	}

	local := statLocal(se.fs, path)
	verdict := Reconcile(ReconcileInput{Direction: dir, Local: local, Remote: remote, Force: force})
	if err := verdict.Err(); err != nil {
		slog.Debug("sync refused", "op", dir, "verdict", verdict, "path", path)
		return &OpResult{Path: path, Verdict: verdict}, fmt.Errorf("%s %s: %w", op, path, err)
	}

	res, err := se.apply(ctx, verdict, local, remote)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, path, err)
	}
	return &res, nil
}

// apply runs the single mutating call a verdict asks for.
func (se *SyncEngine) apply(ctx context.Context, verdict Verdict, local LocalFileState, remote *TrackedFile) (OpResult, error) {
	res := OpResult{Path: remote.Path, Verdict: verdict}

	switch verdict {
	case VerdictUploadNeeded:
		content, err := readLocal(se.fs, remote.Path)
		if err != nil {
			return res, err
		}
		if err := se.files.Update(ctx, remote.ID, content, local.ModifiedAt); err != nil {
			return res, err
		}
		res.Size = int64(len(content))

	case VerdictDownloadNeeded:
		file, err := se.files.Download(ctx, remote.ID)
		if err != nil {
			return res, err
		}
		// without a Last-Modified header the snapshot time is stamped instead
		modTime := file.LastModified
		if file.LastModifiedMissing {
			modTime = remote.ModifiedAt
		}
		if err := writeLocal(se.fs, remote.Path, file.Content, modTime); err != nil {
			return res, err
		}
		res.Size = int64(len(file.Content))

	case VerdictDeleteNeeded:
		if err := se.files.Delete(ctx, remote.ID); err != nil {
			return res, err
		}

	case VerdictUpToDate:
		slog.Debug("sync", "op", verdict, "path", remote.Path)
		return res, nil

	default:
		return res, verdict.Err()
	}

	slog.Info("sync", "op", verdict, "path", remote.Path, "size", humanize.Bytes(uint64(res.Size)))
	return res, nil
}

func (se *SyncEngine) snapshot(ctx context.Context) (*skbsdk.InfoResponse, error) {
	info, err := se.info.GetInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: fetch snapshot: %w", err)
	}
	return info, nil
}

// lookup returns nil when path is not tracked. Paths match byte for byte.
func (se *SyncEngine) lookup(ctx context.Context, path string) (*TrackedFile, error) {
	info, err := se.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if f, ok := info.FindFile(path); ok {
		return trackedFromInfo(f), nil
	}
	return nil, nil
}
