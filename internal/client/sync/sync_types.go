package sync

import (
	"time"

	"github.com/hm-skb/skb/internal/skbsdk"
)

// TrackedFile is a file the server keeps a copy of. Only the server assigns ids.
type TrackedFile struct {
	ID         string
	Path       string
	ModifiedAt time.Time
}

func trackedFromInfo(f *skbsdk.InfoFile) *TrackedFile {
	return &TrackedFile{
		ID:         f.ID,
		Path:       f.Path,
		ModifiedAt: f.ModifiedAt(),
	}
}

// LocalFileState is read fresh from disk for every decision.
type LocalFileState struct {
	Exists     bool
	ModifiedAt time.Time
	Size       int64
}

type ReconcileInput struct {
	Direction Direction
	Local     LocalFileState
	Remote    *TrackedFile // nil when the path is not tracked
	Force     bool
}

// OpResult is what happened to one path.
type OpResult struct {
	Path    string
	Verdict Verdict
	Size    int64 // bytes moved, zero when nothing was transferred
}

// SyncReport summarizes a full sweep in snapshot order.
type SyncReport struct {
	Results    []OpResult
	Uploaded   int
	Downloaded int
	UpToDate   int
	Bytes      int64
}

func (r *SyncReport) add(res OpResult) {
	r.Results = append(r.Results, res)
	r.Bytes += res.Size

	switch res.Verdict {
	case VerdictUploadNeeded:
		r.Uploaded++
	case VerdictDownloadNeeded:
		r.Downloaded++
	case VerdictUpToDate:
		r.UpToDate++
	}
}

// FileListing is one row of file list.
type FileListing struct {
	ID               string
	Path             string
	Status           FileStatus
	RemoteModifiedAt time.Time
	LocalModifiedAt  time.Time // zero when not found locally
}
