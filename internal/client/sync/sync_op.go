package sync

// Direction is the operation a verdict is computed for.
type Direction string

const (
	DirSync     Direction = "Sync"
	DirUpdate   Direction = "Update"
	DirDownload Direction = "Download"
	DirAdd      Direction = "Add"
	DirDelete   Direction = "Delete"
)

// Verdict is the action one file needs.
type Verdict string

const (
	VerdictUploadNeeded        Verdict = "UploadNeeded"
	VerdictDownloadNeeded      Verdict = "DownloadNeeded"
	VerdictDeleteNeeded        Verdict = "DeleteNeeded"
	VerdictUpToDate            Verdict = "UpToDate"
	VerdictConflictServerNewer Verdict = "ConflictServerNewer"
	VerdictConflictLocalNewer  Verdict = "ConflictLocalNewer"
	VerdictNotFoundLocally     Verdict = "NotFoundLocally"
	VerdictNotTrackedRemotely  Verdict = "NotTrackedRemotely"
	VerdictAlreadyTracked      Verdict = "AlreadyTracked"
)

// NeedsTransfer is true for verdicts that issue a mutating call.
func (v Verdict) NeedsTransfer() bool {
	switch v {
	case VerdictUploadNeeded, VerdictDownloadNeeded, VerdictDeleteNeeded:
		return true
	}
	return false
}

// Err maps refusing verdicts onto their sentinel, nil for everything else.
func (v Verdict) Err() error {
	switch v {
	case VerdictConflictServerNewer:
		return ErrServerVersionNewer
	case VerdictConflictLocalNewer:
		return ErrLocalVersionNewer
	case VerdictNotFoundLocally:
		return ErrNotFoundLocally
	case VerdictNotTrackedRemotely:
		return ErrNotTrackedRemotely
	case VerdictAlreadyTracked:
		return ErrAlreadyTracked
	}
	return nil
}

// FileStatus is the informational state shown by file list.
type FileStatus string

const (
	StatusUpToDate        FileStatus = "UP TO DATE"
	StatusOutdated        FileStatus = "OUTDATED"
	StatusNotSynced       FileStatus = "NOT SYNCED"
	StatusNotFoundLocally FileStatus = "NOT FOUND LOCALLY"
)
