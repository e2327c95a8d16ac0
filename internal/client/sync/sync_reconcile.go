package sync

import (
	"cmp"
)

// Reconcile decides what a single file needs. It has no side effects.
// Timestamps are compared at whole seconds, the resolution the server keeps.
func Reconcile(in ReconcileInput) Verdict {
	switch in.Direction {
	case DirUpdate:
		return reconcileUpdate(in)
	case DirDownload:
		return reconcileDownload(in)
	case DirAdd:
		return reconcileAdd(in)
	case DirDelete:
		return reconcileDelete(in)
	default:
		return reconcileSync(in)
	}
}

func reconcileSync(in ReconcileInput) Verdict {
	if in.Remote == nil {
		return VerdictNotTrackedRemotely
	}
	if !in.Local.Exists {
		return VerdictDownloadNeeded
	}

	switch compareSeconds(in.Local, in.Remote) {
	case 1:
		return VerdictUploadNeeded
	case 0:
		return VerdictUpToDate
	default:
		return VerdictDownloadNeeded
	}
}

func reconcileUpdate(in ReconcileInput) Verdict {
	if !in.Local.Exists {
		return VerdictNotFoundLocally
	}
	if in.Remote == nil {
		return VerdictNotTrackedRemotely
	}

	switch compareSeconds(in.Local, in.Remote) {
	case 0:
		return VerdictUpToDate
	case -1:
		if !in.Force {
			return VerdictConflictServerNewer
		}
	}
	return VerdictUploadNeeded
}

func reconcileDownload(in ReconcileInput) Verdict {
	if in.Remote == nil {
		return VerdictNotTrackedRemotely
	}
	if !in.Local.Exists {
		return VerdictDownloadNeeded
	}

	switch compareSeconds(in.Local, in.Remote) {
	case 0:
		return VerdictUpToDate
	case 1:
		if !in.Force {
			return VerdictConflictLocalNewer
		}
	}
	return VerdictDownloadNeeded
}

func reconcileAdd(in ReconcileInput) Verdict {
	if !in.Local.Exists {
		return VerdictNotFoundLocally
	}
	if in.Remote != nil {
		return VerdictAlreadyTracked
	}
	return VerdictUploadNeeded
}

func reconcileDelete(in ReconcileInput) Verdict {
	if in.Remote == nil {
		return VerdictNotTrackedRemotely
	}
	return VerdictDeleteNeeded
}

// FileStatusOf is the list status of a tracked file.
func FileStatusOf(local LocalFileState, remote *TrackedFile) FileStatus {
	if !local.Exists {
		return StatusNotFoundLocally
	}

	switch compareSeconds(local, remote) {
	case -1:
		return StatusOutdated
	case 0:
		return StatusUpToDate
	default:
		return StatusNotSynced
	}
}

func compareSeconds(local LocalFileState, remote *TrackedFile) int {
	return cmp.Compare(local.ModifiedAt.Unix(), remote.ModifiedAt.Unix())
}
