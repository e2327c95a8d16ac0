package sync

import (
	"errors"
)

var (
	// preconditions
	ErrNotFoundLocally    = errors.New("sync: file was not found or is a directory")
	ErrNotTrackedRemotely = errors.New("sync: file is not saved on the server")
	ErrAlreadyTracked     = errors.New("sync: file is already saved on the server")
	ErrServerNotFound     = errors.New("sync: server hostname is not known")

	// conflicts, recoverable with force
	ErrServerVersionNewer = errors.New("sync: server version is newer")
	ErrLocalVersionNewer  = errors.New("sync: local version is newer")

	ErrSyncAlreadyRunning = errors.New("sync: another sweep is already running")
)
