package skbsdk

import (
	"time"
)

// CreateFileRequest registers a local path for backup.
type CreateFileRequest struct {
	Path  string `json:"path"`
	Nonce string `json:"nonce"`
}

func (r *CreateFileRequest) SetNonce(nonce string) { r.Nonce = nonce }

var _ Nonced = (*CreateFileRequest)(nil)

type CreateFileResponse struct {
	ID string `json:"id"`
}

// DownloadedFile is the content of a tracked file and its server side mtime.
type DownloadedFile struct {
	Content      []byte
	LastModified time.Time
	// LastModifiedMissing is set when the server sent no usable Last-Modified
	// and LastModified holds the time of the download instead.
	LastModifiedMissing bool
}
