package skbsdk

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	v1File   = "/file/"
	v1FileID = "/file/{id}/"
)

type FileAPI struct {
	client *signedClient
	now    func() time.Time
}

func newFileAPI(client *signedClient) *FileAPI {
	return &FileAPI{
		client: client,
		now:    time.Now,
	}
}

// Create registers path and returns the id the server assigned to it.
func (f *FileAPI) Create(ctx context.Context, path string) (string, error) {
	r, err := f.client.jsonRequest(ctx, &CreateFileRequest{Path: path})
	if err != nil {
		return "", err
	}

	var resp CreateFileResponse
	res, err := r.SetSuccessResult(&resp).Post(v1File)
	if err := handleAPIError(res, err, "file create"); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// Upload sends the first content of a freshly created file.
func (f *FileAPI) Upload(ctx context.Context, id string, content []byte, modTime time.Time) error {
	r, err := f.client.rawRequest(ctx, content)
	if err != nil {
		return err
	}

	res, err := r.
		SetPathParam("id", id).
		SetHeader(HeaderLastModified, FormatLastModified(modTime)).
		Post(v1FileID)
	return handleAPIError(res, err, "file upload")
}

// Update replaces the content of an already uploaded file.
func (f *FileAPI) Update(ctx context.Context, id string, content []byte, modTime time.Time) error {
	r, err := f.client.rawRequest(ctx, content)
	if err != nil {
		return err
	}

	res, err := r.
		SetPathParam("id", id).
		SetHeader(HeaderLastModified, FormatLastModified(modTime)).
		Put(v1FileID)
	return handleAPIError(res, err, "file update")
}

func (f *FileAPI) Download(ctx context.Context, id string) (*DownloadedFile, error) {
	r, err := f.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return nil, err
	}

	res, err := r.SetPathParam("id", id).Get(v1FileID)
	if err := handleAPIError(res, err, "file download"); err != nil {
		return nil, err
	}

	file := &DownloadedFile{Content: res.Bytes()}

	header := res.Header.Get(HeaderLastModified)
	modTime, err := ParseLastModified(header)
	if err != nil {
		slog.Warn("file download without usable last-modified", "id", id, "header", header, "error", err)
		file.LastModified = f.now()
		file.LastModifiedMissing = true
	} else {
		file.LastModified = modTime
	}

	return file, nil
}

// Delete drops the server side copy. The local file is never touched.
func (f *FileAPI) Delete(ctx context.Context, id string) error {
	r, err := f.client.jsonRequest(ctx, &EmptyBody{})
	if err != nil {
		return err
	}

	res, err := r.SetPathParam("id", id).Delete(v1FileID)
	return handleAPIError(res, err, "file delete")
}

// FormatLastModified renders t as an HTTP date in GMT.
func FormatLastModified(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func ParseLastModified(value string) (time.Time, error) {
	return http.ParseTime(value)
}
