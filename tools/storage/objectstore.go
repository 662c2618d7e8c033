package storage

import (
	"context"
	"io"

	"gitlab.com/videotom/transcode-worker/models"
)

// UploadAuthorization is a store issued grant for one upload. B2 style
// stores fill URL and Token; bucket oriented stores (minio, s3) carry the
// target bucket instead.
type UploadAuthorization struct {
	URL    string
	Token  string
	Bucket string
}

// UploadObjectInput describes a single object submission.
type UploadObjectInput struct {
	Auth     UploadAuthorization
	FileName string
	MimeType string
	Data     []byte
}

// ObjectStore is the external collaborator boundary to the object store.
// All four calls are remote and may fail.
type ObjectStore interface {
	Authorize(ctx context.Context) error
	GetUploadAuthorization(ctx context.Context, bucketId string) (UploadAuthorization, error)
	UploadObject(ctx context.Context, in UploadObjectInput) (models.RemoteFile, error)
	DownloadObjectById(ctx context.Context, fileId string) (io.ReadCloser, error)
}
