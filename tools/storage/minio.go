package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	minioCredentials "github.com/minio/minio-go/v7/pkg/credentials"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// MinioStore adapts a minio compatible store to the ObjectStore boundary.
type MinioStore struct {
	cfg    *config.Config
	log    logger.Logger
	client *minio.Client
}

// NewMinioStore dials the configured minio endpoint.
func NewMinioStore(cfg *config.Config, log logger.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.StoreEndpoint, &minio.Options{
		Creds:  minioCredentials.NewStaticV4(cfg.StoreAccessKey, cfg.StoreSecretKey, ""),
		Secure: cfg.StoreUseSSL,
	})
	if err != nil {
		log.Error("Error while creating minio client", logger.Error(err))
		return nil, err
	}

	return &MinioStore{cfg: cfg, log: log, client: client}, nil
}

// Authorize verifies the credentials by checking the output bucket.
func (s *MinioStore) Authorize(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.cfg.StoreBucketId)
	return err
}

// GetUploadAuthorization grants an upload into the given bucket. Minio
// clients are credentialed at dial time, so the grant is just the target.
func (s *MinioStore) GetUploadAuthorization(ctx context.Context, bucketId string) (UploadAuthorization, error) {
	if err := s.Authorize(ctx); err != nil {
		return UploadAuthorization{}, err
	}
	return UploadAuthorization{Bucket: bucketId}, nil
}

func (s *MinioStore) UploadObject(ctx context.Context, in UploadObjectInput) (models.RemoteFile, error) {
	info, err := s.client.PutObject(ctx, in.Auth.Bucket, in.FileName,
		bytes.NewReader(in.Data), int64(len(in.Data)),
		minio.PutObjectOptions{ContentType: in.MimeType},
	)
	if err != nil {
		return models.RemoteFile{}, err
	}

	return models.RemoteFile{
		FileId:          info.Key,
		FileName:        info.Key,
		ContentLength:   info.Size,
		ContentSha1:     info.ETag,
		ContentType:     in.MimeType,
		UploadTimestamp: time.Now().Unix(),
	}, nil
}

// DownloadObjectById streams an object; fileId is the object key within
// the configured bucket.
func (s *MinioStore) DownloadObjectById(ctx context.Context, fileId string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.StoreBucketId, fileId, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
