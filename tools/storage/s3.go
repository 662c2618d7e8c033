package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// S3Store adapts S3 to the ObjectStore boundary.
type S3Store struct {
	cfg     *config.Config
	log     logger.Logger
	session *session.Session
}

// NewS3Store builds an S3 session from the configured region and keys.
func NewS3Store(cfg *config.Config, log logger.Logger) (*S3Store, error) {
	awsCfg := &aws.Config{
		Region:      aws.String(cfg.StoreRegion),
		Credentials: credentials.NewStaticCredentials(cfg.StoreAccessKey, cfg.StoreSecretKey, ""),
	}
	if cfg.StoreEndpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.StoreEndpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		log.Error("Error while creating aws session", logger.Error(err))
		return nil, err
	}

	return &S3Store{cfg: cfg, log: log, session: sess}, nil
}

func (s *S3Store) Authorize(ctx context.Context) error {
	_, err := s.session.Config.Credentials.GetWithContext(ctx)
	return err
}

func (s *S3Store) GetUploadAuthorization(ctx context.Context, bucketId string) (UploadAuthorization, error) {
	if err := s.Authorize(ctx); err != nil {
		return UploadAuthorization{}, err
	}
	return UploadAuthorization{Bucket: bucketId}, nil
}

func (s *S3Store) UploadObject(ctx context.Context, in UploadObjectInput) (models.RemoteFile, error) {
	uploader := s3manager.NewUploader(s.session)
	out, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(in.Auth.Bucket),
		Key:         aws.String(in.FileName),
		Body:        bytes.NewReader(in.Data),
		ContentType: aws.String(in.MimeType),
	})
	if err != nil {
		return models.RemoteFile{}, err
	}

	rf := models.RemoteFile{
		FileId:          in.FileName,
		FileName:        in.FileName,
		ContentLength:   int64(len(in.Data)),
		ContentType:     in.MimeType,
		UploadTimestamp: time.Now().Unix(),
	}
	if out.ETag != nil {
		rf.ContentSha1 = *out.ETag
	}
	return rf, nil
}

func (s *S3Store) DownloadObjectById(ctx context.Context, fileId string) (io.ReadCloser, error) {
	out, err := s3.New(s.session).GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.StoreBucketId),
		Key:    aws.String(fileId),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
