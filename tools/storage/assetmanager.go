package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

const (
	PlaylistMimeType = "application/x-mpegURL"
	VideoMimeType    = "video/MP2T"
)

// AssetManager moves job artifacts between the local workspace and the
// object store: one download per job on the way in, 1+2N concurrent
// uploads on the way out.
type AssetManager struct {
	cfg   *config.Config
	log   logger.Logger
	store ObjectStore

	// cached upload authorization, only used when ReuseUploadAuth is set.
	mu     sync.Mutex
	cached *UploadAuthorization
}

// NewAssetManager ...
func NewAssetManager(cfg *config.Config, log logger.Logger, store ObjectStore) *AssetManager {
	return &AssetManager{cfg: cfg, log: log, store: store}
}

// Download streams the remote source asset into destinationDir and
// returns the local path, <destinationDir>/<requestId><ext>. On failure
// the destination path must not be assumed to exist.
func (m *AssetManager) Download(ctx context.Context, remote models.RemoteFile, destinationDir string) (string, error) {
	if err := m.store.Authorize(ctx); err != nil {
		m.log.Error("store authorization failed",
			logger.String("code", errs.CodeDownloadFailed),
			logger.Any("remote_file", remote),
			logger.Error(err),
		)
		return "", errs.Wrap(errs.CodeDownloadFailed, "store authorization failed", err)
	}

	filePath := filepath.Join(destinationDir, remote.RequestId+path.Ext(remote.FileName))

	body, err := m.store.DownloadObjectById(ctx, remote.FileId)
	if err != nil {
		m.log.Error("downloading input asset failed",
			logger.String("code", errs.CodeDownloadFailed),
			logger.Any("remote_file", remote),
			logger.Error(err),
		)
		return "", errs.Wrap(errs.CodeDownloadFailed, "cannot fetch remote object "+remote.FileId, err)
	}
	defer body.Close()

	out, err := os.Create(filePath)
	if err != nil {
		return "", errs.Wrap(errs.CodeDownloadFailed, "cannot create local file "+filePath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		m.log.Error("transferring input asset failed",
			logger.String("code", errs.CodeDownloadFailed),
			logger.Any("remote_file", remote),
			logger.String("input_asset_path", filePath),
			logger.Error(err),
		)
		return "", errs.Wrap(errs.CodeDownloadFailed, "transfer failed for "+remote.FileId, err)
	}

	m.log.Info("downloaded input asset",
		logger.String("request_id", remote.RequestId),
		logger.String("input_asset_path", filePath),
	)
	return filePath, nil
}

type uploadRole int

const (
	roleMaster uploadRole = iota
	roleVariantPlaylist
	roleVariantSegment
)

type uploadJob struct {
	path    string
	mime    string
	role    uploadRole
	variant int
}

type uploadResult struct {
	remote models.RemoteFile
	err    error
}

// UploadTranscodedMedia submits the master playlist plus every variant's
// playlist and media segment concurrently, waits for all of them to
// settle, and either returns the full response or fails with a partial
// upload error. A single failed upload never cancels the others.
func (m *AssetManager) UploadTranscodedMedia(ctx context.Context, media models.TranscodedMedia) (*models.UploadTranscodedMediaResponse, error) {
	jobs := make([]uploadJob, 0, 1+2*len(media.Variants))
	jobs = append(jobs, uploadJob{path: media.MasterPlaylist, mime: PlaylistMimeType, role: roleMaster})
	for i, v := range media.Variants {
		jobs = append(jobs,
			uploadJob{path: v.Playlist, mime: PlaylistMimeType, role: roleVariantPlaylist, variant: i},
			uploadJob{path: v.MediaSegment, mime: VideoMimeType, role: roleVariantSegment, variant: i},
		)
	}

	// All-settled join: each goroutine owns one slot of a fixed-size
	// result set, the WaitGroup is the barrier.
	results := make([]uploadResult, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job := jobs[i]
			remote, err := m.uploadFile(ctx, job.path, job.mime, media.RequestId)
			results[i] = uploadResult{remote: remote, err: err}
		}(i)
	}
	wg.Wait()

	var settled error
	for _, res := range results {
		settled = multierr.Append(settled, res.err)
	}
	if settled != nil {
		m.log.Error("failed to upload transcoded assets",
			logger.String("code", errs.CodePartialUpload),
			logger.String("request_id", media.RequestId),
			logger.Any("transcoded_media", media),
			logger.Error(settled),
		)
		return nil, errs.Wrap(errs.CodePartialUpload, "failed to upload transcoded assets", settled)
	}

	resp := &models.UploadTranscodedMediaResponse{
		RequestId: media.RequestId,
		Variants:  make([]models.RemoteVariantFiles, len(media.Variants)),
	}
	for i, v := range media.Variants {
		resp.Variants[i].Resolution = v.Resolution
	}
	for i, res := range results {
		switch jobs[i].role {
		case roleMaster:
			resp.MasterPlaylist = res.remote
		case roleVariantPlaylist:
			resp.Variants[jobs[i].variant].Playlist = res.remote
		case roleVariantSegment:
			resp.Variants[jobs[i].variant].MediaSegment = res.remote
		}
	}

	m.log.Info("uploaded transcoded assets", logger.String("request_id", media.RequestId))
	return resp, nil
}

// uploadFile obtains an upload authorization, reads the file fully into
// memory and submits it. Failures are logged here so each file's root
// cause is diagnosable even though the aggregate error is generic.
func (m *AssetManager) uploadFile(ctx context.Context, filePath, mimeType, requestId string) (models.RemoteFile, error) {
	auth, err := m.uploadAuthorization(ctx)
	if err != nil {
		m.log.Error("upload authorization failed",
			logger.String("code", errs.CodePartialUpload),
			logger.String("file_path", filePath),
			logger.String("request_id", requestId),
			logger.Error(err),
		)
		return models.RemoteFile{}, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		m.log.Error("cannot read file for upload",
			logger.String("code", errs.CodeIOFailed),
			logger.String("file_path", filePath),
			logger.String("request_id", requestId),
			logger.Error(err),
		)
		return models.RemoteFile{}, err
	}

	remote, err := m.store.UploadObject(ctx, UploadObjectInput{
		Auth:     auth,
		FileName: filepath.Base(filePath),
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		m.log.Error("failed to upload file",
			logger.String("code", errs.CodePartialUpload),
			logger.String("file_path", filePath),
			logger.String("mime_type", mimeType),
			logger.String("request_id", requestId),
			logger.Error(err),
		)
		return models.RemoteFile{}, err
	}

	remote.RequestId = requestId
	return remote, nil
}

// uploadAuthorization re-authorizes for every upload by default; when
// ReuseUploadAuth is set the first grant is cached for the process
// lifetime. Configurable because the store contract does not state
// whether grants are single use.
func (m *AssetManager) uploadAuthorization(ctx context.Context) (UploadAuthorization, error) {
	if m.cfg.ReuseUploadAuth {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.cached != nil {
			return *m.cached, nil
		}
		auth, err := m.store.GetUploadAuthorization(ctx, m.cfg.StoreBucketId)
		if err != nil {
			return UploadAuthorization{}, err
		}
		m.cached = &auth
		return auth, nil
	}

	return m.store.GetUploadAuthorization(ctx, m.cfg.StoreBucketId)
}
