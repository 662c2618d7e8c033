package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
	"gitlab.com/videotom/transcode-worker/tools/planner"
	"gitlab.com/videotom/transcode-worker/tools/prober"
	"gitlab.com/videotom/transcode-worker/tools/storage"
)

type fakeProber struct {
	rate int
	err  error
}

func (f *fakeProber) Probe(ctx context.Context, assetPath string) (*prober.MediaInfo, error) {
	return &prober.MediaInfo{}, f.err
}

func (f *fakeProber) FrameRate(ctx context.Context, assetPath string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.rate, nil
}

type fakeEngine struct {
	calls    int
	err      error
	lastPlan *planner.EncodePlan
}

func (f *fakeEngine) Encode(ctx context.Context, requestId, inputPath string, plan *planner.EncodePlan, outputDir string) error {
	f.calls++
	f.lastPlan = plan
	return f.err
}

type fakeAssets struct {
	downloadCalls int
	downloadErr   error
	uploadCalls   int
	uploadErr     error
	lastMedia     models.TranscodedMedia
}

func (f *fakeAssets) Download(ctx context.Context, remote models.RemoteFile, destinationDir string) (string, error) {
	f.downloadCalls++
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	p := filepath.Join(destinationDir, remote.RequestId+".mp4")
	if err := os.WriteFile(p, []byte("source"), 0644); err != nil {
		return "", err
	}
	return p, nil
}

func (f *fakeAssets) UploadTranscodedMedia(ctx context.Context, media models.TranscodedMedia) (*models.UploadTranscodedMediaResponse, error) {
	f.uploadCalls++
	f.lastMedia = media
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	resp := &models.UploadTranscodedMediaResponse{RequestId: media.RequestId}
	for _, v := range media.Variants {
		resp.Variants = append(resp.Variants, models.RemoteVariantFiles{Resolution: v.Resolution})
	}
	return resp, nil
}

type fixture struct {
	svc    *Transcode
	cfg    *config.Config
	prober *fakeProber
	engine *fakeEngine
	assets *fakeAssets
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		AssetsBasePath: t.TempDir(),
		OutputDirName:  "output",
	}
	f := &fixture{
		cfg:    cfg,
		prober: &fakeProber{rate: 24},
		engine: &fakeEngine{},
		assets: &fakeAssets{},
	}
	f.svc = NewTranscode(Options{
		Config:       cfg,
		Log:          logger.NewNop(),
		Prober:       f.prober,
		Engine:       f.engine,
		AssetManager: f.assets,
		Workspace:    storage.NewWorkspace(cfg, logger.NewNop()),
	})
	return f
}

func jobInput() models.TranscodeWorkerInput {
	return models.TranscodeWorkerInput{
		RequestId: "r1",
		InputFile: models.RemoteFile{RequestId: "r1", FileId: "f1", FileName: "a.mp4"},
		TranscodeConfig: models.TranscodeConfig{
			Renditions: []models.Rendition{
				{Resolution: models.Resolution{Width: 854, Height: 480}, VideoBitRate: 2000, AudioBitRate: 144},
				{Resolution: models.Resolution{Width: 1280, Height: 720}, VideoBitRate: 4000, AudioBitRate: 192},
			},
		},
	}
}

func TestRun_Success(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Run(context.Background(), jobInput())
	require.NoError(t, err)

	assert.Equal(t, "r1", resp.RequestId)
	require.Len(t, resp.Variants, 2)
	assert.Equal(t, 480, resp.Variants[0].Resolution.Height)
	assert.Equal(t, 720, resp.Variants[1].Resolution.Height)

	// keyframe interval derived from the probed 24 fps source
	require.NotNil(t, f.engine.lastPlan)
	assert.Equal(t, 48, f.engine.lastPlan.KeyFramesInterval)

	// media handed to the uploader references the per-job output dir
	outputDir := filepath.Join(f.cfg.AssetsBasePath, "output", "r1")
	assert.Equal(t, filepath.Join(outputDir, "master.m3u8"), f.assets.lastMedia.MasterPlaylist)
	assert.Equal(t, filepath.Join(outputDir, "playlist_480p.m3u8"), f.assets.lastMedia.Variants[0].Playlist)
	assert.Equal(t, filepath.Join(outputDir, "asset_720p.ts"), f.assets.lastMedia.Variants[1].MediaSegment)
}

func TestRun_MasterPlaylistListsLowestQualityFirst(t *testing.T) {
	f := newFixture(t)

	// the uploader snapshots the master playlist before cleanup deletes it
	captured := ""
	f.svc.assets = &snapshotAssets{fakeAssets: f.assets, content: &captured}

	_, err := f.svc.Run(context.Background(), jobInput())
	require.NoError(t, err)

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=854x480\n" +
		"playlist_480p.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=4000000,RESOLUTION=1280x720\n" +
		"playlist_720p.m3u8\n"
	assert.Equal(t, want, captured)
}

type snapshotAssets struct {
	*fakeAssets
	content *string
}

func (s *snapshotAssets) UploadTranscodedMedia(ctx context.Context, media models.TranscodedMedia) (*models.UploadTranscodedMediaResponse, error) {
	data, err := os.ReadFile(media.MasterPlaylist)
	if err != nil {
		return nil, err
	}
	*s.content = string(data)
	return s.fakeAssets.UploadTranscodedMedia(ctx, media)
}

func TestRun_CleansUpAfterUpload(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Run(context.Background(), jobInput())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(f.cfg.AssetsBasePath, "r1.mp4"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(f.cfg.AssetsBasePath, "output", "r1"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_DownloadFailureSkipsEncode(t *testing.T) {
	f := newFixture(t)
	f.assets.downloadErr = errs.New(errs.CodeDownloadFailed, "no such remote file")

	_, err := f.svc.Run(context.Background(), jobInput())

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeDownloadFailed))
	assert.Equal(t, 0, f.engine.calls)
	assert.Equal(t, 0, f.assets.uploadCalls)
}

func TestRun_EmptyRenditionsFailBeforeDownload(t *testing.T) {
	f := newFixture(t)
	input := jobInput()
	input.TranscodeConfig.Renditions = nil

	_, err := f.svc.Run(context.Background(), input)

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeConfigInvalid))
	assert.Equal(t, 0, f.assets.downloadCalls)
	assert.Equal(t, 0, f.engine.calls)
}

func TestRun_ProbeFailureSkipsEngine(t *testing.T) {
	f := newFixture(t)
	f.prober.err = errs.New(errs.CodeNoVideoStream, "source asset has no video stream")

	_, err := f.svc.Run(context.Background(), jobInput())

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeNoVideoStream))
	assert.Equal(t, 0, f.engine.calls)
}

func TestRun_EncodeFailureKeepsLocalFiles(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errs.New(errs.CodeEncodeFailed, "engine invocation failed")

	_, err := f.svc.Run(context.Background(), jobInput())

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeEncodeFailed))
	assert.Equal(t, 0, f.assets.uploadCalls)

	// partial outputs are kept for debugging
	_, statErr := os.Stat(filepath.Join(f.cfg.AssetsBasePath, "r1.mp4"))
	assert.NoError(t, statErr)
}

func TestRun_UploadFailureKeepsLocalFiles(t *testing.T) {
	f := newFixture(t)
	f.assets.uploadErr = errs.New(errs.CodePartialUpload, "failed to upload transcoded assets")

	_, err := f.svc.Run(context.Background(), jobInput())

	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodePartialUpload))

	// local files are the only copy of completed work
	_, statErr := os.Stat(filepath.Join(f.cfg.AssetsBasePath, "r1.mp4"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(f.cfg.AssetsBasePath, "output", "r1", "master.m3u8"))
	assert.NoError(t, statErr)
}
