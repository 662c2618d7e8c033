// Package service holds the job orchestrator: the linear pipeline that
// turns one queue message into a fully uploaded HLS rendition set.
package service

import (
	"context"
	"path/filepath"
	"time"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
	"gitlab.com/videotom/transcode-worker/tools/ffmpeg"
	"gitlab.com/videotom/transcode-worker/tools/planner"
	"gitlab.com/videotom/transcode-worker/tools/playlist"
	"gitlab.com/videotom/transcode-worker/tools/prober"
)

// Stage names a pipeline state; on failure it tags which stage the job
// died in.
type Stage string

const (
	StagePlan     Stage = "plan"
	StageDownload Stage = "download"
	StageEncode   Stage = "encode"
	StageUpload   Stage = "upload"
	StageCleanup  Stage = "cleanup"
)

// AssetManager is the upload/download collaborator as the orchestrator
// needs it.
type AssetManager interface {
	Download(ctx context.Context, remote models.RemoteFile, destinationDir string) (string, error)
	UploadTranscodedMedia(ctx context.Context, media models.TranscodedMedia) (*models.UploadTranscodedMediaResponse, error)
}

// Workspace is the local directory collaborator.
type Workspace interface {
	EnsureWorkspace() error
	InputDir() string
	OutputPathFor(requestId string) (string, error)
	Cleanup(paths []string, requestId string) bool
}

// Options ...
type Options struct {
	Config       *config.Config
	Log          logger.Logger
	Prober       prober.Prober
	Engine       ffmpeg.Engine
	AssetManager AssetManager
	Workspace    Workspace
}

// Transcode owns one job's collaborators for the duration of a run. It
// holds no cross-job state.
type Transcode struct {
	cfg       *config.Config
	log       logger.Logger
	prober    prober.Prober
	engine    ffmpeg.Engine
	assets    AssetManager
	workspace Workspace
}

// NewTranscode ...
func NewTranscode(args Options) *Transcode {
	return &Transcode{
		cfg:       args.Config,
		log:       args.Log,
		prober:    args.Prober,
		engine:    args.Engine,
		assets:    args.AssetManager,
		workspace: args.Workspace,
	}
}

// Run processes one job: download, plan, encode, synthesize, upload,
// cleanup. On failure the error is stage tagged and already logged; local
// files are kept on encode and upload failures (the only copy of
// completed work, and debugging material for partial output).
func (s *Transcode) Run(ctx context.Context, input models.TranscodeWorkerInput) (*models.UploadTranscodedMediaResponse, error) {
	start := time.Now()
	requestId := input.RequestId

	s.log.Info("request received, start processing", logger.String("request_id", requestId))

	// Rendition presence is checked before any download happens; a job
	// with nothing to encode must not cost a transfer.
	effective, err := planner.Effective(input.TranscodeConfig)
	if err != nil {
		return nil, s.fail(StagePlan, requestId, err)
	}

	if err := s.workspace.EnsureWorkspace(); err != nil {
		return nil, s.fail(StagePlan, requestId, err)
	}

	inputAssetPath, err := s.assets.Download(ctx, input.InputFile, s.workspace.InputDir())
	if err != nil {
		return nil, s.fail(StageDownload, requestId, err)
	}

	media, outputDir, err := s.encode(ctx, requestId, inputAssetPath, effective)
	if err != nil {
		return nil, s.fail(StageEncode, requestId, err)
	}

	response, err := s.assets.UploadTranscodedMedia(ctx, *media)
	if err != nil {
		return nil, s.fail(StageUpload, requestId, err)
	}

	// Cleanup outcome never changes the job's result; failures are
	// logged by the workspace for operational follow-up.
	s.workspace.Cleanup([]string{inputAssetPath, outputDir}, requestId)

	s.log.Info("request completed processing",
		logger.String("request_id", requestId),
		logger.Duration("time_taken", time.Since(start)),
		logger.Any("uploaded_transcoded_media", response),
	)
	return response, nil
}

// encode runs the per-job encode stage: probe, plan, engine invocation,
// master playlist synthesis. Partial outputs stay on disk on failure.
func (s *Transcode) encode(ctx context.Context, requestId, inputAssetPath string, cfg models.TranscodeConfig) (*models.TranscodedMedia, string, error) {
	outputDir, err := s.workspace.OutputPathFor(requestId)
	if err != nil {
		return nil, "", err
	}

	frameRate, err := s.prober.FrameRate(ctx, inputAssetPath)
	if err != nil {
		return nil, "", err
	}

	plan, err := planner.Build(cfg, frameRate)
	if err != nil {
		return nil, "", err
	}

	if err := s.engine.Encode(ctx, requestId, inputAssetPath, plan, outputDir); err != nil {
		return nil, "", err
	}

	masterPath := filepath.Join(outputDir, planner.MasterPlaylistName)
	if err := playlist.WriteMaster(masterPath, playlist.BuildMaster(plan.Renditions)); err != nil {
		return nil, "", err
	}

	media := &models.TranscodedMedia{
		RequestId:      requestId,
		MasterPlaylist: masterPath,
		Variants:       make([]models.Variant, 0, len(plan.Renditions)),
	}
	for _, r := range plan.Renditions {
		media.Variants = append(media.Variants, models.Variant{
			Playlist:     filepath.Join(outputDir, r.PlaylistName),
			MediaSegment: filepath.Join(outputDir, r.SegmentName),
			Resolution:   r.Rendition.Resolution,
		})
	}

	s.log.Info("transcode completed",
		logger.String("request_id", requestId),
		logger.Any("transcoded_media", media),
	)
	return media, outputDir, nil
}

// fail tags the error with the stage it died in. Stage collaborators have
// already logged the root cause with its code by the time this runs.
func (s *Transcode) fail(stage Stage, requestId string, err error) error {
	s.log.Error("job failed",
		logger.String("stage", string(stage)),
		logger.String("code", errs.CodeOf(err)),
		logger.String("request_id", requestId),
		logger.Error(err),
	)
	return err
}
