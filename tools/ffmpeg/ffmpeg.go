// Package ffmpeg adapts the external encoding engine. One job becomes a
// single multi-output invocation: one input, one output per rendition,
// each with its own rate control and filter chain plus the shared HLS
// packaging options.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
	"gitlab.com/videotom/transcode-worker/tools/planner"
)

// Engine runs the external transcoder. Encode blocks until the engine
// finishes or fails; no output file may be trusted before it returns.
type Engine interface {
	Encode(ctx context.Context, requestId, inputPath string, plan *planner.EncodePlan, outputDir string) error
}

type FFmpeg struct {
	cfg *config.Config
	log logger.Logger
}

// New returns an Engine backed by the configured ffmpeg binary.
func New(cfg *config.Config, log logger.Logger) Engine {
	return &FFmpeg{cfg: cfg, log: log}
}

func (f *FFmpeg) Encode(ctx context.Context, requestId, inputPath string, plan *planner.EncodePlan, outputDir string) error {
	args := BuildArgs(inputPath, plan, outputDir)

	f.log.Info("starting encode",
		logger.String("request_id", requestId),
		logger.String("input", inputPath),
		logger.String("output_dir", outputDir),
		logger.Int("renditions", len(plan.Renditions)),
	)
	f.log.Debug("engine invocation", logger.Any("args", args))

	// The engine writes progress and diagnostics to stderr; buffer all of
	// it so a failure can be diagnosed from a single log entry.
	var diag bytes.Buffer
	cmd := exec.CommandContext(ctx, f.cfg.FFmpeg, args...)
	cmd.Stdout = &diag
	cmd.Stderr = &diag

	start := time.Now()
	err := cmd.Run()
	took := time.Since(start)

	if err != nil {
		f.log.Error("encode failed",
			logger.String("code", errs.CodeEncodeFailed),
			logger.String("request_id", requestId),
			logger.Duration("took", took),
			logger.String("engine_output", diag.String()),
			logger.Error(err),
		)
		return errs.Wrap(errs.CodeEncodeFailed, "engine invocation failed", err)
	}

	f.log.Info("encode completed",
		logger.String("request_id", requestId),
		logger.Duration("took", took),
		logger.String("engine_output", diag.String()),
	)
	return nil
}

// BuildArgs assembles the full engine argument list for a plan. Exported
// so the invocation can be asserted on without running a binary.
func BuildArgs(inputPath string, plan *planner.EncodePlan, outputDir string) []string {
	keyint := strconv.Itoa(plan.KeyFramesInterval)
	args := make([]string, 0, 8+30*len(plan.Renditions))
	args = append(args, "-hide_banner", "-y", "-i", inputPath)

	for _, r := range plan.Renditions {
		args = append(args,
			"-c:v", plan.VideoCodec,
			"-b:v", fmt.Sprintf("%dk", r.Rendition.VideoBitRate),
			"-maxrate", fmt.Sprintf("%dk", r.MaxRateKbps),
			"-bufsize", fmt.Sprintf("%dk", r.BufSizeKbps),
			"-c:a", plan.AudioCodec,
			"-b:a", fmt.Sprintf("%dk", r.Rendition.AudioBitRate),
			"-vf", scalePadFilter(r.Rendition.Resolution.Width, r.Rendition.Resolution.Height),
			"-preset", plan.Preset,
			"-sc_threshold", "0",
			"-g", keyint,
			"-keyint_min", keyint,
			"-hls_time", strconv.Itoa(plan.SegmentDuration),
			"-hls_playlist_type", "vod",
			"-hls_flags", "single_file",
			"-hls_segment_filename", filepath.Join(outputDir, r.SegmentName),
			filepath.Join(outputDir, r.PlaylistName),
		)
	}

	return args
}

// scalePadFilter fits the source into the target resolution preserving
// aspect ratio, then pads both dimensions up to the nearest even integer
// (hard h.264 constraint).
func scalePadFilter(width, height int) string {
	return fmt.Sprintf(
		"scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=ceil(iw/2)*2:ceil(ih/2)*2",
		width, height,
	)
}
