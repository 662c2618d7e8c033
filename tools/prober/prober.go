package prober

import (
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// Prober reads source media metadata via the external probing tool.
type Prober interface {
	Probe(ctx context.Context, assetPath string) (*MediaInfo, error)
	FrameRate(ctx context.Context, assetPath string) (int, error)
}

// MediaInfo is the parsed ffprobe output.
type MediaInfo struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name,omitempty"`
	CodecType  string `json:"codec_type,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	RFrameRate string `json:"r_frame_rate,omitempty"`
	Duration   string `json:"duration,omitempty"`
}

type Format struct {
	Duration string `json:"duration,omitempty"`
}

// VideoStream returns the first stream of type video.
func (m *MediaInfo) VideoStream() (*Stream, bool) {
	for i := range m.Streams {
		if m.Streams[i].CodecType == "video" {
			return &m.Streams[i], true
		}
	}
	return nil, false
}

type ffprobeProber struct {
	cfg *config.Config
	log logger.Logger
}

// New returns a Prober backed by the configured ffprobe binary.
func New(cfg *config.Config, log logger.Logger) Prober {
	return &ffprobeProber{cfg: cfg, log: log}
}

func (p *ffprobeProber) Probe(ctx context.Context, assetPath string) (*MediaInfo, error) {
	out, err := exec.CommandContext(ctx, p.cfg.FFprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		assetPath,
	).Output()
	if err != nil {
		p.log.Error("probing source asset failed",
			logger.String("code", errs.CodeProbeFailed),
			logger.String("asset_path", assetPath),
			logger.Error(err),
		)
		return nil, errs.Wrap(errs.CodeProbeFailed, "cannot probe source asset", err)
	}

	return ParseInfo(out)
}

// ParseInfo converts raw ffprobe JSON output into MediaInfo. Exported so
// tests run without a real ffprobe binary.
func ParseInfo(data []byte) (*MediaInfo, error) {
	var info MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errs.Wrap(errs.CodeProbeFailed, "cannot parse probe output", err)
	}
	return &info, nil
}

func (p *ffprobeProber) FrameRate(ctx context.Context, assetPath string) (int, error) {
	info, err := p.Probe(ctx, assetPath)
	if err != nil {
		return 0, err
	}

	rate, err := FrameRateOf(info)
	if err != nil {
		p.log.Error("cannot extract source frame rate",
			logger.String("code", errs.CodeOf(err)),
			logger.String("asset_path", assetPath),
			logger.Error(err),
		)
		return 0, err
	}
	return rate, nil
}

// FrameRateOf extracts the video stream frame rate from probed metadata,
// floored to whole frames per second.
func FrameRateOf(info *MediaInfo) (int, error) {
	video, ok := info.VideoStream()
	if !ok {
		return 0, errs.New(errs.CodeNoVideoStream, "source asset has no video stream")
	}
	if video.RFrameRate == "" {
		return 0, errs.New(errs.CodeFrameRateUnavailable, "video stream has no frame rate")
	}

	rate, err := floorRational(video.RFrameRate)
	if err != nil {
		return 0, errs.Wrap(errs.CodeFrameRateUnavailable, "cannot parse frame rate "+video.RFrameRate, err)
	}
	if rate <= 0 {
		return 0, errs.New(errs.CodeFrameRateUnavailable, "non-positive frame rate "+video.RFrameRate)
	}
	return rate, nil
}

// floorRational parses ffprobe rates like "24000/1001" or "25".
func floorRational(s string) (int, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return int(math.Floor(n)), nil
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return 0, nil
	}
	return int(math.Floor(n / d)), nil
}
