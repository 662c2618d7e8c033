// Package planner derives the effective encode configuration for a job:
// defaults, rendition ordering, per-rendition rate control parameters and
// output naming. Everything here is pure; the engine adapter turns the
// resulting plan into an ffmpeg invocation.
package planner

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
)

const (
	DefaultPreset          = "veryfast"
	DefaultVideoCodec      = "libx264"
	DefaultAudioCodec      = "aac"
	DefaultSegmentDuration = 6

	// MasterPlaylistName is the fixed name of the top level playlist
	// within a job's output directory.
	MasterPlaylistName = "master.m3u8"

	variantPlaylistPrefix = "playlist"
	segmentPrefix         = "asset"

	// Headroom constants per streaming encoder guidance:
	// https://trac.ffmpeg.org/wiki/EncodingForStreamingSites
	bitrateMultiplier    = 1.07
	bufferSizeMultiplier = 1.5
)

// RenditionPlan carries one rendition plus everything derived from it.
type RenditionPlan struct {
	Rendition models.Rendition

	// MaxRateKbps and BufSizeKbps bound the encoder's rate control.
	MaxRateKbps int
	BufSizeKbps int

	// Bandwidth is the playlist BANDWIDTH attribute in bits per second.
	Bandwidth int

	PlaylistName string
	SegmentName  string
}

// EncodePlan is the full effective configuration for one encode run.
// Renditions are sorted ascending by height; players may pick the first
// master playlist entry as a default, so this order is a contract.
type EncodePlan struct {
	Preset          string
	VideoCodec      string
	AudioCodec      string
	SegmentDuration int

	// KeyFramesInterval is shared by all renditions: one keyframe every
	// two seconds of source footage, aligning with segment boundaries.
	KeyFramesInterval int

	Renditions []RenditionPlan
}

// Effective merges the caller supplied config over the defaults and sorts
// renditions ascending by height (stable, so equal heights keep their
// submitted order). At least one rendition is mandatory.
func Effective(cfg models.TranscodeConfig) (models.TranscodeConfig, error) {
	if len(cfg.Renditions) == 0 {
		return models.TranscodeConfig{}, errs.New(errs.CodeConfigInvalid,
			"at least one rendition is required in the transcode config")
	}

	out := cfg
	if out.Preset == "" {
		out.Preset = DefaultPreset
	}
	if out.VideoCodec == "" {
		out.VideoCodec = DefaultVideoCodec
	}
	if out.AudioCodec == "" {
		out.AudioCodec = DefaultAudioCodec
	}
	if out.SegmentDuration <= 0 {
		out.SegmentDuration = DefaultSegmentDuration
	}

	out.Renditions = append([]models.Rendition(nil), cfg.Renditions...)
	sort.SliceStable(out.Renditions, func(i, j int) bool {
		return out.Renditions[i].Resolution.Height < out.Renditions[j].Resolution.Height
	})

	return out, nil
}

// Build derives the encode plan from an effective config and the probed
// source frame rate.
func Build(cfg models.TranscodeConfig, frameRate int) (*EncodePlan, error) {
	eff, err := Effective(cfg)
	if err != nil {
		return nil, err
	}
	if frameRate <= 0 {
		return nil, errs.New(errs.CodeFrameRateUnavailable, "source frame rate is required to derive the keyframe interval")
	}

	plan := &EncodePlan{
		Preset:            eff.Preset,
		VideoCodec:        eff.VideoCodec,
		AudioCodec:        eff.AudioCodec,
		SegmentDuration:   eff.SegmentDuration,
		KeyFramesInterval: frameRate * 2,
		Renditions:        make([]RenditionPlan, 0, len(eff.Renditions)),
	}

	for _, r := range eff.Renditions {
		plan.Renditions = append(plan.Renditions, RenditionPlan{
			Rendition:    r,
			MaxRateKbps:  int(math.Round(float64(r.VideoBitRate) * bitrateMultiplier)),
			BufSizeKbps:  int(math.Round(float64(r.VideoBitRate) * bufferSizeMultiplier)),
			Bandwidth:    r.VideoBitRate * 1000,
			PlaylistName: VariantPlaylistName(r.Resolution.Height),
			SegmentName:  SegmentName(r.Resolution.Height),
		})
	}

	return plan, nil
}

// VariantPlaylistName - playlist_<height>p.m3u8, unique per height within
// one job's output directory.
func VariantPlaylistName(height int) string {
	return fmt.Sprintf("%s_%dp.m3u8", variantPlaylistPrefix, height)
}

// SegmentName - asset_<height>p.ts.
func SegmentName(height int) string {
	return fmt.Sprintf("%s_%dp.ts", segmentPrefix, height)
}
