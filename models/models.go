package models

import "errors"

// Resolution - output frame size in pixels. Both dimensions are padded
// up to even values before encoding (h.264 requirement).
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rendition describes one output quality tier. Bitrates are in kbps.
type Rendition struct {
	Resolution   Resolution `json:"resolution"`
	VideoBitRate int        `json:"videoBitRate"`
	AudioBitRate int        `json:"audioBitRate"`
}

// TranscodeConfig is the caller supplied encode configuration. Missing
// fields get defaults applied by the planner; renditions have no default.
type TranscodeConfig struct {
	Renditions      []Rendition `json:"renditions"`
	Preset          string      `json:"preset,omitempty"`
	VideoCodec      string      `json:"videoCodec,omitempty"`
	AudioCodec      string      `json:"audioCodec,omitempty"`
	SegmentDuration int         `json:"segmentDuration,omitempty"`
}

// RemoteFile identifies an object in the object store.
type RemoteFile struct {
	RequestId       string `json:"requestId"`
	FileId          string `json:"fileId"`
	FileName        string `json:"fileName"`
	ContentLength   int64  `json:"contentLength,omitempty"`
	ContentSha1     string `json:"contentSha1,omitempty"`
	ContentType     string `json:"contentType,omitempty"`
	UploadTimestamp int64  `json:"uploadTimestamp,omitempty"`
}

// TranscodeWorkerInput is the job message consumed from the queue.
type TranscodeWorkerInput struct {
	RequestId       string          `json:"requestId"`
	InputFile       RemoteFile      `json:"inputFile"`
	TranscodeConfig TranscodeConfig `json:"transcodeConfig"`
}

// Validate checks the message is structurally usable before the pipeline
// starts. Rendition emptiness is the planner's call, not validation.
func (t *TranscodeWorkerInput) Validate() error {
	if t.RequestId == "" {
		return errors.New("requestId is required")
	}
	if t.InputFile.FileId == "" {
		return errors.New("inputFile.fileId is required")
	}
	if t.InputFile.FileName == "" {
		return errors.New("inputFile.fileName is required")
	}
	return nil
}

// Variant - one rendition's local output pair, pre upload.
type Variant struct {
	Playlist     string
	MediaSegment string
	Resolution   Resolution
}

// TranscodedMedia is the encode stage output, consumed by the upload stage.
type TranscodedMedia struct {
	RequestId      string
	MasterPlaylist string
	Variants       []Variant
}

// RemoteVariantFiles - one rendition's uploaded output pair.
type RemoteVariantFiles struct {
	Resolution   Resolution `json:"resolution"`
	Playlist     RemoteFile `json:"playlist"`
	MediaSegment RemoteFile `json:"mediaSegment"`
}

// UploadTranscodedMediaResponse is the terminal artifact of a job.
type UploadTranscodedMediaResponse struct {
	RequestId      string               `json:"requestId"`
	MasterPlaylist RemoteFile           `json:"masterPlaylist"`
	Variants       []RemoteVariantFiles `json:"variants"`
}
