// Package errs carries the stable error codes logged by every pipeline
// stage. A code uniquely identifies the failing stage, so the absence of
// an upload response plus one of these codes is the whole failure surface
// visible to downstream systems.
package errs

import "fmt"

const (
	// CodeConfigInvalid - missing mandatory configuration (input path,
	// empty rendition list). Fatal, not retried.
	CodeConfigInvalid = "config_invalid"
	// CodeMalformedMessage - job message does not deserialize. Logged
	// with the raw payload, acked, never processed.
	CodeMalformedMessage = "malformed_message"
	// CodeProbeFailed - probing tool cannot read the source asset.
	CodeProbeFailed = "probe_failed"
	// CodeNoVideoStream - source asset has no video stream.
	CodeNoVideoStream = "no_video_stream"
	// CodeFrameRateUnavailable - video stream carries no frame rate.
	CodeFrameRateUnavailable = "frame_rate_unavailable"
	// CodeDownloadFailed - object store fetch failed.
	CodeDownloadFailed = "download_failed"
	// CodeEncodeFailed - external engine invocation failed.
	CodeEncodeFailed = "encode_failed"
	// CodePartialUpload - one or more of the fanned-out uploads failed.
	CodePartialUpload = "partial_upload"
	// CodeIOFailed - local filesystem failure.
	CodeIOFailed = "io_failed"
)

// Error is an error tagged with a stable code. Use errors.As / CodeOf to
// recover the code from a wrapped chain.
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two errs.Error values by code, so sentinel-style checks
// like errors.Is(err, errs.New(errs.CodeConfigInvalid, "")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New - error with a code and message, no cause.
func New(code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap - error with a code and message wrapping a cause.
func Wrap(code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf returns the code of the outermost errs.Error in the chain, or
// empty string when the error carries none.
func CodeOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsCode reports whether the chain carries the given code.
func IsCode(err error, code string) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
