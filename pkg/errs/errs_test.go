package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeProbeFailed, "ffprobe invocation failed")
	assert.Equal(t, CodeProbeFailed, CodeOf(err))

	wrapped := fmt.Errorf("stage failed: %w", err)
	assert.Equal(t, CodeProbeFailed, CodeOf(wrapped))

	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestIsCodeThroughWrapChain(t *testing.T) {
	root := errors.New("connection reset")
	err := Wrap(CodeDownloadFailed, "object fetch failed", root)

	assert.True(t, IsCode(err, CodeDownloadFailed))
	assert.False(t, IsCode(err, CodeEncodeFailed))
	assert.True(t, IsCode(fmt.Errorf("outer: %w", err), CodeDownloadFailed))

	// the original cause stays reachable
	assert.True(t, errors.Is(err, root))
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodePartialUpload, "2 of 5 uploads failed")
	b := New(CodePartialUpload, "different message")
	assert.True(t, errors.Is(a, b))

	c := New(CodeIOFailed, "remove failed")
	assert.False(t, errors.Is(a, c))
}
