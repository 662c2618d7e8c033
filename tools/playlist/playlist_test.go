package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/videotom/transcode-worker/models"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/tools/planner"
)

func twoRenditions(t *testing.T) []planner.RenditionPlan {
	t.Helper()
	plan, err := planner.Build(models.TranscodeConfig{
		Renditions: []models.Rendition{
			{Resolution: models.Resolution{Width: 1280, Height: 720}, VideoBitRate: 4000, AudioBitRate: 192},
			{Resolution: models.Resolution{Width: 854, Height: 480}, VideoBitRate: 2000, AudioBitRate: 144},
		},
	}, 24)
	require.NoError(t, err)
	return plan.Renditions
}

func TestBuildMaster_Content(t *testing.T) {
	got := BuildMaster(twoRenditions(t))

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2000000,RESOLUTION=854x480\n" +
		"playlist_480p.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=4000000,RESOLUTION=1280x720\n" +
		"playlist_720p.m3u8\n"
	assert.Equal(t, want, got)
}

func TestBuildMaster_Deterministic(t *testing.T) {
	renditions := twoRenditions(t)

	first := BuildMaster(renditions)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildMaster(renditions))
	}
}

func TestBuildMaster_NoVariants(t *testing.T) {
	assert.Equal(t, "#EXTM3U\n#EXT-X-VERSION:3\n", BuildMaster(nil))
}

func TestWriteMaster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.m3u8")
	content := BuildMaster(twoRenditions(t))

	require.NoError(t, WriteMaster(path, content))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestWriteMaster_UnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "master.m3u8")

	err := WriteMaster(path, "#EXTM3U\n")
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeIOFailed))
}
