// Package playlist synthesizes the HLS master playlist for a rendition
// set. Building is pure; writing is a separate explicit step.
package playlist

import (
	"fmt"
	"os"
	"strings"

	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/tools/planner"
)

const header = "#EXTM3U\n#EXT-X-VERSION:3\n"

// BuildMaster renders the master playlist text for the given rendition
// plans, in the order given (callers pass them ascending by height, so
// the lowest quality is listed first). Output is byte deterministic.
func BuildMaster(renditions []planner.RenditionPlan) string {
	var b strings.Builder
	b.WriteString(header)

	for _, r := range renditions {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n%s\n",
			r.Bandwidth,
			r.Rendition.Resolution.Width,
			r.Rendition.Resolution.Height,
			r.PlaylistName,
		)
	}

	return b.String()
}

// WriteMaster writes the playlist text to path.
func WriteMaster(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errs.Wrap(errs.CodeIOFailed, "cannot write master playlist "+path, err)
	}
	return nil
}
