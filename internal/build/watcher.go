package build

import (
	"os"
	"strings"
	"time"
)

// Artifact is a build output that was present when the marker was seen.
type Artifact struct {
	Path       string
	Size       int64
	DetectedAt time.Time
}

// watcher decides when the artifact is ready. It fires at most once; it is
// used from the single goroutine reading stdout.
type watcher struct {
	marker string
	path   string
	fired  bool
}

func newWatcher(marker, path string) *watcher {
	return &watcher{marker: marker, path: path}
}

// observe checks one line of build output. It reports the artifact the first
// time a line carries the marker while the artifact is a regular file.
func (w *watcher) observe(line string) (Artifact, bool) {
	if w.fired || w.marker == "" || !strings.Contains(line, w.marker) {
		return Artifact{}, false
	}

	info, err := os.Stat(w.path)
	if err != nil || !info.Mode().IsRegular() {
		return Artifact{}, false
	}

	w.fired = true
	return Artifact{
		Path:       w.path,
		Size:       info.Size(),
		DetectedAt: time.Now(),
	}, true
}
