package archiver

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const filenameLayout = "2006-01-02T15.04.05"

// footagePath returns the local path for a footage segment:
// <root>[/YYYY/MM/DD/<camera>]/<camera>_<start>_<end>.mp4.
// Timestamps render in UTC or local time per the useUTC flag; the optional
// date subfolder follows the same rendering.
func footagePath(root string, seg Segment, useSubfolders, useUTC bool) string {
	start := renderTime(seg.Start, useUTC)
	end := renderTime(seg.End, useUTC)
	name := fmt.Sprintf("%s_%s_%s.mp4",
		sanitizeName(seg.Camera.Name), start.Format(filenameLayout), end.Format(filenameLayout))

	return filepath.Join(subfolder(root, seg.Camera.Name, start, useSubfolders), name)
}

// snapshotPath returns the local path for a camera snapshot taken at ts:
// <root>[/YYYY/MM/DD/<camera>]/<camera>_<ts>.jpg.
func snapshotPath(root, cameraName string, ts time.Time, useSubfolders, useUTC bool) string {
	at := renderTime(ts, useUTC)
	name := fmt.Sprintf("%s_%s.jpg", sanitizeName(cameraName), at.Format(filenameLayout))

	return filepath.Join(subfolder(root, cameraName, at, useSubfolders), name)
}

func subfolder(root, cameraName string, start time.Time, useSubfolders bool) string {
	if !useSubfolders {
		return root
	}
	return filepath.Join(root, start.Format("2006"), start.Format("01"), start.Format("02"), sanitizeName(cameraName))
}

func renderTime(t time.Time, useUTC bool) time.Time {
	if useUTC {
		return t.UTC()
	}
	return t.Local()
}

var nameSanitizer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// sanitizeName makes a camera display name safe for use in paths.
func sanitizeName(name string) string {
	return nameSanitizer.Replace(name)
}
