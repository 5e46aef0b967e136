package archiver

import (
	"errors"
	"time"

	"camarchive/internal/protect"
)

// ErrInvalidRange is returned when a requested time range does not satisfy
// start < end.
var ErrInvalidRange = errors.New("archiver: invalid time range: start must be before end")

// Segment is one bounded retrieval unit: a sub-interval of a requested range
// for a single camera.
type Segment struct {
	Camera protect.Camera
	Start  time.Time
	End    time.Time

	// Aligned is true when the segment boundaries were snapped to absolute
	// hour marks.
	Aligned bool
}

// Duration returns the length of the segment.
func (s Segment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// SplitRange splits [start, end) into retrieval segments for one camera.
//
// With disableSplitting set, a single unaligned segment covering the whole
// range is returned; the appliance may misbehave on export requests much
// longer than an hour, which is the caller's risk to take.
//
// Otherwise segments are at most one hour long. By default interior
// boundaries snap to the top of the hour, so a range starting at 08:45
// yields 08:45-09:00, then full hours, then the remainder. With
// disableAlignment set, segments are fixed one-hour offsets from start
// instead, with the last one clipped to end.
//
// The returned segments are sorted ascending, contiguous, non-overlapping,
// and cover the range exactly.
func SplitRange(camera protect.Camera, start, end time.Time, disableAlignment, disableSplitting bool) ([]Segment, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	if disableSplitting {
		return []Segment{{Camera: camera, Start: start, End: end}}, nil
	}

	var segments []Segment
	cursor := start
	for cursor.Before(end) {
		var next time.Time
		if disableAlignment {
			next = cursor.Add(time.Hour)
		} else {
			next = topOfHour(cursor).Add(time.Hour)
		}
		if next.After(end) {
			next = end
		}

		segments = append(segments, Segment{
			Camera:  camera,
			Start:   cursor,
			End:     next,
			Aligned: !disableAlignment,
		})
		cursor = next
	}

	return segments, nil
}

// topOfHour rounds t down to the start of its wall-clock hour. Truncate is
// not used because it rounds relative to UTC, which shifts the boundary in
// zones with fractional-hour offsets.
func topOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
