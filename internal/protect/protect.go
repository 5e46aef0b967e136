package protect

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Camera is a single camera known to the NVR.
type Camera struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MotionEvent is a recorded motion detection on one camera.
type MotionEvent struct {
	ID       string    `json:"id"`
	CameraID string    `json:"camera_id"`
	Type     string    `json:"type"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Score    int       `json:"score"`
}

// Session is an authenticated channel to the NVR API. Two implementations
// exist: OSClient for UniFi-OS-style appliances and LegacyClient for older
// standalone NVRs. The variant is chosen once at construction.
type Session interface {
	// ListCameras returns all cameras managed by the NVR.
	ListCameras(ctx context.Context) ([]Camera, error)

	// ListMotionEvents returns motion events recorded between start and end,
	// narrowed to the given camera IDs. A nil or empty list keeps every
	// camera's events.
	ListMotionEvents(ctx context.Context, start, end time.Time, cameraIDs []string) ([]MotionEvent, error)

	// ExportFootage requests the recorded video for one camera between start
	// and end. The caller must close the returned stream.
	ExportFootage(ctx context.Context, cameraID string, start, end time.Time) (io.ReadCloser, error)

	// CaptureSnapshot requests a current still image from one camera.
	// The caller must close the returned stream.
	CaptureSnapshot(ctx context.Context, cameraID string) (io.ReadCloser, error)
}

// Options configures a Session.
type Options struct {
	// Address is the IP address or hostname of the NVR.
	Address string

	// Port overrides the variant's default port (443 modern, 7443 legacy)
	// when nonzero.
	Port int

	Username string
	Password string

	// VerifySSL enables TLS certificate verification. Appliances usually
	// serve self-signed certificates, so this defaults to off.
	VerifySSL bool

	// Timeout bounds each API request, including reading the response body.
	Timeout time.Duration
}

// NewSession logs in to the NVR and returns a ready Session. With legacy set,
// the pre-UniFi-OS API on port 7443 is used; otherwise the modern API on
// port 443.
func NewSession(ctx context.Context, opts Options, legacy bool) (Session, error) {
	if legacy {
		return NewLegacyClient(ctx, opts)
	}
	return NewOSClient(ctx, opts)
}

func newHTTPClient(opts Options, withJar bool) (*http.Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.VerifySSL},
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	if withJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.Jar = jar
	}

	return client, nil
}

// bootstrapResponse is the subset of the NVR bootstrap payload we consume.
type bootstrapResponse struct {
	Cameras []Camera `json:"cameras"`
}

// wireEvent is a motion event as the NVR encodes it: epoch milliseconds.
type wireEvent struct {
	ID     string `json:"id"`
	Camera string `json:"camera"`
	Type   string `json:"type"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Score  int    `json:"score"`
}

func decodeCameras(r io.Reader) ([]Camera, error) {
	var bootstrap bootstrapResponse
	if err := json.NewDecoder(r).Decode(&bootstrap); err != nil {
		return nil, fmt.Errorf("decode bootstrap: %w", err)
	}
	return bootstrap.Cameras, nil
}

func decodeEvents(r io.Reader) ([]MotionEvent, error) {
	var wire []wireEvent
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]MotionEvent, 0, len(wire))
	for _, e := range wire {
		events = append(events, MotionEvent{
			ID:       e.ID,
			CameraID: e.Camera,
			Type:     e.Type,
			Start:    time.UnixMilli(e.Start),
			End:      time.UnixMilli(e.End),
			Score:    e.Score,
		})
	}
	return events, nil
}

func epochMillis(t time.Time) string {
	return fmt.Sprintf("%d", t.UnixMilli())
}

// filterEventsByCamera narrows events to the given camera IDs. The NVR event
// endpoint has no per-camera query, so narrowing happens after decoding.
func filterEventsByCamera(events []MotionEvent, cameraIDs []string) []MotionEvent {
	if len(cameraIDs) == 0 {
		return events
	}

	wanted := make(map[string]bool, len(cameraIDs))
	for _, id := range cameraIDs {
		wanted[id] = true
	}

	filtered := make([]MotionEvent, 0, len(events))
	for _, e := range events {
		if wanted[e.CameraID] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
