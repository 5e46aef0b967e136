package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultLegacyPort = 7443

// LegacyClient talks to a standalone NVR predating UniFi OS: bearer-token
// login, API mounted under /api on port 7443.
type LegacyClient struct {
	baseURL string
	apiPath string
	client  *http.Client
	token   string
}

// NewLegacyClient authenticates against the NVR and returns a ready client.
func NewLegacyClient(ctx context.Context, opts Options) (*LegacyClient, error) {
	port := opts.Port
	if port == 0 {
		port = defaultLegacyPort
	}

	httpClient, err := newHTTPClient(opts, false)
	if err != nil {
		return nil, err
	}

	c := &LegacyClient{
		baseURL: fmt.Sprintf("https://%s:%d", opts.Address, port),
		apiPath: "/api",
		client:  httpClient,
	}

	if err := c.login(ctx, opts.Username, opts.Password); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *LegacyClient) login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.apiPath+"/auth", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
			resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: login failed: %s", ErrUnauthorized, resp.Status)
		}
		return classifyStatus(resp.StatusCode, resp.Status)
	}

	// The NVR hands the bearer token back in the Authorization header.
	token := resp.Header.Get("Authorization")
	if token == "" {
		return fmt.Errorf("%w: login response carried no token", ErrUnauthorized)
	}
	c.token = token
	return nil
}

func (c *LegacyClient) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if err := classifyStatus(resp.StatusCode, resp.Status); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// ListCameras implements Session.
func (c *LegacyClient) ListCameras(ctx context.Context) ([]Camera, error) {
	resp, err := c.get(ctx, c.apiPath+"/bootstrap", nil)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer resp.Body.Close()

	return decodeCameras(resp.Body)
}

// ListMotionEvents implements Session.
func (c *LegacyClient) ListMotionEvents(ctx context.Context, start, end time.Time, cameraIDs []string) ([]MotionEvent, error) {
	query := url.Values{
		"start": {epochMillis(start)},
		"end":   {epochMillis(end)},
		"types": {"motion"},
	}

	resp, err := c.get(ctx, c.apiPath+"/events", query)
	if err != nil {
		return nil, fmt.Errorf("list motion events: %w", err)
	}
	defer resp.Body.Close()

	events, err := decodeEvents(resp.Body)
	if err != nil {
		return nil, err
	}
	return filterEventsByCamera(events, cameraIDs), nil
}

// ExportFootage implements Session.
func (c *LegacyClient) ExportFootage(ctx context.Context, cameraID string, start, end time.Time) (io.ReadCloser, error) {
	query := url.Values{
		"camera": {cameraID},
		"start":  {epochMillis(start)},
		"end":    {epochMillis(end)},
	}

	resp, err := c.get(ctx, c.apiPath+"/video/export", query)
	if err != nil {
		return nil, fmt.Errorf("export footage: %w", err)
	}
	return resp.Body, nil
}

// CaptureSnapshot implements Session.
func (c *LegacyClient) CaptureSnapshot(ctx context.Context, cameraID string) (io.ReadCloser, error) {
	query := url.Values{
		"ts": {epochMillis(time.Now())},
	}

	resp, err := c.get(ctx, c.apiPath+"/cameras/"+cameraID+"/snapshot", query)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return resp.Body, nil
}
