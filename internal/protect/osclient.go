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

const defaultOSPort = 443

// OSClient talks to a UniFi-OS-style appliance: cookie-based login with a
// CSRF token, Protect API mounted under /proxy/protect/api.
type OSClient struct {
	baseURL string
	apiPath string
	client  *http.Client
	csrf    string
}

// NewOSClient authenticates against the appliance and returns a ready client.
func NewOSClient(ctx context.Context, opts Options) (*OSClient, error) {
	port := opts.Port
	if port == 0 {
		port = defaultOSPort
	}

	httpClient, err := newHTTPClient(opts, true)
	if err != nil {
		return nil, err
	}

	c := &OSClient{
		baseURL: fmt.Sprintf("https://%s:%d", opts.Address, port),
		apiPath: "/proxy/protect/api",
		client:  httpClient,
	}

	if err := c.login(ctx, opts.Username, opts.Password); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *OSClient) login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
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

	// The session cookie lands in the jar; the CSRF token must be echoed on
	// every subsequent request.
	c.csrf = resp.Header.Get("X-CSRF-Token")
	return nil
}

func (c *OSClient) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

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
func (c *OSClient) ListCameras(ctx context.Context) ([]Camera, error) {
	resp, err := c.get(ctx, c.apiPath+"/bootstrap", nil)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer resp.Body.Close()

	return decodeCameras(resp.Body)
}

// ListMotionEvents implements Session.
func (c *OSClient) ListMotionEvents(ctx context.Context, start, end time.Time, cameraIDs []string) ([]MotionEvent, error) {
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
func (c *OSClient) ExportFootage(ctx context.Context, cameraID string, start, end time.Time) (io.ReadCloser, error) {
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
func (c *OSClient) CaptureSnapshot(ctx context.Context, cameraID string) (io.ReadCloser, error) {
	query := url.Values{
		"ts": {epochMillis(time.Now())},
	}

	resp, err := c.get(ctx, c.apiPath+"/cameras/"+cameraID+"/snapshot", query)
	if err != nil {
		return nil, fmt.Errorf("capture snapshot: %w", err)
	}
	return resp.Body, nil
}
