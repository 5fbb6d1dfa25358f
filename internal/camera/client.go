// Package camera talks to the IP Webcam HTTP control API on the phone and
// keeps a client-side cache of its settings.
package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/smazurov/dcam/internal/logging"
)

// ErrUnexpectedStatus is returned for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// Client is an HTTP client for the camera control API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter replaces the mutation rate limiter.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the API rooted at baseURL
// (for example http://127.0.0.1:8080).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		// Key auto-repeat runs at ~30Hz; the phone handles far less.
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 3),
		logger:  logging.GetLogger("camera"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status fetches the current values, and the available values when
// includeAvailable is set.
func (c *Client) Status(ctx context.Context, includeAvailable bool) (*Status, error) {
	show := "0"
	if includeAvailable {
		show = "1"
	}

	body, err := c.get(ctx, "/status.json", url.Values{"show_avail": {show}})
	if err != nil {
		return nil, fmt.Errorf("failed to get camera status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode camera status: %w", err)
	}

	c.logger.Log(ctx, logging.LevelTrace, "Camera status", "status", status)
	return &status, nil
}

// SetZoom selects the zoom step at index.
func (c *Client) SetZoom(ctx context.Context, index int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := c.get(ctx, "/ptz", url.Values{"zoom": {strconv.Itoa(index)}}); err != nil {
		return fmt.Errorf("failed to set zoom: %w", err)
	}
	return nil
}

// SetSetting writes one setting.
func (c *Client) SetSetting(ctx context.Context, setting Setting, value uint32) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	query := url.Values{"set": {strconv.FormatUint(uint64(value), 10)}}
	if _, err := c.get(ctx, "/settings/"+string(setting), query); err != nil {
		return fmt.Errorf("failed to set %s: %w", setting, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Camera request", "url", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}
	return body, nil
}
