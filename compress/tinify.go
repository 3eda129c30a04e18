package compress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/justapithecus/autotiny/iox"
	"github.com/justapithecus/autotiny/types"
)

// DefaultEndpoint is the public Tinify API.
const DefaultEndpoint = "https://api.tinify.com"

// DefaultTimeout is the default per-request timeout. Uploads of large
// images routinely take tens of seconds.
const DefaultTimeout = 60 * time.Second

// Config configures the Tinify client.
type Config struct {
	// Endpoint is the API base URL (default DefaultEndpoint).
	Endpoint string
	// Timeout is the per-request timeout (default DefaultTimeout).
	Timeout time.Duration
}

// Client compresses images through the Tinify HTTP API: the image is
// uploaded to /shrink and the result is downloaded from the returned
// location, both authenticated as "api:<credential>".
type Client struct {
	config Config
	client *http.Client

	compressionCount atomic.Int64
}

// apiError is the JSON body the service returns on failure.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// shrinkResponse is the JSON body of a successful upload.
type shrinkResponse struct {
	Output struct {
		Size int64  `json:"size"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"output"`
}

// NewClient creates a Tinify client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return nil, fmt.Errorf("compressor endpoint must be an http(s) URL, got %q", cfg.Endpoint)
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Compress uploads data and downloads the compressed result.
func (c *Client) Compress(ctx context.Context, data []byte, credential string) ([]byte, error) {
	location, err := c.shrink(ctx, data, credential)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, location, credential)
}

// CompressionCount returns the last monthly compression count the service
// reported, or 0 if none was seen.
func (c *Client) CompressionCount() int64 {
	return c.compressionCount.Load()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) shrink(ctx context.Context, data []byte, credential string) (string, error) {
	const op = "shrink"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/shrink", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.do(ctx, op, req, credential)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(resp.Body)

	if location := resp.Header.Get("Location"); location != "" {
		_, _ = io.Copy(io.Discard, resp.Body)
		return location, nil
	}

	var body shrinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Kind: ErrServiceUnavailable, Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if body.Output.URL == "" {
		return "", &Error{Kind: ErrServiceUnavailable, Op: op, Status: resp.StatusCode, Message: "response carries no output location"}
	}
	return body.Output.URL, nil
}

func (c *Client) download(ctx context.Context, location, credential string) ([]byte, error) {
	const op = "download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}

	resp, err := c.do(ctx, op, req, credential)
	if err != nil {
		return nil, err
	}
	defer iox.DiscardClose(resp.Body)

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrConnection, Op: op, Status: resp.StatusCode, Err: err}
	}
	return out, nil
}

// do sends req with credentials and classifies any failure. On success the
// caller owns resp.Body.
func (c *Client) do(ctx context.Context, op string, req *http.Request, credential string) (*http.Response, error) {
	req.SetBasicAuth("api", credential)
	req.Header.Set("User-Agent", "autotiny/"+types.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		// Cancellation is the caller's decision, not a service failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, &Error{Kind: ErrConnection, Op: op, Err: err}
	}

	if n, err := strconv.ParseInt(resp.Header.Get("Compression-Count"), 10, 64); err == nil {
		c.compressionCount.Store(n)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer iox.DiscardClose(resp.Body)
	apiErr := apiError{}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	message := apiErr.Message
	switch {
	case apiErr.Error != "" && apiErr.Message != "":
		message = apiErr.Error + ": " + apiErr.Message
	case apiErr.Error != "":
		message = apiErr.Error
	}
	return nil, &Error{
		Kind:    classifyStatus(resp.StatusCode),
		Op:      op,
		Status:  resp.StatusCode,
		Message: message,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

var _ Compressor = (*Client)(nil)
