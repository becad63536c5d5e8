package hub

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Header names used by the controller.
const (
	headerAuthToken = "Crestron-RestAPI-AuthToken"
	headerAuthKey   = "Crestron-RestAPI-AuthKey"
)

const (
	// apiPrefix is appended to the host to form the base URL.
	apiPrefix = "/cws/api"

	// DefaultRequestTimeout bounds each outbound call when Options.Timeout is zero.
	DefaultRequestTimeout = 10 * time.Second

	// maxResponseBody caps how much of a response body is read.
	maxResponseBody = 8 << 20
)

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Client.
type Options struct {
	// Host is the controller address. A bare host gets an https:// scheme;
	// an explicit scheme is kept as given.
	Host string

	// APIToken is the long-lived token exchanged for session keys.
	APIToken string

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// HTTPClient overrides the transport. Timeout still applies per request.
	HTTPClient *http.Client

	// Now overrides the clock used for session expiry.
	Now func() time.Time

	Logger Logger
}

// Client is a session-bearing client for the controller REST API.
// It is safe for concurrent use.
type Client struct {
	baseURL  string
	apiToken string
	timeout  time.Duration
	http     *http.Client
	now      func() time.Time

	// session holds the current *Session; renewMu serialises renewals.
	session atomic.Pointer[Session]
	renewMu sync.Mutex

	logger Logger
}

// NewClient creates a client for the controller described by opts.
//
// Parameters:
//   - opts: Controller address, token and transport settings
//
// Returns:
//   - *Client: Ready client (no I/O is performed until the first call)
//   - error: If host or token is missing
func NewClient(opts Options) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(opts.Host), "/")
	if host == "" {
		return nil, errors.New("hub: host is required")
	}
	if opts.APIToken == "" {
		return nil, errors.New("hub: api token is required")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // controllers ship self-signed certificates
		}
		httpClient = &http.Client{Transport: transport}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &Client{
		baseURL:  host + apiPrefix,
		apiToken: opts.APIToken,
		timeout:  timeout,
		http:     httpClient,
		now:      now,
		logger:   logger,
	}, nil
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs an authenticated request, decoding the JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	sess, err := c.EnsureSession(ctx)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, method, path, map[string]string{headerAuthKey: sess.Key}, body, out)
}

// roundTrip sends one request with its own timeout and maps failures onto ErrTransport.
func (c *Client) roundTrip(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encoding %s %s: %w", ErrTransport, method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: building %s %s: %w", ErrTransport, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %w", ErrTransport, method, path, err)
	}

	c.logger.Debug("hub request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %w", ErrTransport, newStatusError(method, path, resp.StatusCode, data))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %w", ErrTransport, method, path, err)
	}
	return nil
}
