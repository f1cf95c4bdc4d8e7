package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/proxy"
)

// Default session settings.
const (
	// DefaultUserAgent is a desktop browser User-Agent. The listing service
	// rejects requests that identify as an unknown client.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:134.0) Gecko/20100101 Firefox/134.0"

	// DefaultRetryMax is the number of extra attempts after the first one.
	DefaultRetryMax = 5

	// DefaultRetryWaitMin is the backoff before the first retry.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax caps the backoff between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// transientStatus lists the statuses worth retrying: server overload,
// unavailability and gateway failures.
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsTransient reports whether status is retried by a Session.
func IsTransient(status int) bool {
	return transientStatus[status]
}

// Response is the outcome of a GET.
type Response struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status of the final attempt.
	StatusCode int

	// Header holds the response headers of the final attempt.
	Header http.Header

	// Body is the complete response body. Bodies over the session's
	// MaxBodySize are refused with ErrBodyTooLarge.
	Body []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Session is an HTTP client with identifying headers and bounded retry.
type Session struct {
	client *http.Client

	userAgent string
	headers   map[string]string

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration

	timeout      time.Duration
	maxBodySize  int64
	proxyAddress string

	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithHeaders sets extra headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(s *Session) {
		s.headers = headers
	}
}

// WithRetry sets the retry budget and backoff bounds.
// max is the number of extra attempts; 0 disables retry.
func WithRetry(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(s *Session) {
		if maxRetries >= 0 {
			s.retryMax = maxRetries
		}
		if waitMin > 0 {
			s.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			s.retryWaitMax = waitMax
		}
	}
}

// WithTimeout sets the timeout of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(s *Session) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithProxy routes all requests through the SOCKS5 proxy at address
// ("host:port"). An empty address means a direct connection.
func WithProxy(address string) Option {
	return func(s *Session) {
		s.proxyAddress = address
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Transport is
// wrapped so that the identifying headers are still injected.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.client = client
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		userAgent:    DefaultUserAgent,
		retryMax:     DefaultRetryMax,
		retryWaitMin: DefaultRetryWaitMin,
		retryWaitMax: DefaultRetryWaitMax,
		timeout:      DefaultTimeout,
		maxBodySize:  DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.retryWaitMax < s.retryWaitMin {
		s.retryWaitMax = s.retryWaitMin
	}

	if s.client == nil {
		base, err := s.newTransport()
		if err != nil {
			return nil, err
		}
		s.client = &http.Client{Transport: base, Timeout: s.timeout}
	} else {
		// Shallow copy so the caller's client is left untouched.
		clone := *s.client
		s.client = &clone
	}

	base := s.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	s.client.Transport = &headerInjectingTransport{
		base:      base,
		userAgent: s.userAgent,
		headers:   s.headers,
	}

	return s, nil
}

// newTransport builds the connection-pooling transport, dialing through the
// configured SOCKS5 proxy when one is set.
func (s *Session) newTransport() (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConns = 32
	transport.MaxIdleConnsPerHost = 16
	transport.IdleConnTimeout = 90 * time.Second

	if s.proxyAddress == "" {
		return transport, nil
	}

	if !isValidProxyAddress(s.proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}
	dialer, err := proxy.SOCKS5("tcp", s.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
	return transport, nil
}

// isValidProxyAddress checks if the address is in "host:port" format with a
// port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || strings.Contains(host, ":") {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Get performs a GET of rawURL, retrying transient failures.
//
// Non-transient statuses are returned on the first attempt. When the retry
// budget runs out on a transient status, the last response is returned with a
// nil error so the caller sees the real status. When it runs out on network
// errors, the returned error wraps ErrRetriesExhausted and the last error.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	requestID := uuid.NewString()

	var (
		lastResp *Response
		lastErr  error
	)
	for attempt := 0; attempt <= s.retryMax; attempt++ {
		if attempt > 0 {
			wait := s.backoff(attempt, lastResp)
			s.logger.Debug("retrying request",
				"url", rawURL,
				"request_id", requestID,
				"attempt", attempt,
				"wait", wait,
			)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := s.do(ctx, rawURL, requestID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrBodyTooLarge) {
				return nil, err
			}
			s.logger.Warn("request failed",
				"url", rawURL,
				"request_id", requestID,
				"error", err,
			)
			lastResp, lastErr = nil, err
			continue
		}

		if !IsTransient(resp.StatusCode) {
			return resp, nil
		}
		s.logger.Warn("transient server error",
			"url", rawURL,
			"request_id", requestID,
			"status", resp.StatusCode,
		)
		lastResp, lastErr = resp, nil
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("%w: GET %s after %d attempts: %w", ErrRetriesExhausted, rawURL, s.retryMax+1, lastErr)
}

// do performs a single attempt.
func (s *Session) do(ctx context.Context, rawURL, requestID string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("%w: GET %s exceeds %d bytes", ErrBodyTooLarge, rawURL, s.maxBodySize)
	}

	s.logger.Debug("request completed",
		"url", rawURL,
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)

	return &Response{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// backoff returns the wait before the given retry attempt (1-based).
// A Retry-After header in seconds on the previous response takes precedence,
// capped at retryWaitMax.
func (s *Session) backoff(attempt int, prev *Response) time.Duration {
	if prev != nil {
		if seconds, err := strconv.Atoi(prev.Header.Get("Retry-After")); err == nil && seconds >= 0 {
			return min(time.Duration(seconds)*time.Second, s.retryWaitMax)
		}
	}

	shift := min(attempt-1, 30)
	wait := min(s.retryWaitMin*time.Duration(1<<shift), s.retryWaitMax)
	if wait <= 0 {
		wait = s.retryWaitMax
	}

	// Jitter of up to 25% spreads retries of concurrent workers.
	if quarter := int64(wait / 4); quarter > 0 {
		wait += time.Duration(rand.Int64N(quarter))
	}
	return wait
}

// headerInjectingTransport wraps an http.RoundTripper to inject the
// identifying headers into every request, redirects included.
type headerInjectingTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
