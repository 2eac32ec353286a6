// Package lava is a client for the LAVA test-lab data export REST
// interface (/api/v0.2/).
//
// The central object is a Client, a local proxy for one LAVA server.
// Collections (devices, jobs, workers, tags, per-job test data) are
// exposed as lazily-consumed sequences; pagination is handled
// transparently, and tag ids embedded in device and job records are
// resolved into full Tag values through a client-wide read-through
// cache. Coverage of the data exposed by LAVA is read-only and not
// complete.
//
// Basic usage:
//
//	client, err := lava.New("https://lava.example.com",
//	    lava.WithToken(token),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for device, err := range client.Devices().All(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(device.Hostname)
//	}
package lava

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lavabridge/go-lava/pkg/logging"
)

const (
	apiPrefix      = "api/v0.2/"
	defaultTimeout = 30 * time.Second
)

// Client is a local proxy for a LAVA server.
//
// A Client may be shared freely: independent sequences obtained from it
// can be consumed concurrently and share the HTTP client and the tag
// cache.
type Client struct {
	httpClient *http.Client
	base       *url.URL
	logger     zerolog.Logger

	// tagMu guards tags; refreshMu serializes cache refreshes without
	// blocking concurrent readers of entries that are already present.
	tagMu     sync.RWMutex
	refreshMu sync.Mutex
	tags      map[uint32]Tag
}

// Option configures a Client.
type Option func(*config)

type config struct {
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *zerolog.Logger
}

// WithToken sets the LAVA security token. It is sent as an
// "Authorization: Token <t>" request header.
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied and
// its redirect policy replaced: redirects are handled by the library so
// that the token header never crosses an https→http downgrade.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used by the client and every sequence
// derived from it.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = &logger
	}
}

// New creates a new Client for the LAVA server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	host, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	base, err := host.Parse(apiPrefix)
	if err != nil {
		return nil, fmt.Errorf("join API prefix: %w", err)
	}

	logger := logging.NewLogger("lava-client")
	if cfg.logger != nil {
		logger = *cfg.logger
	}

	httpClient := &http.Client{Timeout: defaultTimeout}
	if cfg.httpClient != nil {
		clone := *cfg.httpClient
		httpClient = &clone
	}
	httpClient.Transport = &headerTransport{
		base:      httpClient.Transport,
		token:     cfg.token,
		userAgent: cfg.userAgent,
	}
	// Redirects are followed manually by the paginator; auto-following
	// would resend the token header before the scheme check runs.
	httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		httpClient: httpClient,
		base:       base,
		logger:     logger,
		tags:       make(map[uint32]Tag),
	}, nil
}

// endpoint resolves a relative endpoint path against the API base.
// The path components are fixed strings or formatted integers, so a
// parse failure is a programming error.
func (c *Client) endpoint(rel string) *url.URL {
	u, err := c.base.Parse(rel)
	if err != nil {
		panic(fmt.Sprintf("lava: resolve endpoint %q: %v", rel, err))
	}
	return u
}

// headerTransport decorates every request with the configured auth
// token and User-Agent.
type headerTransport struct {
	base      http.RoundTripper
	token     string
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Token "+t.token)
	}
	if t.userAgent != "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
