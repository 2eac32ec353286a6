package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pagination operations.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_pages_fetched_total",
		Help: "Total pages fetched by endpoint",
	}, []string{"endpoint"})

	pageFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lava_page_fetch_errors_total",
		Help: "Total page fetch failures by reason",
	}, []string{"reason"})

	redirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_redirects_total",
		Help: "Total HTTP redirects followed during page fetches",
	})
)

// maxRedirects bounds the number of redirect hops for one page fetch.
const maxRedirects = 9

// page is the LAVA collection envelope.
type page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Paginator pulls the items of one paginated collection, one at a time.
// It buffers a single page and fetches the server-supplied next link
// when the buffer runs out. A Paginator is owned by a single consumer
// and is not safe for concurrent use.
type Paginator[T any] struct {
	client *http.Client
	logger zerolog.Logger

	// current is the URL of the last successfully fetched page; next
	// links resolve against it.
	current *url.URL
	// fetchURL, when non-nil, is scheduled for the next fetch. It stays
	// scheduled across failed pulls so the same page is re-requested.
	fetchURL *url.URL
	// nextLink is the raw, not yet parsed next member of the buffered
	// page. Parsing is deferred until the buffer is drained.
	nextLink *string

	buf       []T
	count     int
	haveCount bool
	failed    bool
}

// New creates a Paginator over the collection at u. The client must not
// follow redirects itself (see the package documentation). The first
// request is issued on the first call to Next.
func New[T any](client *http.Client, u *url.URL, logger zerolog.Logger) *Paginator[T] {
	return &Paginator[T]{
		client:   client,
		logger:   logger,
		current:  u,
		fetchURL: u,
	}
}

// Next returns the next item of the collection. It blocks only on page
// boundaries, never mid-page. ok is false when the sequence has ended.
//
// A fetch error is returned for the current pull and the same URL is
// re-requested on the next pull; there is no backoff and no bound on
// such retries, so a persistently failing page will fail every pull
// until the consumer stops. A malformed next link is terminal: after
// the error is returned once the sequence reports its end.
func (p *Paginator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		if len(p.buf) > 0 {
			item := p.buf[0]
			p.buf = p.buf[1:]
			return item, true, nil
		}

		if p.nextLink != nil {
			link := *p.nextLink
			p.nextLink = nil
			u, err := p.current.Parse(link)
			if err != nil {
				p.failed = true
				p.fetchURL = nil
				pageFetchErrorsTotal.WithLabelValues("next_link").Inc()
				return zero, false, &NextLinkError{Link: link, Err: err}
			}
			p.fetchURL = u
		}

		if p.failed || p.fetchURL == nil {
			return zero, false, nil
		}

		pg, err := p.fetch(ctx, p.fetchURL)
		if err != nil {
			p.logger.Warn().
				Err(err).
				Str("url", p.fetchURL.String()).
				Msg("Page fetch failed, same URL scheduled for next pull")
			return zero, false, err
		}

		pagesFetchedTotal.WithLabelValues(p.fetchURL.Path).Inc()
		p.logger.Debug().
			Str("url", p.fetchURL.String()).
			Int("items", len(pg.Results)).
			Int("count", pg.Count).
			Msg("Fetched page")

		p.count = pg.Count
		p.haveCount = true
		p.buf = pg.Results
		p.nextLink = pg.Next
		p.current = p.fetchURL
		p.fetchURL = nil
	}
}

// ReportedItems returns the collection size most recently reported by
// the server, and whether a page has been seen yet. The value is an
// upper bound: it can change between pages when the collection mutates
// during traversal, which is not corrected for.
func (p *Paginator[T]) ReportedItems() (int, bool) {
	return p.count, p.haveCount
}

// fetch retrieves and decodes a single page, following redirects.
func (p *Paginator[T]) fetch(ctx context.Context, u *url.URL) (*page[T], error) {
	target := u
	for redirects := 0; ; redirects++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			pageFetchErrorsTotal.WithLabelValues("request").Inc()
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			pageFetchErrorsTotal.WithLabelValues("transport").Inc()
			return nil, fmt.Errorf("page fetch: %w", err)
		}

		if isRedirect(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			if redirects >= maxRedirects {
				pageFetchErrorsTotal.WithLabelValues("redirect").Inc()
				return nil, ErrTooManyRedirects
			}
			location := resp.Header.Get("Location")
			if location == "" {
				pageFetchErrorsTotal.WithLabelValues("redirect").Inc()
				return nil, ErrMissingLocation
			}
			next, err := target.Parse(location)
			if err != nil {
				pageFetchErrorsTotal.WithLabelValues("redirect").Inc()
				return nil, fmt.Errorf("parse redirect location %q: %w", location, err)
			}
			// The request may carry a token header; never let a
			// redirect downgrade it onto an insecure connection.
			if u.Scheme == "https" && next.Scheme == "http" {
				next.Scheme = "https"
			}
			p.logger.Debug().
				Str("from", target.String()).
				Str("to", next.String()).
				Msg("Following redirect")
			redirectsTotal.Inc()
			target = next
			continue
		}

		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= http.StatusBadRequest {
			_, _ = io.Copy(io.Discard, resp.Body)
			pageFetchErrorsTotal.WithLabelValues("status").Inc()
			return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: target.String()}
		}

		var pg page[T]
		if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
			pageFetchErrorsTotal.WithLabelValues("decode").Inc()
			return nil, fmt.Errorf("decode page: %w", err)
		}
		return &pg, nil
	}
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
