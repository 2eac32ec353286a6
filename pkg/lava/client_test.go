package lava

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavabridge/go-lava/internal/testutil"
)

// newTestClient builds a Client against a mock server; both are torn
// down with the test.
func newTestClient(t *testing.T, pop testutil.Population, limits testutil.PageLimits, opts ...Option) (*Client, *testutil.MockLava) {
	t.Helper()
	mock := testutil.NewMockLava(pop, limits)
	t.Cleanup(mock.Close)

	client, err := New(mock.URL(), opts...)
	require.NoError(t, err)
	return client, mock
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestNewRejectsUnparsableURL(t *testing.T) {
	_, err := New("http://bad url with spaces")
	require.Error(t, err)
}

func TestNewJoinsAPIPrefix(t *testing.T) {
	for _, base := range []string{"http://lava.example.com", "http://lava.example.com/"} {
		c, err := New(base)
		require.NoError(t, err)
		assert.Equal(t, "/api/v0.2/", c.base.Path)
	}
}

func TestEndpointResolution(t *testing.T) {
	c, err := New("http://lava.example.com")
	require.NoError(t, err)

	u := c.endpoint("jobs/42/logs/")
	assert.Equal(t, "/api/v0.2/jobs/42/logs/", u.Path)
}

func TestRequestHeaders(t *testing.T) {
	pop := testutil.DefaultPopulation(3, 1, 0, 0)
	client, mock := newTestClient(t, pop, testutil.PageLimits{},
		WithToken("s3cret"),
		WithUserAgent("lava-smoke/1.0"),
	)

	var mu sync.Mutex
	var auth, agent string
	mock.SetHandler("tags/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		agent = r.Header.Get("User-Agent")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	})

	_, err := client.Tags(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Token s3cret", auth)
	assert.Equal(t, "lava-smoke/1.0", agent)
}

func TestNoTokenHeaderWithoutToken(t *testing.T) {
	pop := testutil.DefaultPopulation(1, 1, 0, 0)
	client, mock := newTestClient(t, pop, testutil.PageLimits{})

	var mu sync.Mutex
	var auth string
	sawAuth := false
	mock.SetHandler("tags/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		sawAuth = true
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":0,"next":null,"previous":null,"results":[]}`))
	})

	_, err := client.Tags(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, sawAuth)
	assert.Empty(t, auth)
}
