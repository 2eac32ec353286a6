package lava

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavabridge/go-lava/internal/testutil"
)

func loggedJob(t *testing.T) (testutil.Population, int64) {
	t.Helper()
	pop := testutil.DefaultPopulation(2, 1, 2, 10)
	require.NotEmpty(t, pop.Logs)
	return pop, 1
}

func readAllEntries(t *testing.T, r *JobLogReader) []JobLogEntry {
	t.Helper()
	defer r.Close()

	var entries []JobLogEntry
	for {
		entry, ok, err := r.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return entries
		}
		entries = append(entries, entry)
	}
}

func TestJobLogReader(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	entries := readAllEntries(t, client.Log(jobID).Reader())
	require.Len(t, entries, 10)

	first := entries[0]
	assert.Equal(t, LogDebug, first.Lvl)
	require.NotNil(t, first.Msg.Text)
	assert.Equal(t, "log line 0", *first.Msg.Text)
	assert.Equal(t,
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		first.Dt.Time.UTC())

	// Entries are one second apart.
	assert.Equal(t, time.Second, entries[1].Dt.Sub(first.Dt.Time))
}

func TestJobLogRange(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	entries := readAllEntries(t, client.Log(jobID).Start(2).End(5).Reader())
	require.Len(t, entries, 3)
	require.NotNil(t, entries[0].Msg.Text)
	assert.Equal(t, "log line 2", *entries[0].Msg.Text)
}

func TestJobLogNoData(t *testing.T) {
	pop, _ := loggedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	reader := client.Log(9999).Reader()
	defer reader.Close()

	_, ok, err := reader.Next(context.Background())
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrNoLogData)
}

func TestJobLogRaw(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	body, err := client.Log(jobID).Raw(context.Background())
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, pop.Logs[jobID], string(raw))
}

func TestJobLogStructuredMessages(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, mock := newTestClient(t, pop, testutil.PageLimits{})

	log := `- {"dt": "2024-03-01T12:00:00.000000", "lvl": "results", "msg": {"case": "boot", "definition": "lava", "result": "pass", "duration": "2.50"}}
- {"dt": "2024-03-01T12:00:01.500000", "lvl": "target", "msg": ["line one", "line two"]}
`
	mock.SetHandler("jobs/1/logs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write([]byte(log))
	})

	entries := readAllEntries(t, client.Log(jobID).Reader())
	require.Len(t, entries, 2)

	result := entries[0].Msg.Result
	require.NotNil(t, result)
	assert.Equal(t, "boot", result.Case)
	assert.Equal(t, "lava", result.Definition)
	assert.Equal(t, "pass", result.Result)
	require.NotNil(t, result.Duration)
	assert.Equal(t, 2500*time.Millisecond, *result.Duration)

	assert.Equal(t, []string{"line one", "line two"}, entries[1].Msg.List)
	assert.Equal(t, 500*time.Millisecond,
		entries[1].Dt.Sub(entries[0].Dt.Time)-time.Second)
}

func TestJobLogParseErrorSkipsLine(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, mock := newTestClient(t, pop, testutil.PageLimits{})

	log := `- {"dt": "2024-03-01T12:00:00.000000", "lvl": "info", "msg": "good"}
- {"dt": "not a timestamp", "lvl": "info", "msg": "bad"}
- {"dt": "2024-03-01T12:00:02.000000", "lvl": "info", "msg": "also good"}
`
	mock.SetHandler("jobs/1/logs/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(log))
	})

	reader := client.Log(jobID).Reader()
	defer reader.Close()
	ctx := context.Background()

	entry, ok, err := reader.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "good", *entry.Msg.Text)

	_, ok, err = reader.Next(ctx)
	require.True(t, ok)
	var parseErr *JobLogParseError
	require.ErrorAs(t, err, &parseErr)

	entry, ok, err = reader.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "also good", *entry.Msg.Text)

	_, ok, err = reader.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobLogLevelRejected(t *testing.T) {
	pop, jobID := loggedJob(t)
	client, mock := newTestClient(t, pop, testutil.PageLimits{})

	mock.SetHandler("jobs/1/logs/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`- {"dt": "2024-03-01T12:00:00.000000", "lvl": "verbose", "msg": "x"}` + "\n"))
	})

	reader := client.Log(jobID).Reader()
	defer reader.Close()

	_, _, err := reader.Next(context.Background())
	var parseErr *JobLogParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, err.Error(), "log level")
}
