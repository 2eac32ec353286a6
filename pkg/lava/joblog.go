package lava

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoLogData is returned when the server has no log output for the
// requested job.
var ErrNoLogData = errors.New("no log data available")

// JobLogParseError reports a log line that could not be decoded.
type JobLogParseError struct {
	Line string
	Err  error
}

func (e *JobLogParseError) Error() string {
	return fmt.Sprintf("parse log line %q: %v", e.Line, e.Err)
}

func (e *JobLogParseError) Unwrap() error { return e.Err }

// JobLogLevel classifies a log entry.
type JobLogLevel string

// Log levels emitted by the LAVA dispatcher.
const (
	LogDebug     JobLogLevel = "debug"
	LogInfo      JobLogLevel = "info"
	LogWarning   JobLogLevel = "warning"
	LogError     JobLogLevel = "error"
	LogResults   JobLogLevel = "results"
	LogTarget    JobLogLevel = "target"
	LogInput     JobLogLevel = "input"
	LogFeedback  JobLogLevel = "feedback"
	LogException JobLogLevel = "exception"
)

// AllJobLogLevels is the full JobLogLevel enumeration.
var AllJobLogLevels = []JobLogLevel{
	LogDebug, LogInfo, LogWarning, LogError, LogResults,
	LogTarget, LogInput, LogFeedback, LogException,
}

// UnmarshalYAML validates the wire value against the enumeration.
func (l *JobLogLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	for _, v := range AllJobLogLevels {
		if s == string(v) {
			*l = v
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", s)
}

// JobLogResult is the structured payload of a "results" entry.
type JobLogResult struct {
	Case       string  `yaml:"case"`
	Definition string  `yaml:"definition"`
	Namespace  *string `yaml:"namespace"`
	Level      *string `yaml:"level"`
	Result     string  `yaml:"result"`
	// Duration is reported by the server as fractional seconds.
	Duration *time.Duration `yaml:"-"`
	Extra    map[string]any `yaml:"extra"`
}

// UnmarshalYAML decodes the mapping and converts the duration member,
// which is serialized as a string holding a float.
func (r *JobLogResult) UnmarshalYAML(value *yaml.Node) error {
	type plain JobLogResult
	var aux struct {
		plain    `yaml:",inline"`
		Duration *string `yaml:"duration"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*r = JobLogResult(aux.plain)
	if aux.Duration != nil {
		secs, err := strconv.ParseFloat(*aux.Duration, 64)
		if err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}
		d := time.Duration(math.Round(secs * float64(time.Second)))
		r.Duration = &d
	}
	return nil
}

// JobLogMsg is the payload of a log entry. Exactly one member is set:
// Text for plain lines, List for multi-line output, Result for the
// structured payload of results entries.
type JobLogMsg struct {
	Text   *string
	List   []string
	Result *JobLogResult
}

// UnmarshalYAML picks the union member from the YAML node kind.
func (m *JobLogMsg) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		m.Text = &s
	case yaml.SequenceNode:
		return value.Decode(&m.List)
	case yaml.MappingNode:
		m.Result = &JobLogResult{}
		return value.Decode(m.Result)
	default:
		return fmt.Errorf("unexpected msg node kind %d", value.Kind)
	}
	return nil
}

// logTimestamp is the naive timestamp format used in job logs.
const logTimestamp = "2006-01-02T15:04:05.999999"

// JobLogTime is a timezone-less timestamp as emitted by the dispatcher.
type JobLogTime struct {
	time.Time
}

func (t *JobLogTime) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.Parse(logTimestamp, s)
	if err != nil {
		return fmt.Errorf("parse log timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

// JobLogEntry is one line of job log output.
type JobLogEntry struct {
	Dt  JobLogTime  `yaml:"dt"`
	Lvl JobLogLevel `yaml:"lvl"`
	NS  *string     `yaml:"ns"`
	Msg JobLogMsg   `yaml:"msg"`
}

// JobLogBuilder configures a job log request. Start and End restrict
// the returned range to line numbers [start, end); zero means
// unrestricted on that side.
type JobLogBuilder struct {
	client *Client
	id     int64
	start  uint64
	end    uint64
}

// Log returns a builder for the log of the given job id.
func (c *Client) Log(jobID int64) *JobLogBuilder {
	return &JobLogBuilder{client: c, id: jobID}
}

// Start sets the first line to return.
func (b *JobLogBuilder) Start(start uint64) *JobLogBuilder {
	b.start = start
	return b
}

// End sets the line at which to stop.
func (b *JobLogBuilder) End(end uint64) *JobLogBuilder {
	b.end = end
	return b
}

func (b *JobLogBuilder) url() string {
	u := b.client.endpoint(fmt.Sprintf("jobs/%d/logs/", b.id))
	q := u.Query()
	if b.start != 0 {
		q.Set("start", strconv.FormatUint(b.start, 10))
	}
	if b.end != 0 {
		q.Set("end", strconv.FormatUint(b.end, 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Raw fetches the log as an undecoded byte stream. The caller must
// close the returned reader. A job without log output yields
// ErrNoLogData.
func (b *JobLogBuilder) Raw(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrNoLogData
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch job log: %s", resp.Status)
	}
	return resp.Body, nil
}

// Reader decodes the log into a stream of entries.
func (b *JobLogBuilder) Reader() *JobLogReader {
	return &JobLogReader{builder: b}
}

// JobLogReader yields decoded log entries one at a time. The request
// is issued on the first call to Next.
type JobLogReader struct {
	builder *JobLogBuilder
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

// Next returns the next log entry. The boolean is false when the log
// is exhausted. A line that is not valid YAML yields a
// JobLogParseError and the reader keeps going.
func (r *JobLogReader) Next(ctx context.Context) (JobLogEntry, bool, error) {
	var zero JobLogEntry
	if r.done {
		return zero, false, nil
	}
	if r.scanner == nil {
		body, err := r.builder.Raw(ctx)
		if err != nil {
			r.done = true
			return zero, false, err
		}
		r.body = body
		sc := bufio.NewScanner(body)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		r.scanner = sc
	}
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line == "[" || line == "]" {
			continue
		}
		// Each entry is a YAML list item: "- {dt: ..., lvl: ...}".
		doc := strings.TrimPrefix(line, "-")
		var entry JobLogEntry
		if err := yaml.Unmarshal([]byte(doc), &entry); err != nil {
			return zero, true, &JobLogParseError{Line: line, Err: err}
		}
		return entry, true, nil
	}
	err := r.scanner.Err()
	r.close()
	if err != nil {
		return zero, false, err
	}
	return zero, false, nil
}

// Close releases the underlying response body. It is safe to call
// even if Next was never called or already drained the log.
func (r *JobLogReader) Close() error {
	return r.close()
}

func (r *JobLogReader) close() error {
	r.done = true
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
