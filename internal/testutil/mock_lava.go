// Package testutil provides a configurable mock LAVA server for testing.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const apiPrefix = "/api/v0.2/"

// defaultPageSize matches the server default when no limit is requested.
const defaultPageSize = 25

// envelope is the wire shape of one results page.
type envelope struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []any   `json:"results"`
}

// MockTag mirrors the tag wire record.
type MockTag struct {
	ID          uint32  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// MockWorker mirrors the worker wire record.
type MockWorker struct {
	Hostname string `json:"hostname"`
	State    string `json:"state"`
	Health   string `json:"health"`
}

// MockDevice mirrors the device wire record.
type MockDevice struct {
	Hostname    string   `json:"hostname"`
	WorkerHost  string   `json:"worker_host"`
	DeviceType  string   `json:"device_type"`
	Description *string  `json:"description"`
	Health      string   `json:"health"`
	Tags        []uint32 `json:"tags"`
}

// MockJob mirrors the job wire record.
type MockJob struct {
	ID                  int64      `json:"id"`
	Submitter           string     `json:"submitter"`
	ViewingGroups       []int64    `json:"viewing_groups"`
	Description         string     `json:"description"`
	HealthCheck         bool       `json:"health_check"`
	RequestedDeviceType *string    `json:"requested_device_type"`
	Tags                []uint32   `json:"tags"`
	ActualDevice        *string    `json:"actual_device"`
	SubmitTime          time.Time  `json:"submit_time"`
	StartTime           *time.Time `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	State               string     `json:"state"`
	Health              string     `json:"health"`
	Priority            int64      `json:"priority"`
	Definition          string     `json:"definition"`
	OriginalDefinition  string     `json:"original_definition"`
	MultinodeDefinition string     `json:"multinode_definition"`
	FailureTags         []uint32   `json:"failure_tags"`
	FailureComment      *string    `json:"failure_comment"`
}

// MockTestSuite mirrors the test suite wire record. Job associates the
// suite with a job and is not serialized.
type MockTestSuite struct {
	ID          int64   `json:"id"`
	Job         int64   `json:"-"`
	Name        string  `json:"name"`
	ResourceURI *string `json:"resource_uri"`
}

// MockTestCase mirrors the test case wire record.
type MockTestCase struct {
	ID           int64     `json:"id"`
	Job          int64     `json:"-"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	Result       string    `json:"result"`
	Measurement  *string   `json:"measurement"`
	Metadata     *string   `json:"metadata"`
	Suite        int64     `json:"suite"`
	StartLogLine *int      `json:"start_log_line"`
	EndLogLine   *int      `json:"end_log_line"`
	TestSet      *int64    `json:"test_set"`
	Logged       time.Time `json:"logged"`
	ResourceURI  string    `json:"resource_uri"`
}

// Population is the data set the mock server serves.
type Population struct {
	Tags    []MockTag
	Workers []MockWorker
	Devices []MockDevice
	Jobs    []MockJob
	Suites  []MockTestSuite
	Cases   []MockTestCase
	// Logs maps a job id to its raw log body.
	Logs map[int64]string
}

// PageLimits overrides the page size per endpoint. Zero means the
// server default.
type PageLimits struct {
	Tags    int
	Workers int
	Devices int
	Jobs    int
	Suites  int
	Cases   int
}

// MockLava serves a Population over the LAVA REST wire format with
// limit/offset pagination and the common Django filters.
type MockLava struct {
	server *httptest.Server

	mu       sync.Mutex
	pop      Population
	limits   PageLimits
	handlers map[string]http.HandlerFunc
	counts   map[string]int
}

// NewMockLava starts a mock server over the given population.
func NewMockLava(pop Population, limits PageLimits) *MockLava {
	m := &MockLava{
		pop:      pop,
		limits:   limits,
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.route))
	return m
}

// URL returns the mock server base URL.
func (m *MockLava) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockLava) Close() {
	m.server.Close()
}

// SetHandler installs a custom handler for the given endpoint path,
// relative to the API prefix (for example "tags/").
func (m *MockLava) SetHandler(path string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = h
}

// ClearHandler removes a previously installed custom handler.
func (m *MockLava) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// RequestCount reports how many requests hit the given endpoint path.
func (m *MockLava) RequestCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[path]
}

// Mutate edits the population under the server lock.
func (m *MockLava) Mutate(f func(pop *Population)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&m.pop)
}

func (m *MockLava) route(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, apiPrefix) {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)

	m.mu.Lock()
	m.counts[path]++
	handler, override := m.handlers[path]
	pop := m.pop
	limits := m.limits
	m.mu.Unlock()

	if override {
		handler(w, r)
		return
	}

	switch {
	case path == "tags/":
		m.page(w, r, toAny(pop.Tags), limits.Tags)
	case path == "workers/":
		m.page(w, r, toAny(pop.Workers), limits.Workers)
	case path == "devices/":
		devices := append([]MockDevice(nil), pop.Devices...)
		if ord := r.URL.Query().Get("ordering"); ord == "hostname" {
			sort.Slice(devices, func(i, j int) bool {
				return devices[i].Hostname < devices[j].Hostname
			})
		}
		m.page(w, r, toAny(devices), limits.Devices)
	case path == "jobs/":
		jobs, err := filterJobs(pop.Jobs, r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.page(w, r, toAny(jobs), limits.Jobs)
	default:
		m.routeJobDetail(w, r, path, pop, limits)
	}
}

func (m *MockLava) routeJobDetail(w http.ResponseWriter, r *http.Request, path string, pop Population, limits PageLimits) {
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "jobs" {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch parts[2] {
	case "tests":
		var cases []MockTestCase
		for _, c := range pop.Cases {
			if c.Job == id {
				cases = append(cases, c)
			}
		}
		m.page(w, r, toAny(cases), limits.Cases)
	case "suites":
		var suites []MockTestSuite
		for _, s := range pop.Suites {
			if s.Job == id {
				suites = append(suites, s)
			}
		}
		m.page(w, r, toAny(suites), limits.Suites)
	case "logs":
		log, ok := pop.Logs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveLog(w, r, log)
	default:
		http.NotFound(w, r)
	}
}

// serveLog returns the requested line range of a raw log body.
func serveLog(w http.ResponseWriter, r *http.Request, log string) {
	lines := strings.SplitAfter(log, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	start, end := 0, len(lines)
	if s := r.URL.Query().Get("start"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v < end {
			start = v
		} else if err == nil {
			start = end
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v < end {
			end = v
		}
	}
	if start > end {
		start = end
	}
	w.Header().Set("Content-Type", "application/yaml")
	fmt.Fprint(w, strings.Join(lines[start:end], ""))
}

// page serializes one limit/offset page of items with absolute next
// and previous links.
func (m *MockLava) page(w http.ResponseWriter, r *http.Request, items []any, limit int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	total := len(items)
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	env := envelope{Count: total, Results: items[offset:end]}
	if env.Results == nil {
		env.Results = []any{}
	}
	if end < total {
		env.Next = m.pageLink(r, q, end, limit)
	}
	if offset > 0 {
		prev := offset - limit
		if prev < 0 {
			prev = 0
		}
		env.Previous = m.pageLink(r, q, prev, limit)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(env)
}

func (m *MockLava) pageLink(r *http.Request, q url.Values, offset, limit int) *string {
	next := url.Values{}
	for k, vs := range q {
		next[k] = vs
	}
	next.Set("limit", strconv.Itoa(limit))
	next.Set("offset", strconv.Itoa(offset))
	s := m.server.URL + r.URL.Path + "?" + next.Encode()
	return &s
}

func toAny[T any](items []T) []any {
	out := make([]any, len(items))
	for i, v := range items {
		out[i] = v
	}
	return out
}

// filterJobs applies the Django-style filters the jobs endpoint
// supports: state, health and their __in variants, the __gt time and
// id filters, and ordering.
func filterJobs(jobs []MockJob, q url.Values) ([]MockJob, error) {
	out := append([]MockJob(nil), jobs...)

	if v := q.Get("state"); q.Has("state") {
		out = keep(out, func(j MockJob) bool { return j.State == v })
	}
	if q.Has("state__in") {
		set := splitSet(q.Get("state__in"))
		out = keep(out, func(j MockJob) bool { return set[j.State] })
	}
	if v := q.Get("health"); q.Has("health") {
		out = keep(out, func(j MockJob) bool { return j.Health == v })
	}
	if q.Has("health__in") {
		set := splitSet(q.Get("health__in"))
		out = keep(out, func(j MockJob) bool { return set[j.Health] })
	}
	if s := q.Get("id__gt"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id__gt %q", s)
		}
		out = keep(out, func(j MockJob) bool { return j.ID > v })
	}
	for param, get := range map[string]func(MockJob) *time.Time{
		"submit_time__gt": func(j MockJob) *time.Time { return &j.SubmitTime },
		"start_time__gt":  func(j MockJob) *time.Time { return j.StartTime },
		"end_time__gt":    func(j MockJob) *time.Time { return j.EndTime },
	} {
		s := q.Get(param)
		if s == "" {
			continue
		}
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("bad %s %q", param, s)
		}
		get := get
		out = keep(out, func(j MockJob) bool {
			t := get(j)
			return t != nil && t.After(v)
		})
	}

	if ord := q.Get("ordering"); ord != "" {
		if err := orderJobs(out, ord); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func keep(jobs []MockJob, pred func(MockJob) bool) []MockJob {
	out := jobs[:0]
	for _, j := range jobs {
		if pred(j) {
			out = append(out, j)
		}
	}
	return out
}

func splitSet(s string) map[string]bool {
	set := make(map[string]bool)
	if s == "" {
		return set
	}
	for _, v := range strings.Split(s, ",") {
		set[v] = true
	}
	return set
}

// orderJobs sorts in place by the given field, descending when the
// field carries a "-" prefix. Jobs without a value for the field sort
// first ascending.
func orderJobs(jobs []MockJob, ordering string) error {
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")

	var less func(a, b MockJob) bool
	switch field {
	case "id":
		less = func(a, b MockJob) bool { return a.ID < b.ID }
	case "submit_time":
		less = func(a, b MockJob) bool { return a.SubmitTime.Before(b.SubmitTime) }
	case "start_time":
		less = func(a, b MockJob) bool { return timeLess(a.StartTime, b.StartTime, a.ID, b.ID) }
	case "end_time":
		less = func(a, b MockJob) bool { return timeLess(a.EndTime, b.EndTime, a.ID, b.ID) }
	default:
		return fmt.Errorf("bad ordering %q", ordering)
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if desc {
			return less(jobs[j], jobs[i])
		}
		return less(jobs[i], jobs[j])
	})
	return nil
}

func timeLess(a, b *time.Time, aid, bid int64) bool {
	switch {
	case a == nil && b == nil:
		return aid < bid
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}
