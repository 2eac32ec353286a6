package lava

import (
	"context"
	"iter"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/lavabridge/go-lava/pkg/pagination"
	"github.com/lavabridge/go-lava/pkg/queryset"
)

// JobState is the scheduling state of a Job.
type JobState string

// Job state values as exported by the LAVA API.
const (
	JobStateSubmitted  JobState = "Submitted"
	JobStateScheduling JobState = "Scheduling"
	JobStateScheduled  JobState = "Scheduled"
	JobStateRunning    JobState = "Running"
	JobStateCanceling  JobState = "Canceling"
	JobStateFinished   JobState = "Finished"
)

// AllJobStates is the full JobState enumeration.
var AllJobStates = []JobState{
	JobStateSubmitted,
	JobStateScheduling,
	JobStateScheduled,
	JobStateRunning,
	JobStateCanceling,
	JobStateFinished,
}

// UnmarshalJSON validates the wire value against the enumeration.
func (s *JobState) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllJobStates, "job state")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// JobHealth is the outcome of a Job.
type JobHealth string

// Job health values as exported by the LAVA API.
const (
	JobHealthUnknown    JobHealth = "Unknown"
	JobHealthComplete   JobHealth = "Complete"
	JobHealthIncomplete JobHealth = "Incomplete"
	JobHealthCanceled   JobHealth = "Canceled"
)

// AllJobHealths is the full JobHealth enumeration.
var AllJobHealths = []JobHealth{
	JobHealthUnknown,
	JobHealthComplete,
	JobHealthIncomplete,
	JobHealthCanceled,
}

// UnmarshalJSON validates the wire value against the enumeration.
func (h *JobHealth) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllJobHealths, "job health")
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// JobOrdering names a job field results can be ordered by.
type JobOrdering string

// Orderable job fields.
const (
	OrderingID         JobOrdering = "id"
	OrderingStartTime  JobOrdering = "start_time"
	OrderingEndTime    JobOrdering = "end_time"
	OrderingSubmitTime JobOrdering = "submit_time"
)

// jobRecord is the wire form of a job, with tags still as ids.
type jobRecord struct {
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
	State               JobState   `json:"state"`
	Health              JobHealth  `json:"health"`
	Priority            int64      `json:"priority"`
	Definition          string     `json:"definition"`
	OriginalDefinition  string     `json:"original_definition"`
	MultinodeDefinition string     `json:"multinode_definition"`
	FailureTags         []uint32   `json:"failure_tags"`
	FailureComment      *string    `json:"failure_comment"`
}

// Job is the data available for a job from the LAVA API. Tags and
// failure tags have been resolved into Tag objects.
type Job struct {
	ID                  int64
	Submitter           string
	ViewingGroups       []int64
	Description         string
	HealthCheck         bool
	RequestedDeviceType *string
	Tags                []Tag
	ActualDevice        *string
	SubmitTime          time.Time
	StartTime           *time.Time
	EndTime             *time.Time
	State               JobState
	Health              JobHealth
	Priority            int64
	Definition          string
	OriginalDefinition  string
	MultinodeDefinition string
	FailureTags         []Tag
	FailureComment      *string
}

// JobsBuilder accumulates constraints for a job query and instantiates
// the matching sequence. The zero query returns every job ordered by
// ascending id.
type JobsBuilder struct {
	c         *Client
	states    queryset.Set[JobState]
	healths   queryset.Set[JobHealth]
	limit     int
	ordering  JobOrdering
	ascending bool

	idAfter        *int64
	startedAfter   *time.Time
	submittedAfter *time.Time
	endedAfter     *time.Time
}

// Jobs returns a builder for a customisable query over the jobs on the
// server.
func (c *Client) Jobs() *JobsBuilder {
	return &JobsBuilder{
		c:         c,
		states:    queryset.New("state", AllJobStates),
		healths:   queryset.New("health", AllJobHealths),
		ordering:  OrderingID,
		ascending: true,
	}
}

// State requests jobs in this state.
func (b *JobsBuilder) State(state JobState) *JobsBuilder {
	b.states.Include(state)
	return b
}

// StateNot excludes jobs in this state.
func (b *JobsBuilder) StateNot(state JobState) *JobsBuilder {
	b.states.Exclude(state)
	return b
}

// Health requests jobs with this health.
func (b *JobsBuilder) Health(health JobHealth) *JobsBuilder {
	b.healths.Include(health)
	return b
}

// HealthNot excludes jobs with this health.
func (b *JobsBuilder) HealthNot(health JobHealth) *JobsBuilder {
	b.healths.Exclude(health)
	return b
}

// Limit sets the number of jobs retrieved at a time while the query
// runs; it is a page size, not a cap on the result set. Paging is
// client-transparent but entirely cursor-driven, and the result set can
// evolve while paging is in progress: jobs can be duplicated or omitted
// at page boundaries when the matching set shrinks. Setting the limit
// near the expected response size is usually the best trade-off.
func (b *JobsBuilder) Limit(limit int) *JobsBuilder {
	b.limit = limit
	return b
}

// IDAfter requests only jobs whose id is strictly greater than id.
func (b *JobsBuilder) IDAfter(id int64) *JobsBuilder {
	b.idAfter = &id
	return b
}

// StartedAfter requests only jobs whose start time is strictly after
// the given instant.
func (b *JobsBuilder) StartedAfter(when time.Time) *JobsBuilder {
	b.startedAfter = &when
	return b
}

// SubmittedAfter requests only jobs whose submission time is strictly
// after the given instant.
func (b *JobsBuilder) SubmittedAfter(when time.Time) *JobsBuilder {
	b.submittedAfter = &when
	return b
}

// EndedAfter requests only jobs which ended strictly after the given
// instant.
func (b *JobsBuilder) EndedAfter(when time.Time) *JobsBuilder {
	b.endedAfter = &when
	return b
}

// Ordering orders returned jobs by the given field.
func (b *JobsBuilder) Ordering(ordering JobOrdering, ascending bool) *JobsBuilder {
	b.ordering = ordering
	b.ascending = ascending
	return b
}

// jobParams are the scalar query parameters, rendered by
// go-querystring. Times encode as RFC 3339.
type jobParams struct {
	Ordering       string     `url:"ordering"`
	Limit          int        `url:"limit,omitempty"`
	IDAfter        *int64     `url:"id__gt,omitempty"`
	SubmittedAfter *time.Time `url:"submit_time__gt,omitempty"`
	StartedAfter   *time.Time `url:"start_time__gt,omitempty"`
	EndedAfter     *time.Time `url:"end_time__gt,omitempty"`
}

// buildURL renders the accumulated constraints into one request URL.
func (b *JobsBuilder) buildURL() *url.URL {
	ordering := string(b.ordering)
	if !b.ascending {
		ordering = "-" + ordering
	}

	values, err := query.Values(jobParams{
		Ordering:       ordering,
		Limit:          b.limit,
		IDAfter:        b.idAfter,
		SubmittedAfter: b.submittedAfter,
		StartedAfter:   b.startedAfter,
		EndedAfter:     b.endedAfter,
	})
	if err != nil {
		// jobParams is a fixed struct; encoding cannot fail.
		panic("lava: encode job query: " + err.Error())
	}

	if key, value, ok := b.states.Query(); ok {
		values.Set(key, value)
	}
	if key, value, ok := b.healths.Query(); ok {
		values.Set(key, value)
	}

	u := b.c.endpoint("jobs/")
	u.RawQuery = values.Encode()
	return u
}

// Query instantiates the sequence for the accumulated constraints.
func (b *JobsBuilder) Query() *Jobs {
	u := b.buildURL()
	return &Jobs{
		c: b.c,
		p: pagination.New[jobRecord](b.c.httpClient, u, b.c.logger),
	}
}

// Jobs is a sequence of the Job instances matching a query. See Devices
// for the self-consistency caveats shared by all paginated sequences.
type Jobs struct {
	c *Client
	p *pagination.Paginator[jobRecord]
}

// Next returns the next fully-resolved Job. Items are yielded in
// paginator order; tag resolution for item n+1 does not start before
// item n has been yielded.
func (j *Jobs) Next(ctx context.Context) (Job, bool, error) {
	rec, ok, err := j.p.Next(ctx)
	if err != nil || !ok {
		return Job{}, false, err
	}

	return Job{
		ID:                  rec.ID,
		Submitter:           rec.Submitter,
		ViewingGroups:       rec.ViewingGroups,
		Description:         rec.Description,
		HealthCheck:         rec.HealthCheck,
		RequestedDeviceType: rec.RequestedDeviceType,
		Tags:                j.c.resolveTags(ctx, rec.Tags),
		ActualDevice:        rec.ActualDevice,
		SubmitTime:          rec.SubmitTime,
		StartTime:           rec.StartTime,
		EndTime:             rec.EndTime,
		State:               rec.State,
		Health:              rec.Health,
		Priority:            rec.Priority,
		Definition:          rec.Definition,
		OriginalDefinition:  rec.OriginalDefinition,
		MultinodeDefinition: rec.MultinodeDefinition,
		FailureTags:         j.c.resolveTags(ctx, rec.FailureTags),
		FailureComment:      rec.FailureComment,
	}, true, nil
}

// ReportedItems returns the matching-job count most recently reported
// by the server, and whether a page has been seen yet.
func (j *Jobs) ReportedItems() (int, bool) {
	return j.p.ReportedItems()
}

// All adapts the sequence to a range-over-func loop, with the same
// error semantics as Paginator.All.
func (j *Jobs) All(ctx context.Context) iter.Seq2[Job, error] {
	return func(yield func(Job, error) bool) {
		for {
			job, ok, err := j.Next(ctx)
			if err != nil {
				if !yield(Job{}, err) {
					return
				}
				continue
			}
			if !ok {
				return
			}
			if !yield(job, nil) {
				return
			}
		}
	}
}
