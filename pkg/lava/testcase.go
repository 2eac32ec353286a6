package lava

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lavabridge/go-lava/pkg/pagination"
)

// PassFail is the recorded result of a TestCase.
type PassFail string

// Test case results as stored by LAVA.
const (
	ResultPass    PassFail = "pass"
	ResultFail    PassFail = "fail"
	ResultSkip    PassFail = "skip"
	ResultUnknown PassFail = "unknown"
)

// AllPassFails is the full PassFail enumeration.
var AllPassFails = []PassFail{ResultPass, ResultFail, ResultSkip, ResultUnknown}

// UnmarshalJSON validates the wire value against the enumeration.
func (p *PassFail) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllPassFails, "test result")
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// TestCaseMetadata is the per-case metadata LAVA stores as a nested
// YAML document inside the JSON record. The failure fields are present
// only when the dispatcher reported a fault.
type TestCaseMetadata struct {
	Definition string   `yaml:"definition"`
	Case       string   `yaml:"case"`
	Result     PassFail `yaml:"result"`

	Namespace *string `yaml:"namespace"`
	Level     *string `yaml:"level"`
	// Duration is a float formatted with two decimals.
	Duration *string `yaml:"duration"`
	Extra    *string `yaml:"extra"`

	ErrorMsg  *string `yaml:"error_msg"`
	ErrorType *string `yaml:"error_type"`
}

// metadataField decodes the JSON string member into TestCaseMetadata.
type metadataField struct {
	*TestCaseMetadata
}

func (m *metadataField) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	if s == nil {
		return nil
	}
	var md TestCaseMetadata
	if err := yaml.Unmarshal([]byte(*s), &md); err != nil {
		return fmt.Errorf("decode nested metadata: %w", err)
	}
	m.TestCaseMetadata = &md
	return nil
}

// TestSuite groups the test cases of a job.
type TestSuite struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ResourceURI *string `json:"resource_uri"`
}

// TestCase is the data available for one test case of a job.
type TestCase struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Unit was renamed from "units" in the v0.2 API.
	Unit         string            `json:"unit"`
	Result       PassFail          `json:"result"`
	Measurement  *string           `json:"measurement"`
	Metadata     *TestCaseMetadata `json:"-"`
	Suite        int64             `json:"suite"`
	StartLogLine *int              `json:"start_log_line"`
	EndLogLine   *int              `json:"end_log_line"`
	TestSet      *int64            `json:"test_set"`
	Logged       time.Time         `json:"logged"`
	ResourceURI  string            `json:"resource_uri"`
}

// UnmarshalJSON decodes the record and its nested YAML metadata member.
func (t *TestCase) UnmarshalJSON(data []byte) error {
	type plain TestCase
	var aux struct {
		plain
		Metadata metadataField `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TestCase(aux.plain)
	t.Metadata = aux.Metadata.TestCaseMetadata
	return nil
}

// TestCases returns a sequence over all test cases recorded for the
// given job id. A missing job surfaces as an HTTP 404 error on the
// first pull; use pagination.IsNotFound to treat it as "no data".
func (c *Client) TestCases(jobID int64) *pagination.Paginator[TestCase] {
	u := c.endpoint(fmt.Sprintf("jobs/%d/tests/", jobID))
	return pagination.New[TestCase](c.httpClient, u, c.logger)
}

// TestSuites returns a sequence over the test suites of the given job
// id, with the same not-found behavior as TestCases.
func (c *Client) TestSuites(jobID int64) *pagination.Paginator[TestSuite] {
	u := c.endpoint(fmt.Sprintf("jobs/%d/suites/", jobID))
	return pagination.New[TestSuite](c.httpClient, u, c.logger)
}
