package lava

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavabridge/go-lava/pkg/pagination"

	"github.com/lavabridge/go-lava/internal/testutil"
)

// testedJob returns a population and the id of a job that has test
// data attached.
func testedJob(t *testing.T) (testutil.Population, int64) {
	t.Helper()
	pop := testutil.DefaultPopulation(4, 1, 3, 30)
	require.NotEmpty(t, pop.Suites)
	return pop, pop.Suites[0].Job
}

func TestTestSuites(t *testing.T) {
	pop, jobID := testedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	suites, err := pagination.Collect(client.TestSuites(jobID).All(context.Background()))
	require.NoError(t, err)
	require.Len(t, suites, 2)

	assert.Equal(t, "suite-01", suites[0].Name)
	assert.Equal(t, "suite-02", suites[1].Name)
	require.NotNil(t, suites[0].ResourceURI)
	assert.Contains(t, *suites[0].ResourceURI, "/suites/")
}

func TestTestCases(t *testing.T) {
	pop, jobID := testedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{Cases: 4})

	cases, err := pagination.Collect(client.TestCases(jobID).All(context.Background()))
	require.NoError(t, err)
	// Two suites of three cases each.
	require.Len(t, cases, 6)

	var want []testutil.MockTestCase
	for _, c := range pop.Cases {
		if c.Job == jobID {
			want = append(want, c)
		}
	}
	require.Len(t, want, 6)

	suiteName := make(map[int64]string)
	for _, s := range pop.Suites {
		suiteName[s.ID] = s.Name
	}

	for i, c := range cases {
		assert.Equal(t, want[i].ID, c.ID)
		assert.Equal(t, want[i].Name, c.Name)
		assert.Equal(t, want[i].Unit, c.Unit)
		assert.Equal(t, PassFail(want[i].Result), c.Result)
		assert.Equal(t, want[i].Suite, c.Suite)
		require.NotNil(t, c.Measurement)

		// The metadata member arrives as nested YAML.
		require.NotNil(t, c.Metadata)
		assert.Equal(t, suiteName[c.Suite], c.Metadata.Definition)
		assert.Equal(t, c.Result, c.Metadata.Result)
		require.NotNil(t, c.Metadata.Duration)
	}
}

func TestTestCaseWithoutMetadata(t *testing.T) {
	pop, jobID := testedJob(t)
	for i := range pop.Cases {
		pop.Cases[i].Metadata = nil
	}
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	cases, err := pagination.Collect(client.TestCases(jobID).All(context.Background()))
	require.NoError(t, err)
	require.NotEmpty(t, cases)
	for _, c := range cases {
		assert.Nil(t, c.Metadata)
	}
}

func TestTestCasesJobWithoutData(t *testing.T) {
	pop, _ := testedJob(t)
	client, _ := newTestClient(t, pop, testutil.PageLimits{})

	// Job 1 exists but never ran tests.
	cases, err := pagination.Collect(client.TestCases(1).All(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestPassFailRejectsUnknownValue(t *testing.T) {
	var p PassFail
	err := p.UnmarshalJSON([]byte(`"maybe"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test result")
}
