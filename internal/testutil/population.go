package testutil

import (
	"fmt"
	"time"
)

// populationBase anchors all generated timestamps so runs are
// reproducible. Whole seconds keep RFC3339 round trips exact.
var populationBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var deviceTypes = []string{
	"qemu", "bcm2711-rpi-4-b", "x86", "juno", "dragonboard-410c",
}

var jobStates = []string{
	"Submitted", "Scheduling", "Scheduled", "Running", "Canceling", "Finished",
}

var jobHealths = []string{"Unknown", "Complete", "Incomplete", "Canceled"}

var deviceHealths = []string{
	"Unknown", "Maintenance", "Good", "Bad", "Looping", "Retired",
}

var workerStates = []string{"Online", "Offline"}

var workerHealths = []string{"Active", "Maintenance", "Retired"}

var passFails = []string{"pass", "fail", "skip", "unknown"}

// GenerateTags produces n tags with ids starting at 1. Every third tag
// has no description.
func GenerateTags(n int) []MockTag {
	tags := make([]MockTag, n)
	for i := range tags {
		tags[i] = MockTag{
			ID:   uint32(i + 1),
			Name: fmt.Sprintf("tag-%02d", i+1),
		}
		if i%3 != 2 {
			d := fmt.Sprintf("description of tag-%02d", i+1)
			tags[i].Description = &d
		}
	}
	return tags
}

// GenerateWorkers produces n workers cycling through the state and
// health enumerations.
func GenerateWorkers(n int) []MockWorker {
	workers := make([]MockWorker, n)
	for i := range workers {
		workers[i] = MockWorker{
			Hostname: fmt.Sprintf("worker-%02d", i+1),
			State:    workerStates[i%len(workerStates)],
			Health:   workerHealths[i%len(workerHealths)],
		}
	}
	return workers
}

// GenerateDevices produces n devices spread round-robin over the given
// workers and tagged with a deterministic subset of the given tags.
func GenerateDevices(n int, tags []MockTag, workers []MockWorker) []MockDevice {
	devices := make([]MockDevice, n)
	for i := range devices {
		devices[i] = MockDevice{
			Hostname:   fmt.Sprintf("device-%02d", i+1),
			WorkerHost: workers[i%len(workers)].Hostname,
			DeviceType: deviceTypes[i%len(deviceTypes)],
			Health:     deviceHealths[i%len(deviceHealths)],
			Tags:       tagSubset(i, tags),
		}
		if i%4 != 3 {
			d := fmt.Sprintf("test device %02d", i+1)
			devices[i].Description = &d
		}
	}
	return devices
}

// GenerateJobs produces n jobs with ids starting at 1, cycling through
// states and healths, submitted at descending offsets from the base
// time. Running and finished jobs carry start and end times.
func GenerateJobs(n int, tags []MockTag, devices []MockDevice) []MockJob {
	jobs := make([]MockJob, n)
	for i := range jobs {
		submit := populationBase.Add(-time.Duration(n-i) * 10 * time.Minute)
		j := MockJob{
			ID:            int64(i + 1),
			Submitter:     fmt.Sprintf("user-%02d", i%5+1),
			ViewingGroups: []int64{},
			Description:   fmt.Sprintf("test job %d", i+1),
			HealthCheck:   i%7 == 0,
			Tags:          tagSubset(i, tags),
			SubmitTime:    submit,
			State:         jobStates[i%len(jobStates)],
			Health:        jobHealths[i%len(jobHealths)],
			Priority:      int64(i % 3 * 50),
			Definition:    fmt.Sprintf("job: %d\n", i+1),
			FailureTags:   []uint32{},
		}
		if len(devices) > 0 {
			dt := devices[i%len(devices)].DeviceType
			j.RequestedDeviceType = &dt
		}
		if j.State == "Running" || j.State == "Finished" || j.State == "Canceling" {
			start := submit.Add(2 * time.Minute)
			j.StartTime = &start
			if len(devices) > 0 {
				host := devices[i%len(devices)].Hostname
				j.ActualDevice = &host
			}
		}
		if j.State == "Finished" {
			end := submit.Add(8 * time.Minute)
			j.EndTime = &end
			if j.Health == "Incomplete" {
				c := "infrastructure error"
				j.FailureComment = &c
			}
		}
		jobs[i] = j
	}
	return jobs
}

// GenerateTestSuites produces count suites per job.
func GenerateTestSuites(jobs []MockJob, count int) []MockTestSuite {
	var suites []MockTestSuite
	id := int64(1)
	for _, j := range jobs {
		for s := 0; s < count; s++ {
			uri := fmt.Sprintf("/api/v0.2/jobs/%d/suites/%d/", j.ID, id)
			suites = append(suites, MockTestSuite{
				ID:          id,
				Job:         j.ID,
				Name:        fmt.Sprintf("suite-%02d", s+1),
				ResourceURI: &uri,
			})
			id++
		}
	}
	return suites
}

// GenerateTestCases produces count cases per suite, cycling through
// results and units, with nested YAML metadata.
func GenerateTestCases(suites []MockTestSuite, count int) []MockTestCase {
	units := []string{"seconds", "hours"}
	var cases []MockTestCase
	id := int64(1)
	for _, s := range suites {
		for c := 0; c < count; c++ {
			result := passFails[int(id)%len(passFails)]
			meta := fmt.Sprintf(
				"definition: %s\ncase: case-%02d\nresult: %s\nduration: \"%d.%02d\"\n",
				s.Name, c+1, result, c+1, int(id)%100,
			)
			measurement := fmt.Sprintf("%d.0000", c+1)
			start := int(id) * 10
			end := start + 9
			cases = append(cases, MockTestCase{
				ID:           id,
				Job:          s.Job,
				Name:         fmt.Sprintf("case-%02d", c+1),
				Unit:         units[c%len(units)],
				Result:       result,
				Measurement:  &measurement,
				Metadata:     &meta,
				Suite:        s.ID,
				StartLogLine: &start,
				EndLogLine:   &end,
				Logged:       populationBase.Add(time.Duration(id) * time.Second),
				ResourceURI:  fmt.Sprintf("/api/v0.2/jobs/%d/tests/%d/", s.Job, id),
			})
			id++
		}
	}
	return cases
}

// GenerateLog produces a raw job log of n entries in the dispatcher's
// line-per-entry YAML format.
func GenerateLog(n int) string {
	levels := []string{"debug", "info", "warning", "error", "target"}
	var b []byte
	for i := 0; i < n; i++ {
		ts := populationBase.Add(time.Duration(i) * time.Second)
		line := fmt.Sprintf(
			"- {\"dt\": \"%s\", \"lvl\": \"%s\", \"msg\": \"log line %d\"}\n",
			ts.Format("2006-01-02T15:04:05.000000"), levels[i%len(levels)], i,
		)
		b = append(b, line...)
	}
	return string(b)
}

// DefaultPopulation builds a coherent population with the given sizes,
// two suites of three cases per finished job, and a short log per job.
func DefaultPopulation(nTags, nWorkers, nDevices, nJobs int) Population {
	tags := GenerateTags(nTags)
	workers := GenerateWorkers(nWorkers)
	devices := GenerateDevices(nDevices, tags, workers)
	jobs := GenerateJobs(nJobs, tags, devices)

	var finished []MockJob
	for _, j := range jobs {
		if j.State == "Finished" {
			finished = append(finished, j)
		}
	}
	suites := GenerateTestSuites(finished, 2)
	cases := GenerateTestCases(suites, 3)

	logs := make(map[int64]string, len(jobs))
	for _, j := range jobs {
		logs[j.ID] = GenerateLog(10)
	}

	return Population{
		Tags:    tags,
		Workers: workers,
		Devices: devices,
		Jobs:    jobs,
		Suites:  suites,
		Cases:   cases,
		Logs:    logs,
	}
}

// tagSubset selects a deterministic subset of tag ids for item i.
func tagSubset(i int, tags []MockTag) []uint32 {
	ids := []uint32{}
	for _, t := range tags {
		if (i+int(t.ID))%3 == 0 {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
