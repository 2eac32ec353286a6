package lava

import (
	"github.com/lavabridge/go-lava/pkg/pagination"
)

// WorkerState reports whether a worker is reachable.
type WorkerState string

// Worker state values as exported by the LAVA API.
const (
	WorkerStateOnline  WorkerState = "Online"
	WorkerStateOffline WorkerState = "Offline"
)

// AllWorkerStates is the full WorkerState enumeration.
var AllWorkerStates = []WorkerState{WorkerStateOnline, WorkerStateOffline}

// UnmarshalJSON validates the wire value against the enumeration.
func (s *WorkerState) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllWorkerStates, "worker state")
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// WorkerHealth is the administrative health of a worker.
type WorkerHealth string

// Worker health values as exported by the LAVA API.
const (
	WorkerHealthActive      WorkerHealth = "Active"
	WorkerHealthMaintenance WorkerHealth = "Maintenance"
	WorkerHealthRetired     WorkerHealth = "Retired"
)

// AllWorkerHealths is the full WorkerHealth enumeration.
var AllWorkerHealths = []WorkerHealth{
	WorkerHealthActive,
	WorkerHealthMaintenance,
	WorkerHealthRetired,
}

// UnmarshalJSON validates the wire value against the enumeration.
func (h *WorkerHealth) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllWorkerHealths, "worker health")
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// Worker is the data available for a dispatcher worker from the LAVA
// API. Workers carry no tag references, so no enrichment phase is
// needed and the paginator is returned directly.
type Worker struct {
	Hostname string       `json:"hostname"`
	State    WorkerState  `json:"state"`
	Health   WorkerHealth `json:"health"`
}

// Workers returns a sequence over all workers on the server.
func (c *Client) Workers() *pagination.Paginator[Worker] {
	return pagination.New[Worker](c.httpClient, c.endpoint("workers/"), c.logger)
}
