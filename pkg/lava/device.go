package lava

import (
	"context"
	"iter"

	"github.com/lavabridge/go-lava/pkg/pagination"
)

// DeviceHealth is the current health of a Device.
type DeviceHealth string

// Device health values as exported by the LAVA API.
const (
	DeviceHealthUnknown     DeviceHealth = "Unknown"
	DeviceHealthMaintenance DeviceHealth = "Maintenance"
	DeviceHealthGood        DeviceHealth = "Good"
	DeviceHealthBad         DeviceHealth = "Bad"
	DeviceHealthLooping     DeviceHealth = "Looping"
	DeviceHealthRetired     DeviceHealth = "Retired"
)

// AllDeviceHealths is the full DeviceHealth enumeration.
var AllDeviceHealths = []DeviceHealth{
	DeviceHealthUnknown,
	DeviceHealthMaintenance,
	DeviceHealthGood,
	DeviceHealthBad,
	DeviceHealthLooping,
	DeviceHealthRetired,
}

// UnmarshalJSON validates the wire value against the enumeration.
func (h *DeviceHealth) UnmarshalJSON(data []byte) error {
	v, err := unmarshalEnum(data, AllDeviceHealths, "device health")
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// deviceRecord is the wire form of a device, with tags still as ids.
type deviceRecord struct {
	Hostname    string       `json:"hostname"`
	WorkerHost  string       `json:"worker_host"`
	DeviceType  string       `json:"device_type"`
	Description *string      `json:"description"`
	Health      DeviceHealth `json:"health"`
	Tags        []uint32     `json:"tags"`
}

// Device is a subset of the data available for a device from the LAVA
// API. Tags have been resolved into Tag objects rather than tag ids.
type Device struct {
	Hostname    string
	WorkerHost  string
	DeviceType  string
	Description *string
	Health      DeviceHealth
	Tags        []Tag
}

// Devices is a sequence of all the Device instances on a LAVA server,
// ordered by hostname.
//
// Due to pagination the dataset returned is not guaranteed to be
// self-consistent, and the odds of self-consistency decrease the longer
// the iteration takes. Extract whatever data is required promptly after
// creating the sequence.
type Devices struct {
	c *Client
	p *pagination.Paginator[deviceRecord]
}

// Devices returns a sequence over all devices on the server.
func (c *Client) Devices() *Devices {
	u := c.endpoint("devices/")
	q := u.Query()
	q.Set("ordering", "hostname")
	u.RawQuery = q.Encode()

	return &Devices{
		c: c,
		p: pagination.New[deviceRecord](c.httpClient, u, c.logger),
	}
}

// Next returns the next fully-resolved Device. Items are yielded in
// paginator order; the tags of item n+1 are not resolved before item n
// has been yielded. Error and end-of-sequence semantics are those of
// the underlying Paginator.
func (d *Devices) Next(ctx context.Context) (Device, bool, error) {
	rec, ok, err := d.p.Next(ctx)
	if err != nil || !ok {
		return Device{}, false, err
	}

	return Device{
		Hostname:    rec.Hostname,
		WorkerHost:  rec.WorkerHost,
		DeviceType:  rec.DeviceType,
		Description: rec.Description,
		Health:      rec.Health,
		Tags:        d.c.resolveTags(ctx, rec.Tags),
	}, true, nil
}

// ReportedItems returns the device count most recently reported by the
// server, and whether a page has been seen yet.
func (d *Devices) ReportedItems() (int, bool) {
	return d.p.ReportedItems()
}

// All adapts the sequence to a range-over-func loop, with the same
// error semantics as Paginator.All.
func (d *Devices) All(ctx context.Context) iter.Seq2[Device, error] {
	return func(yield func(Device, error) bool) {
		for {
			device, ok, err := d.Next(ctx)
			if err != nil {
				if !yield(Device{}, err) {
					return
				}
				continue
			}
			if !ok {
				return
			}
			if !yield(device, nil) {
				return
			}
		}
	}
}
