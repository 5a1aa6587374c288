// Package preset - Reusable contract line templates
// A preset is a named, type-tagged billing template an administrator
// maintains. Composition treats it as a read-only baseline; edits to a
// preset never reach lines already composed from it.
package preset

import (
	"contract-billing/core/catalog"
	"contract-billing/core/line"
)

// Definition is a reusable contract line template
type Definition struct {
	// PresetID uniquely identifies the preset
	PresetID string `json:"preset_id"`

	// PresetName is the display name
	PresetName string `json:"preset_name"`

	// LineType tags the template's billing behavior
	LineType line.LineType `json:"line_type"`

	// BillingPeriod is the cadence lines composed from this preset assume,
	// and the default for any bucket allowance's period
	BillingPeriod line.BillingPeriod `json:"billing_period"`

	// BaseRate is the fixed-type flat fee, minor units
	BaseRate *int64 `json:"base_rate,omitempty"`

	// EnableProration is the fixed-type proration flag
	EnableProration bool `json:"enable_proration,omitempty"`

	// MinimumBillableMinutes is the hourly-type minimum charge window
	MinimumBillableMinutes int64 `json:"minimum_billable_minutes,omitempty"`

	// RoundUpToMinutes is the hourly-type rounding increment
	RoundUpToMinutes int64 `json:"round_up_to_minutes,omitempty"`

	// Services is the ordered service collection. Insertion order is
	// preserved for display and carries no semantic weight.
	Services []line.ServiceConfig `json:"services"`
}

// DefaultRoundUp is the conventional hourly rounding increment in minutes
const DefaultRoundUp = 15

// Clone returns a deep copy
func (d Definition) Clone() Definition {
	out := d
	if d.BaseRate != nil {
		v := *d.BaseRate
		out.BaseRate = &v
	}
	out.Services = make([]line.ServiceConfig, len(d.Services))
	for i, s := range d.Services {
		out.Services[i] = s.Clone()
	}
	return out
}

// HasService reports whether a service ID is present in the collection
func (d Definition) HasService(serviceID string) bool {
	for _, s := range d.Services {
		if s.ServiceID == serviceID {
			return true
		}
	}
	return false
}

// Normalize fills derived defaults in place: bucket allowance periods
// inherit the preset's billing frequency, and hourly rounding fields fall
// back to the conventional 15 minutes when unset.
func (d *Definition) Normalize() {
	if d.LineType == line.TypeHourly {
		if d.MinimumBillableMinutes == 0 {
			d.MinimumBillableMinutes = DefaultRoundUp
		}
		if d.RoundUpToMinutes == 0 {
			d.RoundUpToMinutes = DefaultRoundUp
		}
	}
	for i := range d.Services {
		if d.Services[i].Bucket != nil && d.Services[i].Bucket.BillingPeriod == "" {
			d.Services[i].Bucket.BillingPeriod = d.BillingPeriod
		}
	}
}

// EligibleServices filters catalog entries down to the ones this preset
// could still adopt: billing method matches the preset's line type and the
// service is not already present.
func EligibleServices(d Definition, entries []catalog.Entry) []catalog.Entry {
	var out []catalog.Entry
	for _, e := range entries {
		if e.BillingMethod != d.LineType {
			continue
		}
		if d.HasService(e.ServiceID) {
			continue
		}
		out = append(out, e)
	}
	return out
}
