// Package diff - Dirty-state differ
// Compares a working contract line configuration against its
// last-persisted baseline to decide whether a save is required. The diff
// is always recomputed from the two snapshots; no edit path maintains a
// dirty flag by hand, so the result cannot drift from the true state.
package diff

import (
	"contract-billing/core/line"
)

// ChangeType indicates the kind of service-level change
type ChangeType int

const (
	// ChangeAdded - service present only in the working copy
	ChangeAdded ChangeType = iota
	// ChangeRemoved - service present only in the baseline
	ChangeRemoved
	// ChangeModified - service differs between the two
	ChangeModified
)

// String returns the change type name
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	default:
		return "unknown"
	}
}

// ServiceDiff is the fine-grained service-level diff for UI feedback
type ServiceDiff struct {
	// Added holds service IDs present only in the working copy,
	// in order of appearance
	Added []string `json:"added,omitempty"`

	// Removed holds service IDs present only in the baseline
	Removed []string `json:"removed,omitempty"`

	// Changed holds service IDs whose configuration differs
	Changed []string `json:"changed,omitempty"`
}

// Empty reports whether the service collections match
func (d ServiceDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// IsDirty reports whether the working configuration differs from its
// baseline: any base-field change, any service add or remove, or any
// rate or bucket-allowance change on a matched service.
func IsDirty(current, baseline line.Config) bool {
	if !baseFieldsEqual(current, baseline) {
		return true
	}
	if len(current.Services) != len(baseline.Services) {
		return true
	}
	return !DiffServices(current, baseline).Empty()
}

// DiffServices computes the service-level diff between two
// configurations, matching services by ID
func DiffServices(current, baseline line.Config) ServiceDiff {
	var d ServiceDiff

	base := make(map[string]line.ServiceConfig, len(baseline.Services))
	for _, s := range baseline.Services {
		base[s.ServiceID] = s
	}

	seen := make(map[string]bool, len(current.Services))
	for _, s := range current.Services {
		seen[s.ServiceID] = true
		b, ok := base[s.ServiceID]
		if !ok {
			d.Added = append(d.Added, s.ServiceID)
			continue
		}
		if !s.Equal(b) {
			d.Changed = append(d.Changed, s.ServiceID)
		}
	}

	for _, s := range baseline.Services {
		if !seen[s.ServiceID] {
			d.Removed = append(d.Removed, s.ServiceID)
		}
	}

	return d
}

func baseFieldsEqual(a, b line.Config) bool {
	if a.LineType != b.LineType || a.BillingPeriod != b.BillingPeriod {
		return false
	}
	if a.EnableProration != b.EnableProration {
		return false
	}
	if a.MinimumBillableMinutes != b.MinimumBillableMinutes || a.RoundUpToMinutes != b.RoundUpToMinutes {
		return false
	}
	if (a.BaseRate == nil) != (b.BaseRate == nil) {
		return false
	}
	if a.BaseRate != nil && *a.BaseRate != *b.BaseRate {
		return false
	}
	return true
}
