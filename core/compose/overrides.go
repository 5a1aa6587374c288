// Package compose - Override shapes
// Overrides are sparse: a nil field means "keep the preset's value". The
// base-override shape is a sealed union keyed by line type so an override
// for the wrong type is rejected at composition rather than silently
// ignored.
package compose

import (
	"contract-billing/core/line"
)

// BaseOverrides is the type-tagged base-field override union.
// Implemented by FixedOverrides, HourlyOverrides and UsageOverrides.
type BaseOverrides interface {
	// LineType returns the line type this override shape applies to
	LineType() line.LineType
}

// FixedOverrides overrides fixed-line base fields
type FixedOverrides struct {
	// BaseRate replaces the flat fee, minor units
	BaseRate *int64 `json:"base_rate,omitempty"`

	// EnableProration replaces the proration flag
	EnableProration *bool `json:"enable_proration,omitempty"`
}

// LineType implements BaseOverrides
func (FixedOverrides) LineType() line.LineType { return line.TypeFixed }

// HourlyOverrides overrides hourly-line base fields
type HourlyOverrides struct {
	// MinimumBillableMinutes replaces the minimum charge window
	MinimumBillableMinutes *int64 `json:"minimum_billable_minutes,omitempty"`

	// RoundUpToMinutes replaces the rounding increment
	RoundUpToMinutes *int64 `json:"round_up_to_minutes,omitempty"`
}

// LineType implements BaseOverrides
func (HourlyOverrides) LineType() line.LineType { return line.TypeHourly }

// UsageOverrides overrides usage-line base fields.
// Usage lines carry no base fields today; the shape exists so the union
// covers every line type.
type UsageOverrides struct{}

// LineType implements BaseOverrides
func (UsageOverrides) LineType() line.LineType { return line.TypeUsage }

// BucketOverride replaces a service's bucket allowance wholesale.
// Its presence on a ServiceOverride means the user configured the bucket
// from scratch: the preset's allowance never bleeds through field by
// field. A nil Allowance is an explicit clear.
type BucketOverride struct {
	Allowance *line.BucketAllowance `json:"allowance"`
}

// ServiceOverride is a sparse per-service override. Only quantity, custom
// rate and the bucket allowance are overridable; the service identity and
// its catalog unit of measure are not.
type ServiceOverride struct {
	// Quantity replaces the quantity when set
	Quantity *int64 `json:"quantity,omitempty"`

	// CustomRate replaces the rate when set, minor units
	CustomRate *int64 `json:"custom_rate,omitempty"`

	// Bucket replaces the allowance wholesale when set
	Bucket *BucketOverride `json:"bucket,omitempty"`
}

// Empty reports whether the override changes nothing
func (o ServiceOverride) Empty() bool {
	return o.Quantity == nil && o.CustomRate == nil && o.Bucket == nil
}

// OverrideSet is the full set of overrides applied during one composition
type OverrideSet struct {
	// Base overrides the type-specific base fields; nil keeps them all
	Base BaseOverrides

	// Services maps service IDs to their sparse overrides. Every key must
	// exist in the baseline preset.
	Services map[string]ServiceOverride
}

// Empty reports whether the set changes nothing
func (s OverrideSet) Empty() bool {
	if s.Base != nil {
		return false
	}
	for _, o := range s.Services {
		if !o.Empty() {
			return false
		}
	}
	return true
}
