// Package line - Contract line configuration model
// Value types for billable contract line components: bucket allowances,
// per-service configuration, and the fully-resolved line configuration.
// All monetary values are integers in minor currency units.
package line

import (
	"contract-billing/internal/errors"
)

// LineType classifies how a contract line bills
type LineType string

const (
	// TypeFixed bills a flat recurring fee
	TypeFixed LineType = "fixed"

	// TypeHourly bills time at per-service hourly rates
	TypeHourly LineType = "hourly"

	// TypeUsage bills metered units at per-service rates
	TypeUsage LineType = "usage"
)

// String returns the string representation
func (t LineType) String() string {
	return string(t)
}

// Valid reports whether the line type is a known value
func (t LineType) Valid() bool {
	switch t {
	case TypeFixed, TypeHourly, TypeUsage:
		return true
	default:
		return false
	}
}

// AllowsBuckets reports whether services of this line type may carry a
// bucket allowance
func (t LineType) AllowsBuckets() bool {
	return t == TypeHourly || t == TypeUsage
}

// ParseLineType parses a line type string
func ParseLineType(s string) (LineType, error) {
	t := LineType(s)
	if !t.Valid() {
		return "", errors.Newf(errors.TypeParsing, "unknown line type: %q", s)
	}
	return t, nil
}

// BillingPeriod is the billing cadence
type BillingPeriod string

const (
	// PeriodWeekly bills every week
	PeriodWeekly BillingPeriod = "weekly"

	// PeriodMonthly bills every month
	PeriodMonthly BillingPeriod = "monthly"
)

// String returns the string representation
func (p BillingPeriod) String() string {
	return string(p)
}

// Valid reports whether the period is a known value
func (p BillingPeriod) Valid() bool {
	return p == PeriodWeekly || p == PeriodMonthly
}

// ParseBillingPeriod parses a billing period string
func ParseBillingPeriod(s string) (BillingPeriod, error) {
	p := BillingPeriod(s)
	if !p.Valid() {
		return "", errors.Newf(errors.TypeParsing, "unknown billing period: %q", s)
	}
	return p, nil
}

// BucketAllowance is an included-usage quota with overage pricing.
// IncludedAmount is stored in the finest unit (minutes for time-based
// lines, raw units for usage-based). OverageRate is minor currency units
// per unit beyond the allowance. A nil *BucketAllowance at the owner means
// no allowance is configured; a partially-filled one is carried as-is and
// rejected at validation.
type BucketAllowance struct {
	// IncludedAmount is the included quota in finest units
	IncludedAmount *int64 `json:"included_amount,omitempty"`

	// OverageRate is the minor-unit price per unit beyond the quota
	OverageRate *int64 `json:"overage_rate,omitempty"`

	// AllowRollover carries unused allowance into the next period
	AllowRollover bool `json:"allow_rollover"`

	// BillingPeriod is defaulted from the owning line's frequency
	BillingPeriod BillingPeriod `json:"billing_period,omitempty"`
}

// Complete reports whether both amounts are defined.
// Zero values are complete; nil pointers are not.
func (b *BucketAllowance) Complete() bool {
	return b != nil && b.IncludedAmount != nil && b.OverageRate != nil
}

// Equal compares two allowances by value. BillingPeriod is excluded: it is
// a derived default, not a user decision.
func (b *BucketAllowance) Equal(other *BucketAllowance) bool {
	if b == nil || other == nil {
		return b == other
	}
	return eqInt64Ptr(b.IncludedAmount, other.IncludedAmount) &&
		eqInt64Ptr(b.OverageRate, other.OverageRate) &&
		b.AllowRollover == other.AllowRollover
}

// Clone returns a deep copy
func (b *BucketAllowance) Clone() *BucketAllowance {
	if b == nil {
		return nil
	}
	c := &BucketAllowance{
		AllowRollover: b.AllowRollover,
		BillingPeriod: b.BillingPeriod,
	}
	c.IncludedAmount = cloneInt64(b.IncludedAmount)
	c.OverageRate = cloneInt64(b.OverageRate)
	return c
}

// ServiceConfig is the per-service billing configuration attached to a
// preset or a concrete contract line. Owned by exactly one collection;
// Clone before sharing.
type ServiceConfig struct {
	// ServiceID references a catalog service
	ServiceID string `json:"service_id"`

	// Quantity is type-dependent: a tax-allocation weight for fixed lines,
	// a billed multiplier otherwise
	Quantity int64 `json:"quantity"`

	// CustomRate is the minor-unit rate; nil means the catalog default
	// applies (or, for hourly/usage lines, that no rate was entered)
	CustomRate *int64 `json:"custom_rate,omitempty"`

	// UnitOfMeasure labels the billed unit; required for usage services
	UnitOfMeasure string `json:"unit_of_measure,omitempty"`

	// Bucket is the optional included-usage allowance
	Bucket *BucketAllowance `json:"bucket,omitempty"`
}

// Equal compares two service configurations by value per the bucket
// equality rule above
func (s ServiceConfig) Equal(other ServiceConfig) bool {
	return s.ServiceID == other.ServiceID &&
		s.Quantity == other.Quantity &&
		eqInt64Ptr(s.CustomRate, other.CustomRate) &&
		s.UnitOfMeasure == other.UnitOfMeasure &&
		s.Bucket.Equal(other.Bucket)
}

// Clone returns a deep copy
func (s ServiceConfig) Clone() ServiceConfig {
	c := s
	c.CustomRate = cloneInt64(s.CustomRate)
	c.Bucket = s.Bucket.Clone()
	return c
}

// WithCustomRate returns a copy with the rate replaced.
// The rate must be a non-negative integer in minor units.
func WithCustomRate(s ServiceConfig, rate int64) (ServiceConfig, error) {
	if rate < 0 {
		return ServiceConfig{}, errors.InvalidRate(s.ServiceID, rate)
	}
	c := s.Clone()
	c.CustomRate = &rate
	return c, nil
}

// WithBucketAllowance returns a copy with the allowance replaced wholesale.
// A nil allowance clears it entirely: previously entered amounts are
// erased, not hidden.
func WithBucketAllowance(s ServiceConfig, b *BucketAllowance) ServiceConfig {
	c := s.Clone()
	c.Bucket = b.Clone()
	return c
}

// Config is a fully-resolved contract line configuration, scoped to one
// contract. Composed from a preset and overrides, or built custom. It
// carries no live link to its source preset: the annotation fields exist
// for display attribution only and later preset edits never propagate.
type Config struct {
	// LineID uniquely identifies this contract line
	LineID string `json:"line_id"`

	// ContractID is the owning contract
	ContractID string `json:"contract_id,omitempty"`

	// LineType classifies billing behavior
	LineType LineType `json:"line_type"`

	// BillingPeriod is the billing cadence
	BillingPeriod BillingPeriod `json:"billing_period"`

	// BaseRate is the flat fee for fixed lines, minor units
	BaseRate *int64 `json:"base_rate,omitempty"`

	// EnableProration prorates partial periods on fixed lines
	EnableProration bool `json:"enable_proration,omitempty"`

	// MinimumBillableMinutes is the hourly-line minimum charge window
	MinimumBillableMinutes int64 `json:"minimum_billable_minutes,omitempty"`

	// RoundUpToMinutes is the hourly-line rounding increment
	RoundUpToMinutes int64 `json:"round_up_to_minutes,omitempty"`

	// Services is the ordered service collection. Order is preserved for
	// display and carries no semantic weight.
	Services []ServiceConfig `json:"services"`

	// SourcePresetID attributes the originating preset, display only
	SourcePresetID string `json:"source_preset_id,omitempty"`

	// SourcePresetName attributes the originating preset, display only
	SourcePresetName string `json:"source_preset_name,omitempty"`
}

// Clone returns a deep copy
func (c Config) Clone() Config {
	out := c
	out.BaseRate = cloneInt64(c.BaseRate)
	out.Services = make([]ServiceConfig, len(c.Services))
	for i, s := range c.Services {
		out.Services[i] = s.Clone()
	}
	return out
}

// Service returns the service with the given ID and whether it exists
func (c Config) Service(serviceID string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.ServiceID == serviceID {
			return s, true
		}
	}
	return ServiceConfig{}, false
}

func eqInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int64 returns a pointer to v, for building optional fields
func Int64(v int64) *int64 {
	return &v
}
