// Package api - Wire types
// Request and response shapes for the HTTP surface. Monetary fields cross
// this boundary as integers in minor currency units, never floats.
package api

import (
	"bytes"
	"encoding/json"

	"contract-billing/core/compose"
	"contract-billing/core/line"
	"contract-billing/core/validate"
	"contract-billing/internal/errors"
)

// ComposeRequest asks for a preset to be composed with overrides
type ComposeRequest struct {
	// PresetID names the baseline preset
	PresetID string `json:"preset_id"`

	// ContractID is the target contract
	ContractID string `json:"contract_id"`

	// Overrides is the sparse override set
	Overrides OverridesWire `json:"overrides"`
}

// ComposeCustomRequest asks for a preset-less contract line
type ComposeCustomRequest struct {
	// ContractID is the target contract
	ContractID string `json:"contract_id"`

	// LineType tags the new line
	LineType string `json:"line_type"`

	// BillingPeriod is the billing cadence (defaults to monthly)
	BillingPeriod string `json:"billing_period,omitempty"`

	// Base overrides the type-specific base fields
	Base json.RawMessage `json:"base,omitempty"`

	// Services is the ordered service collection
	Services []CustomServiceWire `json:"services"`
}

// OverridesWire carries an override set before the preset's type is known
type OverridesWire struct {
	// Base is decoded against the preset's line type
	Base json.RawMessage `json:"base,omitempty"`

	// Services maps service IDs to sparse overrides
	Services map[string]ServiceOverrideWire `json:"services,omitempty"`
}

// ServiceOverrideWire is one sparse per-service override
type ServiceOverrideWire struct {
	Quantity   *int64      `json:"quantity,omitempty"`
	CustomRate *int64      `json:"custom_rate,omitempty"`
	Bucket     *BucketWire `json:"bucket,omitempty"`
}

// BucketWire configures a bucket allowance replacement. Clear erases the
// allowance; otherwise the given fields replace it wholesale. Presence of
// the bucket key always means "configured from scratch" - there is no
// field-level merge with the preset's allowance.
type BucketWire struct {
	Clear          bool   `json:"clear,omitempty"`
	IncludedAmount *int64 `json:"included_amount,omitempty"`
	OverageRate    *int64 `json:"overage_rate,omitempty"`
	Rollover       bool   `json:"rollover,omitempty"`
	Period         string `json:"period,omitempty"`
}

// CustomServiceWire is one service on a custom line
type CustomServiceWire struct {
	ServiceID  string      `json:"service_id"`
	Quantity   int64       `json:"quantity"`
	CustomRate *int64      `json:"custom_rate,omitempty"`
	Bucket     *BucketWire `json:"bucket,omitempty"`
}

// ValidationResponse reports validation findings
type ValidationResponse struct {
	OK     bool                  `json:"ok"`
	Errors []validate.FieldError `json:"errors,omitempty"`
}

// ErrorEnvelope is the error response body
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error code and message
type ErrorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// DecodeOverrides converts wire overrides into the engine's shape, decoding
// the base override against the preset's line type
func DecodeOverrides(lineType line.LineType, wire OverridesWire) (compose.OverrideSet, error) {
	set := compose.OverrideSet{}

	if len(wire.Base) > 0 {
		base, err := DecodeBase(lineType, wire.Base)
		if err != nil {
			return set, err
		}
		set.Base = base
	}

	if len(wire.Services) > 0 {
		set.Services = make(map[string]compose.ServiceOverride, len(wire.Services))
		for id, sw := range wire.Services {
			bucket, err := toBucketOverride(sw.Bucket)
			if err != nil {
				return compose.OverrideSet{}, err
			}
			set.Services[id] = compose.ServiceOverride{
				Quantity:   sw.Quantity,
				CustomRate: sw.CustomRate,
				Bucket:     bucket,
			}
		}
	}

	return set, nil
}

func DecodeBase(lineType line.LineType, raw json.RawMessage) (compose.BaseOverrides, error) {
	switch lineType {
	case line.TypeFixed:
		var b compose.FixedOverrides
		if err := strictUnmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case line.TypeHourly:
		var b compose.HourlyOverrides
		if err := strictUnmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	case line.TypeUsage:
		var b compose.UsageOverrides
		if err := strictUnmarshal(raw, &b); err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Newf(errors.TypeParsing, "unknown line type: %q", lineType)
	}
}

// strictUnmarshal rejects fields that do not belong to the target shape,
// so an override authored for the wrong line type fails loudly instead of
// silently dropping keys
func strictUnmarshal(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Parsing("decoding base overrides", err)
	}
	return nil
}

func toBucketOverride(w *BucketWire) (*compose.BucketOverride, error) {
	if w == nil {
		return nil, nil
	}
	if w.Clear {
		return &compose.BucketOverride{Allowance: nil}, nil
	}
	allowance, err := toAllowance(w)
	if err != nil {
		return nil, err
	}
	return &compose.BucketOverride{Allowance: allowance}, nil
}

// toAllowance builds an allowance from the wire shape. The period is
// parsed, never coerced: an unknown period fails here instead of flowing
// into a composed configuration.
func toAllowance(w *BucketWire) (*line.BucketAllowance, error) {
	b := &line.BucketAllowance{
		IncludedAmount: w.IncludedAmount,
		OverageRate:    w.OverageRate,
		AllowRollover:  w.Rollover,
	}
	if w.Period != "" {
		period, err := line.ParseBillingPeriod(w.Period)
		if err != nil {
			return nil, err
		}
		b.BillingPeriod = period
	}
	return b, nil
}

func CustomServices(wires []CustomServiceWire) ([]compose.CustomService, error) {
	out := make([]compose.CustomService, 0, len(wires))
	for _, w := range wires {
		cs := compose.CustomService{
			ServiceID:  w.ServiceID,
			Quantity:   w.Quantity,
			CustomRate: w.CustomRate,
		}
		if w.Bucket != nil && !w.Bucket.Clear {
			allowance, err := toAllowance(w.Bucket)
			if err != nil {
				return nil, err
			}
			cs.Bucket = allowance
		}
		out = append(out, cs)
	}
	return out, nil
}
