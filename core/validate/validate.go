// Package validate - Type-specific configuration validation
// Enforces which fields are mandatory or forbidden for each contract line
// type before a configuration may be persisted. Validation is pure, never
// mutates its input, and collects every finding rather than failing fast
// so callers can present all problems at once.
package validate

import (
	"fmt"

	"contract-billing/core/line"
	"contract-billing/internal/errors"
)

// FieldError is a single field-scoped validation finding
type FieldError struct {
	// Code classifies the finding
	Code errors.Type `json:"code"`

	// Field names the offending field
	Field string `json:"field"`

	// ServiceID scopes the finding to a service, empty for base fields
	ServiceID string `json:"service_id,omitempty"`

	// Message is the human-readable description
	Message string `json:"message"`
}

// Error implements the error interface
func (e FieldError) Error() string {
	if e.ServiceID != "" {
		return fmt.Sprintf("[%s] %s (service %s): %s", e.Code, e.Field, e.ServiceID, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Result is the outcome of validating a configuration
type Result struct {
	// Errors holds every finding; empty means the configuration is valid
	Errors []FieldError `json:"errors,omitempty"`
}

// OK reports whether validation passed
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns a single error summarizing the result, nil when valid
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	e := errors.Newf(errors.TypeValidation, "configuration has %d validation error(s)", len(r.Errors))
	return e.WithContext("errors", r.Errors)
}

func (r *Result) add(code errors.Type, field, serviceID, format string, args ...interface{}) {
	r.Errors = append(r.Errors, FieldError{
		Code:      code,
		Field:     field,
		ServiceID: serviceID,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Rule is a validation rule applied to a configuration
type Rule func(line.Config, *Result)

// rulesFor returns the rule set for a line type
func rulesFor(t line.LineType) []Rule {
	switch t {
	case line.TypeFixed:
		return []Rule{ruleNonEmptyServices, ruleQuantities, ruleFixedBaseRate, ruleNoFixedBuckets}
	case line.TypeHourly:
		return []Rule{ruleNonEmptyServices, ruleQuantities, ruleRequiredRates, ruleHourlyTimeFields, ruleBuckets}
	case line.TypeUsage:
		return []Rule{ruleNonEmptyServices, ruleQuantities, ruleRequiredRates, ruleUnitsOfMeasure, ruleBuckets}
	default:
		return nil
	}
}

// Validate checks a configuration against its type's rules
func Validate(cfg line.Config) Result {
	var res Result
	if !cfg.LineType.Valid() {
		res.add(errors.TypeMissingRequiredField, "line_type", "", "unknown line type: %q", cfg.LineType)
		return res
	}
	for _, rule := range rulesFor(cfg.LineType) {
		rule(cfg, &res)
	}
	return res
}

func ruleNonEmptyServices(cfg line.Config, res *Result) {
	if len(cfg.Services) == 0 {
		res.add(errors.TypeEmptyServiceSet, "services", "", "at least one service is required")
	}
}

// Quantities are tax-allocation weights on fixed lines and billed
// multipliers otherwise; either way the domain is positive integers.
func ruleQuantities(cfg line.Config, res *Result) {
	for _, s := range cfg.Services {
		if s.Quantity < 1 {
			res.add(errors.TypeInvalidQuantity, "quantity", s.ServiceID,
				"quantity must be at least 1, got %d", s.Quantity)
		}
	}
}

func ruleFixedBaseRate(cfg line.Config, res *Result) {
	if cfg.BaseRate != nil && *cfg.BaseRate < 0 {
		res.add(errors.TypeInvalidRate, "base_rate", "",
			"base rate must be non-negative, got %d", *cfg.BaseRate)
	}
}

// Bucket allowances model included time or usage; a flat-fee service has
// neither, so fixed lines must not carry one.
func ruleNoFixedBuckets(cfg line.Config, res *Result) {
	for _, s := range cfg.Services {
		if s.Bucket != nil {
			res.add(errors.TypeInvalidQuantity, "bucket", s.ServiceID,
				"fixed-fee services cannot carry a bucket allowance")
		}
	}
}

// Hourly and usage services must carry an explicit rate. A nil rate means
// "not entered"; an explicit zero means "intentionally free" and passes.
func ruleRequiredRates(cfg line.Config, res *Result) {
	for _, s := range cfg.Services {
		if s.CustomRate == nil {
			res.add(errors.TypeMissingRequiredField, "custom_rate", s.ServiceID,
				"%s services require a rate", cfg.LineType)
			continue
		}
		if *s.CustomRate < 0 {
			res.add(errors.TypeInvalidRate, "custom_rate", s.ServiceID,
				"rate must be non-negative, got %d", *s.CustomRate)
		}
	}
}

func ruleHourlyTimeFields(cfg line.Config, res *Result) {
	if cfg.MinimumBillableMinutes < 0 {
		res.add(errors.TypeInvalidQuantity, "minimum_billable_minutes", "",
			"minimum billable time must be non-negative, got %d", cfg.MinimumBillableMinutes)
	}
	if cfg.RoundUpToMinutes < 0 {
		res.add(errors.TypeInvalidQuantity, "round_up_to_minutes", "",
			"round-up increment must be non-negative, got %d", cfg.RoundUpToMinutes)
	}
}

func ruleUnitsOfMeasure(cfg line.Config, res *Result) {
	for _, s := range cfg.Services {
		if s.UnitOfMeasure == "" {
			res.add(errors.TypeMissingRequiredField, "unit_of_measure", s.ServiceID,
				"usage services require a unit of measure")
		}
	}
}

// A present allowance must have both amounts defined and non-negative,
// and a set period must match the line's billing frequency. Half-filled
// allowances are reported, never silently defaulted to zero.
func ruleBuckets(cfg line.Config, res *Result) {
	for _, s := range cfg.Services {
		b := s.Bucket
		if b == nil {
			continue
		}
		if b.BillingPeriod != "" && b.BillingPeriod != cfg.BillingPeriod {
			res.add(errors.TypeValidation, "bucket.billing_period", s.ServiceID,
				"bucket period %q does not match the line's %s billing frequency",
				b.BillingPeriod, cfg.BillingPeriod)
		}
		if !b.Complete() {
			res.add(errors.TypeIncompleteBucketAllowance, "bucket", s.ServiceID,
				"bucket allowance requires both included amount and overage rate")
			continue
		}
		if *b.IncludedAmount < 0 {
			res.add(errors.TypeInvalidQuantity, "bucket.included_amount", s.ServiceID,
				"included amount must be non-negative, got %d", *b.IncludedAmount)
		}
		if *b.OverageRate < 0 {
			res.add(errors.TypeInvalidRate, "bucket.overage_rate", s.ServiceID,
				"overage rate must be non-negative, got %d", *b.OverageRate)
		}
	}
}
