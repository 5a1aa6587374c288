// Package catalog - Catalog entry validation
// Rule-based integrity checks applied before entries are offered to
// composition.
package catalog

import (
	"fmt"

	"contract-billing/core/line"
)

// ValidationRule is a catalog validation rule
type ValidationRule func(*Entry) error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateIdentity,
		validateBillingMethod,
		validateDefaultRate,
		validateUnitOfMeasure,
	}
}

// ValidateEntries checks entries against rules, collecting all failures
func ValidateEntries(entries []Entry, rules []ValidationRule) []error {
	var errs []error
	for i := range entries {
		for _, rule := range rules {
			if err := rule(&entries[i]); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", entries[i].ServiceID, err))
			}
		}
	}
	return errs
}

func validateIdentity(e *Entry) error {
	if e.ServiceID == "" {
		return fmt.Errorf("service id is required")
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func validateBillingMethod(e *Entry) error {
	if !e.BillingMethod.Valid() {
		return fmt.Errorf("unknown billing method: %q", e.BillingMethod)
	}
	return nil
}

func validateDefaultRate(e *Entry) error {
	if e.DefaultRate < 0 {
		return fmt.Errorf("default rate must be non-negative, got %d", e.DefaultRate)
	}
	return nil
}

// Usage services bill per unit, so the unit label must exist at the
// catalog level even before any line references the service.
func validateUnitOfMeasure(e *Entry) error {
	if e.BillingMethod == line.TypeUsage && e.UnitOfMeasure == "" {
		return fmt.Errorf("usage services require a unit of measure")
	}
	return nil
}
