// Package line - Display-boundary conversion
// The engine computes in integer minutes/units and integer minor currency
// units. Conversion to and from user-facing hour and decimal-currency
// values happens only here, via decimal arithmetic, never floats.
package line

import (
	"github.com/shopspring/decimal"

	"contract-billing/internal/errors"
)

// DisplayMode selects the user-facing unit for allowance amounts
type DisplayMode string

const (
	// DisplayHours presents time allowances in hours
	DisplayHours DisplayMode = "hours"

	// DisplayUsage presents usage allowances in raw units
	DisplayUsage DisplayMode = "usage"
)

var sixty = decimal.NewFromInt(60)

// AllowanceDisplay is a bucket allowance in user-facing units
type AllowanceDisplay struct {
	// IncludedAmount is hours (possibly fractional) or raw units
	IncludedAmount decimal.Decimal

	// OverageRate is the per-unit overage price in major currency units,
	// rendered with two decimals
	OverageRate string

	// AllowRollover mirrors the stored flag
	AllowRollover bool
}

// DisplayAllowance converts a stored allowance to user-facing units.
// Unset amounts render as zero; callers that care about half-configured
// allowances check Complete() first.
func DisplayAllowance(b BucketAllowance, mode DisplayMode) AllowanceDisplay {
	var included, overage int64
	if b.IncludedAmount != nil {
		included = *b.IncludedAmount
	}
	if b.OverageRate != nil {
		overage = *b.OverageRate
	}

	amount := decimal.NewFromInt(included)
	if mode == DisplayHours {
		amount = amount.Div(sixty)
	}

	return AllowanceDisplay{
		IncludedAmount: amount,
		OverageRate:    MinorUnitsToDisplay(overage),
		AllowRollover:  b.AllowRollover,
	}
}

// AllowanceFromDisplay converts user input back to a stored allowance.
// Hours are multiplied by 60 and rounded to the nearest whole minute
// (half away from zero); usage amounts must already be whole units.
// Negative input is rejected. Round-trips are exact for amounts that are
// already integral minutes or units.
func AllowanceFromDisplay(included decimal.Decimal, overageRate string, rollover bool, mode DisplayMode) (BucketAllowance, error) {
	if included.IsNegative() {
		return BucketAllowance{}, errors.Newf(errors.TypeInvalidQuantity,
			"included amount must be non-negative, got %s", included.String())
	}

	var amount int64
	switch mode {
	case DisplayHours:
		amount = included.Mul(sixty).Round(0).IntPart()
	case DisplayUsage:
		if !included.IsInteger() {
			return BucketAllowance{}, errors.Newf(errors.TypeInvalidQuantity,
				"usage allowance must be a whole number of units, got %s", included.String())
		}
		amount = included.IntPart()
	default:
		return BucketAllowance{}, errors.Newf(errors.TypeInternal, "unknown display mode: %q", mode)
	}

	overage, err := DisplayToMinorUnits(overageRate)
	if err != nil {
		return BucketAllowance{}, err
	}

	return BucketAllowance{
		IncludedAmount: &amount,
		OverageRate:    &overage,
		AllowRollover:  rollover,
	}, nil
}

// MinorUnitsToDisplay renders a minor-unit amount as a two-decimal
// major-currency string (250 -> "2.50")
func MinorUnitsToDisplay(minor int64) string {
	return decimal.NewFromInt(minor).Shift(-2).StringFixed(2)
}

// DisplayToMinorUnits parses a major-currency decimal string into integer
// minor units. Rejects negative amounts and sub-cent precision.
func DisplayToMinorUnits(display string) (int64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, errors.Wrapf(errors.TypeParsing, err, "invalid currency amount: %q", display)
	}
	if d.IsNegative() {
		return 0, errors.Newf(errors.TypeInvalidRate, "currency amount must be non-negative, got %s", display)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, errors.Newf(errors.TypeInvalidRate, "currency amount has sub-cent precision: %s", display)
	}
	return minor.IntPart(), nil
}
