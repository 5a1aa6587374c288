// Package compose - Override merge engine
// Combines a preset baseline with a sparse override set into a concrete
// contract line configuration. Structural errors abort the whole
// composition: no partial configuration is ever returned. Monetary math
// is integer minor units throughout.
package compose

import (
	"sort"

	"github.com/google/uuid"

	"contract-billing/core/catalog"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/internal/errors"
)

// Compose merges a preset with an override set into a contract line
// configuration for the given contract.
//
// Base overrides apply key by key; absent keys keep the preset's value.
// Service overrides apply quantity and rate independently, but a bucket
// override replaces the preset's allowance wholesale. Overrides naming a
// service absent from the preset abort composition.
func Compose(def preset.Definition, ov OverrideSet, contractID string) (line.Config, error) {
	if !def.LineType.Valid() {
		return line.Config{}, errors.Composition("preset has no valid line type: " + def.PresetID)
	}

	cfg := line.Config{
		LineID:                 uuid.NewString(),
		ContractID:             contractID,
		LineType:               def.LineType,
		BillingPeriod:          def.BillingPeriod,
		EnableProration:        def.EnableProration,
		MinimumBillableMinutes: def.MinimumBillableMinutes,
		RoundUpToMinutes:       def.RoundUpToMinutes,
		SourcePresetID:         def.PresetID,
		SourcePresetName:       def.PresetName,
	}
	if def.BaseRate != nil {
		cfg.BaseRate = line.Int64(*def.BaseRate)
	}

	if err := applyBase(&cfg, def.LineType, ov.Base); err != nil {
		return line.Config{}, err
	}

	// Reject unknown service keys before touching any service, so a bad
	// set cannot produce a partially merged collection.
	for _, id := range sortedKeys(ov.Services) {
		if !def.HasService(id) {
			return line.Config{}, errors.UnknownServiceOverride(id)
		}
	}

	cfg.Services = make([]line.ServiceConfig, 0, len(def.Services))
	for _, svc := range def.Services {
		merged, err := mergeService(svc, ov.Services[svc.ServiceID], def.BillingPeriod)
		if err != nil {
			return line.Config{}, err
		}
		cfg.Services = append(cfg.Services, merged)
	}

	return cfg, nil
}

// CustomService describes one service on a custom (preset-less) line
type CustomService struct {
	// ServiceID references a catalog service
	ServiceID string

	// Quantity is the service quantity
	Quantity int64

	// CustomRate is the minor-unit rate; nil leaves the catalog default
	CustomRate *int64

	// Bucket is the optional allowance
	Bucket *line.BucketAllowance
}

// ComposeCustom builds a contract line with no preset baseline: the whole
// service collection originates from the caller. Unit of measure defaults
// come from the catalog; service IDs not present in the catalog abort
// composition.
func ComposeCustom(lineType line.LineType, period line.BillingPeriod, base BaseOverrides, services []CustomService, entries []catalog.Entry, contractID string) (line.Config, error) {
	if !lineType.Valid() {
		return line.Config{}, errors.Composition("custom line has no valid line type")
	}

	cfg := line.Config{
		LineID:        uuid.NewString(),
		ContractID:    contractID,
		LineType:      lineType,
		BillingPeriod: period,
	}
	if lineType == line.TypeHourly {
		cfg.MinimumBillableMinutes = preset.DefaultRoundUp
		cfg.RoundUpToMinutes = preset.DefaultRoundUp
	}
	if err := applyBase(&cfg, lineType, base); err != nil {
		return line.Config{}, err
	}

	byID := make(map[string]catalog.Entry, len(entries))
	for _, e := range entries {
		byID[e.ServiceID] = e
	}

	seen := make(map[string]bool, len(services))
	cfg.Services = make([]line.ServiceConfig, 0, len(services))
	for _, cs := range services {
		entry, ok := byID[cs.ServiceID]
		if !ok {
			return line.Config{}, errors.UnknownServiceOverride(cs.ServiceID)
		}
		if seen[cs.ServiceID] {
			return line.Config{}, errors.Composition("duplicate service on custom line: " + cs.ServiceID)
		}
		seen[cs.ServiceID] = true
		if cs.Quantity < 1 {
			return line.Config{}, errors.InvalidQuantity(cs.ServiceID, cs.Quantity)
		}
		if cs.CustomRate != nil && *cs.CustomRate < 0 {
			return line.Config{}, errors.InvalidRate(cs.ServiceID, *cs.CustomRate)
		}

		svc := line.ServiceConfig{
			ServiceID:     cs.ServiceID,
			Quantity:      cs.Quantity,
			UnitOfMeasure: entry.UnitOfMeasure,
			Bucket:        cs.Bucket.Clone(),
		}
		if cs.CustomRate != nil {
			svc.CustomRate = line.Int64(*cs.CustomRate)
		}
		if svc.Bucket != nil && svc.Bucket.BillingPeriod == "" {
			svc.Bucket.BillingPeriod = period
		}
		cfg.Services = append(cfg.Services, svc)
	}

	return cfg, nil
}

// applyBase applies a base override union member, enforcing the type tag
func applyBase(cfg *line.Config, lineType line.LineType, base BaseOverrides) error {
	if base == nil {
		return nil
	}
	if base.LineType() != lineType {
		return errors.Newf(errors.TypeComposition,
			"base overrides for %s line applied to %s line", base.LineType(), lineType)
	}

	switch b := base.(type) {
	case FixedOverrides:
		if b.BaseRate != nil {
			if *b.BaseRate < 0 {
				return errors.InvalidRate("", *b.BaseRate)
			}
			cfg.BaseRate = line.Int64(*b.BaseRate)
		}
		if b.EnableProration != nil {
			cfg.EnableProration = *b.EnableProration
		}
	case HourlyOverrides:
		if b.MinimumBillableMinutes != nil {
			if *b.MinimumBillableMinutes < 0 {
				return errors.InvalidQuantity("", *b.MinimumBillableMinutes)
			}
			cfg.MinimumBillableMinutes = *b.MinimumBillableMinutes
		}
		if b.RoundUpToMinutes != nil {
			if *b.RoundUpToMinutes < 0 {
				return errors.InvalidQuantity("", *b.RoundUpToMinutes)
			}
			cfg.RoundUpToMinutes = *b.RoundUpToMinutes
		}
	case UsageOverrides:
		// no base fields
	default:
		return errors.Newf(errors.TypeComposition, "unsupported base override shape %T", base)
	}
	return nil
}

// mergeService applies one sparse service override onto a preset service.
// Quantity and rate merge independently; a bucket override replaces the
// allowance wholesale, half-filled values included — validation, not
// composition, judges completeness.
func mergeService(svc line.ServiceConfig, ov ServiceOverride, period line.BillingPeriod) (line.ServiceConfig, error) {
	merged := svc.Clone()

	if ov.Quantity != nil {
		if *ov.Quantity < 1 {
			return line.ServiceConfig{}, errors.InvalidQuantity(svc.ServiceID, *ov.Quantity)
		}
		merged.Quantity = *ov.Quantity
	}
	if ov.CustomRate != nil {
		var err error
		merged, err = line.WithCustomRate(merged, *ov.CustomRate)
		if err != nil {
			return line.ServiceConfig{}, err
		}
	}
	if ov.Bucket != nil {
		merged = line.WithBucketAllowance(merged, ov.Bucket.Allowance)
	}
	if merged.Bucket != nil && merged.Bucket.BillingPeriod == "" {
		merged.Bucket.BillingPeriod = period
	}

	return merged, nil
}

func sortedKeys(m map[string]ServiceOverride) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
