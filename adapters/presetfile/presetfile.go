// Package presetfile loads administrator-authored preset definitions
// from HCL files.
//
// A preset file holds one or more preset blocks:
//
//	preset "silver-hourly" {
//	  name             = "Silver Hourly Support"
//	  line_type        = "hourly"
//	  billing_period   = "monthly"
//	  minimum_billable = 15
//	  round_up_to      = 15
//
//	  service "svc-remote" {
//	    rate = 15000
//	    bucket {
//	      included     = 600
//	      overage_rate = 250
//	      rollover     = true
//	    }
//	  }
//	}
//
// Attributes that do not belong to the declared line type are rejected
// with the offending range, not ignored.
package presetfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/internal/errors"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "preset", LabelNames: []string{"id"}},
	},
}

var presetSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name", Required: true},
		{Name: "line_type", Required: true},
		{Name: "billing_period"},
		{Name: "base_rate"},
		{Name: "enable_proration"},
		{Name: "minimum_billable"},
		{Name: "round_up_to"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "service", LabelNames: []string{"id"}},
	},
}

var serviceSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "quantity"},
		{Name: "rate"},
		{Name: "unit"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "bucket"},
	},
}

var bucketSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "included"},
		{Name: "overage_rate"},
		{Name: "rollover"},
		{Name: "period"},
	},
}

// fields only meaningful for a given line type
var fixedOnlyAttrs = []string{"base_rate", "enable_proration"}
var hourlyOnlyAttrs = []string{"minimum_billable", "round_up_to"}

// LoadDir parses every .hcl file in a directory, sorted by name
func LoadDir(dir string) ([]preset.Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Parsing("reading preset directory", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".hcl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var defs []preset.Definition
	for _, name := range names {
		fileDefs, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

// LoadFile parses one preset file
func LoadFile(path string) ([]preset.Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Parsing("reading preset file", err)
	}
	return Parse(src, path)
}

// Parse parses preset definitions from HCL source
func Parse(src []byte, filename string) ([]preset.Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errors.Parsing("parsing preset file", diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, errors.Parsing("unexpected preset file structure", diags)
	}

	var defs []preset.Definition
	seen := make(map[string]bool)
	for _, block := range content.Blocks {
		def, err := decodePreset(block)
		if err != nil {
			return nil, err
		}
		if seen[def.PresetID] {
			return nil, errors.Newf(errors.TypeParsing, "%s: duplicate preset %q", filename, def.PresetID)
		}
		seen[def.PresetID] = true
		defs = append(defs, def)
	}
	return defs, nil
}

func decodePreset(block *hcl.Block) (preset.Definition, error) {
	def := preset.Definition{PresetID: block.Labels[0]}

	content, diags := block.Body.Content(presetSchema)
	if diags.HasErrors() {
		return def, errors.Parsing("decoding preset "+def.PresetID, diags)
	}
	attrs := content.Attributes

	name, err := stringAttr(attrs, "name")
	if err != nil {
		return def, err
	}
	def.PresetName = *name

	lt, err := stringAttr(attrs, "line_type")
	if err != nil {
		return def, err
	}
	def.LineType, err = line.ParseLineType(*lt)
	if err != nil {
		return def, attrErr(attrs["line_type"], err)
	}

	if bp, err := optStringAttr(attrs, "billing_period"); err != nil {
		return def, err
	} else if bp != nil {
		def.BillingPeriod, err = line.ParseBillingPeriod(*bp)
		if err != nil {
			return def, attrErr(attrs["billing_period"], err)
		}
	} else {
		def.BillingPeriod = line.PeriodMonthly
	}

	if err := rejectForeignAttrs(attrs, def.LineType, def.PresetID); err != nil {
		return def, err
	}

	switch def.LineType {
	case line.TypeFixed:
		rate, err := optInt64Attr(attrs, "base_rate")
		if err != nil {
			return def, err
		}
		def.BaseRate = rate
		proration, err := optBoolAttr(attrs, "enable_proration")
		if err != nil {
			return def, err
		}
		if proration != nil {
			def.EnableProration = *proration
		}
	case line.TypeHourly:
		min, err := optInt64Attr(attrs, "minimum_billable")
		if err != nil {
			return def, err
		}
		if min != nil {
			def.MinimumBillableMinutes = *min
		}
		round, err := optInt64Attr(attrs, "round_up_to")
		if err != nil {
			return def, err
		}
		if round != nil {
			def.RoundUpToMinutes = *round
		}
	}

	seen := make(map[string]bool)
	for _, svcBlock := range content.Blocks {
		svc, err := decodeService(svcBlock, def.PresetID)
		if err != nil {
			return def, err
		}
		if seen[svc.ServiceID] {
			return def, errors.Newf(errors.TypeParsing,
				"preset %s: duplicate service %q", def.PresetID, svc.ServiceID)
		}
		seen[svc.ServiceID] = true
		def.Services = append(def.Services, svc)
	}

	def.Normalize()
	return def, nil
}

func decodeService(block *hcl.Block, presetID string) (line.ServiceConfig, error) {
	svc := line.ServiceConfig{ServiceID: block.Labels[0], Quantity: 1}

	content, diags := block.Body.Content(serviceSchema)
	if diags.HasErrors() {
		return svc, errors.Parsing(fmt.Sprintf("preset %s: decoding service %s", presetID, svc.ServiceID), diags)
	}
	attrs := content.Attributes

	if qty, err := optInt64Attr(attrs, "quantity"); err != nil {
		return svc, err
	} else if qty != nil {
		svc.Quantity = *qty
	}

	rate, err := optInt64Attr(attrs, "rate")
	if err != nil {
		return svc, err
	}
	svc.CustomRate = rate

	if unit, err := optStringAttr(attrs, "unit"); err != nil {
		return svc, err
	} else if unit != nil {
		svc.UnitOfMeasure = *unit
	}

	for _, bucketBlock := range content.Blocks {
		if svc.Bucket != nil {
			return svc, errors.Newf(errors.TypeParsing,
				"preset %s: service %s declares more than one bucket", presetID, svc.ServiceID)
		}
		bucket, err := decodeBucket(bucketBlock, presetID, svc.ServiceID)
		if err != nil {
			return svc, err
		}
		svc.Bucket = bucket
	}

	return svc, nil
}

func decodeBucket(block *hcl.Block, presetID, serviceID string) (*line.BucketAllowance, error) {
	content, diags := block.Body.Content(bucketSchema)
	if diags.HasErrors() {
		return nil, errors.Parsing(fmt.Sprintf("preset %s: decoding bucket for %s", presetID, serviceID), diags)
	}
	attrs := content.Attributes

	bucket := &line.BucketAllowance{}

	included, err := optInt64Attr(attrs, "included")
	if err != nil {
		return nil, err
	}
	bucket.IncludedAmount = included

	overage, err := optInt64Attr(attrs, "overage_rate")
	if err != nil {
		return nil, err
	}
	bucket.OverageRate = overage

	if rollover, err := optBoolAttr(attrs, "rollover"); err != nil {
		return nil, err
	} else if rollover != nil {
		bucket.AllowRollover = *rollover
	}

	if period, err := optStringAttr(attrs, "period"); err != nil {
		return nil, err
	} else if period != nil {
		bucket.BillingPeriod, err = line.ParseBillingPeriod(*period)
		if err != nil {
			return nil, attrErr(attrs["period"], err)
		}
	}

	return bucket, nil
}

// rejectForeignAttrs fails on attributes that belong to another line type
func rejectForeignAttrs(attrs hcl.Attributes, t line.LineType, presetID string) error {
	var foreign []string
	if t != line.TypeFixed {
		foreign = append(foreign, fixedOnlyAttrs...)
	}
	if t != line.TypeHourly {
		foreign = append(foreign, hourlyOnlyAttrs...)
	}
	for _, name := range foreign {
		if attr, ok := attrs[name]; ok {
			return errors.Newf(errors.TypeParsing,
				"preset %s: attribute %q does not apply to %s presets (%s)",
				presetID, name, t, attr.Range.String())
		}
	}
	return nil
}

// attribute decoding helpers; unknown and null values are rejected
// explicitly rather than passed through

func attrValue(attr *hcl.Attribute) (cty.Value, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, errors.Parsing("evaluating "+attr.Name, diags)
	}
	if !val.IsKnown() {
		return cty.NilVal, errors.Newf(errors.TypeParsing, "attribute %q has an unknown value (%s)", attr.Name, attr.Range.String())
	}
	if val.IsNull() {
		return cty.NilVal, errors.Newf(errors.TypeParsing, "attribute %q is null (%s)", attr.Name, attr.Range.String())
	}
	return val, nil
}

func stringAttr(attrs hcl.Attributes, name string) (*string, error) {
	s, err := optStringAttr(attrs, name)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.Newf(errors.TypeParsing, "attribute %q is required", name)
	}
	return s, nil
}

func optStringAttr(attrs hcl.Attributes, name string) (*string, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	var s string
	if err := gocty.FromCtyValue(val, &s); err != nil {
		return nil, attrErr(attr, err)
	}
	return &s, nil
}

func optInt64Attr(attrs hcl.Attributes, name string) (*int64, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	var i int64
	if err := gocty.FromCtyValue(val, &i); err != nil {
		return nil, attrErr(attr, err)
	}
	return &i, nil
}

func optBoolAttr(attrs hcl.Attributes, name string) (*bool, error) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	val, err := attrValue(attr)
	if err != nil {
		return nil, err
	}
	var b bool
	if err := gocty.FromCtyValue(val, &b); err != nil {
		return nil, attrErr(attr, err)
	}
	return &b, nil
}

func attrErr(attr *hcl.Attribute, err error) error {
	return errors.Wrapf(errors.TypeParsing, err, "attribute %q (%s)", attr.Name, attr.Range.String())
}
