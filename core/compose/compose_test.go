package compose

import (
	"testing"

	"contract-billing/core/catalog"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/core/validate"
	"contract-billing/internal/errors"
)

func hourlyPreset() preset.Definition {
	return preset.Definition{
		PresetID:               "hourly-std",
		PresetName:             "Standard Hourly Support",
		LineType:               line.TypeHourly,
		BillingPeriod:          line.PeriodMonthly,
		MinimumBillableMinutes: 15,
		RoundUpToMinutes:       15,
		Services: []line.ServiceConfig{
			{ServiceID: "svc-1", Quantity: 1, CustomRate: line.Int64(15000),
				Bucket: &line.BucketAllowance{IncludedAmount: line.Int64(600), OverageRate: line.Int64(250),
					AllowRollover: true, BillingPeriod: line.PeriodMonthly}},
			{ServiceID: "svc-2", Quantity: 1, CustomRate: line.Int64(17500)},
		},
	}
}

func fixedPreset() preset.Definition {
	return preset.Definition{
		PresetID:        "fixed-std",
		PresetName:      "Flat Management Fee",
		LineType:        line.TypeFixed,
		BillingPeriod:   line.PeriodMonthly,
		BaseRate:        line.Int64(99900),
		EnableProration: true,
		Services: []line.ServiceConfig{
			{ServiceID: "svc-1", Quantity: 2},
			{ServiceID: "svc-3", Quantity: 10},
		},
	}
}

func usagePreset() preset.Definition {
	return preset.Definition{
		PresetID:      "usage-std",
		PresetName:    "Metered Storage",
		LineType:      line.TypeUsage,
		BillingPeriod: line.PeriodMonthly,
		Services: []line.ServiceConfig{
			{ServiceID: "svc-4", Quantity: 1, CustomRate: line.Int64(5), UnitOfMeasure: "GB"},
		},
	}
}

// An empty override set must reproduce the preset exactly, for every type
func TestComposeEmptyOverridesIsIdentity(t *testing.T) {
	defs := []preset.Definition{hourlyPreset(), fixedPreset(), usagePreset()}

	for _, def := range defs {
		t.Run(string(def.LineType), func(t *testing.T) {
			cfg, err := Compose(def, OverrideSet{}, "contract-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.LineID == "" {
				t.Error("composed line must receive a fresh line ID")
			}
			if cfg.ContractID != "contract-1" {
				t.Errorf("contract ID: got %q", cfg.ContractID)
			}
			if cfg.SourcePresetID != def.PresetID || cfg.SourcePresetName != def.PresetName {
				t.Error("provenance fields must record the source preset")
			}
			if cfg.LineType != def.LineType || cfg.BillingPeriod != def.BillingPeriod {
				t.Error("base type fields must copy through unchanged")
			}
			if cfg.EnableProration != def.EnableProration ||
				cfg.MinimumBillableMinutes != def.MinimumBillableMinutes ||
				cfg.RoundUpToMinutes != def.RoundUpToMinutes {
				t.Error("base value fields must copy through unchanged")
			}
			if len(cfg.Services) != len(def.Services) {
				t.Fatalf("service count: want %d, got %d", len(def.Services), len(cfg.Services))
			}
			for i, svc := range def.Services {
				if !cfg.Services[i].Equal(svc) {
					t.Errorf("service %s differs from the preset", svc.ServiceID)
				}
			}
		})
	}
}

// Overriding one service must not disturb its siblings or shared base fields
func TestComposeOverrideLocality(t *testing.T) {
	def := hourlyPreset()
	ov := OverrideSet{
		Services: map[string]ServiceOverride{
			"svc-1": {CustomRate: line.Int64(16000)},
		},
	}

	cfg, err := Compose(def, ov, "contract-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *mustService(t, cfg, "svc-1").CustomRate != 16000 {
		t.Error("overridden rate not applied")
	}
	if !mustService(t, cfg, "svc-2").Equal(def.Services[1]) {
		t.Error("untouched sibling service was disturbed")
	}
	if cfg.MinimumBillableMinutes != 15 || cfg.RoundUpToMinutes != 15 {
		t.Error("base fields disturbed by a service override")
	}
	// Quantity of svc-1 merges independently of its rate override
	if mustService(t, cfg, "svc-1").Quantity != 1 {
		t.Error("quantity must keep the preset value when not overridden")
	}
}

func TestComposeBaseOverrides(t *testing.T) {
	t.Run("fixed base rate and proration", func(t *testing.T) {
		ov := OverrideSet{Base: FixedOverrides{
			BaseRate:        line.Int64(89900),
			EnableProration: boolPtr(false),
		}}
		cfg, err := Compose(fixedPreset(), ov, "contract-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if *cfg.BaseRate != 89900 {
			t.Errorf("base rate: got %d", *cfg.BaseRate)
		}
		if cfg.EnableProration {
			t.Error("proration override not applied")
		}
	})

	t.Run("hourly time fields", func(t *testing.T) {
		ov := OverrideSet{Base: HourlyOverrides{
			MinimumBillableMinutes: line.Int64(30),
		}}
		cfg, err := Compose(hourlyPreset(), ov, "contract-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinimumBillableMinutes != 30 {
			t.Errorf("minimum billable: got %d", cfg.MinimumBillableMinutes)
		}
		if cfg.RoundUpToMinutes != 15 {
			t.Error("absent override key must keep the preset value")
		}
	})

	t.Run("type tag mismatch aborts", func(t *testing.T) {
		ov := OverrideSet{Base: FixedOverrides{BaseRate: line.Int64(1)}}
		_, err := Compose(hourlyPreset(), ov, "contract-1")
		if !errors.IsType(err, errors.TypeComposition) {
			t.Fatalf("expected composition error, got %v", err)
		}
	})

	t.Run("negative base rate aborts", func(t *testing.T) {
		ov := OverrideSet{Base: FixedOverrides{BaseRate: line.Int64(-1)}}
		_, err := Compose(fixedPreset(), ov, "contract-1")
		if !errors.IsType(err, errors.TypeInvalidRate) {
			t.Fatalf("expected invalid rate error, got %v", err)
		}
	})
}

// A bucket override replaces the preset allowance wholesale. A half-filled
// replacement composes cleanly and only validation rejects it.
func TestComposeBucketReplaceNotMerge(t *testing.T) {
	def := hourlyPreset()
	half := &line.BucketAllowance{IncludedAmount: line.Int64(1200)}
	ov := OverrideSet{
		Services: map[string]ServiceOverride{
			"svc-1": {Bucket: &BucketOverride{Allowance: half}},
		},
	}

	cfg, err := Compose(def, ov, "contract-1")
	if err != nil {
		t.Fatalf("composition must carry half-filled allowances: %v", err)
	}

	got := mustService(t, cfg, "svc-1").Bucket
	if got == nil {
		t.Fatal("replacement allowance missing")
	}
	if *got.IncludedAmount != 1200 {
		t.Errorf("included amount: got %d", *got.IncludedAmount)
	}
	if got.OverageRate != nil {
		t.Error("replacement must not inherit the preset's overage rate")
	}
	if got.AllowRollover {
		t.Error("replacement must not inherit the preset's rollover flag")
	}
	if got.BillingPeriod != line.PeriodMonthly {
		t.Error("unset period on the replacement must default to the line's frequency")
	}

	res := validate.Validate(cfg)
	if res.OK() {
		t.Fatal("validation must reject the half-filled allowance")
	}
	found := false
	for _, fe := range res.Errors {
		if fe.Code == errors.TypeIncompleteBucketAllowance && fe.ServiceID == "svc-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected incomplete-allowance finding for svc-1, got %+v", res.Errors)
	}
}

func TestComposeBucketClear(t *testing.T) {
	def := hourlyPreset()
	ov := OverrideSet{
		Services: map[string]ServiceOverride{
			"svc-1": {Bucket: &BucketOverride{Allowance: nil}},
		},
	}

	cfg, err := Compose(def, ov, "contract-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mustService(t, cfg, "svc-1").Bucket != nil {
		t.Error("explicit clear must remove the allowance")
	}
}

func TestComposeUnknownServiceAborts(t *testing.T) {
	ov := OverrideSet{
		Services: map[string]ServiceOverride{
			"svc-1":    {Quantity: line.Int64(3)},
			"svc-nope": {Quantity: line.Int64(2)},
		},
	}

	_, err := Compose(hourlyPreset(), ov, "contract-1")
	if !errors.IsType(err, errors.TypeUnknownServiceOverride) {
		t.Fatalf("expected unknown-service error, got %v", err)
	}
}

func TestComposeInvalidServiceValues(t *testing.T) {
	tests := []struct {
		name string
		ov   ServiceOverride
		code errors.Type
	}{
		{"zero quantity", ServiceOverride{Quantity: line.Int64(0)}, errors.TypeInvalidQuantity},
		{"negative quantity", ServiceOverride{Quantity: line.Int64(-2)}, errors.TypeInvalidQuantity},
		{"negative rate", ServiceOverride{CustomRate: line.Int64(-100)}, errors.TypeInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := OverrideSet{Services: map[string]ServiceOverride{"svc-1": tt.ov}}
			_, err := Compose(hourlyPreset(), ov, "contract-1")
			if !errors.IsType(err, tt.code) {
				t.Fatalf("expected %s error, got %v", tt.code, err)
			}
		})
	}
}

// Composition never mutates the preset it reads from
func TestComposeLeavesPresetUntouched(t *testing.T) {
	def := hourlyPreset()
	ov := OverrideSet{
		Services: map[string]ServiceOverride{
			"svc-1": {Quantity: line.Int64(4), CustomRate: line.Int64(1),
				Bucket: &BucketOverride{Allowance: nil}},
		},
	}

	if _, err := Compose(def, ov, "contract-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := hourlyPreset()
	for i := range want.Services {
		if !def.Services[i].Equal(want.Services[i]) {
			t.Errorf("preset service %s mutated by composition", want.Services[i].ServiceID)
		}
	}
}

func TestComposeCustom(t *testing.T) {
	entries := []catalog.Entry{
		{ServiceID: "svc-1", Name: "Remote Support", BillingMethod: line.TypeHourly, DefaultRate: 15000},
		{ServiceID: "svc-4", Name: "Backup Storage", BillingMethod: line.TypeUsage, UnitOfMeasure: "GB", DefaultRate: 5},
	}

	t.Run("catalog unit flows onto the line", func(t *testing.T) {
		cfg, err := ComposeCustom(line.TypeUsage, line.PeriodMonthly, nil,
			[]CustomService{{ServiceID: "svc-4", Quantity: 1, CustomRate: line.Int64(5)}},
			entries, "contract-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Services[0].UnitOfMeasure != "GB" {
			t.Errorf("unit of measure: got %q", cfg.Services[0].UnitOfMeasure)
		}
		if cfg.SourcePresetID != "" {
			t.Error("custom lines carry no preset provenance")
		}
	})

	t.Run("hourly defaults applied", func(t *testing.T) {
		cfg, err := ComposeCustom(line.TypeHourly, line.PeriodMonthly, nil,
			[]CustomService{{ServiceID: "svc-1", Quantity: 1, CustomRate: line.Int64(15000)}},
			entries, "contract-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinimumBillableMinutes != preset.DefaultRoundUp || cfg.RoundUpToMinutes != preset.DefaultRoundUp {
			t.Error("hourly custom lines default their time fields")
		}
	})

	t.Run("service outside catalog aborts", func(t *testing.T) {
		_, err := ComposeCustom(line.TypeHourly, line.PeriodMonthly, nil,
			[]CustomService{{ServiceID: "svc-ghost", Quantity: 1}}, entries, "contract-1")
		if !errors.IsType(err, errors.TypeUnknownServiceOverride) {
			t.Fatalf("expected unknown-service error, got %v", err)
		}
	})

	t.Run("zero or negative quantity aborts", func(t *testing.T) {
		for _, qty := range []int64{0, -2} {
			_, err := ComposeCustom(line.TypeUsage, line.PeriodMonthly, nil,
				[]CustomService{{ServiceID: "svc-4", Quantity: qty, CustomRate: line.Int64(5)}},
				entries, "contract-1")
			if !errors.IsType(err, errors.TypeInvalidQuantity) {
				t.Fatalf("quantity %d: expected invalid-quantity error, got %v", qty, err)
			}
		}
	})

	t.Run("duplicate service aborts", func(t *testing.T) {
		_, err := ComposeCustom(line.TypeUsage, line.PeriodMonthly, nil,
			[]CustomService{
				{ServiceID: "svc-4", Quantity: 1},
				{ServiceID: "svc-4", Quantity: 2},
			}, entries, "contract-1")
		if !errors.IsType(err, errors.TypeComposition) {
			t.Fatalf("expected composition error, got %v", err)
		}
	})
}

func TestOverrideSetEmpty(t *testing.T) {
	tests := []struct {
		name string
		set  OverrideSet
		want bool
	}{
		{"zero value", OverrideSet{}, true},
		{"empty map", OverrideSet{Services: map[string]ServiceOverride{}}, true},
		{"map of empty overrides", OverrideSet{Services: map[string]ServiceOverride{"svc-1": {}}}, true},
		{"base set", OverrideSet{Base: UsageOverrides{}}, false},
		{"service quantity set", OverrideSet{Services: map[string]ServiceOverride{"svc-1": {Quantity: line.Int64(2)}}}, false},
		{"bucket clear set", OverrideSet{Services: map[string]ServiceOverride{"svc-1": {Bucket: &BucketOverride{}}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Empty(); got != tt.want {
				t.Errorf("Empty: want %v, got %v", tt.want, got)
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func mustService(t *testing.T, cfg line.Config, serviceID string) line.ServiceConfig {
	t.Helper()
	svc, ok := cfg.Service(serviceID)
	if !ok {
		t.Fatalf("service %s missing from composed line", serviceID)
	}
	return svc
}
