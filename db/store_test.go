package db

import (
	"context"
	"path/filepath"
	"testing"

	"contract-billing/core/catalog"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPresetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	def := preset.Definition{
		PresetID:               "silver-hourly",
		PresetName:             "Silver Hourly Support",
		LineType:               line.TypeHourly,
		BillingPeriod:          line.PeriodMonthly,
		MinimumBillableMinutes: 15,
		RoundUpToMinutes:       15,
		Services: []line.ServiceConfig{
			{ServiceID: "svc-1", Quantity: 1, CustomRate: line.Int64(15000),
				Bucket: &line.BucketAllowance{IncludedAmount: line.Int64(600), OverageRate: line.Int64(250),
					AllowRollover: true, BillingPeriod: line.PeriodMonthly}},
		},
	}

	if err := s.SavePreset(ctx, def); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetPreset(ctx, "silver-hourly")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PresetName != def.PresetName || got.LineType != def.LineType {
		t.Errorf("identity fields differ: %+v", got)
	}
	if len(got.Services) != 1 || !got.Services[0].Equal(def.Services[0]) {
		t.Errorf("services differ: %+v", got.Services)
	}
	if got.Services[0].Bucket.BillingPeriod != line.PeriodMonthly {
		t.Error("bucket period lost in persistence")
	}

	// Upsert replaces in place
	def.PresetName = "Silver Hourly Support v2"
	if err := s.SavePreset(ctx, def); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	defs, err := s.ListPresets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(defs) != 1 || defs[0].PresetName != "Silver Hourly Support v2" {
		t.Errorf("upsert did not replace: %+v", defs)
	}

	if _, err := s.GetPreset(ctx, "nope"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestPresetNullableBaseRate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	withRate := preset.Definition{PresetID: "p-rate", PresetName: "A", LineType: line.TypeFixed,
		BillingPeriod: line.PeriodMonthly, BaseRate: line.Int64(0)}
	withoutRate := preset.Definition{PresetID: "p-norate", PresetName: "B", LineType: line.TypeFixed,
		BillingPeriod: line.PeriodMonthly}

	for _, def := range []preset.Definition{withRate, withoutRate} {
		if err := s.SavePreset(ctx, def); err != nil {
			t.Fatalf("save %s: %v", def.PresetID, err)
		}
	}

	got, _ := s.GetPreset(ctx, "p-rate")
	if got.BaseRate == nil || *got.BaseRate != 0 {
		t.Error("explicit zero base rate must survive the round trip")
	}
	got, _ = s.GetPreset(ctx, "p-norate")
	if got.BaseRate != nil {
		t.Error("unset base rate must stay unset")
	}
}

func TestLineRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cfg := line.Config{
		LineID:                 "l-1",
		LineType:               line.TypeHourly,
		BillingPeriod:          line.PeriodMonthly,
		MinimumBillableMinutes: 15,
		RoundUpToMinutes:       15,
		SourcePresetID:         "silver-hourly",
		Services: []line.ServiceConfig{
			{ServiceID: "svc-1", Quantity: 1, CustomRate: line.Int64(16000)},
		},
	}

	if err := s.SaveLine(ctx, "contract-1", cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetLine(ctx, "contract-1", "l-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContractID != "contract-1" {
		t.Errorf("contract id: got %q", got.ContractID)
	}
	if got.SourcePresetID != "silver-hourly" {
		t.Error("provenance lost in persistence")
	}
	if !got.Services[0].Equal(cfg.Services[0]) {
		t.Errorf("services differ: %+v", got.Services)
	}

	lines, err := s.ListLines(ctx, "contract-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	if err := s.DeleteLine(ctx, "contract-1", "l-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteLine(ctx, "contract-1", "l-1"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("second delete should be not-found, got %v", err)
	}
	if _, err := s.GetLine(ctx, "contract-1", "l-1"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected not-found after delete, got %v", err)
	}
}

func TestSaveLineRequiresID(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveLine(context.Background(), "contract-1", line.Config{LineType: line.TypeFixed})
	if !errors.IsType(err, errors.TypeStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestCatalogProvider(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []catalog.Entry{
		{ServiceID: "svc-1", Name: "Remote Support", BillingMethod: line.TypeHourly, DefaultRate: 15000, Active: true},
		{ServiceID: "svc-2", Name: "Backup Storage", BillingMethod: line.TypeUsage, DefaultRate: 5, UnitOfMeasure: "GB", Active: true},
		{ServiceID: "svc-3", Name: "Legacy Support", BillingMethod: line.TypeHourly, DefaultRate: 9000, Active: false},
	}
	for _, e := range entries {
		if err := s.SaveCatalogEntry(ctx, e); err != nil {
			t.Fatalf("save %s: %v", e.ServiceID, err)
		}
	}

	// Store satisfies the provider the engine consumes
	var provider catalog.Provider = s

	all, err := provider.ListServices(ctx, catalog.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	// Insertion order survives via position
	for i, want := range []string{"svc-1", "svc-2", "svc-3"} {
		if all[i].ServiceID != want {
			t.Errorf("position %d: want %s, got %s", i, want, all[i].ServiceID)
		}
	}

	active, err := provider.ListServices(ctx, catalog.Filter{BillingMethod: line.TypeHourly, ActiveOnly: true})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(active) != 1 || active[0].ServiceID != "svc-1" {
		t.Errorf("filter: got %+v", active)
	}

	got, err := provider.Get(ctx, "svc-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UnitOfMeasure != "GB" || !got.Active {
		t.Errorf("entry fields differ: %+v", got)
	}

	// Upsert keeps the original position
	if err := s.SaveCatalogEntry(ctx, catalog.Entry{
		ServiceID: "svc-1", Name: "Remote Support Plus", BillingMethod: line.TypeHourly, DefaultRate: 15500, Active: true,
	}); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	all, _ = provider.ListServices(ctx, catalog.Filter{})
	if len(all) != 3 || all[0].Name != "Remote Support Plus" {
		t.Errorf("upsert must replace in place: %+v", all)
	}
}
