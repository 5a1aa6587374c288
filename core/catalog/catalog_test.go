package catalog

import (
	"context"
	"testing"

	"contract-billing/core/line"
	"contract-billing/internal/errors"
)

func testEntries() []Entry {
	return []Entry{
		{ServiceID: "svc-1", Name: "Remote Support", BillingMethod: line.TypeHourly, DefaultRate: 15000, Active: true},
		{ServiceID: "svc-2", Name: "Onsite Support", BillingMethod: line.TypeHourly, DefaultRate: 17500, Active: false},
		{ServiceID: "svc-3", Name: "Workstation Management", BillingMethod: line.TypeFixed, DefaultRate: 2500, Active: true},
		{ServiceID: "svc-4", Name: "Backup Storage", BillingMethod: line.TypeUsage, DefaultRate: 5, UnitOfMeasure: "GB", Active: true},
	}
}

func TestFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter lists all", Filter{}, []string{"svc-1", "svc-2", "svc-3", "svc-4"}},
		{"billing method", Filter{BillingMethod: line.TypeHourly}, []string{"svc-1", "svc-2"}},
		{"active only", Filter{ActiveOnly: true}, []string{"svc-1", "svc-3", "svc-4"}},
		{"name substring is case-insensitive", Filter{NameContains: "support"}, []string{"svc-1", "svc-2"}},
		{"combined", Filter{BillingMethod: line.TypeHourly, ActiveOnly: true}, []string{"svc-1"}},
		{"no match", Filter{NameContains: "firewall"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range testEntries() {
				if tt.filter.Matches(e) {
					got = append(got, e.ServiceID)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("want %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestMemoryProvider(t *testing.T) {
	m := NewMemory()
	for _, e := range testEntries() {
		m.Register(e)
	}

	ctx := context.Background()

	listed, err := m.ListServices(ctx, Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listed) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(listed))
	}
	// Registration order survives listing
	for i, want := range []string{"svc-1", "svc-2", "svc-3", "svc-4"} {
		if listed[i].ServiceID != want {
			t.Errorf("position %d: want %s, got %s", i, want, listed[i].ServiceID)
		}
	}

	got, err := m.Get(ctx, "svc-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UnitOfMeasure != "GB" {
		t.Errorf("unit of measure: got %q", got.UnitOfMeasure)
	}

	if _, err := m.Get(ctx, "svc-ghost"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}

	// Re-registering replaces in place without growing
	m.Register(Entry{ServiceID: "svc-1", Name: "Remote Support Plus", BillingMethod: line.TypeHourly, Active: true})
	if m.Len() != 4 {
		t.Errorf("re-registration must not grow the catalog, len=%d", m.Len())
	}
	got, _ = m.Get(ctx, "svc-1")
	if got.Name != "Remote Support Plus" {
		t.Errorf("re-registration must replace the entry, got %q", got.Name)
	}
}

func TestValidateEntries(t *testing.T) {
	good := testEntries()
	if errs := ValidateEntries(good, DefaultValidationRules()); len(errs) != 0 {
		t.Fatalf("well-formed entries must pass, got %v", errs)
	}

	bad := []Entry{
		{ServiceID: "", Name: "", BillingMethod: "subscription", DefaultRate: -1},
		{ServiceID: "svc-5", Name: "Metered Thing", BillingMethod: line.TypeUsage, DefaultRate: 5},
	}
	errs := ValidateEntries(bad, DefaultValidationRules())
	if len(errs) < 4 {
		t.Fatalf("expected findings for identity, method, rate and missing unit, got %v", errs)
	}
}
