// Package catalog - Service catalog
// The canonical list of billable services a contract line or preset may
// reference. The engine consults it to resolve service references and
// supply defaults; it never owns persistence.
package catalog

import (
	"context"
	"strings"

	"contract-billing/core/line"
	"contract-billing/internal/errors"
)

// Entry is a catalog entry for a billable service
type Entry struct {
	// ServiceID uniquely identifies the service
	ServiceID string `json:"service_id"`

	// Name is the display name
	Name string `json:"name"`

	// BillingMethod is how the service bills (fixed, hourly, usage)
	BillingMethod line.LineType `json:"billing_method"`

	// DefaultRate is the minor-unit rate applied when a line configures
	// no custom rate
	DefaultRate int64 `json:"default_rate"`

	// UnitOfMeasure labels the billed unit for usage services
	UnitOfMeasure string `json:"unit_of_measure,omitempty"`

	// Active marks the entry as offerable on new lines
	Active bool `json:"active"`
}

// Filter narrows a catalog listing
type Filter struct {
	// BillingMethod restricts to one billing method when set
	BillingMethod line.LineType

	// ActiveOnly excludes retired services
	ActiveOnly bool

	// NameContains is a case-insensitive substring match
	NameContains string
}

// Matches reports whether an entry passes the filter
func (f Filter) Matches(e Entry) bool {
	if f.BillingMethod != "" && e.BillingMethod != f.BillingMethod {
		return false
	}
	if f.ActiveOnly && !e.Active {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	return true
}

// Provider supplies catalog entries to the engine
type Provider interface {
	// ListServices lists entries matching the filter
	ListServices(ctx context.Context, filter Filter) ([]Entry, error)

	// Get returns a single entry by service ID
	Get(ctx context.Context, serviceID string) (Entry, error)
}

// Memory is an in-memory catalog provider.
// Registration order is preserved for listings.
type Memory struct {
	entries []Entry
	byID    map[string]int
}

// NewMemory creates an empty in-memory catalog
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

// Register adds or replaces an entry
func (m *Memory) Register(e Entry) {
	if i, ok := m.byID[e.ServiceID]; ok {
		m.entries[i] = e
		return
	}
	m.byID[e.ServiceID] = len(m.entries)
	m.entries = append(m.entries, e)
}

// ListServices implements Provider
func (m *Memory) ListServices(_ context.Context, filter Filter) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Get implements Provider
func (m *Memory) Get(_ context.Context, serviceID string) (Entry, error) {
	if i, ok := m.byID[serviceID]; ok {
		return m.entries[i], nil
	}
	return Entry{}, errors.NotFound("catalog service", serviceID)
}

// Len returns the number of registered entries
func (m *Memory) Len() int {
	return len(m.entries)
}
