package session

import (
	"context"
	"testing"

	"contract-billing/core/line"
	"contract-billing/internal/errors"
)

// stubStore records saves and can be told to fail
type stubStore struct {
	saved []line.Config
	err   error
}

func (s *stubStore) SaveLine(_ context.Context, _ string, cfg line.Config) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, cfg.Clone())
	return nil
}

func sessionLine() line.Config {
	return line.Config{
		LineID:                 "l-1",
		ContractID:             "contract-1",
		LineType:               line.TypeHourly,
		BillingPeriod:          line.PeriodMonthly,
		MinimumBillableMinutes: 15,
		RoundUpToMinutes:       15,
		Services: []line.ServiceConfig{
			{ServiceID: "svc-1", Quantity: 1, CustomRate: line.Int64(15000)},
		},
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := &stubStore{}
	s := New("contract-1", sessionLine(), store)

	if s.State() != Clean {
		t.Fatal("fresh session must start clean")
	}
	if s.CloseRequiresConfirm() {
		t.Error("clean session must close without confirmation")
	}

	s.Apply(func(c line.Config) line.Config {
		c.Services[0].CustomRate = line.Int64(16000)
		return c
	})

	if s.State() != Dirty {
		t.Fatal("edit must make the session dirty")
	}
	if !s.CloseRequiresConfirm() {
		t.Error("dirty session must require confirmation to close")
	}

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if s.State() != Clean {
		t.Error("successful save must re-anchor the baseline")
	}
	if len(store.saved) != 1 || *store.saved[0].Services[0].CustomRate != 16000 {
		t.Error("store did not receive the edited configuration")
	}

	// The new baseline is the saved snapshot, not the original
	if *s.Baseline().Services[0].CustomRate != 16000 {
		t.Error("baseline must match the saved configuration")
	}
}

func TestSessionReset(t *testing.T) {
	s := New("contract-1", sessionLine(), &stubStore{})

	s.Apply(func(c line.Config) line.Config {
		c.Services[0].Quantity = 9
		return c
	})
	if s.State() != Dirty {
		t.Fatal("edit must make the session dirty")
	}

	s.Reset()
	if s.State() != Clean {
		t.Error("reset must restore the clean state")
	}
	if s.Current().Services[0].Quantity != 1 {
		t.Error("reset must restore the baseline values")
	}
}

func TestSessionSaveRejectsInvalid(t *testing.T) {
	store := &stubStore{}
	s := New("contract-1", sessionLine(), store)

	s.Apply(func(c line.Config) line.Config {
		c.Services[0].CustomRate = nil
		return c
	})

	err := s.Save(context.Background())
	if !errors.IsType(err, errors.TypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Error("invalid configuration must never reach the store")
	}
	if s.State() != Dirty {
		t.Error("failed save must leave the session dirty")
	}
}

func TestSessionStoreFailureKeepsBaseline(t *testing.T) {
	store := &stubStore{err: errors.Storage("disk full", nil)}
	s := New("contract-1", sessionLine(), store)

	s.Apply(func(c line.Config) line.Config {
		c.Services[0].CustomRate = line.Int64(20000)
		return c
	})

	if err := s.Save(context.Background()); err == nil {
		t.Fatal("store failure must propagate")
	}
	if s.State() != Dirty {
		t.Error("failed save must not re-anchor the baseline")
	}
	if *s.Baseline().Services[0].CustomRate != 15000 {
		t.Error("baseline must keep the pre-save values")
	}
}

func TestSessionAccessorsReturnCopies(t *testing.T) {
	s := New("contract-1", sessionLine(), &stubStore{})

	cur := s.Current()
	cur.Services[0].Quantity = 99
	*cur.Services[0].CustomRate = 1

	if s.State() != Clean {
		t.Error("mutating an accessor copy must not dirty the session")
	}
	if s.Current().Services[0].Quantity != 1 {
		t.Error("accessor copy leaked into the session")
	}
}
