// Package session - Edit session lifecycle
// An EditSession owns a working copy of a contract line configuration and
// the last-persisted baseline. Its state is always Clean or Dirty,
// recomputed from the two snapshots on demand. Valid transitions:
// Clean -(edit)-> Dirty, Dirty -(save)-> Clean, Dirty -(reset)-> Clean.
package session

import (
	"context"

	"contract-billing/core/diff"
	"contract-billing/core/line"
	"contract-billing/core/validate"
	"contract-billing/internal/errors"
)

// State is the persistence lifecycle state
type State int

const (
	// Clean - the working copy matches the baseline
	Clean State = iota
	// Dirty - unsaved edits exist
	Dirty
)

// String returns the state name
func (s State) String() string {
	if s == Dirty {
		return "dirty"
	}
	return "clean"
}

// LineStore persists contract line configurations. Implementations must
// make the write atomic; the session treats store failures as opaque.
type LineStore interface {
	SaveLine(ctx context.Context, contractID string, cfg line.Config) error
}

// EditSession tracks one configuration through edit, save and reset
type EditSession struct {
	contractID string
	baseline   line.Config
	current    line.Config
	store      LineStore
}

// New starts a session over a freshly composed or loaded configuration.
// The configuration becomes both baseline and working copy.
func New(contractID string, cfg line.Config, store LineStore) *EditSession {
	return &EditSession{
		contractID: contractID,
		baseline:   cfg.Clone(),
		current:    cfg.Clone(),
		store:      store,
	}
}

// Current returns a copy of the working configuration
func (s *EditSession) Current() line.Config {
	return s.current.Clone()
}

// Baseline returns a copy of the last-persisted configuration
func (s *EditSession) Baseline() line.Config {
	return s.baseline.Clone()
}

// Apply replaces the working copy with the result of the edit function.
// The edit receives its own copy; the baseline is never touched.
func (s *EditSession) Apply(edit func(line.Config) line.Config) {
	s.current = edit(s.current.Clone())
}

// State reports Clean or Dirty, recomputed from the snapshots
func (s *EditSession) State() State {
	if diff.IsDirty(s.current, s.baseline) {
		return Dirty
	}
	return Clean
}

// Diff returns the service-level diff against the baseline
func (s *EditSession) Diff() diff.ServiceDiff {
	return diff.DiffServices(s.current, s.baseline)
}

// Validate runs type-specific validation on the working copy
func (s *EditSession) Validate() validate.Result {
	return validate.Validate(s.current)
}

// Save validates the working copy and persists it. On success the
// baseline re-anchors to the saved configuration and the session is
// Clean. Validation failures return the collected findings; store
// failures propagate opaque and leave the baseline unchanged.
func (s *EditSession) Save(ctx context.Context) error {
	if res := validate.Validate(s.current); !res.OK() {
		return res.Err()
	}
	if s.store == nil {
		return errors.New(errors.TypeStorage, "session has no store")
	}
	if err := s.store.SaveLine(ctx, s.contractID, s.current); err != nil {
		return err
	}
	s.baseline = s.current.Clone()
	return nil
}

// Reset discards unsaved edits by restoring the baseline
func (s *EditSession) Reset() {
	s.current = s.baseline.Clone()
}

// CloseRequiresConfirm reports whether navigating away must surface a
// confirmation before state is discarded
func (s *EditSession) CloseRequiresConfirm() bool {
	return s.State() == Dirty
}
