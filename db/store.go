// Package db provides the SQLite-backed preset, contract line and
// catalog stores. The engine itself never touches persistence; everything
// here sits behind the collaborator interfaces the engine consumes.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"contract-billing/core/catalog"
	"contract-billing/core/line"
	"contract-billing/core/preset"
	"contract-billing/internal/errors"
	"contract-billing/internal/logging"
)

// Config contains store configuration
type Config struct {
	// Path is the database file path
	Path string

	// MaxOpenConns is the maximum number of open connections
	// Default: 10
	MaxOpenConns int

	// WALMode enables write-ahead logging for better concurrency
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default store configuration
func DefaultConfig(path string) *Config {
	return &Config{
		Path:         path,
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// Store is the SQLite-backed store for presets, contract lines and the
// service catalog. It implements catalog.Provider and session.LineStore.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens the store, applying pragmas and creating the schema
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New(errors.TypeConfig, "store config is required")
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	conn, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, errors.Storage("opening database", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &Store{
		db:     conn,
		logger: logging.Named("db"),
	}

	if cfg.WALMode {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			conn.Close()
			return nil, errors.Storage("enabling WAL mode", err)
		}
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		conn.Close()
		return nil, errors.Storage("setting busy timeout", err)
	}
	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, errors.Storage("creating schema", err)
	}

	s.logger.Info("store opened",
		zap.String("path", cfg.Path),
		zap.Bool("wal_mode", cfg.WALMode),
	)
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// --- presets ---

// SavePreset inserts or replaces a preset definition
func (s *Store) SavePreset(ctx context.Context, def preset.Definition) error {
	services, err := json.Marshal(def.Services)
	if err != nil {
		return errors.Storage("encoding preset services", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presets
			(preset_id, name, line_type, billing_period, base_rate,
			 enable_proration, minimum_billable, round_up_to, services, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(preset_id) DO UPDATE SET
			name = excluded.name,
			line_type = excluded.line_type,
			billing_period = excluded.billing_period,
			base_rate = excluded.base_rate,
			enable_proration = excluded.enable_proration,
			minimum_billable = excluded.minimum_billable,
			round_up_to = excluded.round_up_to,
			services = excluded.services,
			updated_at = excluded.updated_at`,
		def.PresetID, def.PresetName, def.LineType.String(), def.BillingPeriod.String(),
		nullableInt64(def.BaseRate), boolToInt(def.EnableProration),
		def.MinimumBillableMinutes, def.RoundUpToMinutes,
		string(services), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Storage("saving preset "+def.PresetID, err)
	}
	return nil
}

// GetPreset returns one preset definition
func (s *Store) GetPreset(ctx context.Context, presetID string) (preset.Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT preset_id, name, line_type, billing_period, base_rate,
		       enable_proration, minimum_billable, round_up_to, services
		FROM presets WHERE preset_id = ?`, presetID)

	def, err := scanPreset(row)
	if err == sql.ErrNoRows {
		return preset.Definition{}, errors.NotFound("preset", presetID)
	}
	if err != nil {
		return preset.Definition{}, errors.Storage("loading preset "+presetID, err)
	}
	return def, nil
}

// ListPresets returns all preset definitions ordered by name
func (s *Store) ListPresets(ctx context.Context) ([]preset.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT preset_id, name, line_type, billing_period, base_rate,
		       enable_proration, minimum_billable, round_up_to, services
		FROM presets ORDER BY name`)
	if err != nil {
		return nil, errors.Storage("listing presets", err)
	}
	defer rows.Close()

	var defs []preset.Definition
	for rows.Next() {
		def, err := scanPreset(rows)
		if err != nil {
			return nil, errors.Storage("scanning preset", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPreset(row rowScanner) (preset.Definition, error) {
	var def preset.Definition
	var lineType, period, services string
	var baseRate sql.NullInt64
	var proration int

	err := row.Scan(&def.PresetID, &def.PresetName, &lineType, &period, &baseRate,
		&proration, &def.MinimumBillableMinutes, &def.RoundUpToMinutes, &services)
	if err != nil {
		return def, err
	}

	def.LineType = line.LineType(lineType)
	def.BillingPeriod = line.BillingPeriod(period)
	if baseRate.Valid {
		def.BaseRate = line.Int64(baseRate.Int64)
	}
	def.EnableProration = proration != 0
	if err := json.Unmarshal([]byte(services), &def.Services); err != nil {
		return def, err
	}
	return def, nil
}

// --- contract lines ---

// SaveLine inserts or replaces a contract line configuration inside a
// transaction, so a compose-validate-write sequence either lands whole or
// not at all.
func (s *Store) SaveLine(ctx context.Context, contractID string, cfg line.Config) error {
	if cfg.LineID == "" {
		return errors.New(errors.TypeStorage, "configuration has no line id")
	}
	stored := cfg.Clone()
	stored.ContractID = contractID

	payload, err := json.Marshal(stored)
	if err != nil {
		return errors.Storage("encoding contract line", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("beginning transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contract_lines (line_id, contract_id, line_type, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(line_id) DO UPDATE SET
			contract_id = excluded.contract_id,
			line_type = excluded.line_type,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		stored.LineID, contractID, stored.LineType.String(),
		string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Storage("saving contract line "+stored.LineID, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Storage("committing contract line "+stored.LineID, err)
	}

	s.logger.Debug("contract line saved",
		zap.String("contract_id", contractID),
		zap.String("line_id", stored.LineID),
	)
	return nil
}

// GetLine returns one contract line configuration
func (s *Store) GetLine(ctx context.Context, contractID, lineID string) (line.Config, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM contract_lines
		WHERE contract_id = ? AND line_id = ?`, contractID, lineID).Scan(&payload)
	if err == sql.ErrNoRows {
		return line.Config{}, errors.NotFound("contract line", lineID)
	}
	if err != nil {
		return line.Config{}, errors.Storage("loading contract line "+lineID, err)
	}

	var cfg line.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return line.Config{}, errors.Storage("decoding contract line "+lineID, err)
	}
	return cfg, nil
}

// ListLines returns every line on a contract
func (s *Store) ListLines(ctx context.Context, contractID string) ([]line.Config, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM contract_lines
		WHERE contract_id = ? ORDER BY updated_at`, contractID)
	if err != nil {
		return nil, errors.Storage("listing contract lines", err)
	}
	defer rows.Close()

	var cfgs []line.Config
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Storage("scanning contract line", err)
		}
		var cfg line.Config
		if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
			return nil, errors.Storage("decoding contract line", err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, rows.Err()
}

// DeleteLine detaches a contract line
func (s *Store) DeleteLine(ctx context.Context, contractID, lineID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM contract_lines WHERE contract_id = ? AND line_id = ?`,
		contractID, lineID)
	if err != nil {
		return errors.Storage("deleting contract line "+lineID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("contract line", lineID)
	}
	return nil
}

// --- catalog ---

// SaveCatalogEntry inserts or replaces a catalog service
func (s *Store) SaveCatalogEntry(ctx context.Context, e catalog.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_services (service_id, name, billing_method, default_rate, unit, active, position)
		VALUES (?, ?, ?, ?, ?, ?,
			COALESCE((SELECT position FROM catalog_services WHERE service_id = ?),
			         (SELECT COALESCE(MAX(position), 0) + 1 FROM catalog_services)))
		ON CONFLICT(service_id) DO UPDATE SET
			name = excluded.name,
			billing_method = excluded.billing_method,
			default_rate = excluded.default_rate,
			unit = excluded.unit,
			active = excluded.active`,
		e.ServiceID, e.Name, e.BillingMethod.String(), e.DefaultRate, e.UnitOfMeasure,
		boolToInt(e.Active), e.ServiceID,
	)
	if err != nil {
		return errors.Storage("saving catalog service "+e.ServiceID, err)
	}
	return nil
}

// ListServices implements catalog.Provider
func (s *Store) ListServices(ctx context.Context, filter catalog.Filter) ([]catalog.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_id, name, billing_method, default_rate, unit, active
		FROM catalog_services ORDER BY position`)
	if err != nil {
		return nil, errors.Storage("listing catalog services", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Storage("scanning catalog service", err)
		}
		if filter.Matches(e) {
			entries = append(entries, e)
		}
	}
	return entries, rows.Err()
}

// Get implements catalog.Provider
func (s *Store) Get(ctx context.Context, serviceID string) (catalog.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT service_id, name, billing_method, default_rate, unit, active
		FROM catalog_services WHERE service_id = ?`, serviceID)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return catalog.Entry{}, errors.NotFound("catalog service", serviceID)
	}
	if err != nil {
		return catalog.Entry{}, errors.Storage("loading catalog service "+serviceID, err)
	}
	return e, nil
}

func scanEntry(row rowScanner) (catalog.Entry, error) {
	var e catalog.Entry
	var method string
	var active int
	err := row.Scan(&e.ServiceID, &e.Name, &method, &e.DefaultRate, &e.UnitOfMeasure, &active)
	if err != nil {
		return e, err
	}
	e.BillingMethod = line.LineType(method)
	e.Active = active != 0
	return e, nil
}

func nullableInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
