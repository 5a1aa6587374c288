// Package db - SQLite schema
package db

// Schema creates the tables used by the store. Monetary columns are
// integers in minor currency units; nested service collections persist as
// JSON documents whose monetary fields are likewise integers.
const Schema = `
CREATE TABLE IF NOT EXISTS presets (
	preset_id        TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	line_type        TEXT NOT NULL,
	billing_period   TEXT NOT NULL,
	base_rate        INTEGER,
	enable_proration INTEGER NOT NULL DEFAULT 0,
	minimum_billable INTEGER NOT NULL DEFAULT 0,
	round_up_to      INTEGER NOT NULL DEFAULT 0,
	services         TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contract_lines (
	line_id     TEXT PRIMARY KEY,
	contract_id TEXT NOT NULL,
	line_type   TEXT NOT NULL,
	payload     TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contract_lines_contract
	ON contract_lines(contract_id);

CREATE TABLE IF NOT EXISTS catalog_services (
	service_id     TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	billing_method TEXT NOT NULL,
	default_rate   INTEGER NOT NULL,
	unit           TEXT NOT NULL DEFAULT '',
	active         INTEGER NOT NULL DEFAULT 1,
	position       INTEGER NOT NULL
);
`
