package repository

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS offices (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	address     TEXT NOT NULL,
	city        TEXT NOT NULL,
	state       TEXT NOT NULL,
	zip_code    TEXT NOT NULL,
	country     TEXT NOT NULL,
	coordinates DOUBLE PRECISION[] NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	images      TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	employees   INTEGER,
	established INTEGER
);

CREATE TABLE IF NOT EXISTS clients (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	address           TEXT NOT NULL,
	city              TEXT NOT NULL,
	state             TEXT NOT NULL,
	zip_code          TEXT NOT NULL,
	country           TEXT NOT NULL,
	coordinates       DOUBLE PRECISION[] NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	images            TEXT[] NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	industry          TEXT NOT NULL DEFAULT '',
	partnership_since INTEGER
);

CREATE TABLE IF NOT EXISTS visits (
	id         TEXT PRIMARY KEY,
	office_id  TEXT NOT NULL REFERENCES offices (id) ON DELETE CASCADE,
	client_id  TEXT NOT NULL REFERENCES clients (id) ON DELETE CASCADE,
	visit_date TIMESTAMPTZ NOT NULL,
	purpose    TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	attendees  TEXT[] NOT NULL DEFAULT '{}',
	images     TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS visits_office_id_idx ON visits (office_id);
CREATE INDEX IF NOT EXISTS visits_client_id_idx ON visits (client_id);
`

// EnsureSchema creates the tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	r.log.DebugContext(ctx, "Database schema is ready")
	return nil
}
