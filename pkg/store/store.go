// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/overlap"
)

var (
	// ErrNotFound is returned when a record or team member does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid marks input rejected by validation.
	ErrInvalid = errors.New("invalid input")
)

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalid, format, args...)
}

const schema = `
CREATE TABLE IF NOT EXISTS crossbeam_records (
	id                    TEXT PRIMARY KEY,
	opportunity_name      TEXT NOT NULL DEFAULT '',
	partner_name          TEXT NOT NULL DEFAULT '',
	partner_size_label    TEXT NOT NULL DEFAULT '',
	ae_name               TEXT NOT NULL DEFAULT '',
	has_opportunity       INTEGER NOT NULL DEFAULT 0,
	opportunity_size      REAL NOT NULL DEFAULT 0,
	relationship_status   REAL NOT NULL DEFAULT 0,
	engagement_score      REAL NOT NULL DEFAULT 0,
	opportunity_stage     REAL NOT NULL DEFAULT 0,
	winnability           REAL NOT NULL DEFAULT 0,
	has_partner           INTEGER NOT NULL DEFAULT 0,
	opportunity_relevance REAL NOT NULL DEFAULT 0,
	relationship_strength REAL NOT NULL DEFAULT 0,
	recent_deal_support   REAL NOT NULL DEFAULT 0,
	stickiness            REAL NOT NULL DEFAULT 0,
	logo_potential        INTEGER NOT NULL DEFAULT 0,
	partner_champion      INTEGER NOT NULL DEFAULT 0,
	updated_at            DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scoring_weights (
	parameter TEXT NOT NULL,
	section   TEXT NOT NULL,
	weight    REAL NOT NULL,
	PRIMARY KEY (parameter, section)
);

CREATE TABLE IF NOT EXISTS internal_team (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	designation TEXT NOT NULL DEFAULT '',
	hierarchy   INTEGER NOT NULL,
	channel_id  TEXT NOT NULL DEFAULT '',
	webhook_url TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	max_message INTEGER NOT NULL DEFAULT 1
);
`

// Store is the SQLite backed persistence layer.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" yields a private in-memory database.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Every connection to ":memory:" is a separate database, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log.Named("store")}
	if err := s.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Infow("Opened database", "path", path)
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to initialize schema")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scoring_weights`).Scan(&n); err != nil {
		return errors.Wrap(err, "failed to count weights")
	}
	if n == 0 {
		if err := s.SetWeights(ctx, overlap.DefaultWeights()); err != nil {
			return errors.Wrap(err, "failed to seed default weights")
		}
		s.log.Infow("Seeded default scoring weights")
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
