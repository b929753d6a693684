// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

// Package store persists the diagnostics of reconciliation runs in
// PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickbr/gtfsreconcile/diagnostics"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schema = `
CREATE TABLE IF NOT EXISTS reconcile_runs (
	run_id      UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	trips_in    INTEGER NOT NULL,
	trips_out   INTEGER NOT NULL,
	records     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS reconcile_diagnostics (
	run_id         UUID NOT NULL REFERENCES reconcile_runs(run_id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	group_key      TEXT NOT NULL,
	descriptor     TEXT NOT NULL,
	trip           TEXT NOT NULL,
	distance_m     DOUBLE PRECISION,
	calendars      TEXT NOT NULL,
	first_trip     TEXT NOT NULL,
	second_trip    TEXT NOT NULL,
	classification TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

const insertRun = `INSERT INTO reconcile_runs (run_id, started_at, finished_at, trips_in, trips_out, records)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertDiagnostic = `INSERT INTO reconcile_diagnostics
(run_id, seq, kind, group_key, descriptor, trip, distance_m, calendars, first_trip, second_trip, classification)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Run describes a finished reconciliation run
type Run struct {
	Id       uuid.UUID
	Started  time.Time
	Finished time.Time
	TripsIn  int
	TripsOut int
}

// Store writes runs and their diagnostics
type Store struct {
	db *sql.DB
}

// Open opens a pooled connection to dsn via the pgx driver
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the run and diagnostics tables if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveRun stores run and all records of sink in a single transaction
func (s *Store) SaveRun(ctx context.Context, run Run, sink *diagnostics.Sink) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows := sink.Rows()

	if _, err = tx.ExecContext(ctx, insertRun, run.Id, run.Started, run.Finished, run.TripsIn, run.TripsOut, len(rows)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertDiagnostic)
	if err != nil {
		return fmt.Errorf("prepare diagnostics: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, diagnosticArgs(run.Id, i, row)...); err != nil {
			return fmt.Errorf("insert diagnostic %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// diagnosticArgs returns the insert arguments of a single report row, the
// distance is NULL for everything but unconnected fragments
func diagnosticArgs(id uuid.UUID, seq int, row diagnostics.Row) []any {
	r := row.Record

	var dist sql.NullFloat64
	if r.Kind == diagnostics.Unconnected {
		dist = sql.NullFloat64{Float64: r.Distance, Valid: true}
	}

	return []any{
		id,
		seq,
		r.Kind.String(),
		row.Group.Key,
		r.Descriptor,
		r.Trip,
		dist,
		strings.Join(r.Calendars, " "),
		r.First,
		r.Second,
		r.Classification,
	}
}
