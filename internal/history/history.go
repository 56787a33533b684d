// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history keeps received samples in a SQLite database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/pressure_computer/internal/env"
)

const schema = `CREATE TABLE IF NOT EXISTS samples (
	id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	time_ns INTEGER NOT NULL,
	temp_c REAL NOT NULL,
	pressure_mbar REAL NOT NULL,
	d2 INTEGER NOT NULL,
	d1 INTEGER NOT NULL
)`

// Store is a sample log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// One connection, so ":memory:" is a single database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert appends s.
func (s *Store) Insert(sample env.Sample) error {
	_, err := s.db.Exec(
		"INSERT INTO samples (source, time_ns, temp_c, pressure_mbar, d2, d1) VALUES (?, ?, ?, ?, ?, ?)",
		sample.Source, sample.Time.UnixNano(), sample.Temperature, sample.PressureMbar,
		int64(sample.RawTemperature), int64(sample.RawPressure),
	)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Latest returns up to n samples, newest first.
func (s *Store) Latest(n int) ([]env.Sample, error) {
	rows, err := s.db.Query(
		"SELECT source, time_ns, temp_c, pressure_mbar, d2, d1 FROM samples ORDER BY id DESC LIMIT ?", n)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []env.Sample
	for rows.Next() {
		var (
			sample env.Sample
			ns     int64
			d2, d1 int64
		)
		if err := rows.Scan(&sample.Source, &ns, &sample.Temperature, &sample.PressureMbar, &d2, &d1); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		sample.Time = time.Unix(0, ns)
		sample.Pressure = sample.PressureMbar * 100
		sample.RawTemperature = uint32(d2)
		sample.RawPressure = uint32(d1)
		out = append(out, sample)
	}
	return out, rows.Err()
}

// Count returns the number of stored samples.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
