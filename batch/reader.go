// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch resolves files of cells through one engine and reports
// how far the estimates land from known positions.
package batch

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
)

// Record is one input row.
type Record struct {
	Line  int
	Cell  locator.Cell
	Truth *spatial.Point // WGS84 ground truth, when the file has one
}

// Accepted column names, canonical name first.
var columnAliases = map[string][]string{
	"mcc":    {"mcc"},
	"mnc":    {"mnc", "net"},
	"lac":    {"lac", "tac", "area"},
	"cid":    {"cid", "cellid", "cell_id", "ci", "cell"},
	"signal": {"signal", "rssi", "dbm", "averagesignal"},
	"radio":  {"radio", "rat"},
	"lat":    {"lat", "latitude"},
	"lng":    {"lng", "lon", "longitude"},
}

var requiredColumns = []string{"mcc", "mnc", "lac", "cid"}

var readers = map[string]string{
	".csv":     "read_csv_auto",
	".tsv":     "read_csv_auto",
	".txt":     "read_csv_auto",
	".parquet": "read_parquet",
	".json":    "read_json_auto",
	".jsonl":   "read_json_auto",
	".ndjson":  "read_json_auto",
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// source returns the DuckDB table function reading path.
func source(path string) (string, error) {
	fn, ok := readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported cell file %q: want csv, parquet or json", path)
	}

	return fmt.Sprintf("%s(%s)", fn, quote(path)), nil
}

// resolveColumns maps canonical names to the file's actual column names.
func resolveColumns(columns []string) (map[string]string, error) {
	byLower := make(map[string]string, len(columns))
	for _, c := range columns {
		byLower[strings.ToLower(strings.TrimSpace(c))] = c
	}

	found := make(map[string]string)

	for canonical, aliases := range columnAliases {
		for _, alias := range aliases {
			if actual, ok := byLower[alias]; ok {
				found[canonical] = actual

				break
			}
		}
	}

	var missing []string

	for _, c := range requiredColumns {
		if _, ok := found[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s) %s in %v", strings.Join(missing, ", "), columns)
	}

	return found, nil
}

func column(found map[string]string, name, sqlType string) string {
	actual, ok := found[name]
	if !ok {
		return "NULL::" + sqlType
	}

	return fmt.Sprintf("TRY_CAST(%s AS %s)", quoteIdent(actual), sqlType)
}

// ReadCells loads the cells in a CSV, Parquet or JSON file. Rows keep the
// file order; a row with unusable identifiers is still returned so the
// engine can report it.
func ReadCells(ctx context.Context, db *sql.DB, path string) ([]Record, error) {
	src, err := source(path)
	if err != nil {
		return nil, err
	}

	head, err := db.QueryContext(ctx, "SELECT * FROM "+src+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	columns, err := head.Columns()
	head.Close()

	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", path, err)
	}

	found, err := resolveColumns(columns)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s, %s, %s FROM %s`,
		column(found, "mcc", "BIGINT"),
		column(found, "mnc", "BIGINT"),
		column(found, "lac", "BIGINT"),
		column(found, "cid", "BIGINT"),
		column(found, "signal", "BIGINT"),
		column(found, "radio", "VARCHAR"),
		column(found, "lat", "DOUBLE"),
		column(found, "lng", "DOUBLE"),
		src,
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", path, err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			mcc, mnc, lac, cid, signal sql.NullInt64
			radio                      sql.NullString
			lat, lng                   sql.NullFloat64
		)

		if err := rows.Scan(&mcc, &mnc, &lac, &cid, &signal, &radio, &lat, &lng); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", path, err)
		}

		rec := Record{
			Line: len(records) + 1,
			Cell: locator.Cell{
				MCC:   int(mcc.Int64),
				MNC:   int(mnc.Int64),
				LAC:   int(lac.Int64),
				CID:   int(cid.Int64),
				Radio: strings.ToLower(strings.TrimSpace(radio.String)),
			},
		}

		if signal.Valid {
			s := int(signal.Int64)
			rec.Cell.Signal = &s
		}

		if lat.Valid && lng.Valid {
			p := spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
			if p.Valid() {
				rec.Truth = &p
			}
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return records, nil
}

var exportFormats = map[string]string{
	".parquet": "FORMAT parquet",
	".csv":     "FORMAT csv, HEADER",
	".json":    "FORMAT json",
	".jsonl":   "FORMAT json",
	".ndjson":  "FORMAT json",
}

// Export writes results to a CSV, Parquet or JSON file.
func Export(ctx context.Context, db *sql.DB, results []Result, path string) error {
	format, ok := exportFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return fmt.Errorf("unsupported export file %q: want csv, parquet or json", path)
	}

	// Temporary tables live on one connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `
CREATE OR REPLACE TEMP TABLE batch_results (
	line INTEGER,
	cell VARCHAR,
	latitude DOUBLE,
	longitude DOUBLE,
	accuracy DOUBLE,
	h3 VARCHAR,
	error_m DOUBLE,
	kind VARCHAR,
	error VARCHAR
)`); err != nil {
		return fmt.Errorf("creating results table: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS batch_results")
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO batch_results VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var lat, lng, acc sql.NullFloat64
		if r.Location != nil {
			lat = sql.NullFloat64{Float64: r.Location.Latitude, Valid: true}
			lng = sql.NullFloat64{Float64: r.Location.Longitude, Valid: true}
			acc = sql.NullFloat64{Float64: r.Location.Accuracy, Valid: true}
		}

		var errorM sql.NullFloat64
		if r.ErrorMeters != nil {
			errorM = sql.NullFloat64{Float64: *r.ErrorMeters, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, r.Line, r.Cell, lat, lng, acc,
			sql.NullString{String: r.H3, Valid: r.H3 != ""},
			errorM,
			sql.NullString{String: r.Kind, Valid: r.Kind != ""},
			sql.NullString{String: r.Error, Valid: r.Error != ""},
		); err != nil {
			return fmt.Errorf("inserting line %d: %w", r.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("COPY (SELECT * FROM batch_results ORDER BY line) TO %s (%s)", quote(path), format)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
