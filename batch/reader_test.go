// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func intp(i int) *int {
	return &i
}

func TestReadCellsCSV(t *testing.T) {
	db := setupTestDB(t)
	path := writeFile(t, "cells.csv", `MCC,MNC,LAC,CellID,Signal,Radio,Latitude,Longitude
460,0,4219,20925,-70,GSM,39.9910225,116.4667949
222,10,10012,39309,,,,
262,2,5313,131948771,-90,lte,51.44,7.20
`)

	records, err := ReadCells(context.Background(), db, path)
	require.NoError(t, err)

	want := []Record{
		{
			Line:  1,
			Cell:  locator.Cell{MCC: 460, MNC: 0, LAC: 4219, CID: 20925, Signal: intp(-70), Radio: "gsm"},
			Truth: &spatial.Point{Lat: 39.9910225, Lng: 116.4667949},
		},
		{
			Line: 2,
			Cell: locator.Cell{MCC: 222, MNC: 10, LAC: 10012, CID: 39309},
		},
		{
			Line:  3,
			Cell:  locator.Cell{MCC: 262, MNC: 2, LAC: 5313, CID: 131948771, Signal: intp(-90), Radio: "lte"},
			Truth: &spatial.Point{Lat: 51.44, Lng: 7.20},
		},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("ReadCells() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCellsJSON(t *testing.T) {
	db := setupTestDB(t)
	path := writeFile(t, "cells.jsonl", `{"mcc": 250, "net": 2, "area": 7840, "cell": 200719106, "lat": 60.05, "lon": 30.38}
{"mcc": 240, "net": 1, "area": 3012, "cell": 11950}
`)

	records, err := ReadCells(context.Background(), db, path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, locator.Cell{MCC: 250, MNC: 2, LAC: 7840, CID: 200719106}, records[0].Cell)
	require.NotNil(t, records[0].Truth)
	assert.InDelta(t, 60.05, records[0].Truth.Lat, 1e-9)
	assert.Nil(t, records[1].Truth)
}

func TestReadCellsKeepsBadRows(t *testing.T) {
	db := setupTestDB(t)
	path := writeFile(t, "cells.csv", `mcc,mnc,lac,cid
460,0,4219,20925
460,0,4219,not-a-number
`)

	records, err := ReadCells(context.Background(), db, path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, records[0].Cell.Validate())
	assert.Error(t, records[1].Cell.Validate())
}

func TestReadCellsErrors(t *testing.T) {
	db := setupTestDB(t)

	_, err := ReadCells(context.Background(), db, "cells.xlsx")
	assert.ErrorContains(t, err, "unsupported cell file")

	path := writeFile(t, "cells.csv", "mcc,mnc,lac\n460,0,4219\n")
	_, err = ReadCells(context.Background(), db, path)
	assert.ErrorContains(t, err, "missing column(s) cid")

	_, err = ReadCells(context.Background(), db, filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	db := setupTestDB(t)
	errM := 120.5

	results := []Result{
		{
			Line:        1,
			Cell:        "460-0-4219-20925",
			Location:    &locator.Location{Latitude: 39.99, Longitude: 116.46, Accuracy: 300},
			H3:          "8931aa42a9bffff",
			ErrorMeters: &errM,
		},
		{
			Line:  2,
			Cell:  "222-10-10012-39309",
			Kind:  locator.KindNotFound.String(),
			Error: "google: not found",
		},
	}

	for _, name := range []string{"out.parquet", "out.csv", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Export(context.Background(), db, results, path))

			src, err := source(path)
			require.NoError(t, err)

			var count int
			var located int
			require.NoError(t, db.QueryRow("SELECT count(*), count(latitude) FROM "+src).Scan(&count, &located))
			assert.Equal(t, 2, count)
			assert.Equal(t, 1, located)
		})
	}

	assert.ErrorContains(t, Export(context.Background(), db, results, "out.xlsx"), "unsupported export file")
}
