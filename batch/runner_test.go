// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

// tableAdapter answers from a fixed table keyed by cell.
type tableAdapter struct {
	known    map[string]locator.Location
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (a *tableAdapter) Name() string { return "table" }

func (a *tableAdapter) Resolve(ctx context.Context, cell locator.Cell) (locator.Location, error) {
	n := a.inFlight.Add(1)
	defer a.inFlight.Add(-1)

	for {
		peak := a.peak.Load()
		if n <= peak || a.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(5 * time.Millisecond)

	if err := cell.Validate(); err != nil {
		return locator.Location{}, locator.Wrap(locator.KindMalformedRequest, "table", err, "invalid cell")
	}

	loc, ok := a.known[cell.String()]
	if !ok {
		return locator.Location{}, locator.Errorf(locator.KindNotFound, "table", "%s", cell)
	}

	return loc, nil
}

var beijing = spatial.Point{Lat: 39.9910225, Lng: 116.4667949}

func testRecords() (*tableAdapter, []Record) {
	adapter := &tableAdapter{known: map[string]locator.Location{
		"460-0-4219-20925":   {Latitude: beijing.Lat, Longitude: beijing.Lng, Accuracy: 500},
		"222-10-10012-39309": {Latitude: 45.641612, Longitude: 8.8117626, Accuracy: 1227},
	}}

	truth := spatial.Point{Lat: 39.9950, Lng: 116.4667949} // ~442 m north

	records := []Record{
		{Line: 1, Cell: locator.Cell{MCC: 460, MNC: 0, LAC: 4219, CID: 20925}, Truth: &truth},
		{Line: 2, Cell: locator.Cell{MCC: 222, MNC: 10, LAC: 10012, CID: 39309}},
		{Line: 3, Cell: locator.Cell{MCC: 240, MNC: 1, LAC: 3012, CID: 11950}},
		{Line: 4, Cell: locator.Cell{MCC: 460, MNC: 0, LAC: 4219}},
	}

	return adapter, records
}

func TestRun(t *testing.T) {
	adapter, records := testRecords()
	engine := locator.NewEngine(adapter, &locator.Options{Timeout: time.Second})

	results, err := Run(context.Background(), engine, records, Options{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, i+1, r.Line)
	}

	first := results[0]
	require.NotNil(t, first.Location)
	assert.Len(t, first.H3, 15)
	require.NotNil(t, first.ErrorMeters)
	assert.InDelta(t, 442, *first.ErrorMeters, 5)

	assert.NotNil(t, results[1].Location)
	assert.Nil(t, results[1].ErrorMeters)

	assert.Nil(t, results[2].Location)
	assert.Equal(t, "not found", results[2].Kind)
	assert.Contains(t, results[2].Error, "240-1-3012-11950")

	assert.Equal(t, "malformed request", results[3].Kind)

	assert.LessOrEqual(t, adapter.peak.Load(), int32(2))
}

func TestRunMeasuresInWGS84(t *testing.T) {
	adapter, records := testRecords()
	engine := locator.NewEngine(adapter, &locator.Options{Timeout: time.Second, System: spatial.GCJ02})

	results, err := Run(context.Background(), engine, records[:1], Options{})
	require.NoError(t, err)

	// The reported location is shifted, the measured error is not.
	assert.Greater(t, results[0].Location.Point().HaversineDistance(&beijing), 100.0)
	assert.InDelta(t, 442, *results[0].ErrorMeters, 5)
}

func TestRunWithoutH3(t *testing.T) {
	adapter, records := testRecords()
	engine := locator.NewEngine(adapter, &locator.Options{Timeout: time.Second})

	results, err := Run(context.Background(), engine, records[:1], Options{H3Resolution: -1})
	require.NoError(t, err)
	assert.Empty(t, results[0].H3)
}

func TestRunRateLimited(t *testing.T) {
	adapter, records := testRecords()
	engine := locator.NewEngine(adapter, &locator.Options{Timeout: time.Second})

	start := time.Now()
	_, err := Run(context.Background(), engine, records, Options{Concurrency: 4, Rate: 20})
	require.NoError(t, err)

	// Burst of one: the fourth request waits three intervals of 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestRunCancelled(t *testing.T) {
	adapter, records := testRecords()
	engine := locator.NewEngine(adapter, &locator.Options{Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, engine, records, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	e := func(f float64) *float64 { return &f }
	loc := &locator.Location{Latitude: 1, Longitude: 1, Accuracy: 300}

	s := Summarize([]Result{
		{Location: loc, ErrorMeters: e(100)},
		{Location: loc, ErrorMeters: e(500)},
		{Location: loc, ErrorMeters: e(200)},
		{Location: loc},
		{Kind: "not found"},
		{Kind: "not found"},
		{Kind: "timeout"},
	})

	assert.Equal(t, 7, s.Total)
	assert.Equal(t, 4, s.Located)
	assert.Equal(t, map[string]int{"not found": 2, "timeout": 1}, s.Failures)
	assert.Equal(t, 3, s.Measured)
	assert.InDelta(t, 266.67, s.MeanError, 0.01)
	assert.InDelta(t, 200, s.MedianError, 0)
	assert.InDelta(t, 500, s.MaxError, 0)
	assert.Equal(t, 2, s.WithinRange)

	empty := Summarize(nil)
	assert.Zero(t, empty.Measured)
	assert.Zero(t, empty.MedianError)
}

func TestSummaryPrint(t *testing.T) {
	s := &Summary{
		Total:       12345,
		Located:     12000,
		Failures:    map[string]int{"timeout": 45, "not found": 300},
		Measured:    1500,
		MeanError:   1234.4,
		MedianError: 800,
		MaxError:    9000,
		WithinRange: 1200,
	}

	var buf bytes.Buffer
	s.Print(&buf, language.English)

	want := "12,345 cells, 12,000 located (97.2%)\n" +
		"  not found            300\n" +
		"  timeout              45\n" +
		"error vs ground truth over 1,500 cells: mean 1,234 m, median 800 m, max 9,000 m, 1,200 within reported accuracy\n"
	assert.Equal(t, want, buf.String())
}
