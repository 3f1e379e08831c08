// Package dataset loads the station and measurement CSV files into the
// database. It backs the import command only; the HTTP API never writes.
package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"surfsup-server/internal/modules/climate/types"
)

type Options struct {
	// Truncate empties both tables before loading.
	Truncate bool
}

type Result struct {
	Stations     int
	Measurements int
}

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

// Import reads both CSV streams and inserts every row in one transaction.
// Any malformed row aborts the import and nothing is written.
func Import(ctx context.Context, db *sql.DB, stations, measurements io.Reader, opts Options) (Result, error) {
	stationRows, err := readStations(stations)
	if err != nil {
		return Result{}, fmt.Errorf("stations csv: %w", err)
	}
	measurementRows, err := readMeasurements(measurements)
	if err != nil {
		return Result{}, fmt.Errorf("measurements csv: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if opts.Truncate {
		for _, table := range []string{"measurement", "station"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return Result{}, fmt.Errorf("truncate %s: %w", table, err)
			}
		}
		slog.Info("dataset tables truncated")
	}

	if err := insertStations(ctx, tx, stationRows); err != nil {
		return Result{}, err
	}
	if err := insertMeasurements(ctx, tx, measurementRows); err != nil {
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}

	res := Result{Stations: len(stationRows), Measurements: len(measurementRows)}
	slog.Info("dataset imported", "stations", res.Stations, "measurements", res.Measurements)
	return res, nil
}

func insertStations(ctx context.Context, tx *sql.Tx, rows []types.StationDetail) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range rows {
		if _, err := stmt.ExecContext(ctx, s.ID, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			return fmt.Errorf("insert station %s: %w", s.ID, err)
		}
	}
	return nil
}

func insertMeasurements(ctx context.Context, tx *sql.Tx, rows []types.Measurement) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, m := range rows {
		if _, err := stmt.ExecContext(ctx, m.StationID, m.Date, m.Precipitation, m.TemperatureObservation); err != nil {
			return fmt.Errorf("insert measurement %s %s: %w", m.StationID, m.Date, err)
		}
	}
	return nil
}

func readStations(r io.Reader) ([]types.StationDetail, error) {
	var out []types.StationDetail
	err := readRecords(r, stationColumns, []string{"station"}, func(line int, get func(string) string) error {
		var (
			s   types.StationDetail
			err error
		)
		s.ID = get("station")
		s.Name = get("name")
		if s.Latitude, err = optionalFloat(get("latitude")); err != nil {
			return fmt.Errorf("line %d: latitude: %w", line, err)
		}
		if s.Longitude, err = optionalFloat(get("longitude")); err != nil {
			return fmt.Errorf("line %d: longitude: %w", line, err)
		}
		if s.Elevation, err = optionalFloat(get("elevation")); err != nil {
			return fmt.Errorf("line %d: elevation: %w", line, err)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func readMeasurements(r io.Reader) ([]types.Measurement, error) {
	var out []types.Measurement
	err := readRecords(r, measurementColumns, []string{"station", "date"}, func(line int, get func(string) string) error {
		var (
			m   types.Measurement
			err error
		)
		m.StationID = get("station")
		m.Date = get("date")
		if _, err := types.ParseDate("date", m.Date); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if m.Precipitation, err = optionalFloat(get("prcp")); err != nil {
			return fmt.Errorf("line %d: prcp: %w", line, err)
		}
		if m.TemperatureObservation, err = optionalFloat(get("tobs")); err != nil {
			return fmt.Errorf("line %d: tobs: %w", line, err)
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// readRecords maps the header row onto known columns, then calls fn for each
// data row with a lookup by column name. Columns in required must be present
// in the header and non-empty in every row.
func readRecords(r io.Reader, known, required []string, fn func(line int, get func(string) string) error) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("missing header row")
	}
	if err != nil {
		return err
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, k := range known {
			if name == k {
				index[name] = i
			}
		}
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("header is missing column %q", col)
		}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := cr.FieldPos(0)
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		for _, col := range required {
			if get(col) == "" {
				return fmt.Errorf("line %d: empty %q", line, col)
			}
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}

// optionalFloat parses s, treating an empty cell (or NaN/NULL spellings) as NULL.
// Infinities are rejected: they cannot be encoded as JSON.
func optionalFloat(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("%q is not a finite number", s)
	}
	return &v, nil
}
