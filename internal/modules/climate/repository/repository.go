package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-latest-measurement-date.sql
var getLatestMeasurementDateSQL string

//go:embed sql/get-precipitation-since.sql
var getPrecipitationSinceSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-temperature-observations.sql
var getTemperatureObservationsSQL string

//go:embed sql/get-temperature-stats-since.sql
var getTemperatureStatsSinceSQL string

//go:embed sql/get-temperature-stats-between.sql
var getTemperatureStatsBetweenSQL string

// ErrNoMeasurements is returned when the measurement table has no rows.
var ErrNoMeasurements = errors.New("no measurements")

type ClimateRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	GetLatestMeasurementDate(ctx context.Context) (time.Time, error)
	GetPrecipitationSince(ctx context.Context, from time.Time) ([]types.PrecipitationReading, error)
	GetMostActiveStation(ctx context.Context) (string, error)
	GetTemperatureObservations(ctx context.Context, stationID string, from time.Time) ([]types.TemperatureObservation, error)
	// GetTemperatureStats aggregates tobs over date >= start and, when end is
	// non-nil, date <= end.
	GetTemperatureStats(ctx context.Context, start time.Time, end *time.Time) (types.TemperatureStats, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "stations")

	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestMeasurementDate(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, getLatestMeasurementDateSQL).Scan(&latest); err != nil {
		return time.Time{}, err
	}
	if !latest.Valid {
		return time.Time{}, ErrNoMeasurements
	}
	t, err := types.ParseDate("latest", latest.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored measurement date: %w", err)
	}
	return t, nil
}

func (r *repositoryImpl) GetPrecipitationSince(ctx context.Context, from time.Time) ([]types.PrecipitationReading, error) {
	rows, err := r.db.QueryContext(ctx, getPrecipitationSinceSQL, types.FormatDate(from))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "precipitation")

	out := []types.PrecipitationReading{}
	for rows.Next() {
		var (
			rec  types.PrecipitationReading
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&rec.Date, &prcp); err != nil {
			return nil, err
		}
		rec.Value = nullFloat(prcp)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetMostActiveStation(ctx context.Context) (string, error) {
	var station string
	err := r.db.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMeasurements
	}
	if err != nil {
		return "", err
	}
	return station, nil
}

func (r *repositoryImpl) GetTemperatureObservations(ctx context.Context, stationID string, from time.Time) ([]types.TemperatureObservation, error) {
	rows, err := r.db.QueryContext(ctx, getTemperatureObservationsSQL, stationID, types.FormatDate(from))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, "temperature observations")

	out := []types.TemperatureObservation{}
	for rows.Next() {
		var (
			rec  types.TemperatureObservation
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&rec.Date, &tobs); err != nil {
			return nil, err
		}
		rec.Temperature = nullFloat(tobs)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetTemperatureStats(ctx context.Context, start time.Time, end *time.Time) (types.TemperatureStats, error) {
	var row *sql.Row
	if end == nil {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsSinceSQL, types.FormatDate(start))
	} else {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsBetweenSQL, types.FormatDate(start), types.FormatDate(*end))
	}

	var tmin, tavg, tmax sql.NullFloat64
	if err := row.Scan(&tmin, &tavg, &tmax); err != nil {
		return types.TemperatureStats{}, err
	}
	return types.TemperatureStats{
		TMin: nullFloat(tmin),
		TAvg: nullFloat(tavg),
		TMax: nullFloat(tmax),
	}, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close "+what+" rows", "error", err)
	}
}
