package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
)

// ErrDataUnavailable is returned when the dataset holds no measurements, so no
// aggregate window can be derived.
var ErrDataUnavailable = errors.New("climate data unavailable")

// aggregateWindowDays is the length of the trailing window ending at the
// latest measurement date.
const aggregateWindowDays = 365

type Service struct {
	repository    repository.ClimateRepository
	tobsStationID string
}

// NewService builds the query service. An empty tobsStationID makes
// TemperatureObservations pick the station with the most measurements.
func NewService(repository repository.ClimateRepository, tobsStationID string) *Service {
	return &Service{repository: repository, tobsStationID: tobsStationID}
}

// AggregateWindowStart returns the first date of the window ending at latest.
func AggregateWindowStart(latest time.Time) time.Time {
	return latest.AddDate(0, 0, -aggregateWindowDays)
}

func (s *Service) windowStart(ctx context.Context) (time.Time, error) {
	latest, err := s.repository.GetLatestMeasurementDate(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return time.Time{}, ErrDataUnavailable
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest measurement date: %w", err)
	}
	return AggregateWindowStart(latest), nil
}

// Precipitation maps each date in the aggregate window to its precipitation.
// When several rows share a date the one read last wins.
func (s *Service) Precipitation(ctx context.Context) (map[string]*float64, error) {
	from, err := s.windowStart(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := s.repository.GetPrecipitationSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("precipitation since %s: %w", types.FormatDate(from), err)
	}
	out := make(map[string]*float64, len(readings))
	for _, r := range readings {
		out[r.Date] = r.Value
	}
	return out, nil
}

func (s *Service) Stations(ctx context.Context) ([]types.Station, error) {
	stations, err := s.repository.GetStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}
	if stations == nil {
		stations = []types.Station{}
	}
	return stations, nil
}

// TemperatureObservations lists the reference station's observations within
// the aggregate window.
func (s *Service) TemperatureObservations(ctx context.Context) ([]types.TemperatureObservation, error) {
	from, err := s.windowStart(ctx)
	if err != nil {
		return nil, err
	}
	stationID, err := s.referenceStation(ctx)
	if err != nil {
		return nil, err
	}
	obs, err := s.repository.GetTemperatureObservations(ctx, stationID, from)
	if err != nil {
		return nil, fmt.Errorf("temperature observations for %s: %w", stationID, err)
	}
	if obs == nil {
		obs = []types.TemperatureObservation{}
	}
	return obs, nil
}

func (s *Service) referenceStation(ctx context.Context) (string, error) {
	if s.tobsStationID != "" {
		return s.tobsStationID, nil
	}
	id, err := s.repository.GetMostActiveStation(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return "", ErrDataUnavailable
	}
	if err != nil {
		return "", fmt.Errorf("most active station: %w", err)
	}
	return id, nil
}

// TemperatureStats returns min/avg/max tobs for date >= start and, when end
// is set, date <= end. An empty range is not an error.
func (s *Service) TemperatureStats(ctx context.Context, start time.Time, end *time.Time) (types.TemperatureStats, error) {
	stats, err := s.repository.GetTemperatureStats(ctx, start, end)
	if err != nil {
		return types.TemperatureStats{}, fmt.Errorf("temperature stats: %w", err)
	}
	return stats, nil
}
