package types

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in storage and in URLs.
const DateLayout = "2006-01-02"

type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StationDetail is a full station row including optional location metadata.
type StationDetail struct {
	Station
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Elevation *float64 `json:"elevation,omitempty"`
}

type Measurement struct {
	StationID              string   `json:"station"`
	Date                   string   `json:"date"`
	Precipitation          *float64 `json:"prcp"`
	TemperatureObservation *float64 `json:"tobs"`
}

type PrecipitationReading struct {
	Date  string
	Value *float64
}

type TemperatureObservation struct {
	Date        string   `json:"date"`
	Temperature *float64 `json:"temperature"`
}

// TemperatureStats holds min/avg/max of tobs over a date range. Every field is
// nil when no rows matched.
type TemperatureStats struct {
	TMin *float64 `json:"tmin"`
	TAvg *float64 `json:"tavg"`
	TMax *float64 `json:"tmax"`
}

// DateParseError reports a path or input value that is not a YYYY-MM-DD date.
type DateParseError struct {
	Param string
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid '%s' date %q (expected YYYY-MM-DD)", e.Param, e.Value)
}

// ParseDate parses s as a YYYY-MM-DD calendar date in UTC. param names the
// input in the returned *DateParseError.
func ParseDate(param, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &DateParseError{Param: param, Value: s}
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
