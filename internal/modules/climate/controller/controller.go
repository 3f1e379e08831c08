package controller

import (
	"net/http"

	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/modules/climate/views"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	service *service.Service
}

func NewClimateController(service *service.Service) ClimateController {
	return &climateControllerImpl{service: service}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTemperatureObservations)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleTemperatureStats)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleTemperatureStats)
	// Unescaped slashes in a date (2017/01/01) split into extra segments.
	mux.HandleFunc("GET /api/v1.0/{rest...}", c.handleMalformedDate)
}

var indexData = views.IndexData{
	Title: "Surf's Up: Hawaii Climate API",
	Routes: []views.RouteInfo{
		{
			Path:        "/api/v1.0/precipitation",
			Description: "Precipitation by date for the last year of data.",
			Example:     "/api/v1.0/precipitation",
		},
		{
			Path:        "/api/v1.0/stations",
			Description: "Every weather station as id and name.",
			Example:     "/api/v1.0/stations",
		},
		{
			Path:        "/api/v1.0/tobs",
			Description: "Temperature observations of the most active station for the last year of data.",
			Example:     "/api/v1.0/tobs",
		},
		{
			Path:        "/api/v1.0/<start>",
			Description: "Minimum, average and maximum temperature from start onward.",
			Example:     "/api/v1.0/2017-01-01",
		},
		{
			Path:        "/api/v1.0/<start>/<end>",
			Description: "Minimum, average and maximum temperature from start to end, inclusive.",
			Example:     "/api/v1.0/2017-01-01/2017-01-31",
		},
	},
}
