package controller

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"surfsup-server/internal/metrics"
	"surfsup-server/internal/modules/climate/service"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/modules/climate/views"
	"surfsup-server/internal/utils"
)

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	err := utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return views.RenderIndex(out, &indexData)
	})
	if err != nil {
		slog.Error("index template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	precipitation, err := c.service.Precipitation(r.Context())
	if err != nil {
		writeServiceError(w, "precipitation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, precipitation)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations(r.Context())
	if err != nil {
		writeServiceError(w, "stations", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTemperatureObservations(w http.ResponseWriter, r *http.Request) {
	observations, err := c.service.TemperatureObservations(r.Context())
	if err != nil {
		writeServiceError(w, "tobs", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

// handleTemperatureStats serves both the start-only and start/end routes; end
// is absent on the former.
func (c *climateControllerImpl) handleTemperatureStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateParams(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := c.service.TemperatureStats(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, "temperature_stats", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

func (c *climateControllerImpl) handleMalformedDate(w http.ResponseWriter, r *http.Request) {
	err := &types.DateParseError{Param: "start", Value: r.PathValue("rest")}
	utils.WriteError(w, http.StatusBadRequest, err.Error())
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	metrics.QueryErrorsTotal.WithLabelValues(op).Inc()
	if errors.Is(err, service.ErrDataUnavailable) {
		slog.Warn("climate query on empty dataset", "operation", op)
		utils.WriteError(w, http.StatusInternalServerError, "no measurements available")
		return
	}
	slog.Error("climate query failed", "operation", op, "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to query climate data")
}
