package climate

import (
	"database/sql"
	"net/http"

	"surfsup-server/internal/config"
	"surfsup-server/internal/modules/climate/controller"
	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/service"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB, cfg config.Config) {
	climateRepository := repository.NewRepository(db)
	climateService := service.NewService(climateRepository, cfg.TobsStationID)
	climateController := controller.NewClimateController(climateService)
	climateController.RegisterRoutes(mux)
}
