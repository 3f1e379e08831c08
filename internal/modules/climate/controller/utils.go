package controller

import (
	"net/http"
	"time"

	"surfsup-server/internal/modules/climate/types"
)

// parseDateParams reads the {start} and optional {end} path values. end is
// nil when the route has no end segment. A reversed range is not rejected.
func parseDateParams(r *http.Request) (start time.Time, end *time.Time, err error) {
	start, err = types.ParseDate("start", r.PathValue("start"))
	if err != nil {
		return time.Time{}, nil, err
	}
	if s := r.PathValue("end"); s != "" {
		e, err := types.ParseDate("end", s)
		if err != nil {
			return time.Time{}, nil, err
		}
		end = &e
	}
	return start, end, nil
}
