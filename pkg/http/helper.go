package http

import (
	"net/http"
	"strconv"
	"time"

	"fleetops/pkg/config"
	apperrors "fleetops/pkg/errors"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = int64(v)
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	return limit, offset, nil
}

// ExtractDate parses a query parameter holding a calendar day in YYYY-MM-DD
// form. Returns nil when the parameter is absent.
func ExtractDate(r *http.Request, param string) (*time.Time, error) {
	s := r.URL.Query().Get(param)
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + param + " parameter, must be YYYY-MM-DD")
	}
	return &parsed, nil
}
