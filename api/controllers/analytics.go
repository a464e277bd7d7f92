package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/greenrow/seedshop-backend/api/responses"
	"github.com/greenrow/seedshop-backend/internal/analytics"
	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// AdminSalesAnalytics serves the sales dashboard. The window is either
// from/to RFC3339 timestamps or a preset (7d, 30d, 90d; default 30d).
func AdminSalesAnalytics(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "sales analytics not configured"))
			return
		}

		start, end, err := resolveSalesRange(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Sales(ctx, types.SalesQueryRequest{Start: start, End: end})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func resolveSalesRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
		}
		end, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
		}
		start, end = start.UTC(), end.UTC()
		if !end.After(start) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
		}
		return start, end, nil
	}

	days, ok := presetDays(strings.TrimSpace(query.Get("preset")))
	if !ok {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset").
			WithDetails(map[string]any{"allowed": []string{"7d", "30d", "90d"}})
	}
	return now.AddDate(0, 0, -days), now, nil
}

func presetDays(value string) (int, bool) {
	switch strings.ToLower(value) {
	case "7d":
		return 7, true
	case "", "30d":
		return 30, true
	case "90d":
		return 90, true
	default:
		return 0, false
	}
}
