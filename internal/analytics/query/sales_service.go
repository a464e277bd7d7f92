package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/bigquery"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

const (
	ordersPlacedSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(DISTINCT order_id) AS value
FROM %s
WHERE event_type = 'order_placed'
  AND occurred_at >= @start AND occurred_at < @end
GROUP BY day
ORDER BY day ASC
`

	paidRevenueSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  SUM(COALESCE(amount_cents, 0)) AS value
FROM %s
WHERE event_type = 'order_paid'
  AND occurred_at >= @start AND occurred_at < @end
GROUP BY day
ORDER BY day ASC
`

	refundedOrdersSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(DISTINCT order_id) AS value
FROM %s
WHERE event_type = 'order_status_changed'
  AND status_to = 'refunded'
  AND occurred_at >= @start AND occurred_at < @end
GROUP BY day
ORDER BY day ASC
`

	processorMixSQL = `
SELECT processor AS label, SUM(COALESCE(amount_cents, 0)) AS value
FROM %s
WHERE event_type = 'order_paid'
  AND processor IS NOT NULL
  AND occurred_at >= @start AND occurred_at < @end
GROUP BY processor
ORDER BY value DESC
`

	rejectionReasonsSQL = `
SELECT COALESCE(reason, 'unknown') AS label, COUNT(*) AS value
FROM %s
WHERE event_type = 'payment_rejected'
  AND occurred_at >= @start AND occurred_at < @end
GROUP BY label
ORDER BY value DESC
LIMIT 5
`

	aovSQL = `
SELECT SAFE_DIVIDE(SUM(COALESCE(amount_cents, 0)), NULLIF(COUNT(DISTINCT order_id), 0)) AS value
FROM %s
WHERE event_type = 'order_paid'
  AND occurred_at >= @start AND occurred_at < @end
`

	rejectionCountSQL = `
SELECT COUNT(*) AS value
FROM %s
WHERE event_type = 'payment_rejected'
  AND occurred_at >= @start AND occurred_at < @end
`
)

// rowSource runs a parameterized query. *bigquery.Client satisfies it.
type rowSource interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

// SalesService provides dashboard data from the sales_events table.
type SalesService interface {
	Query(ctx context.Context, req types.SalesQueryRequest) (*types.SalesQueryResponse, error)
}

type salesService struct {
	client    rowSource
	tableRef  string
	maxWindow time.Duration
}

// NewSalesService builds a service backed by BigQuery. maxWindow caps the
// queried range; zero disables the cap.
func NewSalesService(client *bigquery.Client, maxWindow time.Duration) (SalesService, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	ref := client.SalesTableRef()
	if strings.TrimSpace(client.SalesTable()) == "" {
		return nil, errors.New("sales table is required")
	}
	return &salesService{client: client, tableRef: ref, maxWindow: maxWindow}, nil
}

func (s *salesService) Query(ctx context.Context, req types.SalesQueryRequest) (*types.SalesQueryResponse, error) {
	if err := ValidateRequest(req, s.maxWindow); err != nil {
		return nil, err
	}
	params := baseParams(req)

	placed, err := s.querySeries(ctx, fmt.Sprintf(ordersPlacedSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	revenue, err := s.querySeries(ctx, fmt.Sprintf(paidRevenueSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	refunded, err := s.querySeries(ctx, fmt.Sprintf(refundedOrdersSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	mix, err := s.queryLabels(ctx, fmt.Sprintf(processorMixSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	reasons, err := s.queryLabels(ctx, fmt.Sprintf(rejectionReasonsSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	aov, err := s.queryAOV(ctx, fmt.Sprintf(aovSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}
	rejections, err := s.queryCount(ctx, fmt.Sprintf(rejectionCountSQL, s.tableRef), params)
	if err != nil {
		return nil, err
	}

	return &types.SalesQueryResponse{
		OrdersPlaced:      placed,
		PaidRevenue:       revenue,
		RefundedOrders:    refunded,
		ProcessorMix:      mix,
		RejectionReasons:  reasons,
		AOV:               aov,
		PaymentRejections: rejections,
	}, nil
}

// ValidateRequest checks the window before any query is issued.
func ValidateRequest(req types.SalesQueryRequest, maxWindow time.Duration) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if !req.End.After(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	if maxWindow > 0 && req.End.Sub(req.Start) > maxWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "window too large").
			WithDetails(map[string]any{"max_hours": int64(maxWindow / time.Hour)})
	}
	return nil
}

func baseParams(req types.SalesQueryRequest) []cloudbigquery.QueryParameter {
	return []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start.UTC()},
		{Name: "end", Value: req.End.UTC()},
	}
}

func (s *salesService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query series")
	}

	points := []types.TimeSeriesPoint{}
	for {
		var row struct {
			Day   string `bigquery:"day"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading series row")
		}
		points = append(points, types.TimeSeriesPoint{Date: row.Day, Value: row.Value})
	}
	return points, nil
}

func (s *salesService) queryLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query labels")
	}

	result := []types.LabelValue{}
	for {
		var row struct {
			Label string `bigquery:"label"`
			Value int64  `bigquery:"value"`
		}
		if err := iter.Next(&row); err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading label row")
		}
		result = append(result, types.LabelValue{Label: row.Label, Value: row.Value})
	}
	return result, nil
}

func (s *salesService) queryAOV(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (float64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query aov")
	}
	var row struct {
		Value cloudbigquery.NullFloat64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading aov row")
	}
	if !row.Value.Valid {
		return 0, nil
	}
	return row.Value.Float64, nil
}

func (s *salesService) queryCount(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (int64, error) {
	iter, err := s.client.Query(ctx, sql, params)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query count")
	}
	var row struct {
		Value int64 `bigquery:"value"`
	}
	if err := iter.Next(&row); err != nil {
		if errors.Is(err, iterator.Done) {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading count row")
	}
	return row.Value, nil
}
