// Package analytics answers sales dashboard questions from the BigQuery
// sales_events table fed by the analytics worker.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/greenrow/seedshop-backend/internal/analytics/query"
	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/bigquery"
)

// Service provides sales reports.
type Service interface {
	// Sales returns KPIs for orders between req.Start (inclusive) and req.End (exclusive).
	Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesQueryResponse, error)
}

type service struct {
	sales query.SalesService
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, maxWindow time.Duration) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}

	sales, err := query.NewSalesService(client, maxWindow)
	if err != nil {
		return nil, err
	}

	return &service{sales: sales}, nil
}

func (s *service) Sales(ctx context.Context, req types.SalesQueryRequest) (*types.SalesQueryResponse, error) {
	return s.sales.Query(ctx, req)
}
