package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SalesEventRow mirrors the sales_events BigQuery schema. One row per order event.
type SalesEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       string             `bigquery:"order_id"`
	CustomerID    *string            `bigquery:"customer_id"`
	StatusFrom    *string            `bigquery:"status_from"`
	StatusTo      *string            `bigquery:"status_to"`
	Processor     *string            `bigquery:"processor"`
	LineCount     *int64             `bigquery:"line_count"`
	SubtotalCents *int64             `bigquery:"subtotal_cents"`
	ShippingCents *int64             `bigquery:"shipping_cents"`
	TaxCents      *int64             `bigquery:"tax_cents"`
	TotalCents    *int64             `bigquery:"total_cents"`
	AmountCents   *int64             `bigquery:"amount_cents"`
	Reason        *string            `bigquery:"reason"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
