package types

import "time"

// SalesQueryRequest bounds the sales dashboard window. End is exclusive.
type SalesQueryRequest struct {
	Start time.Time
	End   time.Time
}

// TimeSeriesPoint describes a single date/value pair.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue is a top-N entry such as a processor or a rejection reason.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// SalesQueryResponse wraps the sales KPIs for the admin dashboard.
type SalesQueryResponse struct {
	OrdersPlaced      []TimeSeriesPoint `json:"orders_placed"`
	PaidRevenue       []TimeSeriesPoint `json:"paid_revenue"`
	RefundedOrders    []TimeSeriesPoint `json:"refunded_orders"`
	ProcessorMix      []LabelValue      `json:"processor_mix"`
	RejectionReasons  []LabelValue      `json:"rejection_reasons"`
	AOV               float64           `json:"aov"`
	PaymentRejections int64             `json:"payment_rejections"`
}
