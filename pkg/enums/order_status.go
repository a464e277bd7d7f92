package enums

import "fmt"

// OrderStatus tracks an order from open cart through fulfilment.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "new"
	OrderStatusPendingPayment  OrderStatus = "pending_payment"
	OrderStatusPaymentRejected OrderStatus = "payment_rejected"
	OrderStatusPaid            OrderStatus = "paid"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusPendingPayment,
	OrderStatusPaymentRejected,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusRefunded,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:             {OrderStatusPendingPayment, OrderStatusCancelled},
	OrderStatusPendingPayment:  {OrderStatusPaid, OrderStatusPaymentRejected, OrderStatusCancelled},
	OrderStatusPaymentRejected: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:            {OrderStatusShipped, OrderStatusRefunded},
	OrderStatusShipped:         {OrderStatusRefunded},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether lines may still be edited.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusNew
}

// IsTerminal reports whether no further transitions exist.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether next is a legal forward move from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
