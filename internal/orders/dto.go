package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// OrderListItem is one row of a customer's order history.
type OrderListItem struct {
	ID        uuid.UUID         `json:"id"`
	Status    enums.OrderStatus `json:"status"`
	LineCount int               `json:"line_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	PlacedAt  *time.Time        `json:"placed_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderList is a cursor-paginated page of orders.
type OrderList struct {
	Orders     []OrderListItem `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Viewer identifies who asks for an order. Staff with order privileges see
// every order; everyone else only sees their own.
type Viewer struct {
	CustomerID      *uuid.UUID
	SessionID       string
	CanManageOrders bool
}

// CanSee reports whether the viewer owns the order or manages orders.
func (v Viewer) CanSee(order *models.Order) bool {
	if v.CanManageOrders {
		return true
	}
	if v.CustomerID != nil && order.CustomerID != nil && *v.CustomerID == *order.CustomerID {
		return true
	}
	return v.SessionID != "" && order.SessionID != nil && *order.SessionID == v.SessionID
}

// CultivarIDs returns the distinct cultivars referenced by the order's lines.
func CultivarIDs(order *models.Order) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(order.Lines))
	ids := make([]uuid.UUID, 0, len(order.Lines))
	for _, l := range order.Lines {
		if _, ok := seen[l.CultivarID]; ok {
			continue
		}
		seen[l.CultivarID] = struct{}{}
		ids = append(ids, l.CultivarID)
	}
	return ids
}
