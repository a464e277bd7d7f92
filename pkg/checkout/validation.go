package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

const (
	ReasonOutOfStock = "out_of_stock"
	ReasonNoship     = "noship"
)

// LineCheck describes the data required to decide whether a line can be bought.
type LineCheck struct {
	PacketID uuid.UUID
	SKU      string
	Name     string
	InStock  bool
	Noship   bool
}

// BlockedLineDetail is returned to callers when a line stops checkout.
type BlockedLineDetail struct {
	PacketID uuid.UUID `json:"packet_id"`
	SKU      string    `json:"sku"`
	Name     string    `json:"name,omitempty"`
	Reason   string    `json:"reason"`
}

// ValidatePurchasable ensures every line is in stock and may ship to the
// order's address. A line that is both out of stock and noship is reported as
// out of stock.
func ValidatePurchasable(lines []LineCheck) error {
	var blocked []BlockedLineDetail
	for _, line := range lines {
		reason := ""
		switch {
		case !line.InStock:
			reason = ReasonOutOfStock
		case line.Noship:
			reason = ReasonNoship
		default:
			continue
		}
		blocked = append(blocked, BlockedLineDetail{
			PacketID: line.PacketID,
			SKU:      line.SKU,
			Name:     line.Name,
			Reason:   reason,
		})
	}
	if len(blocked) == 0 {
		return nil
	}
	skus := make([]string, 0, len(blocked))
	for _, b := range blocked {
		skus = append(skus, b.SKU)
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%d item(s) cannot be purchased", len(blocked))).WithDetails(map[string]any{
		"skus":    skus,
		"blocked": blocked,
	})
}
