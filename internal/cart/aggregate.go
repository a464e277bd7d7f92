// Package cart aggregates order lines and computes the cart view.
//
// The functions in this file mutate or read a *models.Order and never touch
// storage. The Service persists the result through the orders repository or a
// SessionStore.
package cart

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/money"
)

// Amount is a shipping, tax or total figure. It is pending while the order is
// still new, and callers cannot read a number out of a pending amount.
type Amount struct {
	cents int64
	final bool
}

// PendingAmount is the "calculated during checkout" placeholder.
func PendingAmount() Amount { return Amount{} }

func FinalAmount(cents int64) Amount { return Amount{cents: cents, final: true} }

func (a Amount) Pending() bool { return !a.final }

// Value returns the decimal amount. ok is false for a pending amount.
func (a Amount) Value() (decimal.Decimal, bool) {
	if !a.final {
		return decimal.Decimal{}, false
	}
	return money.FromCents(a.cents), true
}

// Cents returns the amount in cents. ok is false for a pending amount.
func (a Amount) Cents() (int64, bool) {
	return a.cents, a.final
}

type amountJSON struct {
	State  string  `json:"state"`
	Amount *string `json:"amount,omitempty"`
}

const (
	amountStatePending = "calculated_during_checkout"
	amountStateFinal   = "final"
)

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.final {
		return json.Marshal(amountJSON{State: amountStatePending})
	}
	formatted := money.Format(a.cents)
	return json.Marshal(amountJSON{State: amountStateFinal, Amount: &formatted})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = PendingAmount()
		return nil
	}
	var raw amountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.State != amountStateFinal || raw.Amount == nil {
		*a = PendingAmount()
		return nil
	}
	cents, err := money.Parse(*raw.Amount)
	if err != nil {
		return err
	}
	*a = FinalAmount(cents)
	return nil
}

// LineSummary annotates one order line. Total is nil when the line cannot be
// bought as-is: out of stock or not shippable to the order's address.
type LineSummary struct {
	ID         uuid.UUID        `json:"id"`
	PacketID   uuid.UUID        `json:"packet_id"`
	CultivarID uuid.UUID        `json:"cultivar_id"`
	SKU        string           `json:"sku"`
	Label      string           `json:"label"`
	Name       string           `json:"name"`
	Quantity   int              `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unit_price"`
	InStock    bool             `json:"in_stock"`
	Noship     bool             `json:"noship"`
	Taxable    bool             `json:"taxable"`
	Total      *decimal.Decimal `json:"total"`
}

// Summary is the cart or order view.
type Summary struct {
	OrderID  uuid.UUID         `json:"order_id"`
	Status   enums.OrderStatus `json:"status"`
	Lines    []LineSummary     `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Shipping Amount            `json:"shipping"`
	Tax      Amount            `json:"tax"`
	Total    Amount            `json:"total"`
}

// Blocked returns the SKUs that cannot be bought: out of stock or noship.
func (s Summary) Blocked() []string {
	var skus []string
	for _, l := range s.Lines {
		if !l.InStock || l.Noship {
			skus = append(skus, l.SKU)
		}
	}
	return skus
}

// AddLine adds qty of packet to the order. An existing line for the packet is
// merged and its snapshot refreshed. The returned line carries the added
// quantity, not the merged one.
func AddLine(order *models.Order, packet models.Packet, qty int) (models.OrderLine, error) {
	if err := requireOpen(order); err != nil {
		return models.OrderLine{}, err
	}
	if err := requireQuantity(qty); err != nil {
		return models.OrderLine{}, err
	}
	added := models.OrderLine{
		OrderID:        order.ID,
		PacketID:       packet.ID,
		CultivarID:     packet.CultivarID,
		SKU:            packet.SKU,
		Label:          packet.Label(),
		Quantity:       qty,
		UnitPriceCents: packet.PriceCents,
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.PacketID != packet.ID {
			continue
		}
		line.Quantity += qty
		line.CultivarID = packet.CultivarID
		line.SKU = packet.SKU
		line.Label = packet.Label()
		line.UnitPriceCents = packet.PriceCents
		added.ID = line.ID
		return added, nil
	}
	added.ID = uuid.New()
	order.Lines = append(order.Lines, added)
	return added, nil
}

// RemoveLine drops the line for packetID.
func RemoveLine(order *models.Order, packetID uuid.UUID) error {
	if err := requireOpen(order); err != nil {
		return err
	}
	for i, line := range order.Lines {
		if line.PacketID == packetID {
			order.Lines = append(order.Lines[:i], order.Lines[i+1:]...)
			return nil
		}
	}
	return lineNotFound(packetID)
}

// SetQuantity overwrites the quantity of an existing line.
func SetQuantity(order *models.Order, packetID uuid.UUID, qty int) error {
	if err := requireOpen(order); err != nil {
		return err
	}
	if err := requireQuantity(qty); err != nil {
		return err
	}
	for i := range order.Lines {
		if order.Lines[i].PacketID == packetID {
			order.Lines[i].Quantity = qty
			return nil
		}
	}
	return lineNotFound(packetID)
}

// Summarize annotates every line and computes the totals. cultivars is keyed by
// id; a line whose cultivar is missing is reported out of stock. Shipping, tax
// and total stay pending while the order is new.
func Summarize(order *models.Order, cultivars map[uuid.UUID]models.Cultivar) Summary {
	summary := Summary{
		OrderID:  order.ID,
		Status:   order.Status,
		Lines:    make([]LineSummary, 0, len(order.Lines)),
		Shipping: PendingAmount(),
		Tax:      PendingAmount(),
		Total:    PendingAmount(),
	}

	var country, region string
	if order.ShippingAddress != nil {
		country = order.ShippingAddress.CountryCode()
		region = order.ShippingAddress.Region()
	}

	for _, line := range order.Lines {
		cv, known := cultivars[line.CultivarID]
		ls := LineSummary{
			ID:         line.ID,
			PacketID:   line.PacketID,
			CultivarID: line.CultivarID,
			SKU:        line.SKU,
			Label:      line.Label,
			Name:       cv.Name,
			Quantity:   line.Quantity,
			UnitPrice:  money.FromCents(line.UnitPriceCents),
			InStock:    known && cv.InStock,
			Noship:     known && order.ShippingAddress != nil && !cv.ShipsTo(country, region),
			Taxable:    cv.Taxable,
		}
		if ls.InStock && !ls.Noship {
			total := money.FromCents(line.TotalCents())
			ls.Total = &total
		}
		summary.Lines = append(summary.Lines, ls)
	}

	subtotal := order.SubtotalCents()
	summary.Subtotal = money.FromCents(subtotal)
	if order.Status == enums.OrderStatusNew {
		return summary
	}

	var shipping, tax int64
	if order.ShippingCents != nil {
		shipping = *order.ShippingCents
	}
	if order.TaxCents != nil {
		tax = *order.TaxCents
	}
	summary.Shipping = FinalAmount(shipping)
	summary.Tax = FinalAmount(tax)
	summary.Total = FinalAmount(subtotal + shipping + tax)
	return summary
}

func requireOpen(order *models.Order) error {
	if order.Status != enums.OrderStatusNew {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer editable").
			WithDetails(map[string]any{"status": order.Status.String()})
	}
	return nil
}

func requireQuantity(qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": qty})
	}
	return nil
}

func lineNotFound(packetID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
		WithDetails(map[string]any{"packet_id": packetID.String()})
}
