package helpers

import (
	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/money"
)

// Quote holds the amounts fixed when an order leaves the cart.
type Quote struct {
	SubtotalCents int64
	TaxableCents  int64
	ShippingCents int64
	TaxCents      int64
}

func (q Quote) TotalCents() int64 {
	return q.SubtotalCents + q.ShippingCents + q.TaxCents
}

// ComputeQuote prices shipping and tax for the order. Shipping is the flat rate
// unless the subtotal reaches the free-shipping threshold. Tax applies to the
// taxable lines only when the shipping region is in the taxed list.
func ComputeQuote(order *models.Order, cultivars map[uuid.UUID]models.Cultivar, cfg config.CheckoutConfig) Quote {
	q := Quote{SubtotalCents: order.SubtotalCents()}
	for _, line := range order.Lines {
		if cv, ok := cultivars[line.CultivarID]; ok && cv.Taxable {
			q.TaxableCents += line.TotalCents()
		}
	}

	q.ShippingCents = cfg.ShippingFlatCents
	if cfg.FreeShippingThresholdCents > 0 && q.SubtotalCents >= cfg.FreeShippingThresholdCents {
		q.ShippingCents = 0
	}

	if order.ShippingAddress != nil && cfg.Taxes(order.ShippingAddress.Region()) {
		q.TaxCents = money.ApplyRate(q.TaxableCents, cfg.TaxRateDecimal())
	}
	return q
}
