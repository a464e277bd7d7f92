package helpers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

func quoteFixture(state string) (*models.Order, map[uuid.UUID]models.Cultivar) {
	taxable, exempt := uuid.New(), uuid.New()
	order := &models.Order{
		Lines: []models.OrderLine{
			{CultivarID: taxable, Quantity: 2, UnitPriceCents: 500},
			{CultivarID: exempt, Quantity: 1, UnitPriceCents: 300},
		},
		ShippingAddress: &types.Address{Country: "US", State: state},
	}
	cultivars := map[uuid.UUID]models.Cultivar{
		taxable: {ID: taxable, Taxable: true},
		exempt:  {ID: exempt, Taxable: false},
	}
	return order, cultivars
}

func TestComputeQuoteTaxesTaxableLinesInTaxedStates(t *testing.T) {
	cfg := config.CheckoutConfig{ShippingFlatCents: 495, TaxRate: "0.102", TaxedStates: []string{"US-OR"}}

	order, cultivars := quoteFixture("or")
	q := ComputeQuote(order, cultivars, cfg)
	assert.Equal(t, int64(1300), q.SubtotalCents)
	assert.Equal(t, int64(1000), q.TaxableCents)
	assert.Equal(t, int64(495), q.ShippingCents)
	assert.Equal(t, int64(102), q.TaxCents)
	assert.Equal(t, int64(1300+495+102), q.TotalCents())

	order, cultivars = quoteFixture("WA")
	q = ComputeQuote(order, cultivars, cfg)
	assert.Zero(t, q.TaxCents)
}

func TestComputeQuoteFreeShippingThreshold(t *testing.T) {
	order, cultivars := quoteFixture("WA")
	q := ComputeQuote(order, cultivars, config.CheckoutConfig{ShippingFlatCents: 495, FreeShippingThresholdCents: 1300, TaxRate: "0"})
	assert.Zero(t, q.ShippingCents)

	q = ComputeQuote(order, cultivars, config.CheckoutConfig{ShippingFlatCents: 495, FreeShippingThresholdCents: 1301, TaxRate: "0"})
	assert.Equal(t, int64(495), q.ShippingCents)
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Grower@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "grower@example.com", email)

	for _, bad := range []string{"", "not-an-email", "Name <a@b.co>"} {
		_, err := NormalizeEmail(bad)
		require.Error(t, err, bad)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	}
}

func TestValidateShippingAddress(t *testing.T) {
	addr, err := ValidateShippingAddress(&types.Address{Name: "A", Line1: "1 Main", City: "Bend", State: "or ", PostalCode: "97701", Country: "us"})
	require.NoError(t, err)
	assert.Equal(t, "US", addr.Country)
	assert.Equal(t, "OR", addr.State)

	_, err = ValidateShippingAddress(nil)
	require.Error(t, err)

	_, err = ValidateShippingAddress(&types.Address{Name: "A", Country: "USA"})
	require.Error(t, err)
	details := pkgerrors.As(err).Details().(map[string]any)
	assert.ElementsMatch(t, []string{"line1", "city", "postal_code", "country"}, details["fields"])
}
