package cart

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

func packet(cultivarID uuid.UUID, sku string, cents int64) models.Packet {
	units := "seeds"
	return models.Packet{ID: uuid.New(), CultivarID: cultivarID, SKU: sku, PriceCents: cents, Quantity: "100", Units: &units}
}

func stocked(id uuid.UUID, name string) models.Cultivar {
	return models.Cultivar{ID: id, Name: name, Active: true, Visible: true, InStock: true, Taxable: true}
}

func TestSubtotalIgnoresStockAndShipping(t *testing.T) {
	cvA, cvB := uuid.New(), uuid.New()
	order := &models.Order{Status: enums.OrderStatusNew}

	_, err := AddLine(order, packet(cvA, "TOM-100", 500), 2)
	require.NoError(t, err)
	_, err = AddLine(order, packet(cvB, "BEA-50", 300), 1)
	require.NoError(t, err)

	out := stocked(cvB, "Provider")
	out.InStock = false
	summary := Summarize(order, map[uuid.UUID]models.Cultivar{cvA: stocked(cvA, "Brandywine"), cvB: out})

	assert.Equal(t, "13", summary.Subtotal.String())
	require.Len(t, summary.Lines, 2)
	require.NotNil(t, summary.Lines[0].Total)
	assert.Equal(t, "10", summary.Lines[0].Total.String())
	assert.False(t, summary.Lines[1].InStock)
	assert.Nil(t, summary.Lines[1].Total)
	assert.Equal(t, []string{"BEA-50"}, summary.Blocked())
}

func TestNewOrderAmountsArePending(t *testing.T) {
	cv := uuid.New()
	order := &models.Order{Status: enums.OrderStatusNew}
	_, err := AddLine(order, packet(cv, "TOM-100", 500), 1)
	require.NoError(t, err)

	summary := Summarize(order, map[uuid.UUID]models.Cultivar{cv: stocked(cv, "Brandywine")})
	assert.True(t, summary.Shipping.Pending())
	assert.True(t, summary.Tax.Pending())
	assert.True(t, summary.Total.Pending())
	_, ok := summary.Total.Value()
	assert.False(t, ok)

	raw, err := json.Marshal(summary.Total)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"calculated_during_checkout"}`, string(raw))
}

func TestPlacedOrderTotalIncludesShippingAndTax(t *testing.T) {
	cvA, cvB := uuid.New(), uuid.New()
	order := &models.Order{Status: enums.OrderStatusNew}
	_, err := AddLine(order, packet(cvA, "TOM-100", 500), 2)
	require.NoError(t, err)
	_, err = AddLine(order, packet(cvB, "BEA-50", 300), 1)
	require.NoError(t, err)

	shipping, tax := int64(495), int64(102)
	order.Status = enums.OrderStatusPendingPayment
	order.ShippingCents = &shipping
	order.TaxCents = &tax

	summary := Summarize(order, map[uuid.UUID]models.Cultivar{cvA: stocked(cvA, "A"), cvB: stocked(cvB, "B")})
	cents, ok := summary.Total.Cents()
	require.True(t, ok)
	assert.Equal(t, int64(1300+495+102), cents)

	raw, err := json.Marshal(summary.Shipping)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"final","amount":"4.95"}`, string(raw))

	var decoded Amount
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, summary.Shipping, decoded)
}

func TestAddLineMergesSamePacket(t *testing.T) {
	cv := uuid.New()
	p := packet(cv, "TOM-100", 500)
	order := &models.Order{Status: enums.OrderStatusNew}

	first, err := AddLine(order, p, 1)
	require.NoError(t, err)

	p.PriceCents = 550
	second, err := AddLine(order, p, 2)
	require.NoError(t, err)

	require.Len(t, order.Lines, 1)
	assert.Equal(t, 3, order.Lines[0].Quantity)
	assert.Equal(t, int64(550), order.Lines[0].UnitPriceCents)
	assert.Equal(t, "100 seeds", order.Lines[0].Label)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Quantity)
}

func TestQuantityMustBePositive(t *testing.T) {
	cv := uuid.New()
	p := packet(cv, "TOM-100", 500)
	order := &models.Order{Status: enums.OrderStatusNew}

	_, err := AddLine(order, p, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = AddLine(order, p, 1)
	require.NoError(t, err)
	err = SetQuantity(order, p.ID, -1)
	require.Error(t, err)
	assert.Equal(t, 1, order.Lines[0].Quantity)
}

func TestMutationsRequireNewOrder(t *testing.T) {
	cv := uuid.New()
	p := packet(cv, "TOM-100", 500)
	order := &models.Order{Status: enums.OrderStatusNew}
	_, err := AddLine(order, p, 1)
	require.NoError(t, err)

	order.Status = enums.OrderStatusPendingPayment
	_, err = AddLine(order, p, 1)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	require.Error(t, RemoveLine(order, p.ID))
	require.Error(t, SetQuantity(order, p.ID, 4))
	assert.Equal(t, 1, order.Lines[0].Quantity)
}

func TestRemoveAndSetUnknownLine(t *testing.T) {
	order := &models.Order{Status: enums.OrderStatusNew}
	err := RemoveLine(order, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
	err = SetQuantity(order, uuid.New(), 2)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestNoshipFollowsShippingAddress(t *testing.T) {
	cv := uuid.New()
	order := &models.Order{Status: enums.OrderStatusNew}
	_, err := AddLine(order, packet(cv, "POT-1", 1200), 1)
	require.NoError(t, err)

	restricted := stocked(cv, "Seed Potato")
	restricted.NoshipStates = pq.StringArray{"US-ID"}
	cultivars := map[uuid.UUID]models.Cultivar{cv: restricted}

	summary := Summarize(order, cultivars)
	assert.False(t, summary.Lines[0].Noship)
	require.NotNil(t, summary.Lines[0].Total)

	order.ShippingAddress = &types.Address{Name: "A", Line1: "1 Main", City: "Boise", State: "id", PostalCode: "83702", Country: "us"}
	summary = Summarize(order, cultivars)
	assert.True(t, summary.Lines[0].Noship)
	assert.Nil(t, summary.Lines[0].Total)
	assert.Equal(t, "12", summary.Subtotal.String())
}
