package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine holds one packet in an order. SKU, Label and UnitPriceCents are
// snapshots taken when the line was last written.
type OrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	PacketID       uuid.UUID `gorm:"column:packet_id;type:uuid;not null"`
	CultivarID     uuid.UUID `gorm:"column:cultivar_id;type:uuid;not null"`
	SKU            string    `gorm:"column:sku;not null"`
	Label          string    `gorm:"column:label;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l OrderLine) TotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}
