package models

import (
	"time"

	"github.com/google/uuid"
)

// Packet is an orderable unit of a cultivar.
type Packet struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CultivarID uuid.UUID `gorm:"column:cultivar_id;type:uuid;not null"`
	SKU        string    `gorm:"column:sku;not null;uniqueIndex"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	Quantity   string    `gorm:"column:quantity;not null"`
	Units      *string   `gorm:"column:units"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Label renders the quantity descriptor shown on order lines, e.g. "100 seeds".
func (p Packet) Label() string {
	if p.Units == nil || *p.Units == "" {
		return p.Quantity
	}
	return p.Quantity + " " + *p.Units
}
