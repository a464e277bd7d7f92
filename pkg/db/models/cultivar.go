package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Cultivar is a purchasable variety. A nil SectionID attaches it directly to its common name.
type Cultivar struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CommonNameID    uuid.UUID      `gorm:"column:common_name_id;type:uuid;not null"`
	SectionID       *uuid.UUID     `gorm:"column:section_id;type:uuid"`
	Name            string         `gorm:"column:name;not null"`
	Slug            string         `gorm:"column:slug;not null"`
	Subtitle        *string        `gorm:"column:subtitle"`
	BotanicalName   *string        `gorm:"column:botanical_name"`
	Description     *string        `gorm:"column:description"`
	Position        int            `gorm:"column:position;not null;default:0"`
	Active          bool           `gorm:"column:active;not null"`
	Visible         bool           `gorm:"column:visible;not null"`
	InStock         bool           `gorm:"column:in_stock;not null"`
	Organic         bool           `gorm:"column:organic;not null"`
	Taxable         bool           `gorm:"column:taxable;not null"`
	Featured        bool           `gorm:"column:featured;not null"`
	Favorite        bool           `gorm:"column:favorite;not null"`
	NewFor          *int           `gorm:"column:new_for"`
	OpenPollinated  *bool          `gorm:"column:open_pollinated"`
	MaturationDays  *string        `gorm:"column:maturation_days"`
	NoshipCountries pq.StringArray `gorm:"column:noship_countries;type:text[]"`
	NoshipStates    pq.StringArray `gorm:"column:noship_states;type:text[]"`
	Packets         []Packet       `gorm:"foreignKey:CultivarID"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Public reports whether shoppers without catalog privileges may see the cultivar.
func (c Cultivar) Public() bool {
	return c.Active && c.Visible
}

// ShipsTo reports whether the cultivar may ship to the given ISO country and
// "CC-SS" region. An empty country never matches a restriction.
func (c Cultivar) ShipsTo(country, region string) bool {
	if country != "" {
		for _, blocked := range c.NoshipCountries {
			if strings.EqualFold(blocked, country) {
				return false
			}
		}
	}
	if region != "" {
		for _, blocked := range c.NoshipStates {
			if strings.EqualFold(blocked, region) {
				return false
			}
		}
	}
	return true
}
