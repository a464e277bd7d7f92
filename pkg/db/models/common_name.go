package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// CommonName groups cultivars of one plant type within an Index.
type CommonName struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	IndexID        uuid.UUID       `gorm:"column:index_id;type:uuid;not null"`
	Name           string          `gorm:"column:name;not null"`
	Slug           string          `gorm:"column:slug;not null"`
	Subtitle       *string         `gorm:"column:subtitle"`
	BotanicalNames *string         `gorm:"column:botanical_names"`
	Sunlight       *enums.Sunlight `gorm:"column:sunlight"`
	Instructions   *string         `gorm:"column:instructions"`
	Description    *string         `gorm:"column:description"`
	Position       int             `gorm:"column:position;not null;default:0"`
	Visible        bool            `gorm:"column:visible;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
