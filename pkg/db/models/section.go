package models

import (
	"time"

	"github.com/google/uuid"
)

// Section is a named, nestable group of cultivars inside a CommonName.
// A nil ParentID places the section directly under the common name.
type Section struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CommonNameID uuid.UUID  `gorm:"column:common_name_id;type:uuid;not null"`
	ParentID     *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name         string     `gorm:"column:name;not null"`
	Slug         string     `gorm:"column:slug;not null"`
	Subtitle     *string    `gorm:"column:subtitle"`
	Description  *string    `gorm:"column:description"`
	Position     int        `gorm:"column:position;not null;default:0"`
	ThumbnailKey *string    `gorm:"column:thumbnail_key"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
