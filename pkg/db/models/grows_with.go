package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// GrowsWithLink records a "grows well with" reference. Neither side owns the other.
type GrowsWithLink struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubjectType enums.CatalogNodeKind `gorm:"column:subject_type;not null"`
	SubjectID   uuid.UUID             `gorm:"column:subject_id;type:uuid;not null"`
	TargetType  enums.CatalogNodeKind `gorm:"column:target_type;not null"`
	TargetID    uuid.UUID             `gorm:"column:target_id;type:uuid;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
