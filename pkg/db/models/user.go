package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimart-health/medimart-backend/pkg/enums"
)

// User holds the slice of account data the order surface needs: display
// names for projections and contact points for the side-effect dispatcher.
// Account lifecycle is owned by the identity service.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null" json:"role"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone     string         `gorm:"column:phone" json:"phone"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
