package models

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is a sellable catalog entry owned by a pharmacy seller.
type Medicine struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID             uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Name                 string    `gorm:"column:name;not null" json:"name"`
	Category             string    `gorm:"column:category;not null" json:"category"`
	PricePaise           int64     `gorm:"column:price_paise;not null" json:"price_paise"`
	Stock                int       `gorm:"column:stock;not null;default:0" json:"stock"`
	PrescriptionRequired bool      `gorm:"column:prescription_required;not null;default:false" json:"prescription_required"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
