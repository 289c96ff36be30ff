package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem captures the snapshot of each medicine within an order.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	MedicineID     uuid.UUID `gorm:"column:medicine_id;type:uuid;not null" json:"medicine_id"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null" json:"unit_price_paise"`
	Qty            int       `gorm:"column:qty;not null" json:"qty"`
	TotalPaise     int64     `gorm:"column:total_paise;not null" json:"total_paise"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
