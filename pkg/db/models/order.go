package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

// Order is the aggregate root of the pharmacy order lifecycle. Line items
// snapshot the catalog price at creation time; the snapshot is never
// recomputed when catalog prices move later.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber       int64                `gorm:"column:order_number;uniqueIndex;default:null" json:"order_number"`
	BuyerID           uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	DeliveryStatus    enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'pending'" json:"delivery_status"`
	PaymentStatus     enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'" json:"payment_status"`
	PaymentMethod     enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null" json:"payment_method"`
	GatewayOrderRef   *string              `gorm:"column:gateway_order_ref;uniqueIndex" json:"gateway_order_ref,omitempty"`
	GatewayPaymentRef *string              `gorm:"column:gateway_payment_ref" json:"gateway_payment_ref,omitempty"`
	DeliveryAddress   types.Address        `gorm:"column:delivery_address;type:jsonb;serializer:json" json:"delivery_address"`
	TotalPaise        int64                `gorm:"column:total_paise;not null" json:"total_paise"`
	EstimatedDelivery time.Time            `gorm:"column:estimated_delivery;not null" json:"estimated_delivery"`
	TrackingNumber    *string              `gorm:"column:tracking_number" json:"tracking_number,omitempty"`
	CancelReason      *string              `gorm:"column:cancel_reason" json:"cancel_reason,omitempty"`
	Version           int64                `gorm:"column:version;not null;default:1" json:"-"`
	DeliveredAt       *time.Time           `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	Items             []OrderLineItem      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Subtotal returns the sum of line item totals in paise.
func (o Order) Subtotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.TotalPaise
	}
	return sum
}

// ContainsSeller reports whether at least one line item belongs to sellerID.
func (o Order) ContainsSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
