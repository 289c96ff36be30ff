package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

// CreateOrderInput is the validated payload for order creation. An omitted
// payment method defaults to the gateway.
type CreateOrderInput struct {
	Items           []CreateOrderItem   `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress types.Address       `json:"delivery_address" validate:"required"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method,omitempty"`
}

type CreateOrderItem struct {
	MedicineID uuid.UUID `json:"medicine_id" validate:"required"`
	Qty        int       `json:"qty" validate:"required,gt=0"`
}

// VerifyPaymentInput carries the checkout callback fields.
type VerifyPaymentInput struct {
	GatewayOrderRef   string `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentRef string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
}

// UpdateStatusInput is the seller-facing update payload. Every field is
// optional; whichever is supplied gets applied.
type UpdateStatusInput struct {
	Status         *enums.OrderStatus    `json:"status,omitempty"`
	DeliveryStatus *enums.DeliveryStatus `json:"delivery_status,omitempty"`
	TrackingNumber string                `json:"tracking_number,omitempty"`
}

// CancelInput is the buyer-facing cancellation payload.
type CancelInput struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ListFilter narrows admin/seller listings.
type ListFilter struct {
	Status *enums.OrderStatus
}

// OrderSummary is the list-view projection shared by buyer and admin lists.
type OrderSummary struct {
	ID                uuid.UUID            `json:"id"`
	OrderNumber       int64                `json:"order_number"`
	BuyerID           uuid.UUID            `json:"buyer_id"`
	BuyerName         string               `json:"buyer_name,omitempty"`
	Status            enums.OrderStatus    `json:"status"`
	DeliveryStatus    enums.DeliveryStatus `json:"delivery_status"`
	PaymentStatus     enums.PaymentStatus  `json:"payment_status"`
	PaymentMethod     enums.PaymentMethod  `json:"payment_method"`
	TotalPaise        int64                `json:"total_paise"`
	ItemCount         int                  `json:"item_count"`
	EstimatedDelivery time.Time            `json:"estimated_delivery"`
	CreatedAt         time.Time            `json:"created_at"`
}

// SellerOrderView is the seller list projection: the order frame plus only
// the caller's own line items.
type SellerOrderView struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     int64                  `json:"order_number"`
	Status          enums.OrderStatus      `json:"status"`
	DeliveryStatus  enums.DeliveryStatus   `json:"delivery_status"`
	PaymentStatus   enums.PaymentStatus    `json:"payment_status"`
	DeliveryAddress types.Address          `json:"delivery_address"`
	Items           []models.OrderLineItem `json:"items"`
	SellerSubtotal  int64                  `json:"seller_subtotal_paise"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Page wraps a list projection with its continuation cursor.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func summarize(order models.Order, buyerName string) OrderSummary {
	return OrderSummary{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		BuyerID:           order.BuyerID,
		BuyerName:         buyerName,
		Status:            order.Status,
		DeliveryStatus:    order.DeliveryStatus,
		PaymentStatus:     order.PaymentStatus,
		PaymentMethod:     order.PaymentMethod,
		TotalPaise:        order.TotalPaise,
		ItemCount:         len(order.Items),
		EstimatedDelivery: order.EstimatedDelivery,
		CreatedAt:         order.CreatedAt,
	}
}
