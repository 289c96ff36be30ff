package orders

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medimart-health/medimart-backend/internal/notifications"
	"github.com/medimart-health/medimart-backend/pkg/config"
	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/mailer"
	"github.com/medimart-health/medimart-backend/pkg/metrics"
	"github.com/medimart-health/medimart-backend/pkg/pagination"
	"github.com/medimart-health/medimart-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ordersRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByGatewayOrderRef(ctx context.Context, ref string) (*models.Order, error)
	Update(ctx context.Context, tx *gorm.DB, order *models.Order) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	BuyerNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type stockRepo interface {
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Medicine, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, medicineID uuid.UUID, qty int) error
	RestockItems(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error
}

type gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, receipt string) (*razorpay.Order, error)
	VerifySignature(orderRef, paymentRef, signature string) bool
}

type dispatcher interface {
	OrderCreated(ctx context.Context, event notifications.OrderEvent)
	OrderStatusChanged(ctx context.Context, event notifications.OrderEvent, status enums.OrderStatus, trackingNumber string)
	OrderCancelled(ctx context.Context, event notifications.OrderEvent, reason string)
	PaymentConfirmed(ctx context.Context, event notifications.OrderEvent, paymentRef string)
}

// Service coordinates the order lifecycle: creation with stock reservation
// and price snapshots, payment verification, seller transitions, buyer
// cancellation, and the role-scoped read projections.
type Service struct {
	tx         txRunner
	orders     ordersRepo
	stock      stockRepo
	gateway    gateway
	dispatcher dispatcher
	logger     *logger.Logger
	cfg        config.OrdersConfig
}

type ServiceOptions struct {
	Tx         txRunner
	Orders     ordersRepo
	Stock      stockRepo
	Gateway    gateway
	Dispatcher dispatcher
	Logger     *logger.Logger
	Config     config.OrdersConfig
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Tx == nil {
		return nil, stderrors.New("tx runner is required")
	}
	if opts.Orders == nil {
		return nil, stderrors.New("orders repo is required")
	}
	if opts.Stock == nil {
		return nil, stderrors.New("stock repo is required")
	}
	if opts.Gateway == nil {
		return nil, stderrors.New("gateway is required")
	}
	if opts.Dispatcher == nil {
		return nil, stderrors.New("dispatcher is required")
	}
	if opts.Logger == nil {
		return nil, stderrors.New("logger is required")
	}
	if opts.Config.DeliveryLeadTime <= 0 {
		opts.Config.DeliveryLeadTime = 120 * time.Hour
	}
	return &Service{
		tx:         opts.Tx,
		orders:     opts.Orders,
		stock:      opts.Stock,
		gateway:    opts.Gateway,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		cfg:        opts.Config,
	}, nil
}

// Create places an order: validates items against the catalog, reserves
// stock, snapshots unit prices, and persists order plus line items in one
// transaction. For gateway-backed payment the gateway order is registered
// after commit; a gateway failure keeps the persisted order for retry.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodRazorpay
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.MedicineID)
	}

	order := &models.Order{
		ID:                uuid.New(),
		BuyerID:           buyerID,
		Status:            enums.OrderStatusPending,
		DeliveryStatus:    enums.DeliveryStatusPending,
		PaymentStatus:     enums.PaymentStatusPending,
		PaymentMethod:     input.PaymentMethod,
		DeliveryAddress:   input.DeliveryAddress,
		EstimatedDelivery: time.Now().Add(s.cfg.DeliveryLeadTime),
		Version:           1,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		medicines, err := s.stock.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		var total int64
		items := make([]models.OrderLineItem, 0, len(input.Items))
		for _, item := range input.Items {
			med, ok := medicines[item.MedicineID]
			if !ok {
				return errors.New(errors.CodeNotFound, "medicine not found").
					WithDetails(map[string]any{"medicine_id": item.MedicineID.String()})
			}
			if err := s.stock.DecrementStock(ctx, tx, med.ID, item.Qty); err != nil {
				return err
			}
			lineTotal := med.PricePaise * int64(item.Qty)
			items = append(items, models.OrderLineItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				MedicineID:     med.ID,
				SellerID:       med.SellerID,
				Name:           med.Name,
				UnitPricePaise: med.PricePaise,
				Qty:            item.Qty,
				TotalPaise:     lineTotal,
			})
			total += lineTotal
		}

		order.Items = items
		order.TotalPaise = total
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodRazorpay {
		if err := s.registerGatewayOrder(ctx, order); err != nil {
			return nil, err
		}
	}

	metrics.OrdersCreated.WithLabelValues(string(input.PaymentMethod)).Inc()
	s.dispatcher.OrderCreated(ctx, s.event(order))
	return order, nil
}

// registerGatewayOrder runs after the order transaction commits. The gateway
// client enforces its own bounded timeout; on failure the persisted order is
// kept so the buyer can retry checkout.
func (s *Service) registerGatewayOrder(ctx context.Context, order *models.Order) error {
	gwOrder, err := s.gateway.CreateOrder(ctx, order.TotalPaise, fmt.Sprintf("order_%d", order.OrderNumber))
	if err != nil {
		s.logger.Error(ctx, "gateway order registration failed, order retained", err)
		return errors.Wrap(errors.CodeGateway, err, "registering order with payment gateway")
	}

	order.GatewayOrderRef = &gwOrder.ID
	if err := s.orders.Update(ctx, nil, order); err != nil {
		return err
	}
	return nil
}

// VerifyPayment validates the gateway callback signature and, on success,
// marks the payment captured and confirms the order. A signature mismatch
// rejects the callback without touching the order. Re-verification with the
// same payment ref is an idempotent no-op.
func (s *Service) VerifyPayment(ctx context.Context, buyerID uuid.UUID, input VerifyPaymentInput) (*models.Order, error) {
	order, err := s.orders.FindByGatewayOrderRef(ctx, input.GatewayOrderRef)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, errors.New(errors.CodeForbidden, "order belongs to another buyer")
	}

	if order.PaymentStatus == enums.PaymentStatusCompleted {
		if order.GatewayPaymentRef != nil && *order.GatewayPaymentRef == input.GatewayPaymentRef {
			return order, nil
		}
		return nil, errors.New(errors.CodeStateConflict, "payment already captured with a different reference")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, errors.New(errors.CodeStateConflict, "order is cancelled")
	}

	if !s.gateway.VerifySignature(input.GatewayOrderRef, input.GatewayPaymentRef, input.Signature) {
		metrics.PaymentsVerified.WithLabelValues("invalid_signature").Inc()
		s.logger.Warn(ctx, "payment signature mismatch for order "+order.ID.String())
		return nil, errors.New(errors.CodeInvalidSignature, "payment signature verification failed")
	}

	paymentRef := input.GatewayPaymentRef
	order.GatewayPaymentRef = &paymentRef
	order.PaymentStatus = enums.PaymentStatusCompleted
	if order.Status == enums.OrderStatusPending {
		order.Status = enums.OrderStatusConfirmed
	}
	if err := s.orders.Update(ctx, nil, order); err != nil {
		return nil, err
	}

	metrics.PaymentsVerified.WithLabelValues("verified").Inc()
	s.dispatcher.PaymentConfirmed(ctx, s.event(order), paymentRef)
	return order, nil
}

// UpdateStatus applies a seller-driven update. Each field is optional:
// status runs the forward-transition checks when supplied, delivery status
// and tracking number apply on their own. Sellers may only touch orders
// containing their own line items; admins are unrestricted.
func (s *Service) UpdateStatus(ctx context.Context, actorID uuid.UUID, role enums.UserRole, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	if input.Status == nil && input.DeliveryStatus == nil && input.TrackingNumber == "" {
		return nil, errors.New(errors.CodeValidation, "nothing to update")
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, errors.New(errors.CodeValidation, "unknown order status")
		}
		if *input.Status == enums.OrderStatusCancelled {
			return nil, errors.New(errors.CodeValidation, "cancellation has its own endpoint")
		}
	}
	if input.DeliveryStatus != nil && !input.DeliveryStatus.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown delivery status")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role == enums.UserRoleSeller && !order.ContainsSeller(actorID) {
		return nil, errors.New(errors.CodeForbidden, "order does not contain your items")
	}

	from := order.Status
	if input.Status != nil {
		to := *input.Status
		if !from.CanTransitionTo(to) {
			return nil, errors.New(errors.CodeStateConflict, "disallowed status transition").
				WithDetails(map[string]any{"from": from, "to": to})
		}
		order.Status = to
		if to == enums.OrderStatusDelivered {
			now := time.Now()
			order.DeliveredAt = &now
		}
		applyPaymentOnTransition(order, to)
	}
	if input.DeliveryStatus != nil {
		order.DeliveryStatus = *input.DeliveryStatus
	}
	if input.TrackingNumber != "" {
		tracking := input.TrackingNumber
		order.TrackingNumber = &tracking
	}

	if err := s.orders.Update(ctx, nil, order); err != nil {
		return nil, err
	}

	if input.Status != nil {
		metrics.StatusTransitions.WithLabelValues(string(from), string(order.Status)).Inc()
	}
	s.dispatcher.OrderStatusChanged(ctx, s.event(order), order.Status, input.TrackingNumber)
	return order, nil
}

// applyPaymentOnTransition derives the payment status from a forward
// transition. Settled states (refunded, not_required) are never overwritten.
// Cash on delivery is only captured at delivery.
func applyPaymentOnTransition(order *models.Order, to enums.OrderStatus) {
	if order.PaymentStatus.IsSettled() {
		return
	}
	switch to {
	case enums.OrderStatusDelivered:
		order.PaymentStatus = enums.PaymentStatusCompleted
	case enums.OrderStatusConfirmed:
		if order.PaymentMethod == enums.PaymentMethodRazorpay && order.PaymentStatus == enums.PaymentStatusCompleted {
			return
		}
		if order.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			return
		}
		order.PaymentStatus = enums.PaymentStatusCompleted
	}
}

// Cancel lets the buyer abort a non-terminal order. Reserved stock is
// released in the same transaction; gateway-backed orders map to refunded,
// cash on delivery to not_required.
func (s *Service) Cancel(ctx context.Context, actorID uuid.UUID, role enums.UserRole, orderID uuid.UUID, input CancelInput) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != enums.UserRoleAdmin && order.BuyerID != actorID {
		return nil, errors.New(errors.CodeForbidden, "order belongs to another buyer")
	}
	if order.Status.IsTerminal() {
		return nil, errors.New(errors.CodeStateConflict, "order is already finalized").
			WithDetails(map[string]any{"status": order.Status})
	}

	now := time.Now()
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	if input.Reason != "" {
		reason := input.Reason
		order.CancelReason = &reason
	}
	if !order.PaymentStatus.IsSettled() {
		if order.PaymentMethod == enums.PaymentMethodRazorpay {
			order.PaymentStatus = enums.PaymentStatusRefunded
		} else {
			order.PaymentStatus = enums.PaymentStatusNotRequired
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.stock.RestockItems(ctx, tx, order.Items); err != nil {
			return err
		}
		return s.orders.Update(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	s.dispatcher.OrderCancelled(ctx, s.event(order), input.Reason)
	return order, nil
}

// Get returns one order, scoped by role: buyers see their own orders,
// sellers orders containing their items, admins everything.
func (s *Service) Get(ctx context.Context, actorID uuid.UUID, role enums.UserRole, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch role {
	case enums.UserRoleAdmin:
	case enums.UserRoleSeller:
		if !order.ContainsSeller(actorID) {
			return nil, errors.New(errors.CodeForbidden, "order does not contain your items")
		}
	default:
		if order.BuyerID != actorID {
			return nil, errors.New(errors.CodeForbidden, "order belongs to another buyer")
		}
	}
	return order, nil
}

// ListForBuyer returns the buyer's order summaries.
func (s *Service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*Page[OrderSummary], error) {
	rows, next, err := s.orders.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, err
	}
	items := make([]OrderSummary, 0, len(rows))
	for _, o := range rows {
		items = append(items, summarize(o, ""))
	}
	return &Page[OrderSummary]{Items: items, NextCursor: next}, nil
}

// ListForSeller returns orders containing the seller's items, narrowed to
// just those line items.
func (s *Service) ListForSeller(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*Page[SellerOrderView], error) {
	rows, next, err := s.orders.ListBySeller(ctx, sellerID, params)
	if err != nil {
		return nil, err
	}
	views := make([]SellerOrderView, 0, len(rows))
	for _, o := range rows {
		var mine []models.OrderLineItem
		var subtotal int64
		for _, item := range o.Items {
			if item.SellerID == sellerID {
				mine = append(mine, item)
				subtotal += item.TotalPaise
			}
		}
		views = append(views, SellerOrderView{
			ID:              o.ID,
			OrderNumber:     o.OrderNumber,
			Status:          o.Status,
			DeliveryStatus:  o.DeliveryStatus,
			PaymentStatus:   o.PaymentStatus,
			DeliveryAddress: o.DeliveryAddress,
			Items:           mine,
			SellerSubtotal:  subtotal,
			CreatedAt:       o.CreatedAt,
		})
	}
	return &Page[SellerOrderView]{Items: views, NextCursor: next}, nil
}

// ListAll is the admin listing with buyer names resolved.
func (s *Service) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*Page[OrderSummary], error) {
	rows, next, err := s.orders.ListAll(ctx, filter, params)
	if err != nil {
		return nil, err
	}

	buyerIDs := make([]uuid.UUID, 0, len(rows))
	seen := map[uuid.UUID]bool{}
	for _, o := range rows {
		if !seen[o.BuyerID] {
			seen[o.BuyerID] = true
			buyerIDs = append(buyerIDs, o.BuyerID)
		}
	}
	names, err := s.orders.BuyerNames(ctx, buyerIDs)
	if err != nil {
		return nil, err
	}

	items := make([]OrderSummary, 0, len(rows))
	for _, o := range rows {
		items = append(items, summarize(o, names[o.BuyerID]))
	}
	return &Page[OrderSummary]{Items: items, NextCursor: next}, nil
}

func (s *Service) event(order *models.Order) notifications.OrderEvent {
	lines := make([]mailer.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, mailer.OrderLine{
			Name:       item.Name,
			Qty:        item.Qty,
			TotalPaise: item.TotalPaise,
		})
	}
	return notifications.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		TotalPaise:  order.TotalPaise,
		Lines:       lines,
	}
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return errors.New(errors.CodeValidation, "order needs at least one item")
	}
	seen := map[uuid.UUID]bool{}
	for _, item := range input.Items {
		if item.MedicineID == uuid.Nil {
			return errors.New(errors.CodeValidation, "medicine id is required")
		}
		if item.Qty <= 0 {
			return errors.New(errors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"medicine_id": item.MedicineID.String()})
		}
		if seen[item.MedicineID] {
			return errors.New(errors.CodeValidation, "duplicate medicine in order").
				WithDetails(map[string]any{"medicine_id": item.MedicineID.String()})
		}
		seen[item.MedicineID] = true
	}
	if !input.PaymentMethod.IsValid() {
		return errors.New(errors.CodeValidation, "unknown payment method")
	}
	if field := input.DeliveryAddress.Validate(); field != "" {
		return errors.New(errors.CodeValidation, "incomplete delivery address").
			WithDetails(map[string]any{"missing": field})
	}
	return nil
}
