package orders

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/medimart-health/medimart-backend/internal/notifications"
	"github.com/medimart-health/medimart-backend/pkg/config"
	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/errors"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/pagination"
	"github.com/medimart-health/medimart-backend/pkg/razorpay"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrders struct {
	byID      map[uuid.UUID]*models.Order
	created   []*models.Order
	updateErr error
}

func newStubOrders() *stubOrders {
	return &stubOrders{byID: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrders) Create(_ context.Context, _ *gorm.DB, order *models.Order) error {
	clone := *order
	s.byID[order.ID] = &clone
	s.created = append(s.created, order)
	return nil
}

func (s *stubOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.byID[id]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "order not found")
	}
	clone := *order
	return &clone, nil
}

func (s *stubOrders) FindByGatewayOrderRef(_ context.Context, ref string) (*models.Order, error) {
	for _, order := range s.byID {
		if order.GatewayOrderRef != nil && *order.GatewayOrderRef == ref {
			clone := *order
			return &clone, nil
		}
	}
	return nil, errors.New(errors.CodeNotFound, "order not found for gateway reference")
}

func (s *stubOrders) Update(_ context.Context, _ *gorm.DB, order *models.Order) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	stored, ok := s.byID[order.ID]
	if !ok {
		return errors.New(errors.CodeNotFound, "order not found")
	}
	if stored.Version != order.Version {
		return errors.New(errors.CodeConflict, "order was modified concurrently")
	}
	order.Version++
	clone := *order
	s.byID[order.ID] = &clone
	return nil
}

func (s *stubOrders) ListByBuyer(context.Context, uuid.UUID, pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (s *stubOrders) ListBySeller(context.Context, uuid.UUID, pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (s *stubOrders) ListAll(context.Context, ListFilter, pagination.Params) ([]models.Order, string, error) {
	return nil, "", nil
}

func (s *stubOrders) BuyerNames(context.Context, []uuid.UUID) (map[uuid.UUID]string, error) {
	return map[uuid.UUID]string{}, nil
}

type stubStock struct {
	medicines map[uuid.UUID]models.Medicine
	stock     map[uuid.UUID]int
	restocked []models.OrderLineItem
}

func newStubStock(meds ...models.Medicine) *stubStock {
	s := &stubStock{
		medicines: map[uuid.UUID]models.Medicine{},
		stock:     map[uuid.UUID]int{},
	}
	for _, m := range meds {
		s.medicines[m.ID] = m
		s.stock[m.ID] = m.Stock
	}
	return s
}

func (s *stubStock) FindByIDs(_ context.Context, _ *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Medicine, error) {
	out := map[uuid.UUID]models.Medicine{}
	for _, id := range ids {
		if m, ok := s.medicines[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *stubStock) DecrementStock(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) error {
	if s.stock[id] < qty {
		return errors.New(errors.CodeInsufficientStock, "insufficient stock")
	}
	s.stock[id] -= qty
	return nil
}

func (s *stubStock) RestockItems(_ context.Context, _ *gorm.DB, items []models.OrderLineItem) error {
	for _, item := range items {
		s.stock[item.MedicineID] += item.Qty
	}
	s.restocked = append(s.restocked, items...)
	return nil
}

type stubGateway struct {
	order      *razorpay.Order
	createErr  error
	validSig   string
	calledWith int64
}

func (s *stubGateway) CreateOrder(_ context.Context, amountPaise int64, receipt string) (*razorpay.Order, error) {
	s.calledWith = amountPaise
	if s.createErr != nil {
		return nil, s.createErr
	}
	if s.order != nil {
		return s.order, nil
	}
	return &razorpay.Order{ID: "order_gw_" + receipt, Amount: amountPaise, Currency: "INR"}, nil
}

func (s *stubGateway) VerifySignature(_, _, signature string) bool {
	return signature == s.validSig
}

type stubDispatcher struct {
	created   int
	status    int
	cancelled int
	payments  int
}

func (s *stubDispatcher) OrderCreated(context.Context, notifications.OrderEvent) { s.created++ }
func (s *stubDispatcher) OrderStatusChanged(context.Context, notifications.OrderEvent, enums.OrderStatus, string) {
	s.status++
}
func (s *stubDispatcher) OrderCancelled(context.Context, notifications.OrderEvent, string) {
	s.cancelled++
}
func (s *stubDispatcher) PaymentConfirmed(context.Context, notifications.OrderEvent, string) {
	s.payments++
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

type fixture struct {
	svc        *Service
	orders     *stubOrders
	stock      *stubStock
	gateway    *stubGateway
	dispatcher *stubDispatcher
}

func newFixture(t *testing.T, meds ...models.Medicine) *fixture {
	t.Helper()
	f := &fixture{
		orders:     newStubOrders(),
		stock:      newStubStock(meds...),
		gateway:    &stubGateway{validSig: "good-signature"},
		dispatcher: &stubDispatcher{},
	}
	svc, err := NewService(ServiceOptions{
		Tx:         stubTx{},
		Orders:     f.orders,
		Stock:      f.stock,
		Gateway:    f.gateway,
		Dispatcher: f.dispatcher,
		Logger:     testLogger(),
		Config:     config.OrdersConfig{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func address() types.Address {
	return types.Address{
		Street:     "14 MG Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560001",
		Phone:      "+919800000001",
	}
}

func medicine(pricePaise int64, stock int) models.Medicine {
	return models.Medicine{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Name:       "Paracetamol 500mg",
		Category:   "analgesic",
		PricePaise: pricePaise,
		Stock:      stock,
	}
}

func statusPtr(s enums.OrderStatus) *enums.OrderStatus {
	return &s
}

func codeOf(t *testing.T, err error) errors.Code {
	t.Helper()
	typed := errors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	return typed.Code()
}

func TestCreateSnapshotsPricesAndTotals(t *testing.T) {
	cheap := medicine(5000, 10)  // ₹50
	dear := medicine(10000, 10)  // ₹100
	f := newFixture(t, cheap, dear)
	buyerID := uuid.New()

	order, err := f.svc.Create(context.Background(), buyerID, CreateOrderInput{
		Items: []CreateOrderItem{
			{MedicineID: cheap.ID, Qty: 2},
			{MedicineID: dear.ID, Qty: 1},
		},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.TotalPaise != 20000 {
		t.Errorf("total = %d paise, want 20000", order.TotalPaise)
	}
	if got := order.Subtotal(); got != order.TotalPaise {
		t.Errorf("subtotal %d != total %d", got, order.TotalPaise)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(order.Items))
	}
	if order.Items[0].UnitPricePaise != 5000 || order.Items[0].TotalPaise != 10000 {
		t.Errorf("line snapshot wrong: %+v", order.Items[0])
	}
	if order.Status != enums.OrderStatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Errorf("payment status = %s, want pending", order.PaymentStatus)
	}
	if f.stock.stock[cheap.ID] != 8 {
		t.Errorf("stock = %d, want 8", f.stock.stock[cheap.ID])
	}
	if f.dispatcher.created != 1 {
		t.Errorf("expected one order-created dispatch, got %d", f.dispatcher.created)
	}
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	med := medicine(5000, 1)
	f := newFixture(t, med)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 2}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	})
	if got := codeOf(t, err); got != errors.CodeInsufficientStock {
		t.Errorf("code = %s, want %s", got, errors.CodeInsufficientStock)
	}
	if len(f.orders.created) != 0 {
		t.Error("no order should persist when stock is insufficient")
	}
	if f.dispatcher.created != 0 {
		t.Error("no dispatch expected on failed creation")
	}
}

func TestCreateUnknownMedicineIsNotFound(t *testing.T) {
	med := medicine(5000, 5)
	f := newFixture(t, med)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: uuid.New(), Qty: 1}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	})
	if got := codeOf(t, err); got != errors.CodeNotFound {
		t.Errorf("code = %s, want %s", got, errors.CodeNotFound)
	}
	if len(f.orders.created) != 0 {
		t.Error("no order should persist for an unknown medicine")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	med := medicine(5000, 5)
	f := newFixture(t, med)
	ctx := context.Background()
	buyerID := uuid.New()

	cases := []struct {
		name  string
		input CreateOrderInput
	}{
		{"empty items", CreateOrderInput{
			DeliveryAddress: address(),
			PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		}},
		{"zero quantity", CreateOrderInput{
			Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 0}},
			DeliveryAddress: address(),
			PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		}},
		{"duplicate medicine", CreateOrderInput{
			Items: []CreateOrderItem{
				{MedicineID: med.ID, Qty: 1},
				{MedicineID: med.ID, Qty: 2},
			},
			DeliveryAddress: address(),
			PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		}},
		{"missing address", CreateOrderInput{
			Items:         []CreateOrderItem{{MedicineID: med.ID, Qty: 1}},
			PaymentMethod: enums.PaymentMethodCashOnDelivery,
		}},
		{"bad payment method", CreateOrderInput{
			Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 1}},
			DeliveryAddress: address(),
			PaymentMethod:   enums.PaymentMethod("bitcoin"),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, buyerID, tc.input)
			if got := codeOf(t, err); got != errors.CodeValidation {
				t.Errorf("code = %s, want %s", got, errors.CodeValidation)
			}
		})
	}
}

func TestCreateGatewayFailureRetainsOrder(t *testing.T) {
	med := medicine(5000, 5)
	f := newFixture(t, med)
	f.gateway.createErr = stderrors.New("gateway timeout")

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 1}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodRazorpay,
	})
	if got := codeOf(t, err); got != errors.CodeGateway {
		t.Errorf("code = %s, want %s", got, errors.CodeGateway)
	}
	if len(f.orders.created) != 1 {
		t.Error("order should be retained after gateway failure")
	}
}

func TestCreateRazorpayRegistersGatewayOrder(t *testing.T) {
	med := medicine(7500, 5)
	f := newFixture(t, med)

	order, err := f.svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 2}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodRazorpay,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.GatewayOrderRef == nil {
		t.Fatal("gateway order ref not recorded")
	}
	if f.gateway.calledWith != 15000 {
		t.Errorf("gateway charged %d paise, want 15000", f.gateway.calledWith)
	}
}

func TestCreateDefaultsToGatewayPayment(t *testing.T) {
	med := medicine(5000, 5)
	f := newFixture(t, med)

	order, err := f.svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 1}},
		DeliveryAddress: address(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if order.PaymentMethod != enums.PaymentMethodRazorpay {
		t.Errorf("payment method = %s, want razorpay", order.PaymentMethod)
	}
	if order.GatewayOrderRef == nil {
		t.Error("defaulted gateway payment should register a gateway order")
	}
}

func seedOrder(f *fixture, mutate func(*models.Order)) *models.Order {
	med := medicine(5000, 10)
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    1001,
		BuyerID:        uuid.New(),
		Status:         enums.OrderStatusPending,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  enums.PaymentMethodRazorpay,
		TotalPaise:     10000,
		Version:        1,
		Items: []models.OrderLineItem{
			{
				ID:             uuid.New(),
				MedicineID:     med.ID,
				SellerID:       med.SellerID,
				Name:           med.Name,
				UnitPricePaise: 5000,
				Qty:            2,
				TotalPaise:     10000,
			},
		},
	}
	if mutate != nil {
		mutate(order)
	}
	f.orders.byID[order.ID] = order
	return order
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()
	ref := "order_gw_ref"

	t.Run("valid signature confirms order and captures payment", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.GatewayOrderRef = &ref })

		got, err := f.svc.VerifyPayment(ctx, order.BuyerID, VerifyPaymentInput{
			GatewayOrderRef:   ref,
			GatewayPaymentRef: "pay_123",
			Signature:         "good-signature",
		})
		if err != nil {
			t.Fatalf("VerifyPayment: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusCompleted {
			t.Errorf("payment status = %s, want completed", got.PaymentStatus)
		}
		if got.Status != enums.OrderStatusConfirmed {
			t.Errorf("status = %s, want confirmed", got.Status)
		}
		if f.dispatcher.payments != 1 {
			t.Errorf("payment dispatches = %d, want 1", f.dispatcher.payments)
		}
	})

	t.Run("forged signature is rejected and the order stays untouched", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.GatewayOrderRef = &ref })

		_, err := f.svc.VerifyPayment(ctx, order.BuyerID, VerifyPaymentInput{
			GatewayOrderRef:   ref,
			GatewayPaymentRef: "pay_123",
			Signature:         "forged",
		})
		if got := codeOf(t, err); got != errors.CodeInvalidSignature {
			t.Errorf("code = %s, want %s", got, errors.CodeInvalidSignature)
		}
		stored, _ := f.orders.FindByID(ctx, order.ID)
		if stored.PaymentStatus != enums.PaymentStatusPending {
			t.Errorf("payment status = %s, want pending (unchanged)", stored.PaymentStatus)
		}
		if stored.Status != enums.OrderStatusPending {
			t.Errorf("status = %s, want pending (unchanged)", stored.Status)
		}
		if stored.GatewayPaymentRef != nil {
			t.Error("payment ref must not be recorded on a forged signature")
		}
		if f.dispatcher.payments != 0 {
			t.Error("no payment dispatch expected on forged signature")
		}
	})

	t.Run("re-verification with same ref is a no-op", func(t *testing.T) {
		f := newFixture(t)
		payRef := "pay_123"
		order := seedOrder(f, func(o *models.Order) {
			o.GatewayOrderRef = &ref
			o.GatewayPaymentRef = &payRef
			o.PaymentStatus = enums.PaymentStatusCompleted
			o.Status = enums.OrderStatusConfirmed
		})

		got, err := f.svc.VerifyPayment(ctx, order.BuyerID, VerifyPaymentInput{
			GatewayOrderRef:   ref,
			GatewayPaymentRef: payRef,
			Signature:         "good-signature",
		})
		if err != nil {
			t.Fatalf("VerifyPayment: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusCompleted {
			t.Errorf("payment status = %s", got.PaymentStatus)
		}
		if f.dispatcher.payments != 0 {
			t.Error("idempotent replay should not re-dispatch")
		}
	})

	t.Run("different ref against captured payment is a state conflict", func(t *testing.T) {
		f := newFixture(t)
		payRef := "pay_123"
		order := seedOrder(f, func(o *models.Order) {
			o.GatewayOrderRef = &ref
			o.GatewayPaymentRef = &payRef
			o.PaymentStatus = enums.PaymentStatusCompleted
		})

		_, err := f.svc.VerifyPayment(ctx, order.BuyerID, VerifyPaymentInput{
			GatewayOrderRef:   ref,
			GatewayPaymentRef: "pay_other",
			Signature:         "good-signature",
		})
		if got := codeOf(t, err); got != errors.CodeStateConflict {
			t.Errorf("code = %s, want %s", got, errors.CodeStateConflict)
		}
	})

	t.Run("another buyer cannot verify", func(t *testing.T) {
		f := newFixture(t)
		seedOrder(f, func(o *models.Order) { o.GatewayOrderRef = &ref })

		_, err := f.svc.VerifyPayment(ctx, uuid.New(), VerifyPaymentInput{
			GatewayOrderRef:   ref,
			GatewayPaymentRef: "pay_123",
			Signature:         "good-signature",
		})
		if got := codeOf(t, err); got != errors.CodeForbidden {
			t.Errorf("code = %s, want %s", got, errors.CodeForbidden)
		}
	})

	t.Run("unknown gateway ref is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.VerifyPayment(ctx, uuid.New(), VerifyPaymentInput{
			GatewayOrderRef:   "order_missing",
			GatewayPaymentRef: "pay_123",
			Signature:         "good-signature",
		})
		if got := codeOf(t, err); got != errors.CodeNotFound {
			t.Errorf("code = %s, want %s", got, errors.CodeNotFound)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("seller moves order forward", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.Status = enums.OrderStatusConfirmed })
		sellerID := order.Items[0].SellerID

		got, err := f.svc.UpdateStatus(ctx, sellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusProcessing),
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.Status != enums.OrderStatusProcessing {
			t.Errorf("status = %s", got.Status)
		}
		if f.dispatcher.status != 1 {
			t.Errorf("status dispatches = %d, want 1", f.dispatcher.status)
		}
	})

	t.Run("backward transition is rejected", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.Status = enums.OrderStatusShipped })

		_, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusPending),
		})
		if got := codeOf(t, err); got != errors.CodeStateConflict {
			t.Errorf("code = %s, want %s", got, errors.CodeStateConflict)
		}
	})

	t.Run("uninvolved seller is forbidden", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil)

		_, err := f.svc.UpdateStatus(ctx, uuid.New(), enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusConfirmed),
		})
		if got := codeOf(t, err); got != errors.CodeForbidden {
			t.Errorf("code = %s, want %s", got, errors.CodeForbidden)
		}
	})

	t.Run("delivery completes payment", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) {
			o.Status = enums.OrderStatusShipped
			o.PaymentMethod = enums.PaymentMethodCashOnDelivery
		})

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusDelivered),
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusCompleted {
			t.Errorf("payment status = %s, want completed", got.PaymentStatus)
		}
		if got.DeliveredAt == nil {
			t.Error("delivered_at not stamped")
		}
	})

	t.Run("confirming a COD order keeps payment pending", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) {
			o.PaymentMethod = enums.PaymentMethodCashOnDelivery
		})

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusConfirmed),
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusPending {
			t.Errorf("payment status = %s, want pending", got.PaymentStatus)
		}
	})

	t.Run("refunded payment is never overwritten", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) {
			o.Status = enums.OrderStatusShipped
			o.PaymentStatus = enums.PaymentStatusRefunded
		})

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusDelivered),
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusRefunded {
			t.Errorf("payment status = %s, want refunded", got.PaymentStatus)
		}
	})

	t.Run("delivery status is independent of order status", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.Status = enums.OrderStatusProcessing })
		outForDelivery := enums.DeliveryStatusOutForDelivery

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status:         statusPtr(enums.OrderStatusShipped),
			DeliveryStatus: &outForDelivery,
			TrackingNumber: "TRK-42",
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.DeliveryStatus != enums.DeliveryStatusOutForDelivery {
			t.Errorf("delivery status = %s", got.DeliveryStatus)
		}
		if got.Status != enums.OrderStatusShipped {
			t.Errorf("status = %s", got.Status)
		}
		if got.TrackingNumber == nil || *got.TrackingNumber != "TRK-42" {
			t.Error("tracking number not recorded")
		}
	})

	t.Run("tracking-only update leaves status alone", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.Status = enums.OrderStatusShipped })

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			TrackingNumber: "TRK-99",
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.Status != enums.OrderStatusShipped {
			t.Errorf("status = %s, want shipped", got.Status)
		}
		if got.TrackingNumber == nil || *got.TrackingNumber != "TRK-99" {
			t.Error("tracking number not recorded")
		}
	})

	t.Run("delivery-status-only update works", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) { o.Status = enums.OrderStatusShipped })
		outForDelivery := enums.DeliveryStatusOutForDelivery

		got, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			DeliveryStatus: &outForDelivery,
		})
		if err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
		if got.DeliveryStatus != enums.DeliveryStatusOutForDelivery {
			t.Errorf("delivery status = %s", got.DeliveryStatus)
		}
		if got.Status != enums.OrderStatusShipped {
			t.Errorf("status = %s, want shipped", got.Status)
		}
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil)

		_, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{})
		if got := codeOf(t, err); got != errors.CodeValidation {
			t.Errorf("code = %s, want %s", got, errors.CodeValidation)
		}
	})

	t.Run("cancelled is not reachable through status updates", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil)

		_, err := f.svc.UpdateStatus(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID, UpdateStatusInput{
			Status: statusPtr(enums.OrderStatusCancelled),
		})
		if got := codeOf(t, err); got != errors.CodeValidation {
			t.Errorf("code = %s, want %s", got, errors.CodeValidation)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("buyer cancels and stock is restocked", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil)

		got, err := f.svc.Cancel(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{Reason: "ordered by mistake"})
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got.Status != enums.OrderStatusCancelled {
			t.Errorf("status = %s", got.Status)
		}
		if got.CancelledAt == nil {
			t.Error("cancelled_at not stamped")
		}
		if len(f.stock.restocked) != 1 {
			t.Errorf("restocked %d item groups, want 1", len(f.stock.restocked))
		}
		if f.dispatcher.cancelled != 1 {
			t.Errorf("cancel dispatches = %d, want 1", f.dispatcher.cancelled)
		}
	})

	t.Run("captured gateway payment maps to refunded", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) {
			o.PaymentStatus = enums.PaymentStatusCompleted
			o.Status = enums.OrderStatusConfirmed
		})

		got, err := f.svc.Cancel(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{})
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusRefunded {
			t.Errorf("payment status = %s, want refunded", got.PaymentStatus)
		}
	})

	t.Run("unpaid gateway order still maps to refunded", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil) // razorpay, payment pending

		got, err := f.svc.Cancel(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{})
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusRefunded {
			t.Errorf("payment status = %s, want refunded", got.PaymentStatus)
		}
	})

	t.Run("cash on delivery maps to not_required", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, func(o *models.Order) {
			o.PaymentMethod = enums.PaymentMethodCashOnDelivery
		})

		got, err := f.svc.Cancel(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{})
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if got.PaymentStatus != enums.PaymentStatusNotRequired {
			t.Errorf("payment status = %s, want not_required", got.PaymentStatus)
		}
	})

	t.Run("terminal orders cannot be cancelled", func(t *testing.T) {
		for _, status := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
			f := newFixture(t)
			order := seedOrder(f, func(o *models.Order) { o.Status = status })

			_, err := f.svc.Cancel(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{})
			if got := codeOf(t, err); got != errors.CodeStateConflict {
				t.Errorf("status %s: code = %s, want %s", status, got, errors.CodeStateConflict)
			}
		}
	})

	t.Run("another buyer is forbidden", func(t *testing.T) {
		f := newFixture(t)
		order := seedOrder(f, nil)

		_, err := f.svc.Cancel(ctx, uuid.New(), enums.UserRoleBuyer, order.ID, CancelInput{})
		if got := codeOf(t, err); got != errors.CodeForbidden {
			t.Errorf("code = %s, want %s", got, errors.CodeForbidden)
		}
	})
}

func TestGetScoping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order := seedOrder(f, nil)

	if _, err := f.svc.Get(ctx, order.BuyerID, enums.UserRoleBuyer, order.ID); err != nil {
		t.Errorf("owner should see the order: %v", err)
	}
	if _, err := f.svc.Get(ctx, order.Items[0].SellerID, enums.UserRoleSeller, order.ID); err != nil {
		t.Errorf("involved seller should see the order: %v", err)
	}
	if _, err := f.svc.Get(ctx, uuid.New(), enums.UserRoleAdmin, order.ID); err != nil {
		t.Errorf("admin should see the order: %v", err)
	}
	if _, err := f.svc.Get(ctx, uuid.New(), enums.UserRoleBuyer, order.ID); codeOf(t, err) != errors.CodeForbidden {
		t.Error("other buyer should be forbidden")
	}
	if _, err := f.svc.Get(ctx, uuid.New(), enums.UserRoleSeller, order.ID); codeOf(t, err) != errors.CodeForbidden {
		t.Error("uninvolved seller should be forbidden")
	}
}

// TestFailingDispatcherNeverFailsMutations wires a real dispatcher whose
// every dependency fails; order mutations must still succeed.
func TestFailingDispatcherNeverFailsMutations(t *testing.T) {
	med := medicine(5000, 10)
	f := newFixture(t, med)

	inApp := &failingInApp{}
	users := &failingUsers{}
	real, err := notifications.NewDispatcher(notifications.DispatcherOptions{
		InApp:  inApp,
		Users:  users,
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	svc, err := NewService(ServiceOptions{
		Tx:         stubTx{},
		Orders:     f.orders,
		Stock:      f.stock,
		Gateway:    f.gateway,
		Dispatcher: real,
		Logger:     testLogger(),
		Config:     config.OrdersConfig{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	order, err := svc.Create(context.Background(), uuid.New(), CreateOrderInput{
		Items:           []CreateOrderItem{{MedicineID: med.ID, Qty: 1}},
		DeliveryAddress: address(),
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	})
	if err != nil {
		t.Fatalf("creation must survive dispatcher failure: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), order.BuyerID, enums.UserRoleBuyer, order.ID, CancelInput{}); err != nil {
		t.Fatalf("cancellation must survive dispatcher failure: %v", err)
	}
}

type failingInApp struct{}

func (failingInApp) Create(context.Context, *models.Notification) error {
	return stderrors.New("db down")
}

type failingUsers struct{}

func (failingUsers) FindUser(context.Context, uuid.UUID) (*models.User, error) {
	return nil, stderrors.New("db down")
}
