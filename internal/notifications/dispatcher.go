package notifications

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/enums"
	"github.com/medimart-health/medimart-backend/pkg/logger"
	"github.com/medimart-health/medimart-backend/pkg/mailer"
	"github.com/medimart-health/medimart-backend/pkg/metrics"
	"github.com/medimart-health/medimart-backend/pkg/types"
)

const defaultTimeout = 5 * time.Second

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type smsSender interface {
	Send(ctx context.Context, to, body string) error
}

type inAppWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type userFinder interface {
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Dispatcher fans order events out to email, SMS and in-app channels.
// Delivery is best effort: every channel failure is logged and counted but
// never surfaced to the caller, so order mutations cannot fail on
// notification problems.
type Dispatcher struct {
	email   emailSender
	sms     smsSender
	inApp   inAppWriter
	users   userFinder
	logger  *logger.Logger
	timeout time.Duration
}

type DispatcherOptions struct {
	Email   emailSender
	SMS     smsSender
	InApp   inAppWriter
	Users   userFinder
	Logger  *logger.Logger
	Timeout time.Duration
}

func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.InApp == nil {
		return nil, stderrors.New("in-app writer is required")
	}
	if opts.Users == nil {
		return nil, stderrors.New("user finder is required")
	}
	if opts.Logger == nil {
		return nil, stderrors.New("logger is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		email:   opts.Email,
		sms:     opts.SMS,
		inApp:   opts.InApp,
		users:   opts.Users,
		logger:  opts.Logger,
		timeout: timeout,
	}, nil
}

// OrderEvent carries the order fields notification channels render.
type OrderEvent struct {
	OrderID     uuid.UUID
	OrderNumber int64
	BuyerID     uuid.UUID
	TotalPaise  int64
	Lines       []mailer.OrderLine
}

// OrderCreated notifies the buyer that the order was placed.
func (d *Dispatcher) OrderCreated(ctx context.Context, event OrderEvent) {
	d.dispatch(ctx, event, func(ctx context.Context, buyer *models.User) error {
		var errs error
		if d.email != nil && buyer.Email != "" {
			msg := mailer.OrderConfirmation(buyer.Name, event.OrderNumber, event.Lines, event.TotalPaise)
			msg.To = buyer.Email
			errs = multierr.Append(errs, d.channel("email", d.email.Send(ctx, msg)))
		}
		if d.sms != nil && buyer.Phone != "" {
			body := fmt.Sprintf("MediMart: order #%d placed successfully.", event.OrderNumber)
			errs = multierr.Append(errs, d.channel("sms", d.sms.Send(ctx, buyer.Phone, body)))
		}
		errs = multierr.Append(errs, d.channel("in_app", d.inApp.Create(ctx, &models.Notification{
			UserID:  buyer.ID,
			Type:    enums.NotificationTypeOrderPlaced,
			Title:   fmt.Sprintf("Order #%d placed", event.OrderNumber),
			Message: "Your order has been placed and is awaiting confirmation.",
			Link:    orderLink(event.OrderID),
			Meta:    orderMeta(event.OrderID),
		})))
		return errs
	})
}

// OrderStatusChanged notifies the buyer of a seller-driven transition.
func (d *Dispatcher) OrderStatusChanged(ctx context.Context, event OrderEvent, status enums.OrderStatus, trackingNumber string) {
	d.dispatch(ctx, event, func(ctx context.Context, buyer *models.User) error {
		var errs error
		if d.email != nil && buyer.Email != "" {
			msg := mailer.StatusUpdate(buyer.Name, event.OrderNumber, string(status), trackingNumber)
			msg.To = buyer.Email
			errs = multierr.Append(errs, d.channel("email", d.email.Send(ctx, msg)))
		}
		if d.sms != nil && buyer.Phone != "" {
			body := fmt.Sprintf("MediMart: order #%d is now %s.", event.OrderNumber, status)
			errs = multierr.Append(errs, d.channel("sms", d.sms.Send(ctx, buyer.Phone, body)))
		}
		errs = multierr.Append(errs, d.channel("in_app", d.inApp.Create(ctx, &models.Notification{
			UserID:  buyer.ID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   fmt.Sprintf("Order #%d %s", event.OrderNumber, status),
			Message: fmt.Sprintf("Your order is now %s.", status),
			Link:    orderLink(event.OrderID),
			Meta:    orderMeta(event.OrderID),
		})))
		return errs
	})
}

// OrderCancelled notifies the buyer that the order was cancelled.
func (d *Dispatcher) OrderCancelled(ctx context.Context, event OrderEvent, reason string) {
	d.dispatch(ctx, event, func(ctx context.Context, buyer *models.User) error {
		var errs error
		if d.email != nil && buyer.Email != "" {
			msg := mailer.Cancellation(buyer.Name, event.OrderNumber, reason)
			msg.To = buyer.Email
			errs = multierr.Append(errs, d.channel("email", d.email.Send(ctx, msg)))
		}
		errs = multierr.Append(errs, d.channel("in_app", d.inApp.Create(ctx, &models.Notification{
			UserID:  buyer.ID,
			Type:    enums.NotificationTypeOrderCancelled,
			Title:   fmt.Sprintf("Order #%d cancelled", event.OrderNumber),
			Message: "Your order has been cancelled and any reserved stock released.",
			Link:    orderLink(event.OrderID),
			Meta:    orderMeta(event.OrderID),
		})))
		return errs
	})
}

// PaymentConfirmed notifies the buyer that the payment was captured.
func (d *Dispatcher) PaymentConfirmed(ctx context.Context, event OrderEvent, paymentRef string) {
	d.dispatch(ctx, event, func(ctx context.Context, buyer *models.User) error {
		var errs error
		if d.email != nil && buyer.Email != "" {
			msg := mailer.PaymentReceipt(buyer.Name, event.OrderNumber, event.TotalPaise, paymentRef)
			msg.To = buyer.Email
			errs = multierr.Append(errs, d.channel("email", d.email.Send(ctx, msg)))
		}
		errs = multierr.Append(errs, d.channel("in_app", d.inApp.Create(ctx, &models.Notification{
			UserID:  buyer.ID,
			Type:    enums.NotificationTypePayment,
			Title:   fmt.Sprintf("Payment received for order #%d", event.OrderNumber),
			Message: "Your payment was verified and the order is confirmed.",
			Link:    orderLink(event.OrderID),
			Meta:    orderMeta(event.OrderID),
		})))
		return errs
	})
}

// dispatch runs fn against a detached, bounded context so notification
// latency never extends the request and request cancellation never aborts
// an in-flight send.
func (d *Dispatcher) dispatch(ctx context.Context, event OrderEvent, fn func(context.Context, *models.User) error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	detached = d.logger.WithOrderID(detached, event.OrderID.String())

	buyer, err := d.users.FindUser(detached, event.BuyerID)
	if err != nil {
		d.logger.Error(detached, "notification dispatch skipped: buyer lookup failed", err)
		metrics.SideEffectFailures.WithLabelValues("buyer_lookup").Inc()
		return
	}

	if err := fn(detached, buyer); err != nil {
		d.logger.Error(detached, "notification dispatch completed with failures", err)
	}
}

func (d *Dispatcher) channel(name string, err error) error {
	if err == nil {
		return nil
	}
	metrics.SideEffectFailures.WithLabelValues(name).Inc()
	return fmt.Errorf("%s: %w", name, err)
}

func orderMeta(orderID uuid.UUID) types.JSONMap {
	return types.JSONMap{"order_id": orderID.String()}
}

// orderLink is the in-app deep link to the order detail view.
func orderLink(orderID uuid.UUID) *string {
	link := "/api/v1/orders/" + orderID.String()
	return &link
}
