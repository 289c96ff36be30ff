package mailer

import (
	"fmt"
	"strings"
)

// OrderLine is the slice of order data email templates render.
type OrderLine struct {
	Name       string
	Qty        int
	TotalPaise int64
}

func rupees(paise int64) string {
	return fmt.Sprintf("₹%d.%02d", paise/100, paise%100)
}

func renderLines(lines []OrderLine) string {
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "<li>%s × %d — %s</li>", l.Name, l.Qty, rupees(l.TotalPaise))
	}
	return b.String()
}

// OrderConfirmation is sent to the buyer once an order is placed.
func OrderConfirmation(buyerName string, orderNumber int64, lines []OrderLine, totalPaise int64) Message {
	return Message{
		ToName:  buyerName,
		Subject: fmt.Sprintf("Order #%d confirmed", orderNumber),
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>Thanks for your order <strong>#%d</strong>.</p><ul>%s</ul><p>Total: <strong>%s</strong></p>",
			buyerName, orderNumber, renderLines(lines), rupees(totalPaise),
		),
	}
}

// StatusUpdate is sent to the buyer when a seller moves the order forward.
func StatusUpdate(buyerName string, orderNumber int64, status string, trackingNumber string) Message {
	tracking := ""
	if trackingNumber != "" {
		tracking = fmt.Sprintf("<p>Tracking number: <strong>%s</strong></p>", trackingNumber)
	}
	return Message{
		ToName:  buyerName,
		Subject: fmt.Sprintf("Order #%d is now %s", orderNumber, status),
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your order <strong>#%d</strong> is now <strong>%s</strong>.</p>%s",
			buyerName, orderNumber, status, tracking,
		),
	}
}

// Cancellation is sent to the buyer when an order is cancelled.
func Cancellation(buyerName string, orderNumber int64, reason string) Message {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Your order <strong>#%d</strong> has been cancelled.</p>", buyerName, orderNumber)
	if reason != "" {
		body += fmt.Sprintf("<p>Reason: %s</p>", reason)
	}
	return Message{
		ToName:   buyerName,
		Subject:  fmt.Sprintf("Order #%d cancelled", orderNumber),
		HTMLBody: body,
	}
}

// PaymentReceipt is sent to the buyer after a successful payment capture.
func PaymentReceipt(buyerName string, orderNumber int64, totalPaise int64, paymentRef string) Message {
	return Message{
		ToName:  buyerName,
		Subject: fmt.Sprintf("Payment received for order #%d", orderNumber),
		HTMLBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>We received your payment of <strong>%s</strong> for order <strong>#%d</strong>.</p><p>Payment reference: %s</p>",
			buyerName, rupees(totalPaise), orderNumber, paymentRef,
		),
	}
}
