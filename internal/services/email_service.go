package services

import (
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/example/ambre/internal/models"
)

// EmailService sends transactional storefront email over SMTP.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewEmailService constructs EmailService.
func NewEmailService(host string, port int, username, password, from string) *EmailService {
	return &EmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	return client.DialAndSend(msg)
}

// OrderConfirmation sends the order confirmation to the customer.
func (s *EmailService) OrderConfirmation(order *models.Order) error {
	subject := fmt.Sprintf("Your order %s is confirmed", order.OrderNumber)
	return s.send(order.CustomerEmail, subject, orderConfirmationHTML(order))
}

// RefundNotice tells the customer their order was cancelled and, where
// money was taken, refunded.
func (s *EmailService) RefundNotice(order *models.Order, outcome *RefundOutcome) error {
	subject := fmt.Sprintf("Your order %s has been cancelled", order.OrderNumber)
	return s.send(order.CustomerEmail, subject, refundNoticeHTML(order, outcome))
}

// ShippingNotice tells the customer their order is on its way.
func (s *EmailService) ShippingNotice(order *models.Order) error {
	subject := fmt.Sprintf("Your order %s has shipped", order.OrderNumber)
	body := fmt.Sprintf(`%s
		<p>Good news — your order <strong>%s</strong> is on its way.</p>
		<p>Tracking number: <strong>%s</strong></p>
		%s`, emailHeader("Your order has shipped"), order.OrderNumber, order.TrackingNumber, emailFooter())
	return s.send(order.CustomerEmail, subject, body)
}

func orderConfirmationHTML(order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		name := item.ProductName
		if item.VariantLabel != "" {
			name = fmt.Sprintf("%s (%s)", name, item.VariantLabel)
		}
		rows.WriteString(fmt.Sprintf(`
			<tr>
				<td style="padding:8px;border:1px solid #eee;">%s</td>
				<td style="padding:8px;border:1px solid #eee;">%d</td>
				<td style="padding:8px;border:1px solid #eee;">%s %s</td>
				<td style="padding:8px;border:1px solid #eee;">%s %s</td>
			</tr>`,
			name, item.Quantity,
			item.UnitPrice.StringFixed(2), order.Currency,
			item.LineTotal.StringFixed(2), order.Currency,
		))
	}

	summary := fmt.Sprintf(`
		<p>Subtotal: %s %s<br>
		Discount: %s %s<br>
		Shipping: %s %s<br>
		<strong>Total: %s %s</strong></p>`,
		order.Subtotal.StringFixed(2), order.Currency,
		order.DiscountAmount.StringFixed(2), order.Currency,
		order.ShippingCost.StringFixed(2), order.Currency,
		order.TotalAmount.StringFixed(2), order.Currency,
	)

	payNote := ""
	if order.PaymentMethod == models.PaymentMethodBank {
		payNote = fmt.Sprintf(`<p>Please wire the total with reference <strong>%s</strong>. Your order ships once the transfer arrives.</p>`, order.OrderNumber)
	}

	return fmt.Sprintf(`%s
		<p>Hello %s,</p>
		<p>Thank you for your order <strong>%s</strong>.</p>
		<table style="width:100%%;border-collapse:collapse;">
			<thead>
				<tr style="background:#f6f4f0;">
					<th style="padding:8px;text-align:left;">Item</th>
					<th style="padding:8px;text-align:left;">Qty</th>
					<th style="padding:8px;text-align:left;">Unit price</th>
					<th style="padding:8px;text-align:left;">Total</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
		</table>
		%s%s%s`,
		emailHeader("Order confirmation"),
		order.CustomerName, order.OrderNumber, rows.String(), summary, payNote, emailFooter())
}

func refundNoticeHTML(order *models.Order, outcome *RefundOutcome) string {
	detail := "<p>No payment had been taken, so there is nothing to refund.</p>"
	if outcome != nil {
		detail = fmt.Sprintf(`<p>We have refunded <strong>%s %s</strong> to your original payment method. Depending on your bank it can take a few days to appear.</p>`,
			outcome.Amount.StringFixed(2), order.Currency)
		if outcome.Manual {
			detail = "<p>Your payment will be returned by bank transfer shortly.</p>"
		}
	}

	return fmt.Sprintf(`%s
		<p>Hello %s,</p>
		<p>Your order <strong>%s</strong> has been cancelled.</p>
		%s%s`,
		emailHeader("Order cancelled"),
		order.CustomerName, order.OrderNumber, detail, emailFooter())
}

func emailHeader(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family:Georgia,serif;background:#faf8f5;padding:24px;">
	<div style="max-width:600px;margin:auto;background:#fff;padding:24px;border-radius:8px;">
	<h2 style="color:#3d3630;">%s</h2>`, title)
}

func emailFooter() string {
	return `
	<p style="margin-top:32px;color:#8a8175;">Maison Ambre</p>
	</div>
</body>
</html>`
}
