package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"krume-backend/config"
	"krume-backend/internal/domain"
)

// ErrNotConfigured is returned when SMTP_HOST is unset.
var ErrNotConfigured = errors.New("mailer not configured")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends plain-text order confirmations.
type SMTPNotifier struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	n := &SMTPNotifier{
		from: cfg.MailFrom,
		send: smtp.SendMail,
		now:  time.Now,
	}
	if cfg.SMTPHost != "" {
		n.addr = net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	}
	if cfg.SMTPUsername != "" {
		n.auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return n
}

var _ domain.Notifier = (*SMTPNotifier)(nil)

func (n *SMTPNotifier) SendOrderConfirmation(ctx context.Context, userEmail string, summary domain.OrderSummary) error {
	if n.addr == "" {
		return ErrNotConfigured
	}
	if userEmail == "" {
		return errors.New("order confirmation: recipient email is empty")
	}
	// Header injection: the address lands in the To header verbatim.
	if strings.ContainsAny(userEmail, "\r\n") {
		return fmt.Errorf("order confirmation: invalid recipient %q", userEmail)
	}
	rcpt, err := mail.ParseAddress(userEmail)
	if err != nil {
		return fmt.Errorf("order confirmation: invalid recipient %q: %w", userEmail, err)
	}
	userEmail = rcpt.Address

	msg := n.compose(userEmail, summary)

	// net/smtp has no context support; abandon the wait once ctx is done.
	done := make(chan error, 1)
	go func() {
		done <- n.send(n.addr, n.auth, n.from, []string{userEmail}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send confirmation for order %s: %w", summary.OrderID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send confirmation for order %s: %w", summary.OrderID, ctx.Err())
	}
}

func (n *SMTPNotifier) compose(to string, s domain.OrderSummary) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Order Confirmation - %s\r\n", s.OrderID)
	fmt.Fprintf(&b, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")

	name := s.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Thank you for your order. Your order id is %s.\r\n\r\n", s.OrderID)

	for _, it := range s.Items {
		variant := strings.TrimSpace(strings.Join([]string{it.Size, it.Color}, " "))
		if variant != "" {
			variant = " (" + variant + ")"
		}
		fmt.Fprintf(&b, "  %d x %s%s  Rs. %d\r\n", it.Quantity, it.Name, variant, it.Price*int64(it.Quantity))
	}

	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Items:    Rs. %d\r\n", s.ItemsPrice)
	fmt.Fprintf(&b, "Tax:      Rs. %d\r\n", s.TaxPrice)
	fmt.Fprintf(&b, "Shipping: Rs. %d\r\n", s.ShippingPrice)
	fmt.Fprintf(&b, "Total:    Rs. %d\r\n\r\n", s.TotalPrice)
	fmt.Fprintf(&b, "Payment method: %s\r\n", s.PaymentMethod)

	return []byte(b.String())
}
