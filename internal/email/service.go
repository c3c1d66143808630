package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ayursutra/booking-api/internal/config"
)

// Service sends transactional mail over SMTP.
type Service struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.SMTPConfig) *Service {
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendPaymentConfirmation mails the patient a receipt for a verified payment.
func (s *Service) SendPaymentConfirmation(to, gatewayPaymentID string, appointments int, amount float64, currency string) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Payment confirmed")
	m.SetBody("text/html", fmt.Sprintf(`
		<h2>Payment confirmed</h2>
		<p>We received your payment of %.2f %s covering %d appointment(s).</p>
		<p>Payment reference: %s</p>
		<p>We look forward to seeing you at the clinic.</p>
	`, amount, currency, appointments, gatewayPaymentID))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}
