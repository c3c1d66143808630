package worker

import (
	"context"
	"encoding/json"

	"github.com/ayursutra/booking-api/internal/email"
	"github.com/ayursutra/booking-api/internal/model"
	"github.com/ayursutra/booking-api/pkg/logger"
	"github.com/ayursutra/booking-api/pkg/messaging"
)

// Notifier listens for completed payments on the broker and mails the patient
// a confirmation. Delivery failures are logged, never retried here: the
// outbox already retried the publish, and mail is best-effort.
type Notifier struct {
	broker messaging.Broker
	email  *email.Service
	logger *logger.Logger
}

func NewNotifier(broker messaging.Broker, emailSvc *email.Service, logger *logger.Logger) *Notifier {
	return &Notifier{
		broker: broker,
		email:  emailSvc,
		logger: logger,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, model.EventPaymentCompleted)
	if err != nil {
		return err
	}

	n.logger.Info("Starting payment notifier")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Shutting down payment notifier")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			n.handle(msg)
		}
	}
}

func (n *Notifier) handle(msg []byte) {
	var event model.PaymentCompletedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		n.logger.Error(err, "Failed to decode payment event")
		return
	}
	if event.PatientEmail == "" {
		n.logger.Debug("Payment event carries no email, skipping notification",
			"gateway_order_id", event.GatewayOrderID)
		return
	}

	if err := n.email.SendPaymentConfirmation(
		event.PatientEmail,
		event.GatewayPaymentID,
		event.Appointments,
		event.Amount,
		event.Currency,
	); err != nil {
		n.logger.Error(err, "Failed to send payment confirmation",
			"gateway_order_id", event.GatewayOrderID)
		return
	}
	n.logger.Info("Sent payment confirmation",
		"gateway_order_id", event.GatewayOrderID)
}
