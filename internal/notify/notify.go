package notify

import (
	"context"
	"fmt"

	"gatepass/internal/logger"
	"gatepass/internal/models"
)

// Dispatcher fans one fulfilled order out to the buyer's channels. Email is
// the channel of record: its failure is the caller's problem. SMS and the
// PDF pass sheet are extras and only ever log.
type Dispatcher struct {
	Email  *EmailSender
	SMS    *SMSSender
	PDF    *PassSheetGenerator
	Logger *logger.Logger
}

func NewDispatcher(email *EmailSender, sms *SMSSender, pdf *PassSheetGenerator, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		Email:  email,
		SMS:    sms,
		PDF:    pdf,
		Logger: log,
	}
}

func (d *Dispatcher) SendConfirmation(ctx context.Context, order models.Order, event *models.Event, items []models.Item) error {
	var sheet []byte
	if d.PDF != nil {
		var err error
		sheet, err = d.PDF.Generate(order, event, items)
		if err != nil {
			d.Logger.Warn("NOTIFY", fmt.Sprintf("Pass sheet for session %s skipped: %v", order.SessionID, err))
			sheet = nil
		}
	}

	if err := d.Email.SendConfirmation(ctx, order, event, items, sheet); err != nil {
		return fmt.Errorf("confirmation email to %s: %w", order.BuyerEmail, err)
	}
	d.Logger.Info("NOTIFY", fmt.Sprintf("Confirmation email sent to %s for session %s", order.BuyerEmail, order.SessionID))

	if d.SMS != nil && order.BuyerPhone != "" {
		if err := d.SMS.SendConfirmation(ctx, order, event); err != nil {
			d.Logger.Warn("NOTIFY", fmt.Sprintf("Confirmation SMS to %s failed: %v", order.BuyerPhone, err))
		} else {
			d.Logger.Info("NOTIFY", fmt.Sprintf("Confirmation SMS sent to %s", order.BuyerPhone))
		}
	}

	return nil
}

// SendRefundNotice tells the buyer their item was refunded. Best effort.
func (d *Dispatcher) SendRefundNotice(ctx context.Context, item models.Item, amount int64, currency string) error {
	return d.Email.SendRefundNotice(ctx, item, amount, currency)
}

func eventName(event *models.Event) string {
	if event == nil || event.Name == "" {
		return "your event"
	}
	return event.Name
}
