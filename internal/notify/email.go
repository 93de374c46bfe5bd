package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/domodwyer/mailyak/v3"

	"gatepass/internal/config"
	"gatepass/internal/models"
)

type EmailSender struct {
	cfg config.EmailConfig
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (e *EmailSender) newMail() *mailyak.MailYak {
	addr := net.JoinHostPort(e.cfg.SMTPHost, e.cfg.SMTPPort)
	auth := smtp.PlainAuth("", e.cfg.SMTPUsername, e.cfg.SMTPPassword, e.cfg.SMTPHost)

	mail := mailyak.New(addr, auth)
	mail.From(e.cfg.FromAddress)
	mail.FromName(e.cfg.FromName)
	return mail
}

// SendConfirmation delivers the order confirmation with every QR code in one
// message. Codes that were persisted are referenced by URL; codes that only
// exist in memory are attached inline so the buyer still gets them.
func (e *EmailSender) SendConfirmation(_ context.Context, order models.Order, event *models.Event, items []models.Item, passSheet []byte) error {
	mail := e.newMail()
	mail.To(order.BuyerEmail)
	mail.Subject(fmt.Sprintf("Your tickets for %s", eventName(event)))

	var html strings.Builder
	html.WriteString(fmt.Sprintf("<h2>Thanks for your order, %s!</h2>", order.BuyerName))
	html.WriteString(fmt.Sprintf("<p>You're all set for <strong>%s</strong>.</p>", eventName(event)))
	if event != nil {
		html.WriteString(fmt.Sprintf("<p>%s<br>%s</p>", event.Date.Format("Monday, January 2 2006 at 3:04 PM"), event.Venue))
	}
	html.WriteString(fmt.Sprintf("<p>Order reference: %s</p>", order.SessionID))
	html.WriteString(fmt.Sprintf("<p>Total paid: %s</p>", formatAmount(order.AmountTotal, order.Currency)))

	writeKindSection(&html, mail, "Admission Tickets", "Ticket", models.KindAdmission, items)
	writeKindSection(&html, mail, "Parking Passes", "Pass", models.KindParking, items)

	html.WriteString("<p>Present each code at the gate. Each code admits one entry.</p>")
	mail.HTML().Set(html.String())

	if len(passSheet) > 0 {
		mail.Attach("passes.pdf", bytes.NewReader(passSheet))
	}

	if err := mail.Send(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func writeKindSection(html *strings.Builder, mail *mailyak.MailYak, title, unit, kind string, items []models.Item) {
	var n int
	for _, item := range items {
		if item.Kind != kind {
			continue
		}
		n++
		if n == 1 {
			html.WriteString(fmt.Sprintf("<h3>%s</h3>", title))
		}

		html.WriteString(fmt.Sprintf("<p>%s #%d<br>", unit, n))
		switch {
		case item.QRRef != "":
			html.WriteString(fmt.Sprintf(`<img src="%s" alt="%s" width="200">`, item.QRRef, item.ItemID))
		case len(item.QRCode) > 0:
			name := fmt.Sprintf("qr-%s.png", item.ItemID)
			mail.AttachInline(name, bytes.NewReader(item.QRCode))
			html.WriteString(fmt.Sprintf(`<img src="cid:%s" alt="%s" width="200">`, name, item.ItemID))
		default:
			html.WriteString(fmt.Sprintf("Code %s (image unavailable, show this id at the gate)", item.ItemID))
		}
		html.WriteString("</p>")
	}
}

func (e *EmailSender) SendRefundNotice(_ context.Context, item models.Item, amount int64, currency string) error {
	mail := e.newMail()
	mail.To(item.BuyerEmail)
	mail.Subject("Your refund has been processed")

	mail.HTML().Set(fmt.Sprintf(
		"<p>Hi %s,</p><p>Your %s (%s) has been refunded for %s. The code is no longer valid for entry.</p>",
		item.BuyerName, kindLabel(item.Kind), item.ItemID, formatAmount(amount, currency)))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func kindLabel(kind string) string {
	if kind == models.KindParking {
		return "parking pass"
	}
	return "admission ticket"
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}
