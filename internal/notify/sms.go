package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gatepass/internal/config"
	"gatepass/internal/models"
)

// SMSSender posts to the Twilio Messages REST endpoint directly. Short text
// only: QR codes travel by email, the SMS just points at the ticket page.
type SMSSender struct {
	cfg     config.SMSConfig
	baseURL string
	client  *http.Client
}

func NewSMSSender(cfg config.SMSConfig, siteBaseURL string) *SMSSender {
	return &SMSSender{
		cfg:     cfg,
		baseURL: siteBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSSender) SendConfirmation(ctx context.Context, order models.Order, event *models.Event) error {
	body := fmt.Sprintf("Your tickets for %s are confirmed. View them any time: %s/orders?order=%s",
		eventName(event), s.baseURL, url.QueryEscape(order.SessionID))
	return s.send(ctx, order.BuyerPhone, body)
}

func (s *SMSSender) send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", s.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
