package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/auth"
	"gatepass/internal/logger"
	"gatepass/internal/models"
	"gatepass/internal/qr"
)

type DBLayer interface {
	GetItemByID(ctx context.Context, itemID string) (*models.Item, error)
	MarkItemUsed(ctx context.Context, itemID, staffName string, at time.Time) (bool, error)
	GetEventByID(ctx context.Context, eventID string) (*models.Event, error)
	GetEventByPIN(ctx context.Context, pin string) (*models.Event, error)
	InsertScanAudit(ctx context.Context, audit models.ScanAudit) error
}

type KafkaPublisher interface {
	PublishItemScanned(itemID, eventID, outcome, staffName string) error
}

type Service struct {
	DB     DBLayer
	Tokens *auth.TokenIssuer
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewService(db DBLayer, tokens *auth.TokenIssuer, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{
		DB:     db,
		Tokens: tokens,
		Kafka:  kafka,
		Logger: log,
	}
}

// Scan decides admission for one presented code. The only state change is
// the atomic purchased → used transition in the database, so two doors
// scanning the same code at once get exactly one "admitted" between them.
// Every attempt is audited and streamed, whatever the outcome.
func (s *Service) Scan(ctx context.Context, req models.ScanRequest, bearerToken string) models.ScanResult {
	itemID := qr.ItemIDFromPayload(req.ItemID)

	eventID, staffName, ok := s.authorize(ctx, req, bearerToken)
	if !ok {
		result := models.ScanResult{
			Status:  models.ScanUnauthorized,
			Message: "Scanner not authorized for this event.",
		}
		s.record(ctx, itemID, req.EventID, staffName, result)
		return result
	}

	item, err := s.DB.GetItemByID(ctx, itemID)
	if err != nil {
		result := models.ScanResult{
			Status:  models.ScanInvalid,
			Message: "Unknown code. Do not admit.",
		}
		s.record(ctx, itemID, eventID, staffName, result)
		return result
	}

	if item.EventID != eventID {
		result := models.ScanResult{
			Status:     models.ScanWrongEvent,
			TicketType: item.Kind,
			Message:    "Code belongs to a different event.",
		}
		s.record(ctx, itemID, eventID, staffName, result)
		return result
	}

	if item.Status == models.ItemStatusRefunded {
		result := models.ScanResult{
			Status:     models.ScanInvalid,
			TicketType: item.Kind,
			Message:    "Code was refunded and is no longer valid.",
		}
		s.record(ctx, itemID, eventID, staffName, result)
		return result
	}

	now := time.Now()
	admitted, err := s.DB.MarkItemUsed(ctx, itemID, staffName, now)
	if err != nil {
		s.Logger.Error("SCAN", fmt.Sprintf("Scan of %s failed on update: %v", itemID, err))
		result := models.ScanResult{
			Status:  models.ScanInvalid,
			Message: "Validation unavailable, try again.",
		}
		s.record(ctx, itemID, eventID, staffName, result)
		return result
	}

	if !admitted {
		// Lost the transition: the code is already used. Report the original
		// scan so staff can see when and where it got in.
		used, err := s.DB.GetItemByID(ctx, itemID)
		result := models.ScanResult{
			Status:     models.ScanAlreadyUsed,
			TicketType: item.Kind,
			BuyerName:  item.BuyerName,
			Message:    "Code already used.",
		}
		if err == nil {
			result.ScannedAt = used.ScannedAt
			result.Message = fmt.Sprintf("Code already used at %s by %s.",
				used.ScannedAt.Format("15:04:05"), used.ScannedBy)
		}
		s.record(ctx, itemID, eventID, staffName, result)
		return result
	}

	result := models.ScanResult{
		Valid:      true,
		Status:     models.ScanAdmitted,
		TicketType: item.Kind,
		BuyerName:  item.BuyerName,
		ScannedAt:  now,
		Message:    "Admit.",
	}
	s.record(ctx, itemID, eventID, staffName, result)
	return result
}

// authorize resolves the scanning staff's identity. A bearer token from a
// PIN login wins; otherwise the per-request PIN is checked against the
// event. Returns the effective event id, since token holders may omit it.
func (s *Service) authorize(ctx context.Context, req models.ScanRequest, bearerToken string) (eventID, staffName string, ok bool) {
	staffName = req.StaffName

	if bearerToken != "" {
		claims, err := s.Tokens.Verify(bearerToken)
		if err != nil {
			return req.EventID, staffName, false
		}
		if req.EventID != "" && req.EventID != claims.EventID {
			return req.EventID, staffName, false
		}
		if staffName == "" {
			staffName = claims.StaffName
		}
		return claims.EventID, staffName, true
	}

	if req.ScannerPIN == "" || req.EventID == "" {
		return req.EventID, staffName, false
	}
	event, err := s.DB.GetEventByID(ctx, req.EventID)
	if err != nil || !event.Active || event.ScannerPIN == "" || event.ScannerPIN != req.ScannerPIN {
		return req.EventID, staffName, false
	}
	return req.EventID, staffName, true
}

// PINLogin trades a valid event PIN for a device token so staff type the
// PIN once per shift instead of per scan.
func (s *Service) PINLogin(ctx context.Context, req models.PINLoginRequest) models.PINLoginResponse {
	if req.PIN == "" {
		return models.PINLoginResponse{Valid: false}
	}

	event, err := s.DB.GetEventByPIN(ctx, req.PIN)
	if err != nil {
		s.Logger.Warn("SCAN", "PIN login rejected: no active event for PIN")
		return models.PINLoginResponse{Valid: false}
	}

	token, err := s.Tokens.Issue(event.EventID, "")
	if err != nil {
		s.Logger.Error("SCAN", fmt.Sprintf("Failed to issue scanner token: %v", err))
		return models.PINLoginResponse{Valid: false}
	}

	s.Logger.Info("SCAN", fmt.Sprintf("Scanner logged in for event %s", event.EventID))
	return models.PINLoginResponse{
		Valid:     true,
		EventID:   event.EventID,
		EventName: event.Name,
		Token:     token,
	}
}

// record writes the audit row and streams the attempt. Neither may affect
// the door decision, so failures only log.
func (s *Service) record(ctx context.Context, itemID, eventID, staffName string, result models.ScanResult) {
	s.Logger.LogScan(result.Status, itemID, result.Message)

	audit := models.ScanAudit{
		AuditID:   uuid.NewString(),
		ItemID:    itemID,
		EventID:   eventID,
		StaffName: staffName,
		Outcome:   result.Status,
		Detail:    result.Message,
		ScannedAt: time.Now(),
	}
	if err := s.DB.InsertScanAudit(ctx, audit); err != nil {
		s.Logger.Error("SCAN", fmt.Sprintf("Failed to write scan audit for %s: %v", itemID, err))
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishItemScanned(itemID, eventID, result.Status, staffName); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish scan event for %s: %v", itemID, err))
		}
	}
}
