package refund_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"

	"gatepass/internal/logger"
	"gatepass/internal/models"
	"gatepass/internal/refund"
)

// MockRefundDB is a mock implementation of the refund DBLayer interface
type MockRefundDB struct {
	mock.Mock
}

func (m *MockRefundDB) GetItemByID(_ context.Context, itemID string) (*models.Item, error) {
	args := m.Called(itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockRefundDB) GetOrderBySession(_ context.Context, sessionID string) (*models.Order, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockRefundDB) GetEventByID(_ context.Context, eventID string) (*models.Event, error) {
	args := m.Called(eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockRefundDB) MarkItemRefunded(_ context.Context, itemID string, amount int64, at time.Time) (bool, error) {
	args := m.Called(itemID, amount, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefundDB) ReopenItem(_ context.Context, itemID, priorStatus string) error {
	args := m.Called(itemID, priorStatus)
	return args.Error(0)
}

// MockProvider is a mock payment processor
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateRefund(_ context.Context, paymentIntentID string, amount int64) (string, error) {
	args := m.Called(paymentIntentID, amount)
	return args.String(0), args.Error(1)
}

func newRefundService(db *MockRefundDB, provider *MockProvider) *refund.Service {
	return refund.NewService(db, provider, nil, nil, logger.NewLogger())
}

func refundableItem() *models.Item {
	return &models.Item{
		ItemID:     "parking-sess_ABC-1",
		SessionID:  "sess_ABC",
		EventID:    "evt_1",
		Kind:       models.KindParking,
		Status:     models.ItemStatusPurchased,
		BuyerName:  "Jane Doe",
		BuyerEmail: "jane@example.com",
	}
}

func paidOrder() *models.Order {
	return &models.Order{
		SessionID:       "sess_ABC",
		EventID:         "evt_1",
		AdmissionQty:    2,
		ParkingQty:      1,
		AmountTotal:     10500,
		Currency:        "usd",
		PaymentIntentID: "pi_123",
	}
}

func pricedEvent() *models.Event {
	return &models.Event{
		EventID:        "evt_1",
		AdmissionPrice: 4500,
		ParkingPrice:   1500,
	}
}

// Tests start here

func TestRefundSuccess(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(true, nil)

	mockProvider := new(MockProvider)
	mockProvider.On("CreateRefund", "pi_123", int64(1500)).Return("re_123", nil)

	resp, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.NoError(t, err)
	assert.Equal(t, int64(1500), resp.RefundAmount)
	assert.Equal(t, "re_123", resp.StripeRefundID)
	assert.False(t, resp.ProviderSkipped)
	mockDB.AssertExpectations(t)
	mockProvider.AssertExpectations(t)
}

func TestRefundAlreadyRefundedItem(t *testing.T) {
	item := refundableItem()
	item.Status = models.ItemStatusRefunded

	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(item, nil)
	mockProvider := new(MockProvider)

	_, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.ErrorIs(t, err, refund.ErrAlreadyRefunded)
	// No money may move twice.
	mockProvider.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
}

func TestRefundUnknownItem(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_NOPE-1").Return(nil, errors.New("not found"))

	_, err := newRefundService(mockDB, new(MockProvider)).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_NOPE-1"})

	assert.ErrorIs(t, err, refund.ErrItemNotFound)
}

func TestRefundSessionMismatch(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)

	req := models.RefundRequest{ItemID: "parking-sess_ABC-1", SessionID: "sess_OTHER"}
	_, err := newRefundService(mockDB, new(MockProvider)).Refund(context.Background(), req)

	assert.ErrorIs(t, err, refund.ErrItemNotFound)
}

func TestRefundProviderConflictReconcilesLocally(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(true, nil)

	mockProvider := new(MockProvider)
	mockProvider.On("CreateRefund", "pi_123", int64(1500)).
		Return("", &stripe.Error{Code: stripe.ErrorCodeChargeAlreadyRefunded})

	resp, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.NoError(t, err)
	assert.True(t, resp.ProviderSkipped)
	assert.Empty(t, resp.StripeRefundID)
	mockDB.AssertExpectations(t)
}

func TestRefundProviderTransientFailure(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(true, nil)
	mockDB.On("ReopenItem", "parking-sess_ABC-1", models.ItemStatusPurchased).Return(nil)

	mockProvider := new(MockProvider)
	mockProvider.On("CreateRefund", "pi_123", int64(1500)).
		Return("", &stripe.Error{Code: stripe.ErrorCodeRateLimit})

	_, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.Error(t, err)
	// The claim on the row is given back so the operator can retry.
	mockDB.AssertExpectations(t)
}

func TestRefundConcurrentRequestsSingleProviderCall(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	// Both requests read the item as purchased, only the first conditional
	// update wins.
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(true, nil).Once()
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(false, nil).Once()

	mockProvider := new(MockProvider)
	mockProvider.On("CreateRefund", "pi_123", int64(1500)).Return("re_123", nil).Once()

	svc := newRefundService(mockDB, mockProvider)

	_, err := svc.Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})
	assert.NoError(t, err)

	_, err = svc.Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})
	assert.ErrorIs(t, err, refund.ErrAlreadyRefunded)

	// The loser never reaches the processor, money moves once.
	mockProvider.AssertNumberOfCalls(t, "CreateRefund", 1)
	mockDB.AssertExpectations(t)
}

func TestRefundWithoutPaymentIntent(t *testing.T) {
	order := paidOrder()
	order.PaymentIntentID = ""

	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(order, nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(true, nil)

	mockProvider := new(MockProvider)

	resp, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.NoError(t, err)
	assert.True(t, resp.ProviderSkipped)
	mockProvider.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
}

func TestRefundAmountFallbackWithoutEvent(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(nil, errors.New("not found"))
	// 10500 total across 3 units.
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(3500), mock.Anything).Return(true, nil)

	mockProvider := new(MockProvider)
	mockProvider.On("CreateRefund", "pi_123", int64(3500)).Return("re_456", nil)

	resp, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.NoError(t, err)
	assert.Equal(t, int64(3500), resp.RefundAmount)
}

func TestRefundConcurrentLoss(t *testing.T) {
	mockDB := new(MockRefundDB)
	mockDB.On("GetItemByID", "parking-sess_ABC-1").Return(refundableItem(), nil)
	mockDB.On("GetOrderBySession", "sess_ABC").Return(paidOrder(), nil)
	mockDB.On("GetEventByID", "evt_1").Return(pricedEvent(), nil)
	mockDB.On("MarkItemRefunded", "parking-sess_ABC-1", int64(1500), mock.Anything).Return(false, nil)

	mockProvider := new(MockProvider)

	_, err := newRefundService(mockDB, mockProvider).Refund(context.Background(), models.RefundRequest{ItemID: "parking-sess_ABC-1"})

	assert.ErrorIs(t, err, refund.ErrAlreadyRefunded)
	mockProvider.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
}
