package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/internal/gradreg/data"
	"gradreg/internal/gradreg/gateway"
	"gradreg/pkg/logging"
)

type fakeTransactionManager struct{}

func (fakeTransactionManager) DoWithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepository struct {
	orders        map[string]*data.Order
	registrations map[int64]*data.Registration
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{
		orders:        make(map[string]*data.Order),
		registrations: make(map[int64]*data.Registration),
	}
}

func (r *fakeOrderRepository) InsertOrder(_ context.Context, order *data.Order) error {
	if _, ok := r.orders[order.OrderID]; ok {
		return data.ErrUniqueConstraintViolation
	}
	stored := *order
	stored.CreatedAt = time.Now()
	r.orders[order.OrderID] = &stored
	return nil
}

func (r *fakeOrderRepository) GetOrder(_ context.Context, orderID string) (*data.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, data.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepository) OrderIDExists(_ context.Context, orderID string) (bool, error) {
	_, ok := r.orders[orderID]
	return ok, nil
}

func (r *fakeOrderRepository) SetGatewayOrder(
	_ context.Context,
	orderID string,
	gatewayOrderID string,
	rawRequestEnvelope string,
	rawResponseEnvelope string,
) error {
	order, ok := r.orders[orderID]
	if !ok {
		return data.ErrNotFound
	}
	order.GatewayOrderID = gatewayOrderID
	order.RawRequestEnvelope = rawRequestEnvelope
	order.RawResponseEnvelope = rawResponseEnvelope
	return nil
}

func (r *fakeOrderRepository) ApplyTerminalStatus(_ context.Context, t *data.TerminalTransition) (bool, error) {
	order, ok := r.orders[t.OrderID]
	if !ok {
		return false, data.ErrNotFound
	}
	if order.Status != data.PendingStatus {
		return false, nil
	}
	order.Status = t.Status
	if t.GatewayOrderID != "" {
		order.GatewayOrderID = t.GatewayOrderID
	}
	order.TransactionID = t.TransactionID
	order.PaymentMethodType = t.PaymentMethodType
	order.BankReference = t.BankReference
	order.ErrorCode = t.ErrorCode
	order.ErrorDesc = t.ErrorDesc
	order.ReceiptNumber = t.ReceiptNumber
	order.ReceiptGeneratedAt = t.ReceiptGeneratedAt
	order.RawResponseEnvelope = t.RawResponseEnvelope
	return true, nil
}

func (r *fakeOrderRepository) GetPendingOrdersOlderThan(
	_ context.Context,
	cutoff time.Time,
	limit int,
) ([]data.Order, error) {
	result := make([]data.Order, 0)
	for _, order := range r.orders {
		if order.Status == data.PendingStatus && order.CreatedAt.Before(cutoff) && len(result) < limit {
			result = append(result, *order)
		}
	}
	return result, nil
}

func (r *fakeOrderRepository) InsertRegistration(_ context.Context, reg *data.Registration) (int64, error) {
	id := int64(len(r.registrations) + 1)
	stored := *reg
	stored.ID = id
	r.registrations[id] = &stored
	return id, nil
}

func (r *fakeOrderRepository) GetRegistration(_ context.Context, id int64) (*data.Registration, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeOrderRepository) GetAllRegistrations(_ context.Context) ([]data.Registration, error) {
	result := make([]data.Registration, 0, len(r.registrations))
	for _, reg := range r.registrations {
		result = append(result, *reg)
	}
	return result, nil
}

func (r *fakeOrderRepository) EmailExists(_ context.Context, email string) (bool, error) {
	for _, reg := range r.registrations {
		if reg.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type fakeGatewayClient struct {
	configured     bool
	createErr      error
	retrieveErr    error
	transaction    *gatewayprotocol.TransactionResponse
	createRequests []*gatewayprotocol.OrderRequest
}

func (c *fakeGatewayClient) CreateOrder(
	_ context.Context,
	request *gatewayprotocol.OrderRequest,
) (*gateway.CreateOrderResult, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.createRequests = append(c.createRequests, request)
	return &gateway.CreateOrderResult{
		Response: &gatewayprotocol.OrderResponse{
			OrderID:        request.OrderID,
			GatewayOrderID: "BD" + request.OrderID,
			Links: []gatewayprotocol.Link{
				{Rel: "payment", Href: "https://gateway.example.org/pay"},
			},
		},
		RequestEnvelope:  "request-envelope",
		ResponseEnvelope: "response-envelope",
	}, nil
}

func (c *fakeGatewayClient) RetrieveTransaction(
	_ context.Context,
	orderID string,
) (*gateway.RetrieveTransactionResult, error) {
	if c.retrieveErr != nil {
		return nil, c.retrieveErr
	}
	response := *c.transaction
	response.OrderID = orderID
	return &gateway.RetrieveTransactionResult{
		Response:         &response,
		ResponseEnvelope: "retrieve-envelope",
	}, nil
}

func (c *fakeGatewayClient) DecodeTransactionResponse(raw string) (*gatewayprotocol.TransactionResponse, error) {
	if c.transaction == nil {
		return nil, errors.New("no transaction configured")
	}
	return c.transaction, nil
}

func (c *fakeGatewayClient) IsConfigured() bool {
	return c.configured
}

func newTestPayments(t *testing.T, repo *fakeOrderRepository, client *fakeGatewayClient) *Payments {
	t.Helper()
	logger, err := logging.NewZapLogger(zapcore.ErrorLevel)
	require.NoError(t, err)

	return NewPayments(
		PaymentsConfig{
			RegistrationFee: decimal.RequireFromString("500.00"),
			Currency:        "356",
		},
		gateway.Config{
			MerchantID:          "MERCHANT",
			ReturnURL:           "https://example.org/return",
			AdditionalInfoSlots: 3,
		},
		repo,
		repo,
		fakeTransactionManager{},
		client,
		gateway.NewBillDeskAdapter(),
		logger,
	)
}

func registrationFixture() *data.Registration {
	return &data.Registration{
		Name:           "JOHN DOE",
		Email:          "john@example.org",
		WhatsappNumber: "9876543210",
	}
}

var receiptPattern = regexp.MustCompile(`^RCP\d+$`)

func TestCreateOrder(t *testing.T) {
	repo := newFakeOrderRepository()
	client := &fakeGatewayClient{configured: true}
	payments := newTestPayments(t, repo, client)

	registrationID, err := repo.InsertRegistration(context.Background(), registrationFixture())
	require.NoError(t, err)

	creation, err := payments.CreateOrder(context.Background(), registrationID, "203.0.113.7", "test-agent")
	require.NoError(t, err)

	assert.True(t, gateway.ValidOrderID(creation.OrderID))
	assert.Equal(t, "BD"+creation.OrderID, creation.GatewayOrderID)
	assert.False(t, creation.MockMode)
	require.Len(t, creation.Links, 1)

	order, err := repo.GetOrder(context.Background(), creation.OrderID)
	require.NoError(t, err)
	assert.Equal(t, data.PendingStatus, order.Status)
	assert.Equal(t, "500", order.Amount.String())
	assert.Equal(t, "356", order.Currency)
	assert.Equal(t, registrationID, order.RegistrationID)
	assert.Equal(t, "request-envelope", order.RawRequestEnvelope)
	assert.Equal(t, "response-envelope", order.RawResponseEnvelope)

	require.Len(t, client.createRequests, 1)
	request := client.createRequests[0]
	assert.Equal(t, "500.00", request.Amount)
	assert.Equal(t, "356", request.Currency)
	assert.Equal(t, "JOHN DOE", request.AdditionalInfo["additional_info1"])
	assert.Equal(t, "john@example.org", request.AdditionalInfo["additional_info2"])
	assert.Equal(t, "9876543210", request.AdditionalInfo["additional_info3"])
}

func TestCreateOrderUnknownRegistration(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})

	_, err := payments.CreateOrder(context.Background(), 42, "203.0.113.7", "test-agent")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestCreateOrderRejectsReturnURLBeforeGatewayCall(t *testing.T) {
	repo := newFakeOrderRepository()
	client := &fakeGatewayClient{configured: true}

	logger, err := logging.NewZapLogger(zapcore.ErrorLevel)
	require.NoError(t, err)
	payments := NewPayments(
		PaymentsConfig{RegistrationFee: decimal.RequireFromString("500.00"), Currency: "356"},
		gateway.Config{
			MerchantID: "MERCHANT",
			ReturnURL:  "https://example.org/return?session=1",
		},
		repo,
		repo,
		fakeTransactionManager{},
		client,
		gateway.NewBillDeskAdapter(),
		logger,
	)

	registrationID, err := repo.InsertRegistration(context.Background(), registrationFixture())
	require.NoError(t, err)

	_, err = payments.CreateOrder(context.Background(), registrationID, "203.0.113.7", "test-agent")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, client.createRequests)
}

func TestCreateOrderKeepsPendingOrderOnGatewayFailure(t *testing.T) {
	repo := newFakeOrderRepository()
	client := &fakeGatewayClient{configured: true, createErr: gateway.ErrGatewayUnavailable}
	payments := newTestPayments(t, repo, client)

	registrationID, err := repo.InsertRegistration(context.Background(), registrationFixture())
	require.NoError(t, err)

	_, err = payments.CreateOrder(context.Background(), registrationID, "203.0.113.7", "test-agent")
	assert.ErrorIs(t, err, gateway.ErrGatewayUnavailable)

	// The pending order survives so reconciliation can pick it up.
	assert.Len(t, repo.orders, 1)
	for _, order := range repo.orders {
		assert.Equal(t, data.PendingStatus, order.Status)
	}
}

func TestGetOrderStatus(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})

	t.Run("invalid order id", func(t *testing.T) {
		_, err := payments.GetOrderStatus(context.Background(), "short")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := payments.GetOrderStatus(context.Background(), "A1B2C3D4E5F6A7B8")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func pendingOrderFixture(t *testing.T, repo *fakeOrderRepository) string {
	t.Helper()
	orderID, err := gateway.NewOrderID()
	require.NoError(t, err)
	require.NoError(t, repo.InsertOrder(context.Background(), &data.Order{
		OrderID:  orderID,
		Amount:   decimal.RequireFromString("500.00"),
		Currency: "356",
		Status:   data.PendingStatus,
	}))
	return orderID
}

func TestApplyTransactionResultPaid(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})
	orderID := pendingOrderFixture(t, repo)

	applied, err := payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			OrderID:       orderID,
			TransactionID: "TXN123",
			AuthStatus:    gateway.BillDeskAuthStatusSuccess,
			PaymentMethod: gatewayprotocol.PaymentMethod{Type: "upi"},
			BankRefNo:     "REF999",
		},
		SourceWebhook,
		"raw-envelope",
	)
	require.NoError(t, err)
	assert.True(t, applied)

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.PaidStatus, order.Status)
	assert.Equal(t, "TXN123", order.TransactionID)
	assert.Equal(t, "upi", order.PaymentMethodType)
	assert.Equal(t, "REF999", order.BankReference)
	assert.Regexp(t, receiptPattern, order.ReceiptNumber)
	require.NotNil(t, order.ReceiptGeneratedAt)
	assert.Equal(t, "raw-envelope", order.RawResponseEnvelope)
}

func TestApplyTransactionResultFailed(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})
	orderID := pendingOrderFixture(t, repo)

	applied, err := payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			OrderID:    orderID,
			AuthStatus: gateway.BillDeskAuthStatusFailed,
			ErrorCode:  "TRS0021",
			ErrorDesc:  "insufficient funds in the account",
		},
		SourceWebhook,
		"raw-envelope",
	)
	require.NoError(t, err)
	assert.True(t, applied)

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.FailedStatus, order.Status)
	assert.Equal(t, "TRS0021", order.ErrorCode)
	assert.Equal(t, "insufficient funds in the account", order.ErrorDesc)
	assert.Empty(t, order.ReceiptNumber)
	assert.Nil(t, order.ReceiptGeneratedAt)
}

func TestApplyTransactionResultReplayIsIdempotent(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})
	orderID := pendingOrderFixture(t, repo)

	response := &gatewayprotocol.TransactionResponse{
		OrderID:       orderID,
		TransactionID: "TXN123",
		AuthStatus:    gateway.BillDeskAuthStatusSuccess,
	}

	applied, err := payments.ApplyTransactionResult(context.Background(), response, SourceWebhook, "first")
	require.NoError(t, err)
	assert.True(t, applied)

	firstOrder, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	applied, err = payments.ApplyTransactionResult(context.Background(), response, SourceWebhook, "second")
	require.NoError(t, err)
	assert.False(t, applied)

	secondOrder, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, firstOrder.ReceiptNumber, secondOrder.ReceiptNumber)
	assert.Equal(t, firstOrder.RawResponseEnvelope, secondOrder.RawResponseEnvelope)
}

func TestApplyTransactionResultFirstTerminalWins(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})
	orderID := pendingOrderFixture(t, repo)

	applied, err := payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			OrderID:    orderID,
			AuthStatus: gateway.BillDeskAuthStatusSuccess,
		},
		SourceWebhook,
		"paid-envelope",
	)
	require.NoError(t, err)
	assert.True(t, applied)

	// A conflicting later observation never downgrades a paid order.
	applied, err = payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			OrderID:    orderID,
			AuthStatus: gateway.BillDeskAuthStatusFailed,
			ErrorDesc:  "stale failure",
		},
		SourceReconciliation,
		"failed-envelope",
	)
	require.NoError(t, err)
	assert.False(t, applied)

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.PaidStatus, order.Status)
	assert.Empty(t, order.ErrorDesc)
}

func TestApplyTransactionResultPendingOutcomeIsNoOp(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})
	orderID := pendingOrderFixture(t, repo)

	applied, err := payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			OrderID:    orderID,
			AuthStatus: "0002",
		},
		SourceReconciliation,
		"pending-envelope",
	)
	require.NoError(t, err)
	assert.False(t, applied)

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.PendingStatus, order.Status)
}

func TestApplyTransactionResultMissingOrderID(t *testing.T) {
	repo := newFakeOrderRepository()
	payments := newTestPayments(t, repo, &fakeGatewayClient{configured: true})

	_, err := payments.ApplyTransactionResult(
		context.Background(),
		&gatewayprotocol.TransactionResponse{
			AuthStatus: gateway.BillDeskAuthStatusSuccess,
		},
		SourceWebhook,
		"raw",
	)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProcessWebhook(t *testing.T) {
	repo := newFakeOrderRepository()
	orderID := pendingOrderFixture(t, repo)
	client := &fakeGatewayClient{
		configured: true,
		transaction: &gatewayprotocol.TransactionResponse{
			OrderID:    orderID,
			AuthStatus: gateway.BillDeskAuthStatusSuccess,
		},
	}
	payments := newTestPayments(t, repo, client)

	require.NoError(t, payments.ProcessWebhook(context.Background(), "raw-envelope"))

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.PaidStatus, order.Status)
}

func TestCheckOrder(t *testing.T) {
	repo := newFakeOrderRepository()
	orderID := pendingOrderFixture(t, repo)
	client := &fakeGatewayClient{
		configured: true,
		transaction: &gatewayprotocol.TransactionResponse{
			AuthStatus: gateway.BillDeskAuthStatusFailed,
			ErrorDesc:  "expired session",
		},
	}
	payments := newTestPayments(t, repo, client)

	applied, err := payments.CheckOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, applied)

	order, err := repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, data.FailedStatus, order.Status)
	assert.Equal(t, "expired session", order.ErrorDesc)
}
