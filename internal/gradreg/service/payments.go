package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/internal/gradreg/data"
	"gradreg/internal/gradreg/gateway"
	"gradreg/pkg/logging"
)

const maxOrderIDAttempts = 3

// Source identifies where a transaction result came from. Webhook and
// reconciliation are authoritative; the browser return path never applies a
// transition and therefore has no Source.
type Source string

const (
	SourceWebhook        Source = "webhook"
	SourceReconciliation Source = "reconciliation"
)

type OrderRepository interface {
	InsertOrder(ctx context.Context, order *data.Order) error
	GetOrder(ctx context.Context, orderID string) (*data.Order, error)
	OrderIDExists(ctx context.Context, orderID string) (bool, error)
	SetGatewayOrder(
		ctx context.Context,
		orderID string,
		gatewayOrderID string,
		rawRequestEnvelope string,
		rawResponseEnvelope string,
	) error
	ApplyTerminalStatus(ctx context.Context, t *data.TerminalTransition) (bool, error)
	GetPendingOrdersOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]data.Order, error)
}

type GatewayClient interface {
	CreateOrder(ctx context.Context, request *gatewayprotocol.OrderRequest) (*gateway.CreateOrderResult, error)
	RetrieveTransaction(ctx context.Context, orderID string) (*gateway.RetrieveTransactionResult, error)
	DecodeTransactionResponse(raw string) (*gatewayprotocol.TransactionResponse, error)
	IsConfigured() bool
}

type PaymentsConfig struct {
	RegistrationFee decimal.Decimal
	Currency        string
}

// OrderCreation is the redirect material handed back to the caller after a
// successful create-order exchange.
type OrderCreation struct {
	OrderID        string
	GatewayOrderID string
	Links          []gatewayprotocol.Link
	MockMode       bool
}

type Payments struct {
	cfg                    PaymentsConfig
	gatewayCfg             gateway.Config
	repository             OrderRepository
	registrationRepository RegistrationRepository
	transactionManager     TransactionManager
	gatewayClient          GatewayClient
	adapter                gateway.StatusAdapter
	logger                 *logging.ZapLogger
}

func NewPayments(
	cfg PaymentsConfig,
	gatewayCfg gateway.Config,
	repository OrderRepository,
	registrationRepository RegistrationRepository,
	transactionManager TransactionManager,
	gatewayClient GatewayClient,
	adapter gateway.StatusAdapter,
	logger *logging.ZapLogger,
) *Payments {
	return &Payments{
		cfg:                    cfg,
		gatewayCfg:             gatewayCfg,
		repository:             repository,
		registrationRepository: registrationRepository,
		transactionManager:     transactionManager,
		gatewayClient:          gatewayClient,
		adapter:                adapter,
		logger:                 logger,
	}
}

// CreateOrder assembles the order payload for a registration, registers the
// order with the gateway and persists it as pending together with the raw
// envelopes of the exchange.
func (p *Payments) CreateOrder(
	ctx context.Context,
	registrationID int64,
	clientIP string,
	userAgent string,
) (*OrderCreation, error) {
	registration, err := p.registrationRepository.GetRegistration(ctx, registrationID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrNotFound):
			return nil, ErrRegistrationNotFound
		default:
			return nil, fmt.Errorf("error getting registration: %w", err)
		}
	}

	orderID, err := p.newUniqueOrderID(ctx)
	if err != nil {
		return nil, err
	}

	request, err := gateway.BuildOrderRequest(gateway.OrderParams{
		MercID:              p.gatewayCfg.MerchantID,
		OrderID:             orderID,
		Amount:              p.cfg.RegistrationFee,
		Currency:            p.cfg.Currency,
		ReturnURL:           p.gatewayCfg.ReturnURL,
		AdditionalInfo:      []string{registration.Name, registration.Email, registration.WhatsappNumber},
		AdditionalInfoSlots: p.gatewayCfg.AdditionalInfoSlots,
		ClientIP:            clientIP,
		UserAgent:           userAgent,
		OrderDate:           time.Now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidReturnURL):
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		default:
			return nil, fmt.Errorf("error building order request: %w", err)
		}
	}

	order := &data.Order{
		OrderID:        orderID,
		RegistrationID: registrationID,
		Amount:         p.cfg.RegistrationFee,
		Currency:       p.cfg.Currency,
		Status:         data.PendingStatus,
	}
	if err := p.repository.InsertOrder(ctx, order); err != nil {
		switch {
		case errors.Is(err, data.ErrUniqueConstraintViolation):
			return nil, ErrDuplicateOrderID
		default:
			return nil, fmt.Errorf("error inserting order: %w", err)
		}
	}

	result, err := p.gatewayClient.CreateOrder(ctx, request)
	if err != nil {
		// The pending order stays behind; reconciliation can pick it up
		// once the gateway is reachable again.
		return nil, fmt.Errorf("create order exchange failed: %w", err)
	}

	err = p.repository.SetGatewayOrder(
		ctx,
		orderID,
		result.Response.GatewayOrderID,
		result.RequestEnvelope,
		result.ResponseEnvelope,
	)
	if err != nil {
		return nil, fmt.Errorf("error persisting gateway order id: %w", err)
	}

	p.logger.InfoCtx(ctx, "order created",
		zap.String("orderid", orderID),
		zap.String("gateway-orderid", result.Response.GatewayOrderID),
		zap.Bool("mock", !p.gatewayClient.IsConfigured()))

	return &OrderCreation{
		OrderID:        orderID,
		GatewayOrderID: result.Response.GatewayOrderID,
		Links:          result.Response.Links,
		MockMode:       !p.gatewayClient.IsConfigured(),
	}, nil
}

func (p *Payments) newUniqueOrderID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		orderID, err := gateway.NewOrderID()
		if err != nil {
			return "", fmt.Errorf("error generating order id: %w", err)
		}
		exists, err := p.repository.OrderIDExists(ctx, orderID)
		if err != nil {
			return "", fmt.Errorf("error checking order id uniqueness: %w", err)
		}
		if !exists {
			return orderID, nil
		}
	}
	return "", ErrDuplicateOrderID
}

func (p *Payments) GetOrderStatus(ctx context.Context, orderID string) (*data.Order, error) {
	if !gateway.ValidOrderID(orderID) {
		return nil, fmt.Errorf("%w: order id must be 10-35 alphanumeric characters", ErrValidation)
	}
	order, err := p.repository.GetOrder(ctx, orderID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrNotFound):
			return nil, ErrOrderNotFound
		default:
			return nil, fmt.Errorf("error getting order: %w", err)
		}
	}
	return order, nil
}

// ProcessWebhook verifies, decodes and applies an asynchronous gateway
// delivery. The webhook is the authoritative source of a payment outcome.
func (p *Payments) ProcessWebhook(ctx context.Context, rawEnvelope string) error {
	response, err := p.gatewayClient.DecodeTransactionResponse(rawEnvelope)
	if err != nil {
		return err
	}
	_, err = p.ApplyTransactionResult(ctx, response, SourceWebhook, rawEnvelope)
	return err
}

// DecodeForDisplay verifies and decodes a browser-return envelope without
// touching order state. The return path is display-only.
func (p *Payments) DecodeForDisplay(rawEnvelope string) (*gatewayprotocol.TransactionResponse, error) {
	return p.gatewayClient.DecodeTransactionResponse(rawEnvelope)
}

// CheckOrder re-queries the gateway for one order and applies the result.
// Used by the reconciliation sweep; reports whether a transition happened.
func (p *Payments) CheckOrder(ctx context.Context, orderID string) (bool, error) {
	result, err := p.gatewayClient.RetrieveTransaction(ctx, orderID)
	if err != nil {
		return false, err
	}
	return p.ApplyTransactionResult(ctx, result.Response, SourceReconciliation, result.ResponseEnvelope)
}

// ApplyTransactionResult owns the pending -> paid|failed transition. The
// first terminal observation wins: replays are no-ops and conflicting later
// observations are logged and discarded, so a paid order can never be
// downgraded to failed by a stale or racing delivery.
func (p *Payments) ApplyTransactionResult(
	ctx context.Context,
	response *gatewayprotocol.TransactionResponse,
	source Source,
	rawEnvelope string,
) (bool, error) {
	outcome := p.adapter.MapAuthStatus(response.AuthStatus)
	if outcome == gateway.OutcomePending {
		p.logger.InfoCtx(ctx, "transaction still pending at the gateway",
			zap.String("orderid", response.OrderID),
			zap.String("auth-status", response.AuthStatus),
			zap.String("source", string(source)))
		return false, nil
	}
	if response.OrderID == "" {
		return false, fmt.Errorf("%w: transaction response carries no order id", ErrValidation)
	}

	var applied bool
	err := p.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		order, err := p.repository.GetOrder(ctx, response.OrderID)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrNotFound):
				return ErrOrderNotFound
			default:
				return fmt.Errorf("error getting order: %w", err)
			}
		}

		newStatus := statusForOutcome(outcome)
		if order.Status.Terminal() {
			if order.Status != newStatus {
				p.logger.WarnCtx(ctx, "conflicting terminal status observation discarded, keeping first terminal state",
					zap.String("orderid", order.OrderID),
					zap.String("stored-status", string(order.Status)),
					zap.String("observed-status", string(newStatus)),
					zap.String("auth-status", response.AuthStatus),
					zap.String("source", string(source)))
				return nil
			}
			p.logger.DebugCtx(ctx, "terminal status replayed, nothing to apply",
				zap.String("orderid", order.OrderID),
				zap.String("source", string(source)))
			return nil
		}

		transition := &data.TerminalTransition{
			OrderID:             order.OrderID,
			Status:              newStatus,
			GatewayOrderID:      response.GatewayOrderID,
			TransactionID:       response.TransactionID,
			PaymentMethodType:   paymentMethodType(response),
			BankReference:       response.BankRefNo,
			ErrorCode:           response.ErrorCode,
			ErrorDesc:           response.ErrorDesc,
			RawResponseEnvelope: rawEnvelope,
		}
		if newStatus == data.PaidStatus {
			now := time.Now()
			transition.ReceiptNumber = newReceiptNumber(now)
			transition.ReceiptGeneratedAt = &now
		}

		ok, err := p.repository.ApplyTerminalStatus(ctx, transition)
		if err != nil {
			return fmt.Errorf("error applying terminal status: %w", err)
		}
		if !ok {
			p.logger.WarnCtx(ctx, "order left pending state concurrently, transition not applied",
				zap.String("orderid", order.OrderID),
				zap.String("source", string(source)))
			return nil
		}

		applied = true
		p.logger.InfoCtx(ctx, "order status transition applied",
			zap.String("orderid", order.OrderID),
			zap.String("status", string(newStatus)),
			zap.String("auth-status", response.AuthStatus),
			zap.String("receipt", transition.ReceiptNumber),
			zap.String("source", string(source)))
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func statusForOutcome(outcome gateway.Outcome) data.Status {
	if outcome == gateway.OutcomePaid {
		return data.PaidStatus
	}
	return data.FailedStatus
}

func paymentMethodType(response *gatewayprotocol.TransactionResponse) string {
	if response.PaymentMethod.Type == "" {
		return "unknown"
	}
	return response.PaymentMethod.Type
}

func newReceiptNumber(now time.Time) string {
	return fmt.Sprintf("RCP%d%03d", now.UnixMilli(), rand.Intn(1000))
}
