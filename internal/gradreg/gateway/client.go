package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/pkg/envelope"
	"gradreg/pkg/logging"
)

const (
	contentTypeJOSE = "application/jose"

	createOrderPath         = "/orders/create"
	retrieveTransactionPath = "/transactions/get"
)

type Config struct {
	BaseURL             string
	MerchantID          string
	ClientID            string
	ReturnURL           string
	Timeout             time.Duration
	AdditionalInfoSlots int
}

// ConfigurationStatus is computed once at startup. When credentials are
// missing or placeholders, the client runs in mock mode and fabricates
// successful responses without contacting the gateway.
type ConfigurationStatus struct {
	Configured    bool
	MissingFields []string
}

type Client struct {
	cfg    Config
	status ConfigurationStatus
	codec  *envelope.Codec
	http   *resty.Client
	logger *logging.ZapLogger
}

type CreateOrderResult struct {
	Response         *gatewayprotocol.OrderResponse
	RequestEnvelope  string
	ResponseEnvelope string
}

type RetrieveTransactionResult struct {
	Response         *gatewayprotocol.TransactionResponse
	RequestEnvelope  string
	ResponseEnvelope string
}

func NewClient(
	cfg Config,
	status ConfigurationStatus,
	codec *envelope.Codec,
	logger *logging.ZapLogger,
) *Client {
	return &Client{
		cfg:    cfg,
		status: status,
		codec:  codec,
		http:   resty.New().SetTimeout(cfg.Timeout),
		logger: logger,
	}
}

func (c *Client) IsConfigured() bool {
	return c.status.Configured
}

// CreateOrder registers an order with the gateway. The payload travels as an
// encrypt-then-sign envelope; the raw envelopes of both directions are
// returned so the caller can persist them verbatim for audit.
func (c *Client) CreateOrder(
	ctx context.Context,
	request *gatewayprotocol.OrderRequest,
) (*CreateOrderResult, error) {
	if !c.status.Configured {
		c.logger.WarnCtx(ctx, "gateway credentials not configured, fabricating create-order response",
			zap.Strings("missing", c.status.MissingFields))
		return c.mockCreateOrder(request), nil
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}
	token, err := c.codec.EncryptAndSign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build order envelope: %w", err)
	}

	body, err := c.post(ctx, createOrderPath, token)
	if err != nil {
		return nil, err
	}

	decoded, err := c.codec.VerifyAndDecrypt(body)
	if err != nil {
		return nil, err
	}
	response := &gatewayprotocol.OrderResponse{}
	if err := json.Unmarshal(decoded, response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order response: %w", err)
	}
	return &CreateOrderResult{
		Response:         response,
		RequestEnvelope:  token,
		ResponseEnvelope: body,
	}, nil
}

// RetrieveTransaction queries the gateway for the current state of an order.
// This endpoint still speaks the legacy sign-only envelope shape.
func (c *Client) RetrieveTransaction(
	ctx context.Context,
	orderID string,
) (*RetrieveTransactionResult, error) {
	if !c.status.Configured {
		c.logger.WarnCtx(ctx, "gateway credentials not configured, fabricating transaction response",
			zap.String("orderid", orderID))
		return c.mockRetrieveTransaction(orderID), nil
	}

	payload, err := json.Marshal(gatewayprotocol.RetrieveTransactionRequest{
		MercID:        c.cfg.MerchantID,
		OrderID:       orderID,
		RefundDetails: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retrieve request: %w", err)
	}
	token, err := c.codec.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build retrieve envelope: %w", err)
	}

	body, err := c.post(ctx, retrieveTransactionPath, token)
	if err != nil {
		return nil, err
	}

	response, err := c.DecodeTransactionResponse(body)
	if err != nil {
		return nil, err
	}
	return &RetrieveTransactionResult{
		Response:         response,
		RequestEnvelope:  token,
		ResponseEnvelope: body,
	}, nil
}

// DecodeTransactionResponse verifies and decrypts an inbound transaction
// envelope (webhook or browser return) into its wire shape.
func (c *Client) DecodeTransactionResponse(raw string) (*gatewayprotocol.TransactionResponse, error) {
	decoded, err := c.codec.VerifyAndDecrypt(raw)
	if err != nil {
		return nil, err
	}
	response := &gatewayprotocol.TransactionResponse{}
	if err := json.Unmarshal(decoded, response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction response: %w", err)
	}
	return response, nil
}

func (c *Client) post(ctx context.Context, path string, token string) (string, error) {
	traceID, err := envelope.NewTraceID()
	if err != nil {
		return "", fmt.Errorf("failed to generate trace id: %w", err)
	}
	timestamp := envelope.TimestampCompact(time.Now())

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeJOSE).
		SetHeader("Accept", contentTypeJOSE).
		SetHeader(envelope.TraceIDHeader, traceID).
		SetHeader(envelope.TimestampHeader, timestamp).
		SetBody(token).
		Post(c.cfg.BaseURL + path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	c.logger.DebugCtx(ctx, "gateway exchange finished",
		zap.String("path", path),
		zap.String("trace-id", traceID),
		zap.String("timestamp", timestamp),
		zap.Int("status-code", resp.StatusCode()))

	if !resp.IsSuccess() {
		c.logErrorBody(ctx, traceID, resp)
		return "", fmt.Errorf("%w: unexpected status code %v", ErrGatewayUnavailable, resp.StatusCode())
	}
	return string(resp.Body()), nil
}

// The gateway returns structured, signed error detail even on failure;
// decode it for the logs before surfacing a generic transport error.
func (c *Client) logErrorBody(ctx context.Context, traceID string, resp *resty.Response) {
	decoded, err := c.codec.VerifyAndDecrypt(string(resp.Body()))
	if err != nil {
		c.logger.ErrorCtx(ctx, "gateway returned an undecodable error body",
			zap.String("trace-id", traceID),
			zap.Int("status-code", resp.StatusCode()),
			zap.Error(err))
		return
	}
	gatewayError := gatewayprotocol.ErrorResponse{}
	if err := json.Unmarshal(decoded, &gatewayError); err != nil {
		c.logger.ErrorCtx(ctx, "gateway error envelope has an unexpected shape",
			zap.String("trace-id", traceID),
			zap.Error(err))
		return
	}
	c.logger.ErrorCtx(ctx, "gateway returned an error envelope",
		zap.String("trace-id", traceID),
		zap.Int("status-code", resp.StatusCode()),
		zap.String("error-code", gatewayError.ErrorCode),
		zap.String("error-desc", gatewayError.ErrorDesc),
		zap.String("message", gatewayError.Message))
}
