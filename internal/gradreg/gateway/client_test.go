package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/pkg/envelope"
	"gradreg/pkg/logging"
)

func newTestClient(t *testing.T, baseURL string, configured bool) (*Client, *envelope.Codec) {
	t.Helper()
	logger, err := logging.NewZapLogger(zapcore.ErrorLevel)
	require.NoError(t, err)

	codec := envelope.NewCodec("signing-secret", "encryption-secret", "testclient", "testkid")
	client := NewClient(
		Config{
			BaseURL:             baseURL,
			MerchantID:          "MERCHANT",
			ClientID:            "testclient",
			ReturnURL:           "https://example.org/return",
			Timeout:             5 * time.Second,
			AdditionalInfoSlots: 3,
		},
		ConfigurationStatus{Configured: configured},
		codec,
		logger,
	)
	return client, codec
}

func orderRequestFixture() *gatewayprotocol.OrderRequest {
	return &gatewayprotocol.OrderRequest{
		MercID:    "MERCHANT",
		OrderID:   "A1B2C3D4E5F6A7B8",
		Amount:    "500.00",
		OrderDate: "2024-06-01T10:30:00Z",
		Currency:  "356",
		ReturnURL: "https://example.org/return",
		ItemCode:  "DIRECT",
	}
}

func TestCreateOrder(t *testing.T) {
	var received *gatewayprotocol.OrderRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/create", r.URL.Path)
		assert.Equal(t, "application/jose", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(envelope.TraceIDHeader))
		assert.Len(t, r.Header.Get(envelope.TimestampHeader), 14)

		codec := envelope.NewCodec("signing-secret", "encryption-secret", "testclient", "testkid")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		payload, err := codec.VerifyAndDecrypt(string(body))
		require.NoError(t, err)
		received = &gatewayprotocol.OrderRequest{}
		require.NoError(t, json.Unmarshal(payload, received))

		responseJSON, err := json.Marshal(gatewayprotocol.OrderResponse{
			OrderID:        received.OrderID,
			GatewayOrderID: "OAXX12345",
			MercID:         received.MercID,
			Currency:       received.Currency,
			Status:         "ACTIVE",
			Links: []gatewayprotocol.Link{
				{Rel: "redirect", Href: "https://gateway.example.org/pay"},
			},
		})
		require.NoError(t, err)
		token, err := codec.EncryptAndSign(responseJSON)
		require.NoError(t, err)
		_, _ = w.Write([]byte(token))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, true)

	result, err := client.CreateOrder(context.Background(), orderRequestFixture())
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, "A1B2C3D4E5F6A7B8", received.OrderID)
	assert.Equal(t, "OAXX12345", result.Response.GatewayOrderID)
	assert.NotEmpty(t, result.RequestEnvelope)
	assert.NotEmpty(t, result.ResponseEnvelope)
	require.Len(t, result.Response.Links, 1)
	assert.Equal(t, "https://gateway.example.org/pay", result.Response.Links[0].Href)
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, true)

	_, err := client.CreateOrder(context.Background(), orderRequestFixture())
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreateOrderUnreachableGateway(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:1", true)

	_, err := client.CreateOrder(context.Background(), orderRequestFixture())
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreateOrderMockMode(t *testing.T) {
	client, _ := newTestClient(t, "http://unused.invalid", false)

	result, err := client.CreateOrder(context.Background(), orderRequestFixture())
	require.NoError(t, err)
	assert.False(t, client.IsConfigured())
	assert.NotEmpty(t, result.Response.GatewayOrderID)
	assert.NotEmpty(t, result.Response.Links)
}

func TestRetrieveTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/get", r.URL.Path)

		codec := envelope.NewCodec("signing-secret", "encryption-secret", "testclient", "testkid")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		payload, err := codec.Verify(string(body))
		require.NoError(t, err)
		request := gatewayprotocol.RetrieveTransactionRequest{}
		require.NoError(t, json.Unmarshal(payload, &request))
		assert.Equal(t, "MERCHANT", request.MercID)
		assert.True(t, request.RefundDetails)

		responseJSON, err := json.Marshal(gatewayprotocol.TransactionResponse{
			OrderID:       request.OrderID,
			TransactionID: "TXN123",
			AuthStatus:    "0300",
		})
		require.NoError(t, err)
		token, err := codec.Sign(responseJSON)
		require.NoError(t, err)
		_, _ = w.Write([]byte(token))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, true)

	result, err := client.RetrieveTransaction(context.Background(), "A1B2C3D4E5F6A7B8")
	require.NoError(t, err)
	assert.Equal(t, "A1B2C3D4E5F6A7B8", result.Response.OrderID)
	assert.Equal(t, "TXN123", result.Response.TransactionID)
	assert.Equal(t, "0300", result.Response.AuthStatus)
}

func TestDecodeTransactionResponse(t *testing.T) {
	client, codec := newTestClient(t, "http://unused.invalid", true)

	responseJSON, err := json.Marshal(gatewayprotocol.TransactionResponse{
		OrderID:    "A1B2C3D4E5F6A7B8",
		AuthStatus: "0399",
		ErrorDesc:  "insufficient funds",
	})
	require.NoError(t, err)

	t.Run("encrypted envelope", func(t *testing.T) {
		token, err := codec.EncryptAndSign(responseJSON)
		require.NoError(t, err)

		response, err := client.DecodeTransactionResponse(token)
		require.NoError(t, err)
		assert.Equal(t, "0399", response.AuthStatus)
		assert.Equal(t, "insufficient funds", response.ErrorDesc)
	})

	t.Run("sign-only envelope", func(t *testing.T) {
		token, err := codec.Sign(responseJSON)
		require.NoError(t, err)

		response, err := client.DecodeTransactionResponse(token)
		require.NoError(t, err)
		assert.Equal(t, "A1B2C3D4E5F6A7B8", response.OrderID)
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := client.DecodeTransactionResponse("garbage")
		assert.ErrorIs(t, err, envelope.ErrMalformedEnvelope)
	})
}
