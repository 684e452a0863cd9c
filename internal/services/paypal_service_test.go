package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ambre/internal/models"
)

type paypalStub struct {
	tokenCalls  int32
	refundCalls int32
	orderStatus string
	captures    []paypalCapture
}

func (s *paypalStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok_1",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "PP-100",
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://paypal.example/self", "rel": "self"},
				{"href": "https://paypal.example/approve/PP-100", "rel": "approve"},
			},
		})
	})

	mux.HandleFunc("/v2/checkout/orders/PP-100", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok_1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(paypalOrder{
			ID:     "PP-100",
			Status: s.orderStatus,
			PurchaseUnits: []paypalPurchaseUnit{{
				Payments: &struct {
					Captures []paypalCapture `json:"captures"`
				}{Captures: s.captures},
			}},
		})
	})

	mux.HandleFunc("/v2/payments/captures/CAP-1/refund", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.refundCalls, 1)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     "REF-1",
			"status": "COMPLETED",
		})
	})

	return httptest.NewServer(mux)
}

func paypalTestOrder() *models.Order {
	return &models.Order{
		BaseModel:     models.BaseModel{ID: uuid.New()},
		OrderNumber:   "AMB-TEST-00007",
		PaymentMethod: models.PaymentMethodPayPal,
		Currency:      "EUR",
		TotalAmount:   decimal.RequireFromString("104.97"),
		PayPalOrderID: "PP-100",
	}
}

func TestPayPalCreateOrderReturnsApprovalLink(t *testing.T) {
	stub := &paypalStub{}
	srv := stub.server(t)
	defer srv.Close()

	service := NewPayPalService(srv.URL, "client", "secret")

	wallet, err := service.CreateOrder(context.Background(), paypalTestOrder())
	require.NoError(t, err)

	assert.Equal(t, "PP-100", wallet.ID)
	assert.Equal(t, "https://paypal.example/approve/PP-100", wallet.ApprovalURL)
}

func TestPayPalTokenIsCached(t *testing.T) {
	stub := &paypalStub{}
	srv := stub.server(t)
	defer srv.Close()

	service := NewPayPalService(srv.URL, "client", "secret")

	_, err := service.CreateOrder(context.Background(), paypalTestOrder())
	require.NoError(t, err)
	_, err = service.CreateOrder(context.Background(), paypalTestOrder())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenCalls))
}

func TestPayPalRefundCompletedCapture(t *testing.T) {
	stub := &paypalStub{
		orderStatus: "COMPLETED",
		captures: []paypalCapture{
			{ID: "CAP-0", Status: "DECLINED"},
			{ID: "CAP-1", Status: "COMPLETED"},
		},
	}
	srv := stub.server(t)
	defer srv.Close()

	service := NewPayPalService(srv.URL, "client", "secret")

	outcome, err := service.Refund(context.Background(), paypalTestOrder())
	require.NoError(t, err)

	assert.Equal(t, "REF-1", outcome.RefundID)
	assert.Equal(t, models.PaymentMethodPayPal, outcome.Provider)
	assert.Equal(t, "104.97", outcome.Amount.StringFixed(2))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.refundCalls))
}

func TestPayPalRefundNoCompletedCapture(t *testing.T) {
	stub := &paypalStub{
		orderStatus: "APPROVED",
		captures:    []paypalCapture{{ID: "CAP-0", Status: "DECLINED"}},
	}
	srv := stub.server(t)
	defer srv.Close()

	service := NewPayPalService(srv.URL, "client", "secret")

	_, err := service.Refund(context.Background(), paypalTestOrder())
	assert.ErrorIs(t, err, ErrNoRefundableCapture)
	assert.Zero(t, atomic.LoadInt32(&stub.refundCalls))
}

func TestPayPalRefundWithoutReference(t *testing.T) {
	service := NewPayPalService("https://paypal.invalid", "client", "secret")

	order := paypalTestOrder()
	order.PayPalOrderID = ""

	_, err := service.Refund(context.Background(), order)
	assert.ErrorIs(t, err, ErrNoPaymentReference)
}
