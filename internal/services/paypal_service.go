package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/example/ambre/internal/models"
)

const paypalTokenLeeway = 30 * time.Second

// WalletOrder is a provider-side order awaiting buyer approval.
type WalletOrder struct {
	ID          string
	ApprovalURL string
}

// WalletProvider is the wallet payment collaborator: provider orders,
// status reads and captures for reconciliation, and refunds against
// completed captures.
type WalletProvider interface {
	CreateOrder(ctx context.Context, order *models.Order) (*WalletOrder, error)
	OrderStatus(ctx context.Context, providerOrderID string) (string, error)
	CaptureOrder(ctx context.Context, providerOrderID string) error
	RefundProvider
}

// PayPalService implements WalletProvider over the PayPal Orders v2 REST
// API with a cached OAuth token.
type PayPalService struct {
	baseURL  string
	clientID string
	secret   string

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time

	client *http.Client
}

// NewPayPalService constructs PayPalService.
func NewPayPalService(baseURL, clientID, secret string) *PayPalService {
	return &PayPalService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		secret:   secret,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *PayPalService) getToken(ctx context.Context, force bool) (string, error) {
	if !force {
		s.tokenMu.RLock()
		if s.token != "" && time.Now().Add(paypalTokenLeeway).Before(s.tokenExpiry) {
			token := s.token
			s.tokenMu.RUnlock()
			return token, nil
		}
		s.tokenMu.RUnlock()
	}

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	// Re-check after acquiring the write lock; another goroutine may have
	// refreshed while we waited.
	if !force && s.token != "" && time.Now().Add(paypalTokenLeeway).Before(s.tokenExpiry) {
		return s.token, nil
	}

	if s.clientID == "" || s.secret == "" {
		return "", errors.New("paypal credentials are not configured")
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build paypal token request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute paypal token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read paypal token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal token request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp paypalTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("unmarshal paypal token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("paypal token response missing access_token")
	}

	s.token = tokenResp.AccessToken
	if tokenResp.ExpiresIn > 0 {
		s.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	} else {
		s.tokenExpiry = time.Now().Add(5 * time.Minute)
	}

	return s.token, nil
}

type paypalResponse struct {
	Status int
	Body   []byte
}

// doRequest performs an authenticated PayPal API call, refreshing the
// token and retrying once on 401.
func (s *PayPalService) doRequest(ctx context.Context, method, path string, payload any) (*paypalResponse, error) {
	token, err := s.getToken(ctx, false)
	if err != nil {
		return nil, err
	}

	do := func(token string) (*paypalResponse, error) {
		var bodyReader io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal paypal request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("build paypal request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute paypal request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read paypal response: %w", err)
		}
		return &paypalResponse{Status: resp.StatusCode, Body: body}, nil
	}

	resp, err := do(token)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusUnauthorized {
		return resp, nil
	}

	token, err = s.getToken(ctx, true)
	if err != nil {
		return nil, err
	}
	return do(token)
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalCapture struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Amount paypalAmount `json:"amount"`
}

type paypalPurchaseUnit struct {
	ReferenceID string       `json:"reference_id,omitempty"`
	Amount      paypalAmount `json:"amount"`
	Payments    *struct {
		Captures []paypalCapture `json:"captures"`
	} `json:"payments,omitempty"`
}

type paypalLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	Links         []paypalLink         `json:"links"`
}

// CreateOrder registers a provider order for the local order's total and
// returns the buyer approval link.
func (s *PayPalService) CreateOrder(ctx context.Context, order *models.Order) (*WalletOrder, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": order.ID.String(),
			"custom_id":    order.OrderNumber,
			"amount": paypalAmount{
				CurrencyCode: order.Currency,
				Value:        order.TotalAmount.StringFixed(2),
			},
		}},
	}

	resp, err := s.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, fmt.Errorf("create paypal order: %v: %w", err, ErrProviderUnavailable)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("create paypal order: status %d, body: %s: %w", resp.Status, string(resp.Body), ErrProviderUnavailable)
	}

	var created paypalOrder
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("unmarshal paypal order: %w", err)
	}

	wallet := &WalletOrder{ID: created.ID}
	for _, link := range created.Links {
		if link.Rel == "approve" {
			wallet.ApprovalURL = link.Href
			break
		}
	}
	return wallet, nil
}

// OrderStatus returns the authoritative provider-side order status
// (CREATED, APPROVED, COMPLETED, ...).
func (s *PayPalService) OrderStatus(ctx context.Context, providerOrderID string) (string, error) {
	order, err := s.getOrder(ctx, providerOrderID)
	if err != nil {
		return "", err
	}
	return order.Status, nil
}

// CaptureOrder captures an approved provider order.
func (s *PayPalService) CaptureOrder(ctx context.Context, providerOrderID string) error {
	resp, err := s.doRequest(ctx, http.MethodPost, "/v2/checkout/orders/"+providerOrderID+"/capture", struct{}{})
	if err != nil {
		return fmt.Errorf("capture paypal order %s: %v: %w", providerOrderID, err, ErrProviderUnavailable)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return fmt.Errorf("capture paypal order %s: status %d, body: %s: %w", providerOrderID, resp.Status, string(resp.Body), ErrProviderUnavailable)
	}
	return nil
}

// getOrder fetches the authoritative provider-side order state.
func (s *PayPalService) getOrder(ctx context.Context, providerOrderID string) (*paypalOrder, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+providerOrderID, nil)
	if err != nil {
		return nil, fmt.Errorf("get paypal order %s: %v: %w", providerOrderID, err, ErrProviderUnavailable)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("get paypal order %s: status %d, body: %s: %w", providerOrderID, resp.Status, string(resp.Body), ErrProviderUnavailable)
	}

	var order paypalOrder
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, fmt.Errorf("unmarshal paypal order: %w", err)
	}
	return &order, nil
}

type paypalRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund fetches the provider order, finds a completed capture and issues
// a full refund against it.
func (s *PayPalService) Refund(ctx context.Context, order *models.Order) (*RefundOutcome, error) {
	if order.PayPalOrderID == "" {
		return nil, fmt.Errorf("order %s has no paypal order reference: %w", order.OrderNumber, ErrNoPaymentReference)
	}

	providerOrder, err := s.getOrder(ctx, order.PayPalOrderID)
	if err != nil {
		return nil, err
	}

	var captureID string
	for _, unit := range providerOrder.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			if capture.Status == "COMPLETED" {
				captureID = capture.ID
				break
			}
		}
		if captureID != "" {
			break
		}
	}
	if captureID == "" {
		return nil, fmt.Errorf("paypal order %s has no completed capture: %w", order.PayPalOrderID, ErrNoRefundableCapture)
	}

	payload := map[string]string{"note_to_payer": "customer request"}
	resp, err := s.doRequest(ctx, http.MethodPost, "/v2/payments/captures/"+captureID+"/refund", payload)
	if err != nil {
		return nil, fmt.Errorf("refund paypal capture %s: %v: %w", captureID, err, ErrProviderRefundFailed)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, fmt.Errorf("refund paypal capture %s: status %d, body: %s: %w", captureID, resp.Status, string(resp.Body), ErrProviderRefundFailed)
	}

	var refunded paypalRefund
	if err := json.Unmarshal(resp.Body, &refunded); err != nil {
		return nil, fmt.Errorf("unmarshal paypal refund: %w", err)
	}

	return &RefundOutcome{
		Provider: models.PaymentMethodPayPal,
		RefundID: refunded.ID,
		Amount:   order.TotalAmount,
	}, nil
}
