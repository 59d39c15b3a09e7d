package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type OrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

// Order is the gateway-side object a checkout collects money against.
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity,omitempty"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// RazorpayClient creates orders through the Razorpay orders API.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	hc        *http.Client
}

func NewRazorpayClient(cfg RazorpayConfig) *RazorpayClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		hc:        &http.Client{Timeout: timeout},
	}
}

// KeyID is the public key the browser checkout is opened with.
func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Order{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return Order{}, errors.Wrap(err, "razorpay: create order")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Order{}, errors.Wrap(err, "razorpay: read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Order{}, errors.Newf("razorpay: create order: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return Order{}, errors.Wrap(err, "razorpay: decode order")
	}
	return order, nil
}
