package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

const (
	InstamojoGateway = "instamojo"

	// PaymentCredited is the status Instamojo reports for a captured payment.
	PaymentCredited = "Credit"
)

type PaymentRequest struct {
	Purpose     string
	Amount      decimal.Decimal
	BuyerName   string
	Email       string
	Phone       string
	RedirectURL string
}

// HostedPayment is a payment request the buyer completes on the gateway's page.
type HostedPayment struct {
	ID      string `json:"id"`
	LongURL string `json:"longurl"`
}

type InstamojoConfig struct {
	BaseURL   string
	APIKey    string
	AuthToken string
	Timeout   time.Duration
}

type InstamojoClient struct {
	baseURL   string
	apiKey    string
	authToken string
	hc        *http.Client
}

func NewInstamojoClient(cfg InstamojoConfig) *InstamojoClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &InstamojoClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		authToken: cfg.AuthToken,
		hc:        &http.Client{Timeout: timeout},
	}
}

// Configured reports whether API credentials are present.
func (c *InstamojoClient) Configured() bool {
	return c.apiKey != "" && c.authToken != ""
}

func (c *InstamojoClient) CreatePaymentRequest(ctx context.Context, req PaymentRequest) (HostedPayment, error) {
	form := url.Values{
		"purpose":                 {req.Purpose},
		"amount":                  {req.Amount.String()},
		"buyer_name":              {req.BuyerName},
		"email":                   {req.Email},
		"phone":                   {req.Phone},
		"redirect_url":            {req.RedirectURL},
		"send_email":              {"True"},
		"send_sms":                {"True"},
		"allow_repeated_payments": {"False"},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payment-requests/", strings.NewReader(form.Encode()))
	if err != nil {
		return HostedPayment{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		Success        bool          `json:"success"`
		Message        interface{}   `json:"message"`
		PaymentRequest HostedPayment `json:"payment_request"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return HostedPayment{}, errors.Wrap(err, "instamojo: create payment request")
	}
	if !out.Success {
		return HostedPayment{}, errors.Newf("instamojo: create payment request rejected: %v", out.Message)
	}
	return out.PaymentRequest, nil
}

// PaymentStatus returns the gateway status of paymentID under requestID.
func (c *InstamojoClient) PaymentStatus(ctx context.Context, requestID, paymentID string) (string, error) {
	endpoint := fmt.Sprintf("%s/payment-requests/%s/%s/", c.baseURL, url.PathEscape(requestID), url.PathEscape(paymentID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Success        bool `json:"success"`
		PaymentRequest struct {
			Payment struct {
				Status string `json:"status"`
			} `json:"payment"`
		} `json:"payment_request"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return "", errors.Wrap(err, "instamojo: payment status")
	}
	if !out.Success {
		return "", nil
	}
	return out.PaymentRequest.Payment.Status, nil
}

func (c *InstamojoClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Auth-Token", c.authToken)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Newf("status %d", resp.StatusCode)
	}
	return json.Unmarshal(data, out)
}
