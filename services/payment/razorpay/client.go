package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/payment"
)

const (
	ordersPath     = "/v1/orders"
	defaultTimeout = 15 * time.Second

	fallbackMessage = "Unable to create payment order. Please try again."
)

type errorPayload struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client creates orders through the gateway's REST API with HTTP basic auth.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

// NewClient returns nil when the key pair is not configured.
func NewClient(conf *core.Config, httpClient ...*http.Client) *Client {
	if !conf.PaymentEnabled() {
		return nil
	}
	c := &Client{
		baseURL:   conf.Payment.BaseURL,
		keyID:     conf.Payment.KeyID,
		keySecret: conf.Payment.KeySecret,
	}
	if len(httpClient) > 0 && httpClient[0] != nil {
		c.http = httpClient[0]
	} else {
		c.http = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return c
}

func (c *Client) CreateOrder(ctx context.Context, order payment.NewOrder) (*payment.Order, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, errors.Wrap(err, "encoding order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building order request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(payment.ErrUnreachable, "%v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrapf(payment.ErrUnreachable, "reading response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallbackMessage
		var payload errorPayload
		if json.Unmarshal(raw, &payload) == nil && payload.Error.Description != "" {
			msg = payload.Error.Description
		}
		return nil, &payment.UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	var created payment.Order
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, errors.Wrapf(payment.ErrUnreachable, "decoding order: %v", err)
	}
	return &created, nil
}
