package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
)

var (
	ErrUnknownPlan   = errors.New("invalid plan selected")
	ErrMissingPlan   = errors.New("missing planId")
	ErrNotConfigured = errors.New("payment gateway is not configured")
	ErrUnreachable   = errors.New("payment gateway unreachable")
)

type (
	Customer struct {
		Name    string `json:"name,omitempty"`
		Email   string `json:"email,omitempty"`
		Contact string `json:"contact,omitempty"`
	}

	CreateOrderRequest struct {
		PlanID   string    `json:"planId"`
		Customer *Customer `json:"customer"`
	}

	// NewOrder is what is sent to the gateway.
	NewOrder struct {
		Amount   int64                  `json:"amount"`
		Currency string                 `json:"currency"`
		Receipt  string                 `json:"receipt"`
		Notes    map[string]interface{} `json:"notes"`
	}

	// Order is the gateway's view of a created order.
	Order struct {
		ID         string                 `json:"id"`
		Entity     string                 `json:"entity"`
		Amount     int64                  `json:"amount"`
		AmountPaid int64                  `json:"amount_paid"`
		AmountDue  int64                  `json:"amount_due"`
		Currency   string                 `json:"currency"`
		Receipt    string                 `json:"receipt"`
		OfferID    *string                `json:"offer_id"`
		Status     string                 `json:"status"`
		Attempts   int                    `json:"attempts"`
		Notes      map[string]interface{} `json:"notes"`
		CreatedAt  int64                  `json:"created_at"`
	}

	OrderResponse struct {
		Order *Order `json:"order"`
		Plan  Plan   `json:"plan"`
	}

	// Gateway creates orders on the hosted payment gateway.
	Gateway interface {
		CreateOrder(ctx context.Context, order NewOrder) (*Order, error)
	}

	// UpstreamError is a non-2xx answer from the gateway.
	UpstreamError struct {
		StatusCode int
		Message    string
	}
)

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment gateway responded %d: %s", e.StatusCode, e.Message)
}

// Receipt builds the merchant receipt id for a plan purchase.
func Receipt(planID string, at time.Time) string {
	return fmt.Sprintf("eduflick_%s_%d", planID, at.UnixMilli())
}

// NewOrderFor prices an order from the catalog. Unknown customer fields are sent as nulls.
func NewOrderFor(plan Plan, customer *Customer, at time.Time) NewOrder {
	if customer == nil {
		customer = &Customer{}
	}
	return NewOrder{
		Amount:   plan.Amount,
		Currency: plan.Currency,
		Receipt:  Receipt(plan.ID, at),
		Notes: map[string]interface{}{
			"planId":          plan.ID,
			"planName":        plan.Name,
			"customerName":    nullable(customer.Name),
			"customerEmail":   nullable(customer.Email),
			"customerContact": nullable(customer.Contact),
		},
	}
}

func nullable(s string) interface{} {
	if s = core.CleanString(s); s == "" {
		return nil
	}
	return s
}

// Checkout turns order requests into gateway orders for catalog plans.
type Checkout struct {
	gateway Gateway
	NowFunc func() time.Time // mockable
}

// NewCheckout accepts a nil gateway when payment credentials are not configured.
func NewCheckout(gateway Gateway) *Checkout {
	return &Checkout{gateway: gateway, NowFunc: time.Now}
}

// CreateOrder validates the plan before the gateway is ever called.
func (c *Checkout) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if core.CleanString(req.PlanID) == "" {
		return nil, core.NewValidationError(ErrMissingPlan, core.FieldError{Field: "planId", Error: "this field is required"})
	}
	plan, ok := LookupPlan(req.PlanID)
	if !ok {
		return nil, core.NewValidationError(ErrUnknownPlan, core.FieldError{Field: "planId", Error: ErrUnknownPlan.Error()})
	}
	if c.gateway == nil {
		return nil, ErrNotConfigured
	}

	order, err := c.gateway.CreateOrder(ctx, NewOrderFor(plan, req.Customer, c.NowFunc()))
	if err != nil {
		return nil, errors.Wrap(err, "creating gateway order")
	}
	return &OrderResponse{Order: order, Plan: plan}, nil
}
