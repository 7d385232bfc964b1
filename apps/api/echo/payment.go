package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eduflick/backend/core/payment"
)

type paymentApi struct {
	checkout *payment.Checkout
}

func registerPaymentAPI(g *echo.Group, checkout *payment.Checkout) {
	api := paymentApi{checkout: checkout}

	g.GET("/plans", api.plans)
	g.POST("/payments/order", api.createOrder)
}

func (api *paymentApi) plans(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, payment.Plans())
}

func (api *paymentApi) createOrder(ctx echo.Context) error {
	var data payment.CreateOrderRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}

	res, err := api.checkout.CreateOrder(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
