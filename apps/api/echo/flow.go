package echoapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/payment"
)

// pageProfile only needs a session; it is not part of the Resolver's decision.
const pageProfile enrollment.Page = "/profile"

type flowApi struct {
	svc       enrollment.Service
	staticDir string
}

func registerFlowAPI(app *echo.Echo, g *echo.Group, svc enrollment.Service, staticDir string) {
	api := flowApi{svc: svc, staticDir: staticDir}

	g.GET("/flow", api.flow)
	g.GET("/session/landing", api.landing, sessionRequiredMiddleware)

	// session-gated pages
	for _, page := range []enrollment.Page{enrollment.PageRegister, enrollment.PagePayment, enrollment.PageDashboard} {
		app.GET(string(page), api.gatedPage(page))
	}
	app.GET(string(pageProfile), api.profilePage)
	app.POST("/register/payment/complete", api.completePayment)
}

type landingResponse struct {
	URL string `json:"url"`
}

// flow reports the Resolver decision for the page a client app is about to show.
func (api *flowApi) flow(ctx echo.Context) error {
	requested := ctx.QueryParam("page")
	if requested == "" {
		requested = string(enrollment.PageDashboard)
	}
	return ctx.JSON(http.StatusOK, api.svc.Resolve(ctx.Request().Context(), getContextSession(ctx), requested))
}

func (api *flowApi) landing(ctx echo.Context) error {
	url := api.svc.Landing(getContextSession(ctx), ctx.QueryParam("next"))
	return ctx.JSON(http.StatusOK, landingResponse{URL: url})
}

func (api *flowApi) gatedPage(page enrollment.Page) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		flow := api.svc.Resolve(ctx.Request().Context(), getContextSession(ctx), ctx.Request().URL.RequestURI())
		if !flow.Destination.Allows(page) {
			return ctx.Redirect(http.StatusSeeOther, flow.Destination.URL)
		}
		return api.render(ctx, page, flow)
	}
}

func (api *flowApi) profilePage(ctx echo.Context) error {
	sess := getContextSession(ctx)
	flow := api.svc.Resolve(ctx.Request().Context(), sess, ctx.Request().URL.RequestURI())
	if sess == nil || flow.Destination.Page == enrollment.PageSignIn {
		return ctx.Redirect(http.StatusSeeOther, flow.Destination.URL)
	}
	return api.render(ctx, pageProfile, flow)
}

// completePayment always ends in a full-page redirect so the browser never stays on a closed checkout.
func (api *flowApi) completePayment(ctx echo.Context) error {
	var res payment.CheckoutResult
	if err := ctx.Bind(&res); err != nil {
		res = payment.CheckoutResult{}
	}
	dest := api.svc.CompletePayment(ctx.Request().Context(), getContextSession(ctx), res)
	return ctx.Redirect(http.StatusSeeOther, dest.URL)
}

// render serves <staticDir>/<page>/index.html when it exists, the page state as JSON otherwise.
func (api *flowApi) render(ctx echo.Context, page enrollment.Page, flow enrollment.Flow) error {
	if api.staticDir != "" {
		fp := filepath.Join(api.staticDir, filepath.FromSlash(strings.TrimPrefix(string(page), "/")), "index.html")
		if info, err := os.Stat(fp); err == nil && !info.IsDir() {
			return ctx.File(fp)
		}
	}
	return ctx.JSON(http.StatusOK, flow)
}
