package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eduflick/backend/core/enrollment"
)

type enrollmentApi struct {
	svc      enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, svc enrollment.Service, validate *validator.Validate, adminSecret string) {
	api := enrollmentApi{svc: svc, validate: validate}

	g.POST("/register", api.register)
	g.POST("/enroll", api.enroll)
	g.POST("/enroll/paid", api.markPaid)
	g.POST("/profile", api.saveProfile)

	// operator endpoints
	g.GET("/users", api.queryUsers, adminSecretMiddleware(adminSecret))
}

type (
	messageResponse struct {
		Message string `json:"message"`
	}

	enrollmentResponse struct {
		Message    string                `json:"message"`
		Enrollment enrollment.Enrollment `json:"enrollment"`
	}
)

// Handlers

func (api *enrollmentApi) register(ctx echo.Context) error {
	var data enrollment.RegisterRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Register(ctx.Request().Context(), data); err != nil {
		return failed("Unable to save registration", err)
	}
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "Registration submitted successfully"})
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.EnrollRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.Enroll(ctx.Request().Context(), data); err != nil {
		if err == enrollment.ErrProfileNotFound {
			return errProfileNotFound
		}
		return failed("Unable to create enrollment", err)
	}
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "Enrollment created"})
}

func (api *enrollmentApi) markPaid(ctx echo.Context) error {
	var data enrollment.MarkPaidRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.MarkPaid(ctx.Request().Context(), data)
	if err != nil { // ErrNoPendingEnrollment still maps to 404
		return failed("Unable to update enrollment status", err)
	}
	return ctx.JSON(http.StatusOK, enrollmentResponse{Message: "Enrollment marked as paid", Enrollment: enr})
}

func (api *enrollmentApi) saveProfile(ctx echo.Context) error {
	var data enrollment.ProfileRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SaveProfile(ctx.Request().Context(), data); err != nil {
		return failed("Unable to save profile", err)
	}
	return ctx.JSON(http.StatusCreated, messageResponse{Message: "Profile saved"})
}

func (api *enrollmentApi) queryUsers(ctx echo.Context) error {
	var filter enrollment.QueryFilter
	bindQuery(ctx, &filter)

	page, err := api.svc.ListProfiles(ctx.Request().Context(), filter)
	if err != nil {
		return failed("Unable to fetch users", err)
	}
	return ctx.JSON(http.StatusOK, page)
}
