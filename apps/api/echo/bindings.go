package echoapi

import (
	"github.com/labstack/echo/v4"
)

// bindBody binds the request body, reporting any decoding failure as a malformed payload.
func bindBody(ctx echo.Context, dest interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dest); err != nil {
		return errMalformedBody.WithInternal(err)
	}
	return nil
}

// bindQuery binds query params; values that do not parse keep their defaults.
func bindQuery(ctx echo.Context, dest interface{}) {
	_ = (&echo.DefaultBinder{}).BindQueryParams(ctx, dest)
}
