package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/payment"
)

const validationFailedText = "Validation failed"

var (
	errMalformedBody   = echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	errProfileNotFound = echo.NewHTTPError(http.StatusNotFound, "Profile not found. Provide a name, email or phone to create it.")

	gatewayUnreachableText   = "Unable to reach the payment gateway at the moment. Please try again later."
	gatewayNotConfiguredText = "Payment gateway is not configured. Verify the server credentials."
)

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// serverError is a store or infrastructure failure with the message shown to users.
type serverError struct {
	msg string
	err error
}

func failed(msg string, err error) error {
	return &serverError{msg: msg, err: err}
}

func (e *serverError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *serverError) Cause() error  { return e.err }
func (e *serverError) Unwrap() error { return e.err }

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var res errorResponse

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			code = origErr.Code
			res.Message = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			res.Message = validationFailedText
			res.Errors = core.TranslateValidationErrors(origErr, translator).FieldMap()
		case *core.ValidationError:
			code = http.StatusBadRequest
			res.Message = validationFailedText
			if origErr.Err != nil {
				res.Message = sentence(origErr.Err.Error())
			}
			res.Errors = origErr.FieldMap()
		case *payment.UpstreamError:
			code = origErr.StatusCode
			if code < http.StatusBadRequest {
				code = http.StatusBadGateway
			}
			res.Message = origErr.Message
		default:
			switch origErr {
			case enrollment.ErrNotFound:
				code = http.StatusNotFound
				res.Message = "Not found"
			case enrollment.ErrNoPendingEnrollment:
				code = http.StatusNotFound
				res.Message = sentence(origErr.Error())
			case payment.ErrUnreachable:
				code = http.StatusBadGateway
				res.Message = gatewayUnreachableText
			case payment.ErrNotConfigured:
				code = http.StatusInternalServerError
				res.Message = gatewayNotConfiguredText
			default: // any other error is a server error
				code = http.StatusInternalServerError
				res.Message = http.StatusText(code)
				var srvErr *serverError
				if errors.As(err, &srvErr) {
					res.Message = srvErr.msg
				}
				res.Errors = map[string][]string{core.FormField: {}}
				if ctx.Echo().Debug {
					res.Errors[core.FormField] = []string{errors.Cause(err).Error()}
				}

				args := []interface{}{err}
				if sess := getContextSession(ctx); sess != nil {
					args = append(args, sess)
				}
				logger.Error(res.Message, args...)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, res)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
