package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message interface{}

			herr *echo.HTTPError
			verr *core.ValidationError
			nerr *core.NotFoundError
			cerr *core.ConflictError
			uerr *core.UpstreamError
		)

		switch {
		case errors.As(err, &herr):
			if herr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = herr.Message
				break
			}
			if herr.Internal != nil {
				if inner, ok := herr.Internal.(*echo.HTTPError); ok {
					herr = inner
				}
			}
			code = herr.Code
			message = herr.Message
		case isValidatorErrors(err):
			var vErrs validator.ValidationErrors
			_ = errors.As(err, &vErrs)
			fldErrs := make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"error": "invalid request", "fields": fldErrs}
		case errors.As(err, &verr):
			code = http.StatusBadRequest
			msg := verr.Error()
			if msg == "" {
				msg = "invalid request"
			}
			if verr.Fields != nil {
				fldErrs := make(map[string]string, len(verr.Fields))
				for _, fErr := range verr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"error": msg, "fields": fldErrs}
			} else {
				message = msg
			}
		case errors.As(err, &nerr):
			code = http.StatusNotFound
			message = nerr.Error()
		case errors.As(err, &cerr):
			code = http.StatusConflict
			message = cerr.Error()
		case errors.As(err, &uerr):
			code = http.StatusServiceUnavailable
			message = http.StatusText(code)
			logger.Error(uerr.Error(), err, contextIdentity(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextIdentity(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func isValidatorErrors(err error) bool {
	var vErrs validator.ValidationErrors
	return errors.As(err, &vErrs)
}
