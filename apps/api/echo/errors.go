package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innovalab/center/core"
)

const (
	msgInternalError = "Error interno del servidor"
	msgInvalidData   = "Datos inválidos"
)

var (
	errMissingToken = echo.NewHTTPError(http.StatusForbidden, "No se proporcionó token")
	errInvalidToken = echo.NewHTTPError(http.StatusUnauthorized, "Token inválido")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "Recurso no encontrado")
	errInvalidID    = core.NewValidationError(errors.New("Identificador inválido"))
)

type (
	messageResponse struct {
		Message string `json:"message"`
	}

	errorResponse struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors,omitempty"`
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		resp := errorResponse{Message: msgInternalError}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Message = httpErrorMessage(origErr)
			if code == http.StatusNotFound && origErr != errHttpNotFound {
				resp.Message = errHttpNotFound.Message.(string)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			resp.Errors = make(map[string]string, len(origErr))
			for i, vErr := range origErr {
				msg := vErr.Translate(translator)
				resp.Errors[vErr.Field()] = msg
				if i == 0 {
					resp.Message = msg
				}
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			resp.Message = origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Errors = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Errors[fErr.Field] = fErr.Error
				}
				if resp.Message == "" {
					resp.Message = origErr.Fields[0].Error
				}
			}
			if resp.Message == "" {
				resp.Message = msgInvalidData
			}
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Message = origErr.Error()
		case *core.ConflictError:
			code = http.StatusBadRequest
			resp.Message = origErr.Error()
		case *core.AuthError:
			code = http.StatusUnauthorized
			resp.Message = origErr.Error()
		case *core.ForbiddenError:
			code = http.StatusForbidden
			resp.Message = origErr.Error()
		case *core.LimitError:
			code = http.StatusTooManyRequests
			resp.Message = origErr.Error()
		default: // any other error is a server error
			args := []interface{}{errors.Wrap(err, msgInternalError)}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				args = append(args, claims.person())
			}
			logger.Error(msgInternalError, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				logger.Error("sending error response", err)
			}
		}
	}
}

func httpErrorMessage(herr *echo.HTTPError) string {
	if msg, ok := herr.Message.(string); ok {
		return msg
	}
	return http.StatusText(herr.Code)
}
