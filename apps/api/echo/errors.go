package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core"
	"github.com/Capstone-Portal-Project/capstone-portal-project-sub000/core/preference"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	// RankIndex is only set on failed next-rank requests, where it is always 0.
	RankIndex *int `json:"rank_index,omitempty"`
}

// nextRankError marks failures of the next-rank endpoint, whose callers expect a rank even on failure.
type nextRankError struct {
	err error
}

func (e *nextRankError) Error() string { return e.err.Error() }
func (e *nextRankError) Unwrap() error { return e.err }
func (e *nextRankError) Cause() error  { return e.err }

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		resp := ErrorResponse{Error: true}
		var code int

		var nrErr *nextRankError
		if errors.As(err, &nrErr) {
			resp.RankIndex = new(int)
		}

		var httpErr *echo.HTTPError
		var vErrs validator.ValidationErrors
		var valErr *core.ValidationError

		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Message = "missing or malformed jwt"
				break
			}
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				resp.Message = msg
			} else {
				resp.Message = http.StatusText(code)
			}
		case errors.As(err, &vErrs):
			code = http.StatusBadRequest
			resp.Fields = core.TranslateValidationErrors(vErrs, translator)
			resp.Message = "invalid input"
			if len(vErrs) == 1 {
				resp.Message = vErrs[0].Translate(translator)
			}
		case errors.As(err, &valErr):
			code = http.StatusBadRequest
			resp.Message = valErr.Error()
			if len(valErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(valErr.Fields))
				for _, fErr := range valErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		default:
			switch kind := preference.KindOf(err); kind {
			case preference.KindDuplicate:
				code = http.StatusConflict
			case preference.KindNotFound:
				code = http.StatusNotFound
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(code)

				var prsn core.Person
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					prsn = claims.Person()
				}
				logger.Error(msg, errors.Wrap(err, msg), prsn, map[string]interface{}{
					"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
					"method":     ctx.Request().Method,
					"path":       ctx.Path(),
				})

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
			resp.Message = preference.Message(err)
			if code == http.StatusInternalServerError && ctx.Echo().Debug {
				resp.Message = err.Error()
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
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
