package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "member not authenticated")
	errMissingToken         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests      = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")

	errInvalidDate = errors.New("must be an RFC3339 timestamp or a YYYY-MM-DD date")
)

// sentinelCodes maps domain errors to their HTTP status. The error text is the response message.
var sentinelCodes = map[error]int{
	member.ErrNotFound:              http.StatusNotFound,
	attendance.ErrEventNotFound:     http.StatusNotFound,
	excuse.ErrNotFound:              http.StatusNotFound,
	notification.ErrNotFound:        http.StatusNotFound,
	finance.ErrDuesNotFound:         http.StatusNotFound,
	finance.ErrBudgetNotFound:       http.StatusNotFound,
	grading.ErrAssignmentNotFound:   http.StatusNotFound,
	grading.ErrSubmissionNotFound:   http.StatusNotFound,
	grading.ErrGradeNotFound:        http.StatusNotFound,
	radio.ErrTrackNotFound:          http.StatusNotFound,
	radio.ErrNoTracks:               http.StatusNotFound,
	liturgy.ErrNotFound:             http.StatusNotFound,
	library.ErrNotFound:             http.StatusNotFound,
	library.ErrPDFNotFound:          http.StatusNotFound,
	excuse.ErrForbidden:             http.StatusForbidden,
	excuse.ErrInvalidTransition:     http.StatusConflict,
	finance.ErrBudgetClosed:         http.StatusConflict,
	grading.ErrAlreadyGraded:        http.StatusConflict,
	core.ErrRateLimited:             http.StatusTooManyRequests,
	core.ErrCreditsExhausted:        http.StatusPaymentRequired,
	sightreading.ErrInvalidMusicXML: http.StatusBadGateway,
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *sightreading.EchoMismatchError:
			code = http.StatusUnprocessableEntity
			message = echo.Map{"error": origErr.Error(), "received": origErr.Received}
		default:
			if c, ok := sentinelCodes[origErr]; ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if m, ok := ctx.Get(contextMemberKey).(member.Member); ok {
				args = append(args, m)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
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
