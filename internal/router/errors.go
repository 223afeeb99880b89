package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/logging"
)

// ErrorHandler writes every error as {"error": message}. Errors outside the
// apperr taxonomy are logged and hidden behind a generic 500.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := resolve(err)
		if status >= http.StatusInternalServerError {
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"error", err,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": msg})
		}
		if err != nil {
			log.Error(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func resolve(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil && he.Code >= http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		return http.StatusInternalServerError, "internal server error"
	}
	return status, publicMessage(err)
}

// publicMessage strips the sentinel prefix, "forbidden: access denied"
// becomes "access denied".
func publicMessage(err error) string {
	msg := err.Error()
	for _, s := range []error{apperr.ErrValidation, apperr.ErrUnauthorized, apperr.ErrForbidden, apperr.ErrNotFound, apperr.ErrConflict} {
		if p := s.Error() + ": "; strings.HasPrefix(msg, p) {
			return strings.TrimPrefix(msg, p)
		}
	}
	return msg
}
