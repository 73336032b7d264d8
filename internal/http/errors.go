package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/folder"
)

// statusFor maps a folder error kind to its HTTP status.
func statusFor(err error) int {
	switch folder.Kind(err) {
	case folder.ErrInvalidInput:
		return http.StatusBadRequest
	case folder.ErrNotFound:
		return http.StatusNotFound
	case folder.ErrAccessDenied:
		return http.StatusForbidden
	case folder.ErrTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, context.Canceled) {
		// nginx's "client closed request".
		return 499
	}
	return http.StatusInternalServerError
}

// folderError converts a folder service error into an HTTP error. Server
// side failures keep their detail out of the response.
func folderError(err error) *echo.HTTPError {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = http.StatusText(status)
		if kind := folder.Kind(err); kind != nil {
			msg = kind.Error()
		}
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
			if he.Internal != nil {
				err = he.Internal
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Error: msg})
		}
		if writeErr != nil {
			logger.Warn("failed to write error response", zap.Error(writeErr))
		}
	}
}
