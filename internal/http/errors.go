package http

import (
	"errors"
	"net/http"

	"github.com/fyrsmithlabs/vibeguard/internal/pipeline"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Error kinds produced only by the transport.
const (
	KindRateLimited = "rate_limited"
	KindBadRequest  = "bad_request"
)

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case pipeline.KindInvalidURL, KindBadRequest:
		return http.StatusBadRequest
	case pipeline.KindNotFound:
		return http.StatusNotFound
	case pipeline.KindTimeout:
		return http.StatusGatewayTimeout
	case pipeline.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case pipeline.KindFetchFailed:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// kindForStatus classifies errors raised by echo itself (unknown route,
// body limit, panics).
func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusNotFound:
		return pipeline.KindNotFound
	case http.StatusRequestEntityTooLarge:
		return pipeline.KindTooLarge
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if code >= 500 {
		return pipeline.KindInternal
	}
	return KindBadRequest
}

func writeError(c echo.Context, kind, detail string) error {
	return c.JSON(statusFor(kind), ErrorResponse{
		Error:    kind,
		Detail:   detail,
		Findings: []scanner.Finding{},
	})
}

// errorHandler renders echo errors in the ErrorResponse shape.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	} else {
		s.logger.Error("unhandled error",
			zap.Error(err),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
	}

	kind := kindForStatus(code)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: kind, Detail: detail, Findings: []scanner.Finding{}})
	}
	if err != nil {
		s.logger.Warn("writing error response", zap.Error(err))
	}
}
