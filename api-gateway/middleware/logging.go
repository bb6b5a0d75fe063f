package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/fabtrack/sheetstock/pkg/logger"
)

// StructuredLoggingMiddleware logs one completion line per proxied request,
// leveled by status. Health probes are skipped to keep the log usable.
func StructuredLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/health") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		event := logger.Info(c.UserContext())
		switch {
		case status >= 500:
			event = logger.Error(c.UserContext())
		case status >= 400:
			event = logger.Warn(c.UserContext())
		}

		if err != nil {
			event = event.Err(err)
		}
		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int("bytes", len(c.Response().Body())).
			Str("trace_id", gatewayTraceID(c)).
			Str("request_id", c.Get("X-Request-Id")).
			Msg("Gateway request")

		return err
	}
}

func gatewayTraceID(c *fiber.Ctx) string {
	span := trace.SpanFromContext(c.UserContext())
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
