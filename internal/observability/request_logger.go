package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the correlation id in requests and responses.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request and feeds the request metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		elapsed := time.Since(start)
		metrics.RecordRequest(route, c.Method(), status, elapsed)

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request completed", fields...)
		} else {
			logger.Info("request completed", fields...)
		}
		return err
	}
}
