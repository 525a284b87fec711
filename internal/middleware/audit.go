package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Audit emits one structured log line per request.
func Audit(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if origin := Origin(c); origin != "" {
			fields = append(fields, zap.String("origin", origin))
		}
		if err != nil {
			logger.Error("request completed", append(fields, zap.Error(err))...)
			return err
		}

		logger.Info("request completed", fields...)
		return nil
	}
}
