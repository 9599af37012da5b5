package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/observability"
	apperrors "github.com/helpdeskhq/helpdesk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares. The request logger runs
// outermost so it records the status written by the error handler.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

// ErrorHandler renders errors that escape the middleware chain with the same
// envelope as errorHandlingMiddleware.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, apperrors.ToDomainError(err))
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(routePath(c), c.Method(), domainErr.Code)
				err = writeError(c, logger, domainErr)
			}
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, domainErr *apperrors.DomainError) error {
	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", c.GetRespHeader(observability.RequestIDHeader)),
			zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}
