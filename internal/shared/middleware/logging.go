package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	appError "catalog/internal/shared/error"
	"catalog/internal/shared/log"
)

const (
	requestIDLocal = "request_id"
	principalLocal = "principal_id"

	maxInboundRequestID = 64
)

// RequestIDMiddleware tags every call with a request id. An inbound
// X-Request-ID (set by the gateway or the storage webhook) is kept so one
// upload can be followed from the notification to the import worker.
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" || len(requestID) > maxInboundRequestID {
			requestID = uuid.New().String()
		}
		c.Locals(requestIDLocal, requestID)
		c.SetUserContext(log.WithRequestID(c.UserContext(), requestID))
		c.Set(fiber.HeaderXRequestID, requestID)
		return c.Next()
	}
}

// LoggingMiddleware writes one access line per call once the handler chain
// has returned, keyed by the matched route and the authorized principal.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		ctx := c.UserContext()
		entry := accessOf(c)
		entry.Took = time.Since(start)
		entry.Status = c.Response().StatusCode()
		entry.Size = len(c.Response().Body())
		if err != nil {
			entry.Status, entry.ErrorCode = statusOf(err)
			if entry.Status >= fiber.StatusInternalServerError {
				log.ErrorWithStack(ctx, err, "Request handler error")
			}
		}
		log.AccessLog(ctx, entry)
		return err
	}
}

// RecoveryMiddleware turns a handler panic into a 500 carrying the request id.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.PanicLog(c.UserContext(), accessOf(c), r)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message":    appError.ErrHTTPInternalServer.Message,
					"code":       appError.ErrHTTPInternalServer.Code,
					"request_id": c.Locals(requestIDLocal),
				})
			}
		}()
		return c.Next()
	}
}

func accessOf(c *fiber.Ctx) log.Access {
	principal, _ := c.Locals(principalLocal).(string)
	return log.Access{
		Method:    c.Method(),
		Route:     c.Route().Path,
		Path:      c.Path(),
		Query:     string(c.Request().URI().QueryString()),
		ClientIP:  c.IP(),
		Principal: principal,
	}
}

// statusOf mirrors the status the error handler will render for err.
func statusOf(err error) (int, string) {
	var customErr *appError.CustomError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &customErr):
		return customErr.HTTPCode, customErr.Code
	case errors.As(err, &fiberErr):
		return fiberErr.Code, ""
	default:
		return fiber.StatusInternalServerError, ""
	}
}
