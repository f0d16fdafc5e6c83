package error

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type CustomError struct {
	Message  string `json:"message"`
	Code     string `json:"code"`
	HTTPCode int    `json:"httpCode"`
	Details  any    `json:"details,omitempty"`

	cause error
}

func (err *CustomError) Error() string {
	msg := err.Message
	if err.Code != "" {
		msg = fmt.Sprintf("[%s] %s", err.Code, err.Message)
	}
	if err.cause != nil {
		return msg + ": " + err.cause.Error()
	}
	return msg
}

func (err *CustomError) Is(target error) bool {
	if targetErr, ok := target.(*CustomError); ok {
		return err.Code == targetErr.Code && err.Message == targetErr.Message && err.HTTPCode == targetErr.HTTPCode
	}
	return false
}

func (err *CustomError) Unwrap() error {
	return err.cause
}

// WithCause returns a copy of err carrying cause. The cause is logged but
// never rendered to clients.
func (err *CustomError) WithCause(cause error) *CustomError {
	cp := *err
	cp.cause = cause
	return &cp
}

func NewCustomError(httpCode int, code, message string, details ...any) *CustomError {
	err := &CustomError{
		HTTPCode: httpCode,
		Code:     code,
		Message:  message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrNameRequired     = NewCustomError(400, "IMPORT_2001", "name required")
	ErrInvalidExtension = NewCustomError(400, "IMPORT_2002", "invalid extension")
	ErrMalformedEvent   = NewCustomError(400, "IMPORT_2003", "malformed object event")
	ErrImportFailed     = NewCustomError(500, "IMPORT_2004", "Failed to import file")

	ErrProductIDRequired = NewCustomError(400, "PRODUCT_2001", "Product ID is required")
	ErrProductNotFound   = NewCustomError(404, "PRODUCT_2002", "Product not found")
	ErrValidationFailed  = NewCustomError(400, "PRODUCT_2003", "Validation failed")

	ErrMissingBody        = NewCustomError(400, "REQUEST_2001", "Missing body")
	ErrInvalidRequestBody = NewCustomError(400, "REQUEST_2002", "Invalid request body")

	ErrPersistence        = NewCustomError(500, "DB_2001", "Failed to persist product")
	ErrDatabaseReadFailed = NewCustomError(500, "DB_2002", "Database query failed")

	ErrUnauthorized = NewCustomError(401, "AUTH_2001", "Unauthorized")
	ErrForbidden    = NewCustomError(403, "AUTH_2002", "Forbidden")

	ErrHTTPNotFound       = NewCustomError(404, "HTTP_404", "Not Found")
	ErrHTTPInternalServer = NewCustomError(500, "HTTP_500", "Internal server error")
)

// NewValidationError builds a 400 listing every violated rule, comma-joined.
func NewValidationError(reasons []string) *CustomError {
	msg := ErrValidationFailed.Message
	if len(reasons) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(reasons, ", "))
	}
	return NewCustomError(ErrValidationFailed.HTTPCode, ErrValidationFailed.Code, msg, reasons)
}

func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.Locals("request_id")

		var customErr *CustomError
		if errors.As(err, &customErr) {
			response := fiber.Map{
				"message": customErr.Message,
				"code":    customErr.Code,
			}
			if customErr.Details != nil && customErr.HTTPCode < 500 {
				response["details"] = customErr.Details
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(customErr.HTTPCode).JSON(response)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			response := fiber.Map{
				"message": fiberErr.Message,
			}
			if requestID != nil {
				response["request_id"] = requestID
			}
			return c.Status(fiberErr.Code).JSON(response)
		}

		response := fiber.Map{
			"message": ErrHTTPInternalServer.Message,
		}
		if requestID != nil {
			response["request_id"] = requestID
		}
		return c.Status(fiber.StatusInternalServerError).JSON(response)
	}
}
