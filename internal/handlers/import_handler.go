package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"catalog/internal/domain"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
)

type ImportHandler struct {
	service *domain.ImportService
}

func NewImportHandler(service *domain.ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// IssueUploadURL serves GET /import?name=<file>.csv with the signed URL as
// a plain-text body.
func (h *ImportHandler) IssueUploadURL(c *fiber.Ctx) error {
	signed, err := h.service.IssueUploadURL(c.UserContext(), c.Query("name"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).SendString(signed)
}

type importedFile struct {
	Key         string `json:"key"`
	ArchivedKey string `json:"archived_key"`
	Rows        int    `json:"rows"`
	Failed      int    `json:"failed"`
}

// ObjectCreated receives object store webhook notifications.
func (h *ImportHandler) ObjectCreated(c *fiber.Ctx) error {
	ctx := c.UserContext()

	summaries, err := h.service.ProcessUploadPayload(ctx, c.Body())
	if err != nil {
		var customErr *appError.CustomError
		if errors.As(err, &customErr) && customErr.HTTPCode < 500 {
			return customErr
		}
		logger.Errorf(ctx, err, "Import failed")
		return appError.ErrImportFailed.WithCause(err)
	}

	files := make([]importedFile, 0, len(summaries))
	for _, s := range summaries {
		files = append(files, importedFile{Key: s.Key, ArchivedKey: s.ArchivedKey, Rows: s.Rows, Failed: s.Failed})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "processed",
		"files":  files,
	})
}
