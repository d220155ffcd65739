package api

import (
	"github.com/gofiber/fiber/v2"

	"unimail/config"
	"unimail/models"
	"unimail/storage"
	"unimail/utils"
)

// DraftHandler manages locally stored drafts. Drafts never live on the
// mailbox server for this backend.
type DraftHandler struct {
	store *storage.DraftStore
	mail  *MailHandler
}

func NewDraftHandler(store *storage.DraftStore, mail *MailHandler) *DraftHandler {
	return &DraftHandler{store: store, mail: mail}
}

// ListDrafts returns all drafts, newest first.
func (h *DraftHandler) ListDrafts(c *fiber.Ctx) error {
	drafts, err := h.store.List()
	if err != nil {
		return utils.InternalServerError("failed to list drafts", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"drafts":  drafts,
	})
}

// GetDraft returns one draft.
func (h *DraftHandler) GetDraft(c *fiber.Ctx) error {
	draft, err := h.store.Get(c.Params("id"))
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"draft":   draft,
	})
}

// SaveDraft creates or updates a draft.
func (h *DraftHandler) SaveDraft(c *fiber.Ctx) error {
	var draft models.Draft
	if err := c.BodyParser(&draft); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	saved, err := h.store.Save(&draft)
	if err != nil {
		return utils.InternalServerError("failed to save draft", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"draft":   saved,
	})
}

// DeleteDraft removes a draft.
func (h *DraftHandler) DeleteDraft(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Params("id")); err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}

type sendDraftRequest struct {
	Config  config.MailConfig       `json:"config"`
	Message *models.OutgoingMessage `json:"message"`
}

// SendDraft dispatches a stored draft, optionally superseded by the
// message in the request body, and removes it on success.
func (h *DraftHandler) SendDraft(c *fiber.Ctx) error {
	var req sendDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	d := h.mail.driverFor(req.Config)
	result, err := d.SendDraft(c.Context(), c.Params("id"), req.Message)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"id":       result.ID,
		"warnings": result.Warnings,
	})
}
