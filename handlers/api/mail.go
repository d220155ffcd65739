package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"unimail/config"
	"unimail/driver"
	imapdrv "unimail/driver/imap"
	"unimail/models"
	"unimail/storage"
	"unimail/utils"
)

// driverFactory builds a driver for one request's credentials. Swapped
// out in tests.
type driverFactory func(cfg config.MailConfig) driver.Driver

// folderFetcher is the multi-message fetch behind the proxy's list
// endpoint. The mailbox-protocol driver implements it.
type folderFetcher interface {
	FetchFolder(ctx context.Context, folder, query string, max uint32) ([]models.Email, []string, error)
}

// MailHandler exposes the mail driver over the JSON proxy boundary.
// Every request may carry its own mail config; missing fields fall
// back to the server's configured account.
type MailHandler struct {
	config  *config.Config
	drafts  *storage.DraftStore
	factory driverFactory
}

func NewMailHandler(cfg *config.Config, drafts *storage.DraftStore) *MailHandler {
	h := &MailHandler{config: cfg, drafts: drafts}
	h.factory = func(mc config.MailConfig) driver.Driver {
		return imapdrv.New(mc, cfg.Folders, drafts)
	}
	return h
}

func (h *MailHandler) driverFor(mc config.MailConfig) driver.Driver {
	if mc.IMAPURL == "" {
		mc.IMAPURL = h.config.Mail.IMAPURL
	}
	if mc.SMTPURL == "" {
		mc.SMTPURL = h.config.Mail.SMTPURL
	}
	if mc.Account == "" {
		mc.Account = h.config.Mail.Account
	}
	// A JSON body cannot distinguish an omitted flag from an explicit
	// false, so the server's relaxation applies whenever the request
	// does not relax on its own.
	if !mc.AllowInsecureTLS {
		mc.AllowInsecureTLS = h.config.Mail.AllowInsecureTLS
	}
	return h.factory(mc)
}

type listRequest struct {
	Config     config.MailConfig `json:"config"`
	Folder     string            `json:"folder"`
	Query      string            `json:"query"`
	MaxResults uint32            `json:"max_results"`
	PageToken  string            `json:"page_token"`
}

// HandleList returns full messages from one logical folder, newest
// first. Decode casualties surface as warnings, never silently.
func (h *MailHandler) HandleList(c *fiber.Ctx) error {
	var req listRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	d := h.driverFor(req.Config)
	impl, ok := d.(folderFetcher)
	if !ok {
		return utils.InternalServerError("backend does not support folder fetch", nil)
	}

	emails, warnings, err := impl.FetchFolder(c.Context(), req.Folder, req.Query, req.MaxResults)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"emails":   emails,
		"warnings": warnings,
	})
}

type threadsRequest struct {
	Config config.MailConfig `json:"config"`
	driver.ListOptions
}

// HandleThreads returns one page of thread stubs.
func (h *MailHandler) HandleThreads(c *fiber.Ctx) error {
	var req threadsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	result, err := h.driverFor(req.Config).List(c.Context(), req.ListOptions)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"threads":         result.Threads,
		"next_page_token": result.NextPageToken,
	})
}

type getRequest struct {
	Config config.MailConfig `json:"config"`
	ID     string            `json:"id"`
}

// HandleGet resolves one thread fully, bodies ready for rendering.
func (h *MailHandler) HandleGet(c *fiber.Ctx) error {
	var req getRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}
	if req.ID == "" {
		return utils.BadRequestError("id is required", nil)
	}

	thread, err := h.driverFor(req.Config).Get(c.Context(), req.ID)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"thread":  thread,
	})
}

type markReadRequest struct {
	Config config.MailConfig `json:"config"`
	IDs    []string          `json:"ids"`
	Read   bool              `json:"read"`
}

// HandleMarkRead flips the read state of a message set. Idempotent.
func (h *MailHandler) HandleMarkRead(c *fiber.Ctx) error {
	var req markReadRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}
	if len(req.IDs) == 0 {
		return utils.BadRequestError("ids are required", nil)
	}

	d := h.driverFor(req.Config)
	var err error
	if req.Read {
		err = d.MarkAsRead(c.Context(), req.IDs)
	} else {
		err = d.MarkAsUnread(c.Context(), req.IDs)
	}
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{"success": true})
}

type configRequest struct {
	Config config.MailConfig `json:"config"`
}

// HandleFolders lists the backend's mailboxes as labels. A failed
// listing degrades to the default label set rather than an error.
func (h *MailHandler) HandleFolders(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	labels, err := h.driverFor(req.Config).GetUserLabels(c.Context())
	if err != nil {
		return utils.FromDriverError(err)
	}

	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"folders": names,
		"labels":  labels,
	})
}

type sendRequest struct {
	Config  config.MailConfig      `json:"config"`
	Message models.OutgoingMessage `json:"message"`
}

// HandleSend dispatches a message. Archival problems come back as
// warnings on a successful response.
func (h *MailHandler) HandleSend(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}
	if len(req.Message.To) == 0 {
		return utils.BadRequestError("message has no recipients", nil)
	}

	result, err := h.driverFor(req.Config).Create(c.Context(), &req.Message)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"id":       result.ID,
		"warnings": result.Warnings,
	})
}

type modifyLabelsRequest struct {
	Config  config.MailConfig   `json:"config"`
	IDs     []string            `json:"ids"`
	Changes driver.LabelChanges `json:"changes"`
}

// HandleModifyLabels forwards a bulk label mutation; backends without
// native labels answer with a capability-gap warning.
func (h *MailHandler) HandleModifyLabels(c *fiber.Ctx) error {
	var req modifyLabelsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	result, err := h.driverFor(req.Config).ModifyLabels(c.Context(), req.IDs, req.Changes)
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"warnings": result.Warnings,
	})
}

// HandleDeleteSpam empties the spam mailbox.
func (h *MailHandler) HandleDeleteSpam(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	result, err := h.driverFor(req.Config).DeleteAllSpam(c.Context())
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"warnings": result.Warnings,
	})
}

// HandleUserInfo reports the account identity and its aliases.
func (h *MailHandler) HandleUserInfo(c *fiber.Ctx) error {
	var req configRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("invalid request", err)
	}

	d := h.driverFor(req.Config)
	info, err := d.GetUserInfo(c.Context())
	if err != nil {
		return utils.FromDriverError(err)
	}
	aliases, err := d.GetEmailAliases(c.Context())
	if err != nil {
		return utils.FromDriverError(err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"user":         info,
		"aliases":      aliases,
		"capabilities": d.Capabilities(),
	})
}
