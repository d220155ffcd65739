package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"unimail/config"
	"unimail/handlers/api"
	"unimail/middleware"
	"unimail/storage"
	"unimail/utils"
)

func main() {
	utils.Log.Info("Initializing unimail proxy...")

	cfg, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		return
	}

	db, err := storage.InitDB(cfg.Storage.DataDir)
	if err != nil {
		utils.Log.Error("Failed to open draft database: %v", err)
		return
	}
	defer db.Close()

	drafts := storage.NewDraftStore(db)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			// The backend's own error text goes upward unchanged.
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	}))
	app.Use(middleware.RateLimiter(100, time.Minute))

	authHandler := api.NewAuthHandler(cfg)
	mailHandler := api.NewMailHandler(cfg, drafts)
	draftHandler := api.NewDraftHandler(drafts, mailHandler)

	// Liveness check for orchestration; not part of the mail logic.
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	app.Post("/api/login", authHandler.HandleLogin)

	protected := app.Group("/api", authHandler.Middleware())
	{
		protected.Post("/list", mailHandler.HandleList)
		protected.Post("/threads", mailHandler.HandleThreads)
		protected.Post("/get", mailHandler.HandleGet)
		protected.Post("/mark-read", mailHandler.HandleMarkRead)
		protected.Post("/folders", mailHandler.HandleFolders)
		protected.Post("/send", mailHandler.HandleSend)
		protected.Post("/modify-labels", mailHandler.HandleModifyLabels)
		protected.Post("/me", mailHandler.HandleUserInfo)
		protected.Delete("/spam", mailHandler.HandleDeleteSpam)
		protected.Post("/revoke", authHandler.HandleRevoke)

		protected.Get("/drafts", draftHandler.ListDrafts)
		protected.Post("/drafts", draftHandler.SaveDraft)
		protected.Get("/drafts/:id", draftHandler.GetDraft)
		protected.Delete("/drafts/:id", draftHandler.DeleteDraft)
		protected.Post("/drafts/:id/send", draftHandler.SendDraft)
	}

	// 404 for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "not found",
		})
	})

	utils.Log.Info("Starting proxy on port %d...", cfg.Server.Port)
	if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		utils.Log.Error("Error starting server: %v", err)
	}
}
