package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/service"
)

// ServerConfig holds the HTTP layer settings
type ServerConfig struct {
	AppName      string
	AccessLog    bool
	BodyLimit    int
	Middleware   []fiber.Handler
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer wires routes and middleware around a handler
func NewServer(h *Handler, cfg ServerConfig) *fiber.App {
	if cfg.AppName == "" {
		cfg.AppName = "Wear Intensity Predictor"
	}
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = 8 * 1024 * 1024
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: errorHandler(h.logger),
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	for _, mw := range cfg.Middleware {
		app.Use(mw)
	}

	app.Get("/", h.Root)
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	app.Get("/info", h.Info)
	app.Post("/predict", h.Predict)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	return app
}

// errorHandler maps handler errors to JSON responses
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case service.IsClientError(err):
			code = fiber.StatusBadRequest
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		} else {
			log.Debug("request rejected", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
