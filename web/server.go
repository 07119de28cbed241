package web

import (
	"stockdata/config"
	"stockdata/core"
	"stockdata/errs"
	"stockdata/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Run serves the query API until the listener fails. Shutdown is
// registered on core.ExitCalls so signal handling stays in main.
func Run() *errs.Error {
	app := fiber.New(fiber.Config{
		AppName:      "stockdata " + core.Version,
		ErrorHandler: ErrHandler,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	RegApiStock(app.Group("/api"))

	addr := config.Server.Addr
	core.ExitCalls = append(core.ExitCalls, func() {
		_ = app.Shutdown()
	})
	log.Info("query api listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		return errs.New(core.ErrRunTime, err)
	}
	return nil
}
