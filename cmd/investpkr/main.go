package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/wasifali/investpkr/cmd/config"
	"github.com/wasifali/investpkr/internal/handlers"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/middleware"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/storage"
	"github.com/wasifali/investpkr/internal/workers"
	"go.uber.org/zap"
)

func main() {
	config.ParseFlags()

	if err := logger.Initialize(config.LogLevel); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Log.Error("Failed to init storage", zap.Error(err))
		return
	}

	mirror.Init()
	workers.InitAutoClaim()

	if err := run(); err != nil {
		logger.Log.Fatal("Failed to run server", zap.Error(err))
	}
}

func run() error {
	app := fiber.New(fiber.Config{
		// Deposit proofs arrive as data-URL images inside the JSON body.
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Post("/api/user/register", handlers.RegisterHandler)
	app.Post("/api/user/login", handlers.LoginHandler)
	app.Get("/api/plans", handlers.GetPlansHandler)

	userRoutes := app.Group("/api/user", middleware.AuthMiddleware)
	userRoutes.Post("/logout", handlers.LogoutHandler)
	userRoutes.Get("/dashboard", handlers.GetDashboardHandler)
	userRoutes.Post("/claim", handlers.ClaimHandler)
	userRoutes.Post("/autoclaim", handlers.SetAutoClaimHandler)
	userRoutes.Post("/invest", handlers.InvestHandler)
	userRoutes.Post("/deposit", handlers.DepositHandler)
	userRoutes.Post("/withdraw", handlers.WithdrawHandler)
	userRoutes.Get("/withdrawals", handlers.GetWithdrawalsHandler)
	userRoutes.Post("/support", handlers.SupportChatHandler)
	userRoutes.Get("/advice", handlers.AdviceHandler)

	adminRoutes := app.Group("/api/admin", middleware.AuthMiddleware, middleware.AdminMiddleware)
	adminRoutes.Get("/requests", handlers.GetPendingRequestsHandler)
	adminRoutes.Post("/resolve", handlers.ResolveRequestHandler)
	adminRoutes.Get("/users", handlers.GetUsersHandler)
	adminRoutes.Post("/plans", handlers.CreatePlanHandler)
	adminRoutes.Put("/plans/:id", handlers.UpdatePlanHandler)
	adminRoutes.Delete("/plans/:id", handlers.DeletePlanHandler)

	logger.Log.Info("Running server", zap.String("address", config.RunAddress))
	return app.Listen(config.RunAddress)
}
