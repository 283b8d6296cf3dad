package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

type DashboardResponse struct {
	Stats        models.UserStats        `json:"stats"`
	Investments  []models.UserInvestment `json:"investments"`
	Transactions []models.Transaction    `json:"transactions"`
}

func GetDashboardHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		phone := c.Locals("phone").(string)

		stats, err := storage.GetUserStats(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user stats", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		investments, err := storage.GetUserInvestments(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user investments", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		transactions, err := storage.GetUserTransactions(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user transactions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(DashboardResponse{
			Stats:        stats,
			Investments:  investments,
			Transactions: transactions,
		})
	}
}

type AutoClaimRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoClaimHandler toggles background profit collection for the user.
func SetAutoClaimHandler(c *fiber.Ctx) error {
	var request AutoClaimRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		phone := c.Locals("phone").(string)

		if err := storage.SetAutoClaim(ctx, phone, request.Enabled); err != nil {
			logger.Log.Error("Error updating auto-claim flag", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"autoClaimEnabled": request.Enabled,
		})
	}
}
