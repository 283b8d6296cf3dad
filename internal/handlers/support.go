package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/advisor"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

type SupportRequest struct {
	Message string `json:"message" validate:"required"`
}

// SupportChatHandler relays a support message to the advisor. The advisor
// degrades to a canned reply on failure, so this endpoint only errors on
// storage problems.
func SupportChatHandler(c *fiber.Ctx) error {
	var request SupportRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		if err := c.BodyParser(&request); err != nil || request.Message == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message is required",
			})
		}

		phone := c.Locals("phone").(string)

		stats, err := storage.GetUserStats(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user stats", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		reply := advisor.ChatResponse(ctx, request.Message, stats.Balance)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"reply": reply,
		})
	}
}

func AdviceHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
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

		advice := advisor.FinancialAdvice(ctx, stats.Balance, stats.TotalInvested)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"advice": advice,
		})
	}
}
