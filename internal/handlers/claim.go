package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/service"
	"go.uber.org/zap"
)

func ClaimHandler(c *fiber.Ctx) error {
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

		collected, err := service.ClaimAccrued(ctx, phone)
		if err != nil {
			if errors.Is(err, service.ErrNoInvestments) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Buy a VIP plan first!",
				})
			}
			if errors.Is(err, ledger.ErrNotReady) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Profit is not ready yet! Check back after 24 hours.",
				})
			}
			logger.Log.Error("Error claiming profit", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		logger.Log.Info("Profit claimed", zap.String("phone", phone), zap.Float64("collected", collected))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"collected": collected,
		})
	}
}
