package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

type DepositRequest struct {
	Amount     float64 `json:"amount" validate:"required"`
	Method     string  `json:"method"`
	ProofID    string  `json:"proofId" validate:"required"`
	ProofImage string  `json:"proofImage"`
}

func DepositHandler(c *fiber.Ctx) error {
	var request DepositRequest
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

		if request.ProofID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Transaction ID (TID) is required",
			})
		}

		if request.Method == "" {
			request.Method = "EasyPaisa"
		}

		phone := c.Locals("phone").(string)

		tx, err := ledger.RequestDeposit(phone, request.Amount, request.Method, request.ProofID, request.ProofImage, time.Now())
		if err != nil {
			if errors.Is(err, ledger.ErrBelowMinimum) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "Minimum deposit of PKR 500 required!",
				})
			}
			logger.Log.Error("Error building deposit", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if err = storage.CreateTransaction(ctx, tx); err != nil {
			logger.Log.Error("Error creating deposit transaction", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncUser(phone)

		logger.Log.Info("Deposit submitted for review", zap.String("phone", phone), zap.Float64("amount", request.Amount))
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Deposit successfully submitted for review!",
			"id":      tx.ID,
		})
	}
}
