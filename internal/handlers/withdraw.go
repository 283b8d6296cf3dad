package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

type WithdrawRequest struct {
	WalletNo string  `json:"walletNo" validate:"required"`
	Amount   float64 `json:"amount" validate:"required"`
}

func WithdrawHandler(c *fiber.Ctx) error {
	var request WithdrawRequest
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

		if request.WalletNo == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Mobile account number is required",
			})
		}

		phone := c.Locals("phone").(string)

		stats, err := storage.GetUserStats(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user stats", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		_, tx, err := ledger.RequestWithdrawal(stats, request.Amount, request.WalletNo, time.Now())
		if err != nil {
			if errors.Is(err, ledger.ErrBelowMinimum) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "Minimum withdrawal limit is PKR 100!",
				})
			}
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "Insufficient funds",
				})
			}
			logger.Log.Error("Error building withdrawal", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		// The debit is optimistic: it lands before review and an admin
		// rejection refunds it. The conditional debit in storage is the
		// authoritative funds check; the ledger check above only fails fast
		// on the stats snapshot.
		balance, err := storage.CreateWithdrawal(ctx, tx)
		if err != nil {
			if errors.Is(err, storage.ErrInsufficientFunds) {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "Insufficient funds",
				})
			}
			logger.Log.Error("Error creating withdrawal", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncUser(phone)

		logger.Log.Info("Withdrawal created successfully", zap.String("phone", phone), zap.Float64("sum", request.Amount))
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Withdrawal request queued for processing!",
			"balance": balance,
		})
	}
}

type WithdrawalsResponse struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	RequestedAt time.Time `json:"requested_at"`
}

func GetWithdrawalsHandler(c *fiber.Ctx) error {
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

		transactions, err := storage.GetUserTransactions(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user transactions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		var response []WithdrawalsResponse
		for _, tx := range transactions {
			if tx.Type != models.WITHDRAWAL {
				continue
			}
			response = append(response, WithdrawalsResponse{
				ID:          tx.ID,
				Amount:      tx.Amount,
				Status:      tx.Status,
				Description: tx.Description,
				RequestedAt: tx.Timestamp,
			})
		}

		if len(response) == 0 {
			logger.Log.Info("No withdrawals found")
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}
