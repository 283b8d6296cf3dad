package handlers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

func GetPlansHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		plans, err := storage.GetVIPPlans(ctx)
		if err != nil {
			logger.Log.Error("Error getting plans", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.Status(fiber.StatusOK).JSON(plans)
	}
}

type InvestRequest struct {
	PlanID int `json:"planId" validate:"required"`
}

func InvestHandler(c *fiber.Ctx) error {
	var request InvestRequest
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

		plan, err := storage.GetVIPPlan(ctx, request.PlanID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Plan not found",
				})
			}
			logger.Log.Error("Error getting plan", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		stats, err := storage.GetUserStats(ctx, phone)
		if err != nil {
			logger.Log.Error("Error getting user stats", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		_, investment, err := ledger.PurchasePlan(stats, plan, time.Now())
		if err != nil {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Insufficient balance! Make a deposit first.",
			})
		}

		tx := models.Transaction{
			ID:          uuid.New().String(),
			UserPhone:   phone,
			Type:        models.INVESTMENT,
			Amount:      plan.Price,
			Timestamp:   time.Now(),
			Description: plan.Name + " Activated",
			Status:      models.COMPLETED,
		}

		// Debit, investment row and ledger entry commit together; the
		// conditional debit in storage is the authoritative funds check.
		balance, err := storage.CreateInvestment(ctx, investment, plan.Price, tx)
		if err != nil {
			if errors.Is(err, storage.ErrInsufficientFunds) {
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
					"error": "Insufficient balance! Make a deposit first.",
				})
			}
			logger.Log.Error("Error creating investment", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncUser(phone)

		logger.Log.Info("Plan activated", zap.String("phone", phone), zap.String("plan", plan.Name))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": plan.Name + " activated!",
			"balance": balance,
		})
	}
}
