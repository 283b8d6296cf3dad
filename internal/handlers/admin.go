package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

type PendingRequestResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	UserPhone  string    `json:"userPhone"`
	Type       string    `json:"type"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method,omitempty"`
	ProofID    string    `json:"proofId,omitempty"`
	ProofImage string    `json:"proofImage,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func GetPendingRequestsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		pending, err := storage.GetPendingTransactions(ctx)
		if err != nil {
			logger.Log.Error("Error getting pending transactions", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if len(pending) == 0 {
			return c.SendStatus(fiber.StatusNoContent)
		}

		users, err := storage.GetAllUsers(ctx)
		if err != nil {
			logger.Log.Error("Error getting users", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		names := make(map[string]string, len(users))
		for _, u := range users {
			names[u.Phone] = u.Username
		}

		var response []PendingRequestResponse
		for _, tx := range pending {
			response = append(response, PendingRequestResponse{
				ID:         tx.ID,
				Username:   names[tx.UserPhone],
				UserPhone:  tx.UserPhone,
				Type:       tx.Type,
				Amount:     tx.Amount,
				Method:     tx.Method,
				ProofID:    tx.ProofID,
				ProofImage: tx.ProofImage,
				Timestamp:  tx.Timestamp,
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}

type ResolveRequest struct {
	ID     string `json:"id" validate:"required"`
	Action string `json:"action" validate:"required"`
}

func ResolveRequestHandler(c *fiber.Ctx) error {
	var request ResolveRequest
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

		if request.Action != "APPROVE" && request.Action != "REJECT" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Action must be APPROVE or REJECT",
			})
		}

		tx, err := storage.GetTransaction(ctx, request.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Transaction not found",
				})
			}
			logger.Log.Error("Error getting transaction", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		resolved, delta, err := ledger.AdminResolve(tx, request.Action == "APPROVE")
		if err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Transaction already resolved",
			})
		}

		if err = storage.ResolveTransaction(ctx, resolved, delta); err != nil {
			if errors.Is(err, storage.ErrNotPending) {
				// Another admin won the race; nothing was re-applied.
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Transaction already resolved",
				})
			}
			logger.Log.Error("Error resolving transaction", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncUser(tx.UserPhone)

		logger.Log.Info("Request resolved",
			zap.String("id", resolved.ID),
			zap.String("action", request.Action),
			zap.String("phone", tx.UserPhone))

		message := "Request rejected!"
		if request.Action == "APPROVE" {
			message = "Request approved!"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": message,
			"status":  resolved.Status,
		})
	}
}

type UserResponse struct {
	Username   string    `json:"username"`
	Phone      string    `json:"phone"`
	ReferredBy string    `json:"referredBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func GetUsersHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		users, err := storage.GetAllUsers(ctx)
		if err != nil {
			logger.Log.Error("Error getting users", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		var response []UserResponse
		for _, u := range users {
			response = append(response, UserResponse{
				Username:   u.Username,
				Phone:      u.Phone,
				ReferredBy: u.ReferredBy,
				CreatedAt:  u.CreatedAt,
			})
		}

		return c.Status(fiber.StatusOK).JSON(response)
	}
}

type PlanRequest struct {
	Name         string  `json:"name" validate:"required"`
	Price        float64 `json:"price" validate:"required"`
	DailyProfit  float64 `json:"dailyProfit" validate:"required"`
	DurationDays int     `json:"durationDays" validate:"required"`
	Level        int     `json:"level" validate:"required"`
	Color        string  `json:"color"`
}

func CreatePlanHandler(c *fiber.Ctx) error {
	var request PlanRequest
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

		if request.Name == "" || request.Price <= 0 || request.DailyProfit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Name, price and daily profit are required",
			})
		}

		plan, err := storage.CreateVIPPlan(ctx, models.VIPPlan{
			Name:         request.Name,
			Price:        request.Price,
			DailyProfit:  request.DailyProfit,
			DurationDays: request.DurationDays,
			Level:        request.Level,
			Color:        request.Color,
		})
		if err != nil {
			logger.Log.Error("Error creating plan", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncPlans()

		logger.Log.Info("Plan created", zap.Int("id", plan.ID), zap.String("name", plan.Name))
		return c.Status(fiber.StatusCreated).JSON(plan)
	}
}

func UpdatePlanHandler(c *fiber.Ctx) error {
	var request PlanRequest
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid plan id",
			})
		}

		if err := c.BodyParser(&request); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		err = storage.UpdateVIPPlan(ctx, models.VIPPlan{
			ID:           id,
			Name:         request.Name,
			Price:        request.Price,
			DailyProfit:  request.DailyProfit,
			DurationDays: request.DurationDays,
			Level:        request.Level,
			Color:        request.Color,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Plan not found",
				})
			}
			logger.Log.Error("Error updating plan", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncPlans()

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "VIP plan configuration updated!",
		})
	}
}

func DeletePlanHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Log.Warn("Context canceled or timeout exceeded")
		return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
			"error": "Request timed out",
		})
	default:
		id, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid plan id",
			})
		}

		if err = storage.DeleteVIPPlan(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Plan not found",
				})
			}
			logger.Log.Error("Error deleting plan", zap.Error(err))
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		mirror.SyncPlans()

		// Existing investments keep the orphaned plan id and stop accruing.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Plan removed from store",
		})
	}
}
