package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/wasifali/investpkr/internal/auth"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"github.com/wasifali/investpkr/internal/tokenstorage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
	Referral string `json:"referral"`
}

type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func RegisterHandler(c *fiber.Ctx) error {
	var request RegisterRequest
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

		if request.Username == "" || request.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Username and password are required",
			})
		}

		if err := ledger.ValidatePhone(request.Phone); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Use Pakistan number format (03XXXXXXXXX)",
			})
		}

		if request.Referral != "" {
			if err := ledger.ValidatePhone(request.Referral); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Referral code must be a valid phone number",
				})
			}
		}

		existingUser, err := storage.GetUserByPhone(ctx, request.Phone)
		if err != nil {
			logger.Log.Error("Error while querying user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if existingUser.ID != uuid.Nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Number already exists",
			})
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Log.Error("Error hashing password: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		user := models.User{
			ID:           uuid.New(),
			Username:     request.Username,
			Phone:        request.Phone,
			PasswordHash: string(hashedPassword),
			ReferredBy:   request.Referral,
		}

		if err = storage.CreateUser(ctx, user); err != nil {
			logger.Log.Error("Error creating user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		token, err := auth.GenerateToken(user.Phone, false)
		if err != nil {
			logger.Log.Error("Error generating token: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		tokenstorage.AddToken(token)
		mirror.SyncUsers()

		c.Cookie(&fiber.Cookie{
			Name:     "jwt",
			Value:    token,
			Expires:  time.Now().Add(auth.TokenExp),
			HTTPOnly: true,
		})

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Account created successfully",
		})
	}
}

func LoginHandler(c *fiber.Ctx) error {
	var request LoginRequest
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

		if err := ledger.ValidatePhone(request.Phone); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Use Pakistan number format (03XXXXXXXXX)",
			})
		}

		existingUser, err := storage.GetUserByPhone(ctx, request.Phone)
		if err != nil {
			logger.Log.Error("Error while querying user: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		if existingUser.ID == uuid.Nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong number or password",
			})
		}

		err = bcrypt.CompareHashAndPassword([]byte(existingUser.PasswordHash), []byte(request.Password))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Wrong number or password",
			})
		}

		token, err := auth.GenerateToken(existingUser.Phone, existingUser.IsAdmin)
		if err != nil {
			logger.Log.Error("Error generating token: ", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		tokenstorage.AddToken(token)

		c.Cookie(&fiber.Cookie{
			Name:     "jwt",
			Value:    token,
			Expires:  time.Now().Add(auth.TokenExp),
			HTTPOnly: true,
		})

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message":  "Welcome back, " + existingUser.Username + "!",
			"username": existingUser.Username,
			"isAdmin":  existingUser.IsAdmin,
		})
	}
}

func LogoutHandler(c *fiber.Ctx) error {
	token := c.Cookies("jwt")
	if token != "" {
		tokenstorage.RemoveToken(token)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Successfully logged out",
	})
}
