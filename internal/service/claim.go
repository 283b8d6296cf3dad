package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/mirror"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
)

var ErrNoInvestments = errors.New("no active investments")

// ClaimAccrued runs the accrual pass for one user: collects whole-day profit
// across all held investments, credits the balance and records a single
// PROFIT transaction for the batch. Used by the claim endpoint and the
// auto-claim worker.
func ClaimAccrued(ctx context.Context, phone string) (float64, error) {
	investments, err := storage.GetUserInvestments(ctx, phone)
	if err != nil {
		return 0, err
	}
	if len(investments) == 0 {
		return 0, ErrNoInvestments
	}

	plans, err := storage.GetVIPPlans(ctx)
	if err != nil {
		return 0, err
	}

	updated, total, err := ledger.ClaimAccruedProfit(investments, plans, time.Now())
	if err != nil {
		return 0, err
	}

	tx := models.Transaction{
		ID:          uuid.New().String(),
		UserPhone:   phone,
		Type:        models.PROFIT,
		Amount:      total,
		Timestamp:   time.Now(),
		Description: "Daily ROI Collected",
		Status:      models.COMPLETED,
	}

	// Claim marks, balance credit and the PROFIT entry commit together.
	if err = storage.ApplyClaim(ctx, updated, total, tx); err != nil {
		return 0, err
	}

	mirror.SyncUser(phone)

	return total, nil
}
