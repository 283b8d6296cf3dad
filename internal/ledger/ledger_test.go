package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasifali/investpkr/internal/models"
)

var testPlans = []models.VIPPlan{
	{ID: 1, Name: "VIP 1 - Core", Price: 500, DailyProfit: 50, DurationDays: 30, Level: 1},
	{ID: 2, Name: "VIP 2 - Prime", Price: 15000, DailyProfit: 1650, DurationDays: 30, Level: 2},
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("03185535594"))
	assert.ErrorIs(t, ValidatePhone("0318553559"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhone("031855355941"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhone("04185535594"), ErrInvalidPhone)
	assert.ErrorIs(t, ValidatePhone("+923185535594"), ErrInvalidPhone)
}

func TestClaimAccruedProfitNotReady(t *testing.T) {
	now := time.Now()
	investments := []models.UserInvestment{
		{PlanID: 1, PurchaseDate: now, LastProfitClaimed: now.Add(-23 * time.Hour)},
	}

	updated, total, err := ClaimAccruedProfit(investments, testPlans, now)

	assert.ErrorIs(t, err, ErrNotReady)
	assert.Zero(t, total)
	assert.Equal(t, investments, updated)
}

func TestClaimAccruedProfitWholeDays(t *testing.T) {
	now := time.Now()
	last := now.Add(-3*24*time.Hour - 5*time.Hour)
	investments := []models.UserInvestment{
		{PlanID: 1, PurchaseDate: last, LastProfitClaimed: last},
	}

	updated, total, err := ClaimAccruedProfit(investments, testPlans, now)

	require.NoError(t, err)
	assert.Equal(t, float64(150), total)
	// Advances by exactly 3 days, never to now: the 5h remainder keeps accruing.
	assert.Equal(t, last.Add(3*24*time.Hour), updated[0].LastProfitClaimed)
}

func TestClaimAccruedProfitMissingPlanSkipped(t *testing.T) {
	now := time.Now()
	last := now.Add(-48 * time.Hour)
	investments := []models.UserInvestment{
		{PlanID: 99, PurchaseDate: last, LastProfitClaimed: last},
		{PlanID: 1, PurchaseDate: last, LastProfitClaimed: last},
	}

	updated, total, err := ClaimAccruedProfit(investments, testPlans, now)

	require.NoError(t, err)
	assert.Equal(t, float64(100), total)
	assert.Equal(t, last, updated[0].LastProfitClaimed, "orphaned investment stays untouched")
	assert.Equal(t, last.Add(48*time.Hour), updated[1].LastProfitClaimed)
}

func TestClaimAccruedProfitBatchesInvestments(t *testing.T) {
	now := time.Now()
	investments := []models.UserInvestment{
		{PlanID: 1, LastProfitClaimed: now.Add(-25 * time.Hour)},
		{PlanID: 2, LastProfitClaimed: now.Add(-50 * time.Hour)},
		{PlanID: 1, LastProfitClaimed: now.Add(-2 * time.Hour)},
	}

	updated, total, err := ClaimAccruedProfit(investments, testPlans, now)

	require.NoError(t, err)
	assert.Equal(t, 50+2*1650.0, total)
	assert.Equal(t, investments[2].LastProfitClaimed, updated[2].LastProfitClaimed)
}

func TestPurchasePlanInsufficientFunds(t *testing.T) {
	stats := models.UserStats{UserPhone: "03001234567", Balance: 400}

	got, _, err := PurchasePlan(stats, testPlans[0], time.Now())

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, stats, got, "stats must be unchanged on failure")
}

func TestPurchasePlan(t *testing.T) {
	now := time.Now()
	stats := models.UserStats{UserPhone: "03001234567", Balance: 1000}

	got, inv, err := PurchasePlan(stats, testPlans[0], now)

	require.NoError(t, err)
	assert.Equal(t, float64(500), got.Balance)
	assert.Equal(t, float64(500), got.TotalInvested)
	assert.Equal(t, 1, inv.PlanID)
	assert.Equal(t, now, inv.PurchaseDate)
	assert.Equal(t, now, inv.LastProfitClaimed)
}

func TestRequestDeposit(t *testing.T) {
	tx, err := RequestDeposit("03001234567", 499, "EasyPaisa", "TID123", "", time.Now())
	assert.ErrorIs(t, err, ErrBelowMinimum)
	assert.Empty(t, tx.ID)

	tx, err = RequestDeposit("03001234567", 500, "EasyPaisa", "TID123", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.DEPOSIT, tx.Type)
	assert.Equal(t, models.PENDING, tx.Status)
	assert.Equal(t, "TID123", tx.ProofID)
}

func TestRequestWithdrawal(t *testing.T) {
	stats := models.UserStats{UserPhone: "03001234567", Balance: 1000}

	_, _, err := RequestWithdrawal(stats, 99, "03007654321", time.Now())
	assert.ErrorIs(t, err, ErrBelowMinimum)

	got, _, err := RequestWithdrawal(stats, 1001, "03007654321", time.Now())
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, stats, got, "balance unchanged on rejection")

	got, tx, err := RequestWithdrawal(stats, 300, "03007654321", time.Now())
	require.NoError(t, err)
	assert.Equal(t, float64(700), got.Balance, "debited immediately and optimistically")
	assert.Equal(t, models.PENDING, tx.Status)
	assert.Equal(t, models.WITHDRAWAL, tx.Type)
}

func TestAdminResolveDeposit(t *testing.T) {
	tx := models.Transaction{Type: models.DEPOSIT, Amount: 500, Status: models.PENDING}

	resolved, delta, err := AdminResolve(tx, true)
	require.NoError(t, err)
	assert.Equal(t, float64(500), delta.Balance)
	assert.Zero(t, delta.TotalWithdrawn)
	assert.Equal(t, models.COMPLETED, resolved.Status)

	resolved, delta, err = AdminResolve(tx, false)
	require.NoError(t, err)
	assert.Zero(t, delta.Balance, "rejected deposit is never credited")
	assert.Equal(t, models.FAILED, resolved.Status)
}

func TestAdminResolveWithdrawal(t *testing.T) {
	// Balance was already debited at request time.
	tx := models.Transaction{Type: models.WITHDRAWAL, Amount: 300, Status: models.PENDING}

	resolved, delta, err := AdminResolve(tx, true)
	require.NoError(t, err)
	assert.Zero(t, delta.Balance, "approval must not debit twice")
	assert.Equal(t, float64(300), delta.TotalWithdrawn)
	assert.Equal(t, models.COMPLETED, resolved.Status)

	resolved, delta, err = AdminResolve(tx, false)
	require.NoError(t, err)
	assert.Equal(t, float64(300), delta.Balance, "rejection refunds the debit")
	assert.Zero(t, delta.TotalWithdrawn)
	assert.Equal(t, models.FAILED, resolved.Status)
}

func TestAdminResolveTerminalIsRejected(t *testing.T) {
	for _, status := range []string{models.COMPLETED, models.FAILED} {
		tx := models.Transaction{Type: models.DEPOSIT, Amount: 500, Status: status}
		resolved, delta, err := AdminResolve(tx, true)
		assert.ErrorIs(t, err, ErrAlreadyResolved)
		assert.Equal(t, models.StatsDelta{}, delta, "terminal transaction has no effect")
		assert.Equal(t, status, resolved.Status)
	}
}

func TestInvestThenClaimScenario(t *testing.T) {
	now := time.Now()
	stats := models.UserStats{UserPhone: "03001234567", Balance: 1000}
	plan := models.VIPPlan{ID: 7, Name: "Test", Price: 500, DailyProfit: 50}

	stats, inv, err := PurchasePlan(stats, plan, now)
	require.NoError(t, err)
	assert.Equal(t, float64(500), stats.Balance)
	assert.Equal(t, float64(500), stats.TotalInvested)

	later := now.Add(3 * 24 * time.Hour)
	updated, total, err := ClaimAccruedProfit([]models.UserInvestment{inv}, []models.VIPPlan{plan}, later)
	require.NoError(t, err)
	assert.Equal(t, float64(150), total)
	assert.Equal(t, now.Add(3*24*time.Hour), updated[0].LastProfitClaimed)
	assert.Equal(t, float64(650), stats.Balance+total, "crediting the collected total restores 1000-500+150")
}
