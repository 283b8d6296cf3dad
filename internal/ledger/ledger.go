package ledger

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/wasifali/investpkr/internal/models"
)

// Business minimums, in PKR.
const (
	MinDeposit    = 500
	MinWithdrawal = 100
)

const day = 24 * time.Hour

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBelowMinimum      = errors.New("amount below minimum")
	ErrNotReady          = errors.New("profit not ready yet")
	ErrAlreadyResolved   = errors.New("transaction already resolved")
	ErrInvalidPhone      = errors.New("invalid phone number")
)

var pakPhone = regexp.MustCompile(`^03[0-9]{9}$`)

// ValidatePhone checks the Pakistani mobile format 03XXXXXXXXX.
func ValidatePhone(phone string) error {
	if !pakPhone.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// ClaimAccruedProfit converts elapsed whole days into profit for every held
// investment. An investment whose plan is missing from the catalog is
// skipped. lastProfitClaimed advances by exactly daysPassed*24h rather than
// resetting to now, so sub-day remainders keep accruing. Returns ErrNotReady
// when no investment has a full day elapsed.
func ClaimAccruedProfit(investments []models.UserInvestment, plans []models.VIPPlan, now time.Time) ([]models.UserInvestment, float64, error) {
	byID := make(map[int]models.VIPPlan, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
	}

	updated := make([]models.UserInvestment, len(investments))
	copy(updated, investments)

	var total float64
	for i, inv := range updated {
		plan, ok := byID[inv.PlanID]
		if !ok {
			continue
		}
		daysPassed := int64(now.Sub(inv.LastProfitClaimed) / day)
		if daysPassed < 1 {
			continue
		}
		total += plan.DailyProfit * float64(daysPassed)
		updated[i].LastProfitClaimed = inv.LastProfitClaimed.Add(time.Duration(daysPassed) * day)
	}

	if total <= 0 {
		return investments, 0, ErrNotReady
	}
	return updated, total, nil
}

// PurchasePlan deducts the plan price from the balance and opens a new
// investment accruing from now.
func PurchasePlan(stats models.UserStats, plan models.VIPPlan, now time.Time) (models.UserStats, models.UserInvestment, error) {
	if stats.Balance < plan.Price {
		return stats, models.UserInvestment{}, ErrInsufficientFunds
	}

	stats.Balance -= plan.Price
	stats.TotalInvested += plan.Price

	inv := models.UserInvestment{
		UserPhone:         stats.UserPhone,
		PlanID:            plan.ID,
		PurchaseDate:      now,
		LastProfitClaimed: now,
	}
	return stats, inv, nil
}

// RequestDeposit admits a deposit for manual review. The balance is not
// touched until an admin approves the transaction.
func RequestDeposit(phone string, amount float64, method, proofID, proofImage string, now time.Time) (models.Transaction, error) {
	if amount < MinDeposit {
		return models.Transaction{}, ErrBelowMinimum
	}

	return models.Transaction{
		ID:          uuid.New().String(),
		UserPhone:   phone,
		Type:        models.DEPOSIT,
		Amount:      amount,
		Timestamp:   now,
		Description: fmt.Sprintf("%s Deposit", method),
		Status:      models.PENDING,
		Method:      method,
		ProofID:     proofID,
		ProofImage:  proofImage,
	}, nil
}

// RequestWithdrawal debits the balance immediately and queues a PENDING
// withdrawal. A later rejection refunds the debit.
func RequestWithdrawal(stats models.UserStats, amount float64, walletNo string, now time.Time) (models.UserStats, models.Transaction, error) {
	if amount < MinWithdrawal {
		return stats, models.Transaction{}, ErrBelowMinimum
	}
	if amount > stats.Balance {
		return stats, models.Transaction{}, ErrInsufficientFunds
	}

	stats.Balance -= amount

	tx := models.Transaction{
		ID:          uuid.New().String(),
		UserPhone:   stats.UserPhone,
		Type:        models.WITHDRAWAL,
		Amount:      amount,
		Timestamp:   now,
		Description: fmt.Sprintf("Withdrawal to %s", walletNo),
		Status:      models.PENDING,
	}
	return stats, tx, nil
}

// AdminResolve applies an admin decision to a pending transaction.
// PENDING is the only state that accepts a transition; resolving an already
// terminal transaction returns ErrAlreadyResolved with a zero delta. The
// returned delta is an increment for the persistence layer to apply, so it
// composes with stats mutations that land concurrently.
//
//	PENDING --APPROVE--> COMPLETED  deposit: credit balance
//	                                withdrawal: count towards totalWithdrawn
//	PENDING --REJECT---> FAILED     withdrawal: refund the optimistic debit
//	                                deposit: no balance effect
func AdminResolve(tx models.Transaction, approve bool) (models.Transaction, models.StatsDelta, error) {
	var delta models.StatsDelta

	if tx.Status != models.PENDING {
		return tx, delta, ErrAlreadyResolved
	}

	if approve {
		tx.Status = models.COMPLETED
		switch tx.Type {
		case models.DEPOSIT:
			delta.Balance = tx.Amount
		case models.WITHDRAWAL:
			delta.TotalWithdrawn = tx.Amount
		}
	} else {
		tx.Status = models.FAILED
		if tx.Type == models.WITHDRAWAL {
			delta.Balance = tx.Amount
		}
	}

	return tx, delta, nil
}
