package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
var (
	DEPOSIT        = "DEPOSIT"
	WITHDRAWAL     = "WITHDRAWAL"
	PROFIT         = "PROFIT"
	INVESTMENT     = "INVESTMENT"
	REFERRAL_BONUS = "REFERRAL_BONUS"
)

// Transaction statuses. PENDING is the only non-terminal state.
var (
	PENDING   = "PENDING"
	COMPLETED = "COMPLETED"
	FAILED    = "FAILED"
)

type User struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	Phone        string    `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	ReferredBy   string    `db:"referred_by"`
	IsAdmin      bool      `db:"is_admin"`
	CreatedAt    time.Time `db:"created_at"`
}

type VIPPlan struct {
	ID           int     `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Price        float64 `db:"price" json:"price"`
	DailyProfit  float64 `db:"daily_profit" json:"dailyProfit"`
	DurationDays int     `db:"duration_days" json:"durationDays"`
	Level        int     `db:"level" json:"level"`
	Color        string  `db:"color" json:"color"`
}

type UserInvestment struct {
	ID                int       `db:"id" json:"-"`
	UserPhone         string    `db:"user_phone" json:"-"`
	PlanID            int       `db:"plan_id" json:"planId"`
	PurchaseDate      time.Time `db:"purchase_date" json:"purchaseDate"`
	LastProfitClaimed time.Time `db:"last_profit_claimed" json:"lastProfitClaimed"`
}

type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserPhone   string    `db:"user_phone" json:"userPhone"`
	Type        string    `db:"type" json:"type"`
	Amount      float64   `db:"amount" json:"amount"`
	Timestamp   time.Time `db:"ts" json:"timestamp"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	Method      string    `db:"method" json:"method,omitempty"`
	ProofID     string    `db:"proof_id" json:"proofId,omitempty"`
	ProofImage  string    `db:"proof_image" json:"proofImage,omitempty"`
}

// StatsDelta is the stats adjustment implied by resolving a pending
// transaction. Applied as SQL increments rather than absolute values so a
// concurrent balance mutation is never clobbered.
type StatsDelta struct {
	Balance        float64
	TotalWithdrawn float64
}

type UserStats struct {
	ID               int     `db:"id" json:"-"`
	UserPhone        string  `db:"user_phone" json:"-"`
	Balance          float64 `db:"balance" json:"balance"`
	TotalInvested    float64 `db:"total_invested" json:"totalInvested"`
	TotalEarned      float64 `db:"total_earned" json:"totalEarned"`
	TotalWithdrawn   float64 `db:"total_withdrawn" json:"totalWithdrawn"`
	ReferralEarnings float64 `db:"referral_earnings" json:"referralEarnings"`
	AutoClaimEnabled bool    `db:"auto_claim_enabled" json:"autoClaimEnabled"`
}

// DefaultVIPPlans seeds the catalog on first start. Admins can reshape it
// afterwards through the plan management endpoints.
var DefaultVIPPlans = []VIPPlan{
	{ID: 1, Name: "VIP 1 - Core", Price: 3000, DailyProfit: 300, DurationDays: 30, Level: 1, Color: "blue"},
	{ID: 2, Name: "VIP 2 - Prime", Price: 15000, DailyProfit: 1650, DurationDays: 30, Level: 2, Color: "slate"},
	{ID: 3, Name: "VIP 3 - Elite", Price: 60000, DailyProfit: 7200, DurationDays: 30, Level: 3, Color: "amber"},
	{ID: 4, Name: "VIP 4 - Master", Price: 250000, DailyProfit: 33750, DurationDays: 30, Level: 4, Color: "indigo"},
	{ID: 5, Name: "VIP 5 - Prestige", Price: 1000000, DailyProfit: 150000, DurationDays: 45, Level: 5, Color: "cyan"},
	{ID: 6, Name: "VIP 6 - Sovereign", Price: 5000000, DailyProfit: 850000, DurationDays: 60, Level: 6, Color: "rose"},
}
