package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/wasifali/investpkr/cmd/config"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	DB                     *sql.DB
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")
	ErrNotPending          = errors.New("transaction is not pending")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

func Init() error {
	if config.DatabaseURI == "" {
		return ErrConnectionFailed
	}

	db, err := sql.Open("pgx", config.DatabaseURI)
	if err != nil {
		logger.Log.Fatal("Error opening database connection", zap.Error(err))
		return ErrConnectionFailed
	}
	DB = db

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY NOT NULL,
			username VARCHAR(255) NOT NULL,
			phone VARCHAR(11) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			referred_by VARCHAR(11) DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS vip_plans (
			id SERIAL PRIMARY KEY NOT NULL,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(14, 2) NOT NULL,
			daily_profit DECIMAL(14, 2) NOT NULL,
			duration_days INT NOT NULL,
			level INT NOT NULL,
			color VARCHAR(64) DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			id SERIAL PRIMARY KEY NOT NULL,
			user_phone VARCHAR(11) UNIQUE NOT NULL REFERENCES users(phone),
			balance DECIMAL(14, 2) NOT NULL DEFAULT 0.00,
			total_invested DECIMAL(14, 2) NOT NULL DEFAULT 0.00,
			total_earned DECIMAL(14, 2) NOT NULL DEFAULT 0.00,
			total_withdrawn DECIMAL(14, 2) NOT NULL DEFAULT 0.00,
			referral_earnings DECIMAL(14, 2) NOT NULL DEFAULT 0.00,
			auto_claim_enabled BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE TABLE IF NOT EXISTS investments (
			id SERIAL PRIMARY KEY NOT NULL,
			user_phone VARCHAR(11) NOT NULL REFERENCES users(phone),
			plan_id INT NOT NULL,
			purchase_date TIMESTAMP NOT NULL,
			last_profit_claimed TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY NOT NULL,
			user_phone VARCHAR(11) NOT NULL REFERENCES users(phone),
			type VARCHAR(20) NOT NULL,
			amount DECIMAL(14, 2) NOT NULL,
			ts TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			description VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL,
			method VARCHAR(64) DEFAULT '',
			proof_id VARCHAR(64) DEFAULT '',
			proof_image TEXT DEFAULT ''
		);`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			return ErrCreatingTableFailed
		}
	}

	if err := seedPlans(); err != nil {
		return err
	}
	return seedAdmin()
}

// seedPlans fills an empty catalog with the default VIP tiers.
func seedPlans() error {
	var count int
	if err := DB.QueryRow(`SELECT COUNT(*) FROM vip_plans;`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, plan := range models.DefaultVIPPlans {
		_, err := DB.Exec(`
			INSERT INTO vip_plans (name, price, daily_profit, duration_days, level, color)
			VALUES ($1, $2, $3, $4, $5, $6);
		`, plan.Name, plan.Price, plan.DailyProfit, plan.DurationDays, plan.Level, plan.Color)
		if err != nil {
			return err
		}
	}

	logger.Log.Info("Seeded default VIP plan catalog")
	return nil
}

// seedAdmin creates the privileged account from config. The admin is a
// regular stored user with is_admin set, never an in-code credential check.
func seedAdmin() error {
	if config.AdminPhone == "" || config.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	existing, err := GetUserByPhone(ctx, config.AdminPhone)
	if err != nil {
		return err
	}
	if existing.ID != uuid.Nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		ID:           uuid.New(),
		Username:     config.AdminName,
		Phone:        config.AdminPhone,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	if err := CreateUser(ctx, admin); err != nil {
		return err
	}

	logger.Log.Info("Seeded admin account", zap.String("phone", config.AdminPhone))
	return nil
}

func GetUserByPhone(ctx context.Context, phone string) (models.User, error) {

	var existingUser models.User

	err := DB.QueryRowContext(ctx, `
		SELECT id, username, phone, password_hash, referred_by, is_admin, created_at
		FROM users WHERE phone = $1;
	`, phone).Scan(&existingUser.ID, &existingUser.Username, &existingUser.Phone,
		&existingUser.PasswordHash, &existingUser.ReferredBy, &existingUser.IsAdmin, &existingUser.CreatedAt)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.User{}, err
		}
	}

	return existingUser, nil
}

// CreateUser inserts the user together with its zeroed stats row.
func CreateUser(ctx context.Context, user models.User) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var phone string

	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (id, username, phone, password_hash, referred_by, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING phone;
	`, user.ID, user.Username, user.Phone, user.PasswordHash, user.ReferredBy, user.IsAdmin).Scan(&phone)

	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_phone) VALUES ($1);
	`, phone)

	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func GetAllUsers(ctx context.Context) ([]models.User, error) {

	var users []models.User

	rows, err := DB.QueryContext(ctx, `
		SELECT id, username, phone, password_hash, referred_by, is_admin, created_at
		FROM users WHERE is_admin = FALSE ORDER BY created_at;
	`)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []models.User{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var user models.User
		err = rows.Scan(&user.ID, &user.Username, &user.Phone, &user.PasswordHash,
			&user.ReferredBy, &user.IsAdmin, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func GetVIPPlans(ctx context.Context) ([]models.VIPPlan, error) {

	var plans []models.VIPPlan

	rows, err := DB.QueryContext(ctx, `
		SELECT id, name, price, daily_profit, duration_days, level, color
		FROM vip_plans ORDER BY level, id;
	`)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []models.VIPPlan{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var plan models.VIPPlan
		err = rows.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DailyProfit,
			&plan.DurationDays, &plan.Level, &plan.Color)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return plans, nil
}

func GetVIPPlan(ctx context.Context, id int) (models.VIPPlan, error) {

	var plan models.VIPPlan

	err := DB.QueryRowContext(ctx, `
		SELECT id, name, price, daily_profit, duration_days, level, color
		FROM vip_plans WHERE id = $1;
	`, id).Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DailyProfit,
		&plan.DurationDays, &plan.Level, &plan.Color)

	if err != nil {
		return models.VIPPlan{}, err
	}

	return plan, nil
}

func CreateVIPPlan(ctx context.Context, plan models.VIPPlan) (models.VIPPlan, error) {

	err := DB.QueryRowContext(ctx, `
		INSERT INTO vip_plans (name, price, daily_profit, duration_days, level, color)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;
	`, plan.Name, plan.Price, plan.DailyProfit, plan.DurationDays, plan.Level, plan.Color).Scan(&plan.ID)

	if err != nil {
		return models.VIPPlan{}, err
	}

	return plan, nil
}

func UpdateVIPPlan(ctx context.Context, plan models.VIPPlan) error {

	res, err := DB.ExecContext(ctx, `
		UPDATE vip_plans SET name = $1, price = $2, daily_profit = $3,
			duration_days = $4, level = $5, color = $6
		WHERE id = $7;
	`, plan.Name, plan.Price, plan.DailyProfit, plan.DurationDays, plan.Level, plan.Color, plan.ID)

	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteVIPPlan removes a plan from the catalog. Investments holding the id
// keep their orphaned reference and simply stop accruing.
func DeleteVIPPlan(ctx context.Context, id int) error {

	res, err := DB.ExecContext(ctx, `
		DELETE FROM vip_plans WHERE id = $1;
	`, id)

	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func GetUserStats(ctx context.Context, phone string) (models.UserStats, error) {

	var stats models.UserStats

	err := DB.QueryRowContext(ctx, `
		SELECT id, user_phone, balance, total_invested, total_earned,
			total_withdrawn, referral_earnings, auto_claim_enabled
		FROM user_stats WHERE user_phone = $1;
	`, phone).Scan(&stats.ID, &stats.UserPhone, &stats.Balance, &stats.TotalInvested,
		&stats.TotalEarned, &stats.TotalWithdrawn, &stats.ReferralEarnings, &stats.AutoClaimEnabled)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.UserStats{}, err
		}
	}

	return stats, nil
}

func SetAutoClaim(ctx context.Context, phone string, enabled bool) error {

	_, err := DB.ExecContext(ctx, `
		UPDATE user_stats SET auto_claim_enabled = $1 WHERE user_phone = $2;
	`, enabled, phone)

	return err
}

func GetUserInvestments(ctx context.Context, phone string) ([]models.UserInvestment, error) {

	var investments []models.UserInvestment

	rows, err := DB.QueryContext(ctx, `
		SELECT id, user_phone, plan_id, purchase_date, last_profit_claimed
		FROM investments WHERE user_phone = $1 ORDER BY purchase_date;
	`, phone)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []models.UserInvestment{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var inv models.UserInvestment
		err = rows.Scan(&inv.ID, &inv.UserPhone, &inv.PlanID, &inv.PurchaseDate, &inv.LastProfitClaimed)
		if err != nil {
			return nil, err
		}
		investments = append(investments, inv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return investments, nil
}

// CreateInvestment activates a plan purchase: the price debit, the new
// investment row and the INVESTMENT ledger entry land in one database
// transaction. The balance >= price guard keeps the debit atomic, so a
// concurrent spend of the same funds loses with ErrInsufficientFunds.
// Returns the balance after the debit.
func CreateInvestment(ctx context.Context, inv models.UserInvestment, price float64, t models.Transaction) (float64, error) {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var balance float64
	err = tx.QueryRowContext(ctx, `
		UPDATE user_stats
		SET balance = balance - $1, total_invested = total_invested + $1
		WHERE user_phone = $2 AND balance >= $1
		RETURNING balance;
	`, price, inv.UserPhone).Scan(&balance)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO investments (user_phone, plan_id, purchase_date, last_profit_claimed)
		VALUES ($1, $2, $3, $4);
	`, inv.UserPhone, inv.PlanID, inv.PurchaseDate, inv.LastProfitClaimed)
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if err = appendTransactionTx(ctx, tx, t); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return balance, nil
}

// ApplyClaim records a completed accrual pass: advances the investments'
// claim marks, credits the collected total and appends the PROFIT entry in
// one database transaction.
func ApplyClaim(ctx context.Context, investments []models.UserInvestment, total float64, t models.Transaction) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, inv := range investments {
		_, err = tx.ExecContext(ctx, `
			UPDATE investments SET last_profit_claimed = $1 WHERE id = $2;
		`, inv.LastProfitClaimed, inv.ID)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_stats
		SET balance = balance + $1, total_earned = total_earned + $1
		WHERE user_phone = $2;
	`, total, t.UserPhone)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err = appendTransactionTx(ctx, tx, t); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func GetUserTransactions(ctx context.Context, phone string) ([]models.Transaction, error) {

	var transactions []models.Transaction

	rows, err := DB.QueryContext(ctx, `
		SELECT id, user_phone, type, amount, ts, description, status, method, proof_id, proof_image
		FROM transactions WHERE user_phone = $1 ORDER BY ts DESC LIMIT 50;
	`, phone)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []models.Transaction{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var t models.Transaction
		err = rows.Scan(&t.ID, &t.UserPhone, &t.Type, &t.Amount, &t.Timestamp,
			&t.Description, &t.Status, &t.Method, &t.ProofID, &t.ProofImage)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

func GetTransaction(ctx context.Context, id string) (models.Transaction, error) {

	var t models.Transaction

	err := DB.QueryRowContext(ctx, `
		SELECT id, user_phone, type, amount, ts, description, status, method, proof_id, proof_image
		FROM transactions WHERE id = $1;
	`, id).Scan(&t.ID, &t.UserPhone, &t.Type, &t.Amount, &t.Timestamp,
		&t.Description, &t.Status, &t.Method, &t.ProofID, &t.ProofImage)

	if err != nil {
		return models.Transaction{}, err
	}

	return t, nil
}

// appendTransactionTx inserts a ledger entry within an open transaction and
// evicts rows beyond the 50 most recent for that user.
func appendTransactionTx(ctx context.Context, tx *sql.Tx, t models.Transaction) error {

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_phone, type, amount, ts, description, status, method, proof_id, proof_image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`, t.ID, t.UserPhone, t.Type, t.Amount, t.Timestamp, t.Description, t.Status, t.Method, t.ProofID, t.ProofImage)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM transactions WHERE user_phone = $1 AND id NOT IN (
			SELECT id FROM transactions WHERE user_phone = $1 ORDER BY ts DESC LIMIT 50
		);
	`, t.UserPhone)

	return err
}

// CreateTransaction appends a standalone ledger entry, capped per user.
func CreateTransaction(ctx context.Context, t models.Transaction) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err = appendTransactionTx(ctx, tx, t); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// CreateWithdrawal debits the balance and queues the PENDING withdrawal in
// one database transaction. The balance >= amount guard makes the optimistic
// debit atomic: of two concurrent requests racing for the same funds, one
// loses and gets ErrInsufficientFunds instead of overdrawing. Returns the
// balance after the debit.
func CreateWithdrawal(ctx context.Context, t models.Transaction) (float64, error) {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	var balance float64
	err = tx.QueryRowContext(ctx, `
		UPDATE user_stats
		SET balance = balance - $1
		WHERE user_phone = $2 AND balance >= $1
		RETURNING balance;
	`, t.Amount, t.UserPhone).Scan(&balance)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientFunds
		}
		return 0, err
	}

	if err = appendTransactionTx(ctx, tx, t); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return balance, nil
}

func GetPendingTransactions(ctx context.Context) ([]models.Transaction, error) {

	var transactions []models.Transaction

	rows, err := DB.QueryContext(ctx, `
		SELECT id, user_phone, type, amount, ts, description, status, method, proof_id, proof_image
		FROM transactions WHERE status = 'PENDING' ORDER BY ts;
	`)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []models.Transaction{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var t models.Transaction
		err = rows.Scan(&t.ID, &t.UserPhone, &t.Type, &t.Amount, &t.Timestamp,
			&t.Description, &t.Status, &t.Method, &t.ProofID, &t.ProofImage)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return transactions, nil
}

// ResolveTransaction flips a pending transaction to its terminal status and
// applies the decision's stats delta in the same database transaction. The
// status = 'PENDING' guard is the compare-and-swap: a concurrent resolution
// of the same request loses the race and gets ErrNotPending instead of
// re-applying balance effects. The delta is applied as increments, so profit
// credits or debits landing between the admin's read and this commit survive.
func ResolveTransaction(ctx context.Context, resolved models.Transaction, delta models.StatsDelta) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions SET status = $1 WHERE id = $2 AND status = 'PENDING';
	`, resolved.Status, resolved.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return ErrNotPending
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_stats
		SET balance = balance + $1, total_withdrawn = total_withdrawn + $2
		WHERE user_phone = $3;
	`, delta.Balance, delta.TotalWithdrawn, resolved.UserPhone)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetAutoClaimPhones lists users that opted into background profit claims.
func GetAutoClaimPhones(ctx context.Context) ([]string, error) {

	var phones []string

	rows, err := DB.QueryContext(ctx, `
		SELECT user_phone FROM user_stats WHERE auto_claim_enabled = TRUE;
	`)

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return []string{}, err
		}
	}

	defer rows.Close()

	for rows.Next() {
		var phone string
		if err = rows.Scan(&phone); err != nil {
			return nil, err
		}
		phones = append(phones, phone)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return phones, nil
}
