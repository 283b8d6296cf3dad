package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasifali/investpkr/cmd/config"
	"github.com/wasifali/investpkr/internal/middleware"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
)

// TestLedgerFlowIntegration exercises register → deposit → admin approval →
// dashboard against a live database. Gated behind an env var so the unit
// suite stays hermetic.
func TestLedgerFlowIntegration(t *testing.T) {
	if os.Getenv("RUN_INVESTPKR_INTEGRATION") != "true" {
		t.Skip("set RUN_INVESTPKR_INTEGRATION=true to run this integration test")
	}

	godotenv.Load()
	config.DatabaseURI = os.Getenv("DATABASE_URI")
	if config.DatabaseURI == "" {
		t.Fatal("DATABASE_URI is required")
	}
	config.JWTSecret = "integration-test-secret"
	config.AdminPhone = uniquePhone()
	config.AdminPassword = fmt.Sprintf("Admin!%d", time.Now().UnixNano())

	require.NoError(t, storage.Init())

	app := newTestApp()

	userPhone := uniquePhone()
	userCookie := register(t, app, userPhone, "Integration User", "Pass!123")

	// Deposit below the minimum is rejected outright.
	resp := doJSON(t, app, http.MethodPost, "/api/user/deposit", userCookie, map[string]any{
		"amount": 499, "proofId": "TID-LOW",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/user/deposit", userCookie, map[string]any{
		"amount": 500, "proofId": "TID-OK", "method": "EasyPaisa",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	var depositOut struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&depositOut))

	// Balance is not credited while the deposit is pending.
	assert.Equal(t, float64(0), dashboardBalance(t, app, userCookie))

	adminCookie := login(t, app, config.AdminPhone, config.AdminPassword)

	resp = doJSON(t, app, http.MethodPost, "/api/admin/resolve", adminCookie, map[string]any{
		"id": depositOut.ID, "action": "APPROVE",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, float64(500), dashboardBalance(t, app, userCookie))

	// Re-resolving a terminal transaction is refused.
	resp = doJSON(t, app, http.MethodPost, "/api/admin/resolve", adminCookie, map[string]any{
		"id": depositOut.ID, "action": "APPROVE",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, float64(500), dashboardBalance(t, app, userCookie))

	// Withdrawal debits optimistically; rejection refunds.
	resp = doJSON(t, app, http.MethodPost, "/api/user/withdraw", userCookie, map[string]any{
		"walletNo": "03001112233", "amount": 300,
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, float64(200), dashboardBalance(t, app, userCookie))

	withdrawalID := pendingWithdrawalID(t, app, adminCookie, userPhone)
	resp = doJSON(t, app, http.MethodPost, "/api/admin/resolve", adminCookie, map[string]any{
		"id": withdrawalID, "action": "REJECT",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(500), dashboardBalance(t, app, userCookie))

	// Purchase with insufficient balance is refused without partial effects.
	plan := cheapestPlan(t, app)
	resp = doJSON(t, app, http.MethodPost, "/api/user/invest", userCookie, map[string]any{
		"planId": plan.ID,
	})
	require.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, float64(500), dashboardBalance(t, app, userCookie))

	// Fund the purchase, then activate: debit, investment and INVESTMENT
	// entry land together.
	resp = doJSON(t, app, http.MethodPost, "/api/user/deposit", userCookie, map[string]any{
		"amount": plan.Price, "proofId": "TID-PLAN",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	var fundOut struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fundOut))
	resp = doJSON(t, app, http.MethodPost, "/api/admin/resolve", adminCookie, map[string]any{
		"id": fundOut.ID, "action": "APPROVE",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/user/invest", userCookie, map[string]any{
		"planId": plan.ID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(500), dashboardBalance(t, app, userCookie))
}

// TestConcurrentWithdrawalsSingleWinner races two withdrawals for the same
// funds: the conditional debit lets exactly one through, so the balance can
// never go negative and only one PENDING request reaches the admin queue.
func TestConcurrentWithdrawalsSingleWinner(t *testing.T) {
	if os.Getenv("RUN_INVESTPKR_INTEGRATION") != "true" {
		t.Skip("set RUN_INVESTPKR_INTEGRATION=true to run this integration test")
	}

	godotenv.Load()
	config.DatabaseURI = os.Getenv("DATABASE_URI")
	if config.DatabaseURI == "" {
		t.Fatal("DATABASE_URI is required")
	}
	config.JWTSecret = "integration-test-secret"
	config.AdminPhone = uniquePhone()
	config.AdminPassword = fmt.Sprintf("Admin!%d", time.Now().UnixNano())

	require.NoError(t, storage.Init())

	app := newTestApp()

	userPhone := uniquePhone()
	userCookie := register(t, app, userPhone, "Race User", "Pass!123")

	resp := doJSON(t, app, http.MethodPost, "/api/user/deposit", userCookie, map[string]any{
		"amount": 500, "proofId": "TID-RACE",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	var depositOut struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&depositOut))

	adminCookie := login(t, app, config.AdminPhone, config.AdminPassword)
	resp = doJSON(t, app, http.MethodPost, "/api/admin/resolve", adminCookie, map[string]any{
		"id": depositOut.ID, "action": "APPROVE",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, float64(500), dashboardBalance(t, app, userCookie))

	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			raw, err := json.Marshal(map[string]any{"walletNo": "03001112233", "amount": 400})
			if err != nil {
				codes <- 0
				return
			}
			req := httptest.NewRequest(http.MethodPost, "/api/user/withdraw", bytes.NewBuffer(raw))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(userCookie)
			r, err := app.Test(req, 15000)
			if err != nil {
				codes <- 0
				return
			}
			codes <- r.StatusCode
		}()
	}

	got := []int{<-codes, <-codes}
	assert.ElementsMatch(t, []int{fiber.StatusAccepted, fiber.StatusPaymentRequired}, got)
	assert.Equal(t, float64(100), dashboardBalance(t, app, userCookie))
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})

	app.Post("/api/user/register", RegisterHandler)
	app.Post("/api/user/login", LoginHandler)
	app.Get("/api/plans", GetPlansHandler)

	userRoutes := app.Group("/api/user", middleware.AuthMiddleware)
	userRoutes.Get("/dashboard", GetDashboardHandler)
	userRoutes.Post("/invest", InvestHandler)
	userRoutes.Post("/deposit", DepositHandler)
	userRoutes.Post("/withdraw", WithdrawHandler)

	adminRoutes := app.Group("/api/admin", middleware.AuthMiddleware, middleware.AdminMiddleware)
	adminRoutes.Get("/requests", GetPendingRequestsHandler)
	adminRoutes.Post("/resolve", ResolveRequestHandler)

	return app
}

func uniquePhone() string {
	return fmt.Sprintf("03%09d", time.Now().UnixNano()%1_000_000_000)
}

func register(t *testing.T, app *fiber.App, phone, username, password string) *http.Cookie {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/user/register", nil, map[string]any{
		"username": username, "phone": phone, "password": password,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return jwtCookie(t, resp)
}

func login(t *testing.T, app *fiber.App, phone, password string) *http.Cookie {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/user/login", nil, map[string]any{
		"phone": phone, "password": password,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return jwtCookie(t, resp)
}

func jwtCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "jwt" {
			return cookie
		}
	}
	t.Fatal("response missing jwt cookie")
	return nil
}

func doJSON(t *testing.T, app *fiber.App, method, path string, cookie *http.Cookie, payload map[string]any) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	return resp
}

func dashboardBalance(t *testing.T, app *fiber.App, cookie *http.Cookie) float64 {
	t.Helper()
	resp := doJSON(t, app, http.MethodGet, "/api/user/dashboard", cookie, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out DashboardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Stats.Balance
}

func cheapestPlan(t *testing.T, app *fiber.App) models.VIPPlan {
	t.Helper()
	resp := doJSON(t, app, http.MethodGet, "/api/plans", nil, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var plans []models.VIPPlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plans))
	require.NotEmpty(t, plans)

	best := plans[0]
	for _, p := range plans[1:] {
		if p.Price < best.Price {
			best = p
		}
	}
	return best
}

func pendingWithdrawalID(t *testing.T, app *fiber.App, adminCookie *http.Cookie, phone string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodGet, "/api/admin/requests", adminCookie, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var pending []PendingRequestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	for _, p := range pending {
		if p.UserPhone == phone && p.Type == "WITHDRAWAL" {
			return p.ID
		}
	}
	t.Fatalf("no pending withdrawal for %s", phone)
	return ""
}
