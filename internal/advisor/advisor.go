package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wasifali/investpkr/cmd/config"
	"github.com/wasifali/investpkr/internal/logger"
	"go.uber.org/zap"
)

// The advisor is the platform's scripted support assistant, backed by the
// Gemini generateContent endpoint. It never returns an error to the caller:
// any failure degrades to a canned reply.

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	model          = "gemini-3-flash-preview"

	chatFallback   = "I'm currently optimizing my algorithms. How can I help you with your VIP plans today?"
	adviceFallback = "Keep investing in higher VIP tiers to maximize your daily passive income!"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// ChatResponse answers a support message in the context of the user's balance.
func ChatResponse(ctx context.Context, userMessage string, balance float64) string {
	prompt := fmt.Sprintf(`System: You are an expert investment consultant for INVEST PKR. User balance: Rs. %.0f.
User: %s`, balance, userMessage)

	text, err := complete(ctx, prompt, 0.8)
	if err != nil {
		logger.Log.Warn("Advisor chat failed", zap.Error(err))
		return chatFallback
	}
	return text
}

// FinancialAdvice produces a short portfolio-growth nudge for the dashboard.
func FinancialAdvice(ctx context.Context, balance, totalInvested float64) string {
	prompt := fmt.Sprintf(`You are an AI financial advisor for 'INVEST PKR', a VIP investment platform.
The user currently has a balance of Rs. %.0f and has invested Rs. %.0f.
Provide a short, 2-sentence encouraging advice on how to grow their portfolio using VIP tiers.`, balance, totalInvested)

	text, err := complete(ctx, prompt, 0.7)
	if err != nil {
		logger.Log.Warn("Advisor advice failed", zap.Error(err))
		return adviceFallback
	}
	return text
}

func complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	base := config.GeminiBaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if config.GeminiAPIKey == "" {
		return "", fmt.Errorf("no api key configured")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", base, model, config.GeminiAPIKey)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{Temperature: temperature},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed generateResponse
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
