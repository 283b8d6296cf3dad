package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wasifali/investpkr/cmd/config"
)

func TestChatResponse(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Contents[0].Parts[0].Text

		json.NewEncoder(w).Encode(generateResponse{
			Candidates: []struct {
				Content content `json:"content"`
			}{{Content: content{Parts: []part{{Text: "Buy VIP 3."}}}}},
		})
	}))
	defer server.Close()

	config.GeminiBaseURL = server.URL
	config.GeminiAPIKey = "test-key"
	t.Cleanup(func() { config.GeminiBaseURL = ""; config.GeminiAPIKey = "" })

	reply := ChatResponse(context.Background(), "How do I grow my portfolio?", 12500)

	assert.Equal(t, "Buy VIP 3.", reply)
	assert.True(t, strings.Contains(gotPrompt, "Rs. 12500"), "prompt should carry the balance")
	assert.True(t, strings.Contains(gotPrompt, "How do I grow my portfolio?"))
}

func TestChatResponseFallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config.GeminiBaseURL = server.URL
	config.GeminiAPIKey = "test-key"
	t.Cleanup(func() { config.GeminiBaseURL = ""; config.GeminiAPIKey = "" })

	reply := ChatResponse(context.Background(), "hello", 0)

	assert.Equal(t, chatFallback, reply)
}

func TestChatResponseFallbackOnTruncatedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Advertise more bytes than are sent so the client read fails.
		w.Header().Set("Content-Length", "500")
		w.Write([]byte(`{"candidates":`))
	}))
	defer server.Close()

	config.GeminiBaseURL = server.URL
	config.GeminiAPIKey = "test-key"
	t.Cleanup(func() { config.GeminiBaseURL = ""; config.GeminiAPIKey = "" })

	reply := ChatResponse(context.Background(), "hello", 0)

	assert.Equal(t, chatFallback, reply)
}

func TestFinancialAdviceFallbackWithoutKey(t *testing.T) {
	config.GeminiAPIKey = ""

	reply := FinancialAdvice(context.Background(), 1000, 500)

	assert.Equal(t, adviceFallback, reply)
}
