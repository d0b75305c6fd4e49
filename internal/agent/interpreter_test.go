package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeMessages serves the Messages API, replying with text.
func fakeMessages(t *testing.T, status int, text string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, seen))
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_01",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-haiku-4-5",
			"content":       []map[string]any{{"type": "text", "text": text}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 12, "output_tokens": 8},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestInterpreter(t *testing.T, baseURL string) *LLMInterpreter {
	return NewLLMInterpreter(
		LLMConfig{APIKey: "test-key", Model: "claude-haiku-4-5", MaxTokens: 256, BaseURL: baseURL},
		zaptest.NewLogger(t),
		option.WithMaxRetries(0),
	)
}

func TestLLMInterpreter_Interpret(t *testing.T) {
	var seen map[string]any
	srv := fakeMessages(t, http.StatusOK, `{"action":"search","keyword":"prisma","year":2009,"language":"en"}`, &seen)

	plan := newTestInterpreter(t, srv.URL).Interpret(context.Background(), "prisma papers in English from 2009")

	assert.Equal(t, ActionSearch, plan.Action)
	assert.Equal(t, "prisma", plan.Keyword)
	require.NotNil(t, plan.Year)
	assert.Equal(t, 2009, *plan.Year)
	assert.Equal(t, "en", plan.Language)

	assert.Equal(t, "claude-haiku-4-5", seen["model"])
	assert.EqualValues(t, 256, seen["max_tokens"])
	assert.Contains(t, seen["system"].([]any)[0].(map[string]any)["text"], "GET /filter")
}

func TestLLMInterpreter_UnparsableResponse(t *testing.T) {
	srv := fakeMessages(t, http.StatusOK, "Sure! You want to list everything.", nil)

	plan := newTestInterpreter(t, srv.URL).Interpret(context.Background(), "list")

	assert.Equal(t, Clarify(msgNotUnderstood), plan)
}

func TestLLMInterpreter_RequestFailure(t *testing.T) {
	srv := fakeMessages(t, http.StatusInternalServerError, "", nil)

	plan := newTestInterpreter(t, srv.URL).Interpret(context.Background(), "list")

	assert.Equal(t, Clarify(msgInterpretError), plan)
}
