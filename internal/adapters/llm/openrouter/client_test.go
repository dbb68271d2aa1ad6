package openrouter_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/mysticorb/internal/adapters/llm/openrouter"
	"github.com/randomtoy/mysticorb/internal/ports"
)

func yesNoInput() ports.InterpretInput {
	return ports.InterpretInput{
		Mode:     ports.ModeYesNo,
		Question: "Will I find love?",
		Cards:    []ports.DrawnCardInput{{Name: "The Star"}},
		Prompt:   "The card drawn is: The Star.",
		Schema: &ports.Schema{
			Type: ports.TypeObject,
			Properties: map[string]*ports.Schema{
				"cardName": {Type: ports.TypeString},
			},
			Required: []string{"cardName"},
		},
	}
}

func chatServer(t *testing.T, content string, gotReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if gotReq != nil {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, gotReq)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Interpret_Success(t *testing.T) {
	var gotReq map[string]any
	srv := chatServer(t, "  {\"cardName\":\"The Star\"}\n", &gotReq)
	defer srv.Close()

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL+"/", "test-model", slog.Default())

	out, err := client.Interpret(context.Background(), yesNoInput())
	require.NoError(t, err)
	assert.Equal(t, `{"cardName":"The Star"}`, out)

	assert.Equal(t, "test-model", gotReq["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, gotReq["response_format"])

	msgs := gotReq["messages"].([]any)
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], `"required": [`)
	assert.Contains(t, system["content"], `"cardName"`)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "The card drawn is: The Star.", user["content"])
}

func TestClient_Interpret_ArrayOmitsJSONMode(t *testing.T) {
	var gotReq map[string]any
	srv := chatServer(t, `[]`, &gotReq)
	defer srv.Close()

	in := yesNoInput()
	in.Mode = ports.ModeSpread
	in.Schema = &ports.Schema{Type: ports.TypeArray, Items: &ports.Schema{Type: ports.TypeObject}}

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL, "test-model", slog.Default())
	_, err := client.Interpret(context.Background(), in)
	require.NoError(t, err)

	_, ok := gotReq["response_format"]
	assert.False(t, ok)
}

func TestClient_Interpret_ReturnsContentUnvalidated(t *testing.T) {
	srv := chatServer(t, "not json at all", nil)
	defer srv.Close()

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL, "test-model", slog.Default())

	out, err := client.Interpret(context.Background(), yesNoInput())
	require.NoError(t, err)
	assert.Equal(t, "not json at all", out)
}

func TestClient_Interpret_UpstreamErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL, "test-model", slog.Default())

	_, err := client.Interpret(context.Background(), yesNoInput())
	assert.ErrorContains(t, err, "upstream status 500")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Interpret_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL, "test-model", slog.Default())

	_, err := client.Interpret(context.Background(), yesNoInput())
	assert.ErrorContains(t, err, "no choices")
}

func TestClient_Interpret_ContextCancelled(t *testing.T) {
	srv := chatServer(t, "{}", nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := openrouter.NewClient(srv.Client(), "test-key", srv.URL, "test-model", slog.Default())
	_, err := client.Interpret(ctx, yesNoInput())
	assert.Error(t, err)
}
