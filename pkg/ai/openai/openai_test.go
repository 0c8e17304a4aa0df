package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			require.NoError(t, json.Unmarshal(raw, seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateTitle(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, 200, `{
		"id": "c1",
		"object": "chat.completion",
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Ocean Currents Explained \n"}, "finish_reason": "stop"}]
	}`, &req)

	d := New("sk-test", srv.URL, "")
	title, err := d.GenerateTitle(context.Background(), "water moves in loops")

	require.NoError(t, err)
	assert.Equal(t, "Ocean Currents Explained", title)
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.EqualValues(t, 20, req["max_tokens"])
	assert.InDelta(t, 0.7, req["temperature"], 0.0001)

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Generate a 5-word title for this content: water moves in loops", msgs[1].(map[string]any)["content"])
}

func TestGenerateTitleErrors(t *testing.T) {
	srv := newTestServer(t, 500, `{"error":{"message":"boom","type":"server_error"}}`, nil)
	_, err := New("sk-test", srv.URL, "").GenerateTitle(context.Background(), "x")
	assert.ErrorContains(t, err, "OpenAI API error")

	empty := newTestServer(t, 200, `{"choices":[]}`, nil)
	_, err = New("sk-test", empty.URL, "").GenerateTitle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
