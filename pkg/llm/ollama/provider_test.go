package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"docuchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, 1000, req.Options.NumPredict)

		for _, frag := range []string{"Grass ", "is ", "green."} {
			fmt.Fprintf(w, "{\"message\":{\"role\":\"assistant\",\"content\":%q},\"done\":false}\n", frag)
		}
		fmt.Fprint(w, "{\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n")
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	var got []string
	err := p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "q"}}, func(s string) error {
		got = append(got, s)
		return nil
	}, llm.WithMaxTokens(1000))
	require.NoError(t, err)
	assert.Equal(t, []string{"Grass ", "is ", "green."}, got)
}

func TestOllamaProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "assistant", req.Messages[0].Role, "model role is mapped")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	answer, err := p.Chat(context.Background(), []llm.Message{{Role: "model", Content: "earlier"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}
