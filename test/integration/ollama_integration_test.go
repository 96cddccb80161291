package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/llm/ollama"
	"docuchat-be/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultEmbedModel  = "all-minilm"
	defaultChatModel   = "gemma:2b"
	embeddingDimension = 384
)

func ollamaURL(t *testing.T) string {
	if os.Getenv("OLLAMA_INTEGRATION") != "true" {
		t.Skip("Skipping Ollama test: set OLLAMA_INTEGRATION=true with a local Ollama running")
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return defaultOllamaURL
}

func TestOllamaEmbeddings(t *testing.T) {
	provider := embedding.NewOllamaProvider(ollamaURL(t), defaultEmbedModel, embeddingDimension)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	require.NoError(t, provider.Probe(ctx))

	vectors, err := provider.EmbedBatch(ctx, []string{
		"Employees receive twenty five days of paid leave.",
		"How much paid leave do employees get?",
		"The cafeteria closes at three in the afternoon.",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, embeddingDimension)
	}

	related := vectorstore.Cosine(vectors[0], vectors[1])
	unrelated := vectorstore.Cosine(vectors[1], vectors[2])
	t.Logf("related=%.3f unrelated=%.3f", related, unrelated)
	assert.Greater(t, related, unrelated)
}

func TestOllamaFallbackKeepsDimension(t *testing.T) {
	primary := embedding.NewOllamaProvider("http://127.0.0.1:1", defaultEmbedModel, embeddingDimension)
	provider := embedding.NewFallbackProvider(primary, embedding.NewHashingProvider(embeddingDimension), logger.NewNopLogger())

	vector, err := provider.Embed(context.Background(), "offline")
	require.NoError(t, err)
	assert.Len(t, vector, embeddingDimension)
}

func TestOllamaChatStream(t *testing.T) {
	provider := ollama.NewOllamaProvider(ollamaURL(t), defaultChatModel)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var fragments []string
	err := provider.ChatStream(ctx, []llm.Message{
		{Role: "system", Content: "Answer in one short sentence."},
		{Role: "user", Content: "What is the capital of France?"},
	}, func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	}, llm.WithTemperature(0))
	require.NoError(t, err)
	assert.NotEmpty(t, fragments)
}
