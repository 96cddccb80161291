package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"docuchat-be/internal/bootstrap"
	"docuchat-be/internal/config"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-secret"

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// memoryConfig runs every backend in process: no database, Redis or NATS.
func memoryConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			Name:           "DocuChat Test",
			Port:           "0",
			Environment:    "test",
			LogFilePath:    filepath.Join(dir, "app.log"),
			HubLogFilePath: filepath.Join(dir, "hub.log"),
		},
		Auth: config.AuthConfig{
			Provider:    "jwt",
			JwtSecret:   testSecret,
			SecretKey:   "share-secret",
			AdminEmails: []string{"admin@example.com"},
		},
		Vector:    config.VectorConfig{Backend: "memory", CollectionName: "documents"},
		Embedding: config.EmbeddingConfig{Provider: "hash", Dimension: 64, Timeout: 10 * time.Second},
		Ingest: config.IngestConfig{
			UploadDir:         filepath.Join(dir, "uploads"),
			MaxFileSize:       1024 * 1024,
			AllowedExtensions: []string{".pdf", ".txt", ".md"},
			ChunkSize:         200,
			ChunkOverlap:      20,
			Workers:           1,
			Topic:             "document.process",
			LeaseTTL:          time.Minute,
		},
		RAG:   config.RAGConfig{TopK: 5, SimilarityThreshold: 0, HistoryWindow: 6},
		Quota: config.QuotaConfig{DailyTokenLimit: 100000, MonthlyTokenLimit: 1000000, QueryEstimate: 100},
		RateLimit: config.RateLimitConfig{
			UploadRequests: 100,
			UploadWindow:   time.Minute,
			QueryRequests:  100,
			QueryWindow:    time.Minute,
		},
	}
}

func newTestApp(t *testing.T) *fiber.App {
	cfg := memoryConfig(t)
	container, err := bootstrap.NewContainer(nil, cfg, logger.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, container.Start(ctx))
	t.Cleanup(func() {
		cancel()
		container.ConsumerService.Wait()
		container.Close()
	})

	return server.New(cfg, container).GetApp()
}

func tokenFor(t *testing.T, email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            email,
		"email":          email,
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return send(t, app, req)
}

func upload(t *testing.T, app *fiber.App, token, filename, content string) (int, envelope) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}
