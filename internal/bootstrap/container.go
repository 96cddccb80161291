package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docuchat-be/internal/config"
	"docuchat-be/internal/controller"
	"docuchat-be/internal/handler"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/repository/memory"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/internal/service"
	"docuchat-be/internal/websocket"
	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/extract"
	"docuchat-be/pkg/identity"
	"docuchat-be/pkg/ingest"
	"docuchat-be/pkg/llm/factory"
	"docuchat-be/pkg/lock"
	pktNats "docuchat-be/pkg/nats"
	"docuchat-be/pkg/quota"
	"docuchat-be/pkg/rag"
	"docuchat-be/pkg/ratelimit"
	"docuchat-be/pkg/sharetoken"
	"docuchat-be/pkg/staging"
	"docuchat-be/pkg/vectorstore"
	vectormemory "docuchat-be/pkg/vectorstore/memory"
	"docuchat-be/pkg/vectorstore/pgstore"
	"docuchat-be/pkg/vectorstore/qdrant"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	DocumentController     controller.IDocumentController
	QueryController        controller.IQueryController
	ConversationController controller.IConversationController
	StatsController        controller.IStatsController
	AdminController        controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	Index  vectorstore.Index
	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. A nil db runs every store in memory,
// which is only meant for local development.
func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Persistence
	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	} else {
		sysLogger.Warn(logger.ModuleHTTP, "DB_CONNECTION_STRING is empty, using in-memory storage", nil)
		uowFactory = memory.NewRepositoryFactory(memory.NewStore())
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(cfg.Ingest.Workers) * 4},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI providers
	embedder := newEmbedder(cfg.Embedding, sysLogger)
	index, err := newIndex(db, cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	c.Index = index

	llmProvider, err := factory.NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info(logger.ModuleRAG, "LLM provider ready", map[string]interface{}{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	})

	// 4. Infrastructure
	rdb := newRedis(cfg.App.RedisURL, sysLogger)
	var locker lock.Locker = lock.NewMemoryLocker()
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, "docuchat:ingest:")
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var (
		eventPublisher  service.EventPublisher
		eventSubscriber service.EventSubscriber
	)
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(logger.ModuleNotify, "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn(logger.ModuleNotify, "Failed to connect to NATS subscriber", map[string]interface{}{"error": err.Error()})
		} else {
			eventSubscriber = natsSub
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.NotificationService = service.NewNotificationService(eventPublisher, eventSubscriber, c.WebSocketHub, sysLogger)

	// 5. Ingestion
	stager, err := staging.NewLocalStager(cfg.Ingest.UploadDir)
	if err != nil {
		return nil, err
	}
	if err := extract.CheckAvailable(); err != nil {
		sysLogger.Warn(logger.ModuleIngest, "pdftotext not found, using the built-in PDF reader only", map[string]interface{}{"error": err.Error()})
	}
	pipeline := ingest.NewPipeline(ingest.Dependencies{
		Store:     service.NewDocumentStore(uowFactory),
		Extractor: extract.New(sysLogger),
		Chunker:   chunking.New(chunking.WithChunkSize(cfg.Ingest.ChunkSize), chunking.WithOverlap(cfg.Ingest.ChunkOverlap)),
		Embedder:  embedder,
		Index:     index,
		Stager:    stager,
		Locker:    locker,
		Notifier:  c.NotificationService,
		Logger:    sysLogger,
	}, ingest.WithEmbedTimeout(cfg.Embedding.Timeout), ingest.WithLeaseTTL(cfg.Ingest.LeaseTTL))

	publisherService := service.NewPublisherService(cfg.Ingest.Topic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Ingest.Topic, pipeline, cfg.Ingest.Workers, sysLogger)

	// 6. Services
	verifier, err := identity.NewVerifier(cfg.Auth.Provider, cfg.Auth.JwtSecret)
	if err != nil {
		return nil, fmt.Errorf("identity verifier: %w", err)
	}

	ledger := quota.NewLedger(service.NewUsageStore(uowFactory), quota.Limits{
		Daily:   cfg.Quota.DailyTokenLimit,
		Monthly: cfg.Quota.MonthlyTokenLimit,
	}, sysLogger)

	orchestrator := rag.NewOrchestrator(embedder, index, llmProvider, rag.Config{
		TopK:                cfg.RAG.TopK,
		SimilarityThreshold: cfg.RAG.SimilarityThreshold,
		HistoryWindow:       cfg.RAG.HistoryWindow,
		Temperature:         cfg.LLM.Temperature,
		MaxTokens:           cfg.LLM.MaxTokens,
	}, sysLogger)

	userService := service.NewUserService(uowFactory, cfg.Auth.AdminEmails, sysLogger)
	documentService := service.NewDocumentService(uowFactory, stager, index, publisherService, service.UploadPolicy{
		AllowedExtensions: cfg.Ingest.AllowedExtensions,
		MaxFileSize:       cfg.Ingest.MaxFileSize,
	}, sysLogger)
	queryService := service.NewQueryService(uowFactory, orchestrator, ledger, cfg.Quota.QueryEstimate, sysLogger)
	conversationService := service.NewConversationService(uowFactory, queryService, sharetoken.NewSigner(cfg.Auth.SecretKey), sysLogger)
	statsService := service.NewStatsService(uowFactory, ledger)
	adminService := service.NewAdminService(uowFactory, ledger, sysLogger)

	// 7. Controllers
	auth := serverutils.AuthMiddleware(verifier, userService)
	uploadLimiter := ratelimit.New(cfg.RateLimit.UploadRequests, cfg.RateLimit.UploadWindow)
	queryLimiter := ratelimit.New(cfg.RateLimit.QueryRequests, cfg.RateLimit.QueryWindow)

	c.AuthController = controller.NewAuthController(userService, auth)
	c.DocumentController = controller.NewDocumentController(documentService, auth, uploadLimiter)
	c.QueryController = controller.NewQueryController(queryService, auth, queryLimiter, sysLogger)
	c.ConversationController = controller.NewConversationController(conversationService, auth, queryLimiter)
	c.StatsController = controller.NewStatsController(statsService, auth)
	c.AdminController = controller.NewAdminController(adminService, auth)
	c.NotificationHandler = handler.NewNotificationHandler(c.WebSocketHub, serverutils.WebSocketAuthMiddleware(verifier, userService), sysLogger)

	return c, nil
}

// Start launches the background workers. They stop when ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := c.Index.EnsureCollection(ensureCtx); err != nil {
		var schemaErr *vectorstore.SchemaError
		if errors.As(err, &schemaErr) {
			return err
		}
		// Retried lazily on first use.
		c.Logger.Warn(logger.ModuleVector, "Vector collection not ready", map[string]interface{}{"error": err.Error()})
	}

	if err := c.NotificationService.Start(ctx); err != nil {
		c.Logger.Warn(logger.ModuleNotify, "Notification subscriber not started", map[string]interface{}{"error": err.Error()})
	}
	return c.ConsumerService.Consume(ctx)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newEmbedder(cfg config.EmbeddingConfig, log logger.ILogger) embedding.EmbeddingProvider {
	hashing := embedding.NewHashingProvider(cfg.Dimension)
	if cfg.Provider != "ollama" {
		log.Info(logger.ModuleEmbedding, "Using hashing embeddings", map[string]interface{}{"dimension": cfg.Dimension})
		return hashing
	}
	log.Info(logger.ModuleEmbedding, "Using Ollama embeddings", map[string]interface{}{
		"model":     cfg.OllamaModel,
		"dimension": cfg.Dimension,
	})
	return embedding.NewFallbackProvider(embedding.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.Dimension), hashing, log)
}

func newIndex(db *gorm.DB, cfg *config.Config, log logger.ILogger) (vectorstore.Index, error) {
	opts := vectorstore.Options{
		Collection:    cfg.Vector.CollectionName,
		Dimension:     cfg.Embedding.Dimension,
		AllowRecreate: cfg.Vector.AllowRecreate,
	}

	switch cfg.Vector.Backend {
	case "qdrant":
		return qdrant.NewStore(qdrant.Config{
			URL:     cfg.Vector.QdrantURL,
			APIKey:  cfg.Vector.QdrantAPIKey,
			Timeout: 30 * time.Second,
		}, opts, log), nil
	case "memory":
		return vectormemory.NewStore(opts), nil
	case "", "pgvector":
		if db == nil {
			log.Warn(logger.ModuleVector, "No database configured, using in-memory vector index", nil)
			return vectormemory.NewStore(opts), nil
		}
		return pgstore.NewStore(db, opts, log)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func newRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(logger.ModuleHub, "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(logger.ModuleHub, "Redis unavailable, running single-instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}
