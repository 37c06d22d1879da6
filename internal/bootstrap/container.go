package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/controller"
	"ai-docchat-be/internal/handler"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/fetcher"
	"ai-docchat-be/pkg/llm/factory"
	"ai-docchat-be/pkg/rag/session"

	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ChatService           service.IChatService
	EventsConsumerService service.IEventsConsumerService

	// WebSockets & Events
	EventsHandler *handler.EventsHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	requestTimeout := time.Duration(cfg.Ai.RequestTimeoutSec) * time.Second

	// 2. AI Providers
	// Initialize Embedding Provider based on Config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "openai" {
		embeddingProvider = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.EmbeddingModel, requestTimeout)
		log.Printf("[INFO] Using Embedding Provider: OPENAI (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
			requestTimeout,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	}

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.OpenAI,
		requestTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3. Document Plumbing
	wikiFetcher := fetcher.NewWikipediaFetcher(cfg.Fetch.APIBaseOverride, time.Duration(cfg.Fetch.CacheTTLMinutes)*time.Minute)
	sessions := session.NewStore(time.Duration(cfg.Session.TimeoutHours)*time.Hour, nil)

	// 3.5 Infrastructure (optional integrations)
	// NATS
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	} else {
		log.Printf("[INFO] NATS forwarding disabled (no NATS_URL)")
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	} else {
		log.Printf("[INFO] Redis relay disabled (no REDIS_URL)")
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Services
	publisherService := service.NewPublisherService(cfg.App.EventsTopicName, pubSub)
	eventsConsumerService := service.NewEventsConsumerService(
		pubSub,
		cfg.App.EventsTopicName,
		wsHub,
		natsPub,
	)

	chatService := service.NewChatService(
		cfg,
		wikiFetcher,
		embeddingProvider, // Injected
		llmProvider,       // Injected
		sessions,          // Injected
		publisherService,
	)

	// Handler
	eventsHandler := handler.NewEventsHandler(wsHub, wsLogger)

	// 5. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		ChatController: controller.NewChatController(chatService),

		ChatService:           chatService,
		EventsConsumerService: eventsConsumerService,

		EventsHandler: eventsHandler,
		WebSocketHub:  wsHub,
	}
}
