package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/mapper"
	"ai-docchat-be/pkg/apperrors"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/fetcher"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag/chunker"
	"ai-docchat-be/pkg/rag/index"
	"ai-docchat-be/pkg/rag/pipeline"
	"ai-docchat-be/pkg/rag/retriever"
	"ai-docchat-be/pkg/rag/session"
	"ai-docchat-be/pkg/retry"
)

// IChatService defines the document conversation service interface
type IChatService interface {
	LoadDocument(ctx context.Context, req *dto.LoadDocumentRequest) (*dto.LoadDocumentResponse, error)
	SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	GetSessionInfo(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context) (*dto.ListSessionsResponse, error)
	GetStats(ctx context.Context) (*dto.StatsResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Health(ctx context.Context) *dto.HealthResponse
	RunSessionSweeper(ctx context.Context, interval time.Duration)
}

// chatService coordinates fetching, indexing and the conversation pipeline
type chatService struct {
	cfg              *config.Config
	wikiFetcher      *fetcher.WikipediaFetcher
	docChunker       *chunker.Chunker
	indexBuilder     *index.Builder
	pipelineExecutor *pipeline.Executor
	sessions         *session.Store
	sessionMapper    *mapper.SessionMapper
	publisherService IPublisherService
	llmLogger        *log.Logger
}

// NewChatService creates a chat service with all conversation components
func NewChatService(
	cfg *config.Config,
	wikiFetcher *fetcher.WikipediaFetcher,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	sessions *session.Store,
	publisherService IPublisherService,
) IChatService {

	llmLogger := initLLMLogger()
	retrier := retry.Default()

	docRetriever := retriever.New(
		embeddingProvider,
		retrier,
		cfg.Retrieval.FetchK,
		cfg.Retrieval.Lambda,
	)
	pipelineExecutor := pipeline.NewExecutor(llmProvider, docRetriever, retrier, llmLogger, pipeline.Config{
		K:           cfg.Retrieval.TopK,
		Temperature: cfg.Ai.Temperature,
		MaxTokens:   cfg.Ai.MaxTokens,
	})

	return &chatService{
		cfg:              cfg,
		wikiFetcher:      wikiFetcher,
		docChunker:       chunker.New(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap),
		indexBuilder:     index.NewBuilder(embeddingProvider, retrier, llmLogger),
		pipelineExecutor: pipelineExecutor,
		sessions:         sessions,
		sessionMapper:    mapper.NewSessionMapper(),
		publisherService: publisherService,
		llmLogger:        llmLogger,
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// LoadDocument fetches a Wikipedia article, chunks and embeds it, and opens
// a fresh conversation session over the result.
func (cs *chatService) LoadDocument(ctx context.Context, req *dto.LoadDocumentRequest) (*dto.LoadDocumentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, constant.LoadDocumentTimeout)
	defer cancel()

	article, err := cs.wikiFetcher.FetchArticle(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Fetched article %q (%d chars)", article.Title, len(article.Content))

	passages, err := cs.docChunker.Chunk(article.URL, article.Title, article.Content)
	if err != nil {
		return nil, err
	}

	ix, err := cs.indexBuilder.Build(ctx, passages)
	if err != nil {
		return nil, err
	}

	sess := cs.sessions.Create(ix, article.Title, article.URL)
	log.Printf("[INFO] Session %s opened for %q (%d chunks)", sess.ID, article.Title, ix.Len())

	cs.publishEvent(ctx, events.NewSessionCreated(sess.ID, article.Title, article.URL, ix.Len()))

	textStats := chunker.Stats(article.Content)
	return &dto.LoadDocumentResponse{
		SessionID:    sess.ID,
		ArticleTitle: article.Title,
		ArticleURL:   article.URL,
		Stats: dto.DocumentStatsDTO{
			CharacterCount:  textStats.CharacterCount,
			WordCount:       textStats.WordCount,
			EstimatedTokens: textStats.EstimatedTokens,
			ChunkCount:      ix.Len(),
		},
		CreatedAt: sess.CreatedAt,
	}, nil
}

// SendChat runs one grounded conversation turn against a session's document.
func (cs *chatService) SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, constant.ChatTurnTimeout)
	defer cancel()

	sess, err := cs.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}

	// One turn in flight per session; a second request waits its turn.
	if err := sess.AcquireGate(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindServiceTimeout, "Session is busy with another request")
	}
	defer sess.ReleaseGate()

	// Topic window as it stood before this turn; the turn's own labels
	// only show up in the next response.
	recentTopics := sess.RecentTopics(pipeline.DefaultTopicWindow)

	result, err := cs.pipelineExecutor.Answer(ctx, sess, req.Question)
	if err != nil {
		return nil, err
	}

	cs.publishEvent(ctx, events.NewTurnCompleted(sess.ID, result.Topics, len(result.Sources)))

	resp := &dto.SendChatResponse{
		Answer:        result.Answer,
		Sources:       cs.sessionMapper.ToSourceDTOs(result.Sources),
		RecentTopics:  recentTopics,
		EnhancedQuery: result.EnhancedQuery,
	}
	// The session can be deleted while the turn is in flight; the answer
	// still goes back, just without a snapshot.
	if snap, err := cs.sessions.Info(sess.ID); err == nil {
		resp.Session = cs.sessionMapper.ToSessionResponse(snap)
	}
	return resp, nil
}

func (cs *chatService) GetSessionInfo(_ context.Context, sessionID string) (*dto.SessionResponse, error) {
	snap, err := cs.sessions.Info(sessionID)
	if err != nil {
		return nil, err
	}
	return cs.sessionMapper.ToSessionResponse(snap), nil
}

func (cs *chatService) ListSessions(_ context.Context) (*dto.ListSessionsResponse, error) {
	snaps := cs.sessions.ListActive()

	sessions := make([]dto.SessionResponse, 0, len(snaps))
	for _, snap := range snaps {
		sessions = append(sessions, *cs.sessionMapper.ToSessionResponse(snap))
	}

	return &dto.ListSessionsResponse{
		Sessions: sessions,
		Stats:    cs.statsResponse(),
	}, nil
}

func (cs *chatService) GetStats(_ context.Context) (*dto.StatsResponse, error) {
	stats := cs.statsResponse()
	return &stats, nil
}

func (cs *chatService) statsResponse() dto.StatsResponse {
	stats := cs.sessions.Stats()
	return dto.StatsResponse{
		TotalSessions:       stats.TotalSessions,
		ActiveSessions:      stats.ActiveSessions,
		ExpiredSessions:     stats.ExpiredSessions,
		TotalMessages:       stats.TotalMessages,
		SessionTimeoutHours: stats.SessionTimeoutHours,
	}
}

func (cs *chatService) DeleteSession(ctx context.Context, sessionID string) error {
	if !cs.sessions.Delete(sessionID) {
		return apperrors.New(apperrors.KindNotFound, "Session not found")
	}
	log.Printf("[INFO] Session %s deleted", sessionID)

	cs.publishEvent(ctx, events.NewSessionDeleted(sessionID))
	return nil
}

func (cs *chatService) Health(_ context.Context) *dto.HealthResponse {
	return &dto.HealthResponse{
		Status:            "healthy",
		Timestamp:         time.Now().UTC(),
		LLMProvider:       fmt.Sprintf("%s (%s)", cs.cfg.Ai.LLMProvider, cs.cfg.Ai.LLMModel),
		EmbeddingProvider: fmt.Sprintf("%s (%s)", cs.cfg.Ai.EmbeddingProvider, cs.cfg.Ai.EmbeddingModel),
		ActiveSessions:    cs.sessions.Stats().ActiveSessions,
	}
}

// RunSessionSweeper evicts idle sessions on a fixed interval until ctx ends.
func (cs *chatService) RunSessionSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[INFO] Session sweeper running every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := cs.sessions.Sweep(); n > 0 {
				log.Printf("[INFO] Session sweeper evicted %d idle sessions", n)
				cs.publishEvent(ctx, events.NewSessionsExpired(n))
			}
		}
	}
}

// publishEvent is fire and forget; event delivery never fails a request.
func (cs *chatService) publishEvent(ctx context.Context, evt events.BaseEvent) {
	if cs.publisherService == nil {
		return
	}
	payload, err := json.Marshal(events.Wrap(evt))
	if err != nil {
		log.Printf("[WARN] Failed to marshal %s event: %v", evt.EventType(), err)
		return
	}
	if err := cs.publisherService.Publish(ctx, payload); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", evt.EventType(), err)
	}
}
