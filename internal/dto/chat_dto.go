package dto

import "time"

type LoadDocumentRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// DocumentStatsDTO describes the loaded document. Counts are estimates except
// ChunkCount, which is the real number of chunks the splitter produced.
type DocumentStatsDTO struct {
	CharacterCount  int `json:"character_count"`
	WordCount       int `json:"word_count"`
	EstimatedTokens int `json:"estimated_tokens"`
	ChunkCount      int `json:"chunk_count"`
}

type LoadDocumentResponse struct {
	SessionID    string           `json:"session_id"`
	ArticleTitle string           `json:"article_title"`
	ArticleURL   string           `json:"article_url"`
	Stats        DocumentStatsDTO `json:"stats"`
	CreatedAt    time.Time        `json:"created_at"`
}

type SendChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
}

// SourceDTO is a trimmed view of a retrieved passage.
type SourceDTO struct {
	Content       string `json:"content"` // preview, at most 200 characters
	Title         string `json:"title"`
	SequenceIndex int    `json:"sequence_index"`
	SiblingCount  int    `json:"sibling_count"`
}

type SendChatResponse struct {
	Answer        string           `json:"answer"`
	Sources       []SourceDTO      `json:"sources"`
	RecentTopics  []string         `json:"recent_topics,omitempty"` // topic window before this turn
	EnhancedQuery bool             `json:"enhanced_query"`
	Session       *SessionResponse `json:"session"`
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	ArticleTitle string    `json:"article_title"`
	ArticleURL   string    `json:"article_url"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	MessageCount int       `json:"message_count"`
	IsExpired    bool      `json:"is_expired"`
}

type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Stats    StatsResponse     `json:"stats"`
}

type StatsResponse struct {
	TotalSessions       int     `json:"total_sessions"`
	ActiveSessions      int     `json:"active_sessions"`
	ExpiredSessions     int     `json:"expired_sessions"`
	TotalMessages       int     `json:"total_messages"`
	SessionTimeoutHours float64 `json:"session_timeout_hours"`
}

type HealthResponse struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	LLMProvider       string    `json:"llm_provider"`
	EmbeddingProvider string    `json:"embedding_provider"`
	ActiveSessions    int       `json:"active_sessions"`
}
