package integration

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-docchat-be/internal/bootstrap"
	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/serverutils"
	"ai-docchat-be/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newOllamaStub serves both Ollama endpoints the container talks to:
// /api/embeddings returns a deterministic per-text vector, /api/chat echoes
// the latest user message for reformulation requests and returns a fixed
// grounded answer otherwise.
func newOllamaStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h := fnv.New64a()
		h.Write([]byte(req.Prompt))
		seed := h.Sum64()

		vec := make([]float64, 8)
		for i := range vec {
			vec[i] = float64((seed>>(i*8))&0xFF) + 1
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embedding": vec})
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		require.NotEmpty(t, req.Messages)

		content := "Roses are woody perennial plants grown for their fragrant flowers."
		if strings.HasPrefix(req.Messages[0].Content, "Given a chat history") {
			content = req.Messages[len(req.Messages)-1].Content
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":   req.Model,
			"message": map[string]string{"role": "assistant", "content": content},
			"done":    true,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newWikipediaStub answers the two MediaWiki Action API calls the fetcher
// makes: an intro extract query and a full-page parse.
func newWikipediaStub(t *testing.T) *httptest.Server {
	t.Helper()

	var paragraphs []string
	for i := 1; i <= 8; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"<p>Paragraph %d covers roses, their petals, their colors and the gardens where they are cultivated around the world.</p>", i))
	}
	fullHTML := "<div class=\"mw-parser-output\">" + strings.Join(paragraphs, "") + "</div>"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "query":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"query": map[string]interface{}{
					"pages": map[string]interface{}{
						"42": map[string]interface{}{
							"pageid":  42,
							"title":   "Rose",
							"extract": "A rose is a woody perennial flowering plant of the genus Rosa.",
						},
					},
				},
			})
		case "parse":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"parse": map[string]interface{}{
					"title": "Rose",
					"text":  map[string]string{"*": fullHTML},
				},
			})
		default:
			http.Error(w, "unexpected action", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatAPI(t *testing.T) {
	ollamaStub := newOllamaStub(t)
	wikiStub := newWikipediaStub(t)

	// Point every outbound dependency at the stubs and keep the optional
	// integrations off.
	t.Setenv("OLLAMA_BASE_URL", ollamaStub.URL)
	t.Setenv("WIKIPEDIA_API_BASE", wikiStub.URL)
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CHUNK_SIZE", "400")
	t.Setenv("CHUNK_OVERLAP", "80")
	t.Setenv("RETRIEVAL_TOP_K", "3")
	t.Setenv("RETRIEVAL_FETCH_K", "6")

	cfg := config.Load()
	container := bootstrap.NewContainer(cfg)
	srv := server.New(cfg, container)
	app := srv.GetApp()

	var sessionID string

	t.Run("Load document success", func(t *testing.T) {
		body, _ := json.Marshal(dto.LoadDocumentRequest{URL: "https://en.wikipedia.org/wiki/Rose"})

		req := httptest.NewRequest("POST", "/api/chat/v1/load", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.LoadDocumentResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.NotEmpty(t, result.Data.SessionID)
		assert.Equal(t, "Rose", result.Data.ArticleTitle)
		assert.Greater(t, result.Data.Stats.ChunkCount, 0)
		assert.Greater(t, result.Data.Stats.WordCount, 0)

		sessionID = result.Data.SessionID
	})

	t.Run("Load document rejects non-Wikipedia URL", func(t *testing.T) {
		body, _ := json.Marshal(dto.LoadDocumentRequest{URL: "https://example.com/wiki/Rose"})

		req := httptest.NewRequest("POST", "/api/chat/v1/load", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Load document rejects missing URL", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat/v1/load", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Send chat success", func(t *testing.T) {
		require.NotEmpty(t, sessionID)

		body, _ := json.Marshal(dto.SendChatRequest{
			SessionID: sessionID,
			Question:  "What colors do roses come in?",
		})

		req := httptest.NewRequest("POST", "/api/chat/v1/send", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.SendChatResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.NotEmpty(t, result.Data.Answer)
		assert.NotEmpty(t, result.Data.Sources)
		require.NotNil(t, result.Data.Session)
		assert.Equal(t, sessionID, result.Data.Session.SessionID)
		assert.Equal(t, 1, result.Data.Session.MessageCount)
		assert.Empty(t, result.Data.RecentTopics)
	})

	t.Run("Send chat follow-up uses history", func(t *testing.T) {
		require.NotEmpty(t, sessionID)

		body, _ := json.Marshal(dto.SendChatRequest{
			SessionID: sessionID,
			Question:  "Tell me more about that",
		})

		req := httptest.NewRequest("POST", "/api/chat/v1/send", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.SendChatResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.NotEmpty(t, result.Data.Answer)
		assert.Contains(t, result.Data.RecentTopics, "color",
			"window should carry the first turn's topic")
	})

	t.Run("Send chat unknown session", func(t *testing.T) {
		body, _ := json.Marshal(dto.SendChatRequest{
			SessionID: "no-such-session",
			Question:  "Hello?",
		})

		req := httptest.NewRequest("POST", "/api/chat/v1/send", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("Send chat rejects missing question", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"session_id": sessionID})

		req := httptest.NewRequest("POST", "/api/chat/v1/send", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req, -1)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Get session info", func(t *testing.T) {
		require.NotEmpty(t, sessionID)

		req := httptest.NewRequest("GET", "/api/chat/v1/session/"+sessionID, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.SessionResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.Equal(t, "Rose", result.Data.ArticleTitle)
		assert.Equal(t, 2, result.Data.MessageCount)
	})

	t.Run("List sessions", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/chat/v1/sessions", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.ListSessionsResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.Len(t, result.Data.Sessions, 1)
		assert.Equal(t, 1, result.Data.Stats.TotalSessions)
	})

	t.Run("Get stats", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/chat/v1/stats", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.StatsResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.Equal(t, 1, result.Data.TotalSessions)
		assert.Equal(t, 2, result.Data.TotalMessages)
	})

	t.Run("Health check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/health", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var result serverutils.BaseResponse[dto.HealthResponse]
		json.NewDecoder(resp.Body).Decode(&result)

		assert.True(t, result.Success)
		assert.Equal(t, "healthy", result.Data.Status)
		assert.Equal(t, 1, result.Data.ActiveSessions)
	})

	t.Run("Delete session", func(t *testing.T) {
		require.NotEmpty(t, sessionID)

		req := httptest.NewRequest("DELETE", "/api/chat/v1/session/"+sessionID, nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		// The session is gone afterwards
		req = httptest.NewRequest("GET", "/api/chat/v1/session/"+sessionID, nil)
		resp, _ = app.Test(req, -1)
		assert.Equal(t, 404, resp.StatusCode)
	})
}
