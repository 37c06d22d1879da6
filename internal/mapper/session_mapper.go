package mapper

import (
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/pkg/rag/session"
	"ai-docchat-be/pkg/store"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToSessionResponse(s *session.Snapshot) *dto.SessionResponse {
	if s == nil {
		return nil
	}
	return &dto.SessionResponse{
		SessionID:    s.SessionID,
		ArticleTitle: s.Title,
		ArticleURL:   s.SourceURL,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
		MessageCount: s.MessageCount,
		IsExpired:    s.IsExpired,
	}
}

func (m *SessionMapper) ToSourceDTOs(passages []store.Passage) []dto.SourceDTO {
	sources := make([]dto.SourceDTO, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, dto.SourceDTO{
			Content:       previewOf(p.Content),
			Title:         p.Title,
			SequenceIndex: p.SequenceIndex,
			SiblingCount:  p.SiblingCount,
		})
	}
	return sources
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= constant.SourcePreviewMaxChars {
		return content
	}
	return string(runes[:constant.SourcePreviewMaxChars]) + "..."
}
