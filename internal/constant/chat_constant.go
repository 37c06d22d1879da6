package constant

import "time"

const (
	// SourcePreviewMaxChars bounds how much passage text rides along in
	// chat responses.
	SourcePreviewMaxChars = 200

	// LoadDocumentTimeout bounds fetching, chunking and embedding a
	// full article.
	LoadDocumentTimeout = 120 * time.Second

	// ChatTurnTimeout bounds one reformulate/retrieve/generate round trip.
	ChatTurnTimeout = 90 * time.Second
)
