package store

// Passage represents one retrievable slice of a loaded document.
// Passages are immutable once produced by the chunker.
type Passage struct {
	Content          string `json:"content"`
	SourceRef        string `json:"source_ref"` // URL the document was loaded from
	Title            string `json:"title"`
	SequenceIndex    int    `json:"sequence_index"` // 0-based position within the document
	SiblingCount     int    `json:"sibling_count"`  // total passages produced from the same document
	ApproxTokenCount int    `json:"approx_token_count"`
}

// Turn represents one completed question/answer exchange in a session
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
