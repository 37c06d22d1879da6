package prompt

import (
	"strings"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag/topics"
	"ai-docchat-be/pkg/store"
)

// contextualizeSystem instructs the model to rewrite a follow-up question so
// it stands alone. It must never answer.
const contextualizeSystem = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, formulate a standalone " +
	"question which can be understood without the chat history. Do NOT answer " +
	"the question, just reformulate it if needed and otherwise return it as is."

// BuildReformulation assembles the standalone-question request: system
// instruction, prior turns, then the current query.
func BuildReformulation(history []llm.Message, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: contextualizeSystem})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

// AnswerBuilder assembles the grounded answer request from retrieved
// passages, conversation history, and the user's query.
type AnswerBuilder struct {
	passages []store.Passage
	history  []llm.Message
	query    string
}

func NewAnswerBuilder(passages []store.Passage, history []llm.Message, query string) *AnswerBuilder {
	return &AnswerBuilder{
		passages: passages,
		history:  history,
		query:    query,
	}
}

func (b *AnswerBuilder) Build() []llm.Message {
	messages := make([]llm.Message, 0, len(b.history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: b.buildSystem()})
	messages = append(messages, b.history...)
	messages = append(messages, llm.Message{Role: "user", Content: b.query})
	return messages
}

func (b *AnswerBuilder) buildSystem() string {
	var prompt strings.Builder
	b.writeTask(&prompt)
	b.writeGuidelines(&prompt)
	b.writeContext(&prompt)
	return prompt.String()
}

func (b *AnswerBuilder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("You are a knowledgeable assistant helping users learn about Wikipedia articles. ")
	prompt.WriteString("Use the following retrieved context to provide informative and engaging answers.\n\n")
}

func (b *AnswerBuilder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("Guidelines:\n")
	prompt.WriteString("- Provide detailed, helpful responses based on the context\n")
	prompt.WriteString("- If the user asks a follow-up question, build upon previous conversation\n")
	prompt.WriteString("- Vary your response style and focus on different aspects when similar questions are asked\n")
	prompt.WriteString("- Include specific details, examples, or interesting facts when available\n")
	prompt.WriteString("- If you don't know something, say so clearly\n")
	prompt.WriteString("- Keep responses conversational but informative\n\n")
}

func (b *AnswerBuilder) writeContext(prompt *strings.Builder) {
	prompt.WriteString("Context: ")
	for i, p := range b.passages {
		if i > 0 {
			prompt.WriteString("\n\n")
		}
		prompt.WriteString(p.Content)
	}
}

// BuildPreamble renders the recent-topic steering prefix. It appears only
// when the window holds more than one label; the repeat nudge fires when the
// latest label occurs more than once in the window.
func BuildPreamble(recent []string) string {
	if len(recent) < 2 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Previous topics discussed: ")
	sb.WriteString(strings.Join(topics.Distinct(recent), ", "))
	sb.WriteString(". ")

	last := recent[len(recent)-1]
	occurrences := 0
	for _, label := range recent {
		if label == last {
			occurrences++
		}
	}
	if occurrences > 1 {
		sb.WriteString("Please provide a different perspective or additional details. ")
	}
	return sb.String()
}

// HistoryMessages converts completed turns into the provider message format,
// alternating user and assistant roles.
func HistoryMessages(turns []store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			llm.Message{Role: "user", Content: turn.Question},
			llm.Message{Role: "assistant", Content: turn.Answer},
		)
	}
	return messages
}
