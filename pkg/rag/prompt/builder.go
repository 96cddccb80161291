package prompt

import (
	"fmt"
	"strings"

	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/vectorstore"
)

// SystemPrompt fixes the assistant to the retrieved context and the citation format.
const SystemPrompt = `You are a helpful AI assistant that answers questions based ONLY on the provided context from documents.

Key instructions:
1. ONLY use information from the given context
2. If the answer is not in the context, say "I don't have enough information to answer this question based on the provided documents."
3. Cite sources for every major claim using the format: [Source: {filename}, Page {page}]
4. Be concise but comprehensive
5. If multiple sources provide information, synthesize them
6. Never make up information not in the context

Response format:
- Provide a direct answer first
- Support with details from the context
- Include source citations inline`

const contextSeparator = "\n---\n"

// ContextBuilder assembles the generation request for one question.
type ContextBuilder struct {
	hits          []vectorstore.Hit
	question      string
	history       []llm.Message
	historyWindow int
}

func NewContextBuilder(hits []vectorstore.Hit, question string, history []llm.Message, historyWindow int) *ContextBuilder {
	return &ContextBuilder{
		hits:          hits,
		question:      question,
		history:       history,
		historyWindow: historyWindow,
	}
}

// Context renders every hit as a labelled block, blocks separated by ---.
func (b *ContextBuilder) Context() string {
	parts := make([]string, len(b.hits))
	for i, hit := range b.hits {
		parts[i] = fmt.Sprintf("%s\n%s\n", sourceLabel(hit), hit.Text)
	}
	return strings.Join(parts, contextSeparator)
}

// Messages is the system prompt, the trailing history window, then the user
// prompt carrying the context.
func (b *ContextBuilder) Messages() []llm.Message {
	recent := b.history
	if b.historyWindow >= 0 && len(recent) > b.historyWindow {
		recent = recent[len(recent)-b.historyWindow:]
	}

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: "system", Content: SystemPrompt})
	for _, m := range recent {
		if m.Role == "" || m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: "user", Content: b.userPrompt()})
	return messages
}

func (b *ContextBuilder) userPrompt() string {
	var prompt strings.Builder
	prompt.WriteString("Context from documents:\n\n")
	prompt.WriteString(b.Context())
	prompt.WriteString("\n\nQuestion: ")
	prompt.WriteString(b.question)
	prompt.WriteString("\n\nPlease provide a well-sourced answer based on the context above.")
	return prompt.String()
}

func sourceLabel(hit vectorstore.Hit) string {
	filename := hit.Metadata.Filename
	if filename == "" {
		filename = "Unknown"
	}
	if hit.Metadata.Page > 0 {
		return fmt.Sprintf("[Document: %s, Page %d]", filename, hit.Metadata.Page)
	}
	return fmt.Sprintf("[Document: %s]", filename)
}
