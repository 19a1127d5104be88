// Package ai wraps the text-generation backend behind a small interface so
// the core can be tested against call-counting mocks.
package ai

import "context"

// Message is one turn of conversational history handed to the gateway.
type Message struct {
	Role    string
	Content string
}

// CompareRequest carries both conclusions plus the framing the adjudication
// prompt needs.
type CompareRequest struct {
	Question string
	NameA    string
	TextA    string
	NameB    string
	TextB    string
}

// Gateway is the external AI collaborator: text in, text out, fallible.
// Implementations must respect ctx deadlines; a timeout is an error, never a
// hang.
type Gateway interface {
	// Generate continues a chat given the full message history. The guiding
	// question, when present, shapes the system instruction.
	Generate(ctx context.Context, history []Message, guidingQuestion string) (string, error)
	// Compare produces the impartial verdict over two conclusions.
	Compare(ctx context.Context, req CompareRequest) (string, error)
}
