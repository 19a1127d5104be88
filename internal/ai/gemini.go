package ai

import (
	"context"
	"fmt"

	"blindjudge/backend/internal/models"

	"google.golang.org/genai"
)

// GeminiGateway implements Gateway on the Gemini API.
type GeminiGateway struct {
	client *genai.Client
	model  string
}

func NewGeminiGateway(ctx context.Context, apiKey, model string) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return &GeminiGateway{client: client, model: model}, nil
}

func (g *GeminiGateway) Generate(ctx context.Context, history []Message, guidingQuestion string) (string, error) {
	instruction := assistantInstruction
	if guidingQuestion != "" {
		instruction = fmt.Sprintf("%s The topic of this discussion is: %q", assistantInstruction, guidingQuestion)
	}

	contents := historyToContents(history)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

func (g *GeminiGateway) Compare(ctx context.Context, req CompareRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: judgeInstruction}},
		},
	}
	contents := genai.Text(buildComparePrompt(req))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini compare: %w", err)
	}
	return responseText(resp)
}

// historyToContents maps application messages to the Gemini wire format.
// Assistant turns become the "model" role.
func historyToContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		role := genai.RoleUser
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	text := ""
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			text += p.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}
