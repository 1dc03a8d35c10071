package fakecall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const scenarioPrompt = `You are an AI assistant designed to create believable fake call scenarios.

Based on the provided caller ID and pre-recorded message, generate a description of the fake call scenario.

Caller ID: %s
Pre-recorded message: %s

Create a short but realistic description of the fake call scenario using the provided information.
The scenario must make sense given the caller ID and pre-recorded message.
Focus on making the call sound as real as possible so that the user can get out of a threatening situation.
The description should include who is calling, what they might be calling about, and how the user should respond.
Be creative!`

// GeminiGenerator writes scenarios with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := fmt.Sprintf(scenarioPrompt, req.CallerID, req.PreRecordedMessage)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"scenarioDescription": {
					Type:        genai.TypeString,
					Description: "A description of the fake call scenario, including the caller ID and message.",
				},
			},
			Required: []string{"scenarioDescription"},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return parseScenario(resp.Text()), nil
}

// parseScenario pulls the description out of the structured reply, falling
// back to the raw text when the model ignored the schema.
func parseScenario(raw string) string {
	raw = strings.TrimSpace(raw)
	var out Scenario
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return strings.TrimSpace(out.ScenarioDescription)
	}
	return raw
}
