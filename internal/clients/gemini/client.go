package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/worthym330/voice-agent/internal/observability"
)

// ProjectContext describes the property the agent is selling; it is woven
// into every prompt so answers stay on-topic.
type ProjectContext struct {
	CompanyName   string
	ProjectName   string
	Location      string
	StartingPrice string
	UnitTypes     string
}

// Client generates conversational replies with Gemini using a fixed
// real-estate sales persona.
type Client struct {
	apiKey  string
	model   string
	project ProjectContext
	logger  *observability.Logger
}

func NewClient(apiKey, model string, project ProjectContext, logger *observability.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		project: project,
		logger:  logger,
	}
}

// GenerateReply answers one caller utterance. The caller is expected to bound
// ctx with a deadline; a timeout surfaces as an error and the dialogue engine
// substitutes its fixed apology.
func (c *Client) GenerateReply(ctx context.Context, utterance, callerName string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(c.buildPrompt(utterance, callerName)))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no reply returned from Gemini")
	}

	part, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response format")
	}

	reply := strings.TrimSpace(string(part))
	if reply == "" {
		return "", fmt.Errorf("empty reply returned from Gemini")
	}
	return reply, nil
}

func (c *Client) buildPrompt(utterance, callerName string) string {
	in := ""
	if c.project.Location != "" {
		in = " in " + c.project.Location
	}
	caller := "The caller has not given a name yet."
	if callerName != "" {
		caller = fmt.Sprintf("The caller's name is %s; address them by name.", callerName)
	}

	return fmt.Sprintf(`You are a friendly, trustworthy real-estate sales agent for %s selling apartments at %s%s.
Inventory: %s. Pricing starts from %s (all-inclusive ranges only if asked).

Primary goals:
1) Personalize responses and QUALIFY the lead (unit type, budget, location/commute, timeline/possession, financing/loan, contact details).
2) Progress toward scheduling a SITE VISIT or VIRTUAL TOUR.

Behavior and style:
- Mirror the caller's language (English/Hindi). If mixed, you may mix politely. Use simple, clear sentences.
- Keep answers concise: max 2-3 short sentences, then end with ONE relevant question.
- Be warm, professional, and consultative. Never pressure or make guarantees.
- If asked out-of-scope, briefly answer if possible then steer back to the property.
- Don't invent facts. If you don't know exact figures, give a best range and offer the brochure or price sheet.

Edge cases:
- If the caller is busy: offer to send the brochure and propose a callback time.
- If the caller wants to end: thank them and close politely.

%s

User said: %s

Respond naturally following the guidelines above.`,
		c.project.CompanyName, c.project.ProjectName, in,
		c.project.UnitTypes, c.project.StartingPrice,
		caller, utterance)
}
