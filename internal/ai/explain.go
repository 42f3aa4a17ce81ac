package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

const systemPrompt = "You are a senior data analyst. Given an automatically generated dataset profile, " +
	"explain in plain language what the data contains, its main quality problems, and which modeling " +
	"approaches fit. Be concise and concrete; use short paragraphs and bullet points."

// Explainer turns a profile report into a narrative explanation.
type Explainer struct {
	Client      *Client
	Model       string
	MaxTokens   int
	Temperature float64
	// PromptBudget caps the report size sent, in estimated tokens.
	PromptBudget int
}

// Explanation is the model's answer plus prompt bookkeeping.
type Explanation struct {
	Text         string `json:"text"`
	PromptTokens int    `json:"prompt_tokens"`
	Truncated    bool   `json:"truncated"`
	RequestID    string `json:"request_id,omitempty"`
}

// Messages builds the chat prompt for a Markdown report.
func (e *Explainer) Messages(report string) ([]Message, bool) {
	budget := e.PromptBudget
	if budget <= 0 {
		budget = 6000
	}
	body, cut := utils.TruncateToTokenLimit(strings.TrimSpace(report), budget)
	if cut {
		body += "\n\n[report truncated]"
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Explain this data:\n\n" + body},
	}, cut
}

// Explain asks the model to explain report.
func (e *Explainer) Explain(ctx context.Context, report string) (*Explanation, error) {
	if strings.TrimSpace(report) == "" {
		return nil, errors.New("nothing to explain: empty report")
	}
	msgs, cut := e.Messages(report)
	resp, err := e.Client.Chat(ctx, ChatRequest{
		Model:       e.Model,
		Messages:    msgs,
		MaxTokens:   e.MaxTokens,
		Temperature: e.Temperature,
	})
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, errors.New("model returned an empty explanation")
	}
	return &Explanation{
		Text:         text,
		PromptTokens: utils.CountTokens(msgs[0].Content) + utils.CountTokens(msgs[1].Content),
		Truncated:    cut,
		RequestID:    resp.RequestID,
	}, nil
}
