// Package llm adapts the Gemini API to the advice service's Generator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/efreitasn/papertrader/internal/domain"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Config holds the Gemini client settings.
type Config struct {
	APIKey          string
	Model           string
	MaxOutputTokens int32
	Temperature     float32
}

// Gemini generates replies with a Gemini model. It is safe for
// concurrent use.
type Gemini struct {
	client *genai.Client
	cfg    Config
	logger *slog.Logger
}

// NewGemini creates a client for the Gemini Developer API.
func NewGemini(ctx context.Context, cfg Config, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "gemini"),
	}, nil
}

// Generate sends the prior turns followed by message and returns the
// model's text reply.
func (g *Gemini) Generate(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, buildContents(history, message), g.generateConfig(system))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		g.logger.Debug("gemini reply",
			"model", g.cfg.Model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"reply_tokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}
	return text, nil
}

func (g *Gemini) generateConfig(system string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.cfg.MaxOutputTokens,
		Temperature:     genai.Ptr(g.cfg.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return cfg
}

// buildContents maps chat turns to Gemini contents. The assistant role is
// called "model" on the Gemini side.
func buildContents(history []domain.ChatMessage, message string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == domain.ChatRoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return append(contents, genai.NewContentFromText(message, genai.RoleUser))
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
