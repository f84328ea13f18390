package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/efreitasn/papertrader/internal/domain"
)

const maxChatMessageLen = 4000

const advisorPrompt = `You are an expert financial advisor chatbot. Your responsibilities include:
- Analyzing market trends and stock performance
- Providing investment strategies and portfolio advice
- Explaining financial concepts and terminology
- Offering risk assessment and management guidance
- Discussing market news and impacts
- Explaining individual stocks and companies

Provide clear, concise responses with specific recommendations when appropriate.
Format your responses with clear sections and bullet points for readability.
Always consider risk factors and include relevant disclaimers when giving financial advice.`

const insightsPrompt = `Review the portfolio below and reply with a single JSON object and nothing else, shaped as:
{"risk_level": "low" | "moderate" | "high", "summary": "<two sentences>", "recommendations": ["<short action>", ...]}

`

// Generator produces a model reply from a system instruction, prior turns
// and the new user message. Implemented by llm.Gemini.
type Generator interface {
	Generate(ctx context.Context, system string, history []domain.ChatMessage, message string) (string, error)
}

// ChatRequest represents one message to the advisor plus the client's
// conversation so far.
type ChatRequest struct {
	Message string
	History []domain.ChatMessage
}

// Insights is the structured portfolio review produced by the advisor.
type Insights struct {
	RiskLevel       string   `json:"risk_level"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Fallback        bool     `json:"-"` // true when the model reply could not be parsed
}

// DefaultInsights is returned when the model reply is not usable.
func DefaultInsights() Insights {
	return Insights{
		RiskLevel: "moderate",
		Summary:   "Automated insights are not available right now. Review your allocation and cash position periodically.",
		Recommendations: []string{
			"Keep an emergency cash reserve before adding to positions",
			"Avoid concentrating most of the portfolio in a single sector",
		},
		Fallback: true,
	}
}

// AdviceService runs the conversational assistant and portfolio insights.
type AdviceService struct {
	gen          Generator // nil when no model is configured
	accounts     AccountRepository
	portfolio    *PortfolioService
	historyLimit int
	logger       *slog.Logger
}

// NewAdviceService creates a new AdviceService. A nil generator disables
// both operations with domain.ErrAdviceUnavailable.
func NewAdviceService(gen Generator, accounts AccountRepository, portfolio *PortfolioService, historyLimit int, logger *slog.Logger) *AdviceService {
	return &AdviceService{
		gen:          gen,
		accounts:     accounts,
		portfolio:    portfolio,
		historyLimit: historyLimit,
		logger:       logger.With("component", "advice"),
	}
}

// Chat sends the message with the most recent history turns to the model.
// Turns with an unknown role or no content are dropped before trimming.
func (s *AdviceService) Chat(ctx context.Context, req ChatRequest) (string, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return "", &domain.ValidationError{Message: "message is required"}
	}
	if len(msg) > maxChatMessageLen {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("message must be at most %d characters", maxChatMessageLen),
		}
	}
	if s.gen == nil {
		return "", domain.ErrAdviceUnavailable
	}

	history := TrimHistory(req.History, s.historyLimit)
	s.logger.Info("generating chat reply", "message_len", len(msg), "history", len(history))
	reply, err := s.gen.Generate(ctx, advisorPrompt, history, msg)
	if err != nil {
		s.logger.Error("chat generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrAdviceFailed, err)
	}
	return reply, nil
}

// TrimHistory keeps the last limit well-formed turns. A limit of zero or
// less keeps none.
func TrimHistory(history []domain.ChatMessage, limit int) []domain.ChatMessage {
	kept := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role != domain.ChatRoleUser && m.Role != domain.ChatRoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		kept = append(kept, m)
	}
	if limit <= 0 {
		return kept[:0]
	}
	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}

// Insights asks the model to review the account's current valuation. A
// reply that does not parse yields DefaultInsights.
func (s *AdviceService) Insights(ctx context.Context, accountID string) (Insights, error) {
	a, err := s.accounts.FindAccount(ctx, accountID)
	if err != nil {
		return Insights{}, err
	}
	if s.gen == nil {
		return Insights{}, domain.ErrAdviceUnavailable
	}

	v := s.portfolio.Value(ctx, a)
	reply, err := s.gen.Generate(ctx, advisorPrompt, nil, insightsPrompt+describeValuation(v))
	if err != nil {
		s.logger.Error("insights generation failed", "account_id", accountID, "error", err)
		return Insights{}, fmt.Errorf("%w: %v", domain.ErrAdviceFailed, err)
	}

	ins, ok := ParseInsights(reply)
	if !ok {
		s.logger.Warn("insights reply not parseable, using default", "account_id", accountID)
	}
	return ins, nil
}

// ParseInsights decodes the JSON object in a model reply. Text outside
// the outermost braces, such as prose or code fences, is ignored.
func ParseInsights(reply string) (Insights, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return DefaultInsights(), false
	}
	var ins Insights
	if err := json.Unmarshal([]byte(reply[start:end+1]), &ins); err != nil {
		return DefaultInsights(), false
	}
	if strings.TrimSpace(ins.Summary) == "" {
		return DefaultInsights(), false
	}
	if ins.RiskLevel == "" {
		ins.RiskLevel = "moderate"
	}
	if ins.Recommendations == nil {
		ins.Recommendations = []string{}
	}
	return ins, true
}

func describeValuation(v domain.Valuation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cash: %s\n", domain.Round2(v.Cash).StringFixed(2))
	fmt.Fprintf(&b, "Total value: %s\n", domain.Round2(v.TotalValue).StringFixed(2))
	if len(v.Positions) == 0 {
		b.WriteString("Positions: none\n")
		return b.String()
	}
	b.WriteString("Positions:\n")
	for _, p := range v.Positions {
		fmt.Fprintf(&b, "- %s: %s shares at %s (value %s, day change %s%%)\n",
			p.Symbol, p.Quantity, p.CurrentPrice.StringFixed(2),
			domain.Round2(p.CurrentValue).StringFixed(2), p.PercentChange.StringFixed(2))
	}
	return b.String()
}
