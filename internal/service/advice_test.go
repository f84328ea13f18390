package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efreitasn/papertrader/internal/domain"
)

// fakeGenerator records the last call and returns a canned reply.
type fakeGenerator struct {
	reply   string
	err     error
	system  string
	history []domain.ChatMessage
	message string
}

func (g *fakeGenerator) Generate(_ context.Context, system string, history []domain.ChatMessage, message string) (string, error) {
	g.system = system
	g.history = history
	g.message = message
	return g.reply, g.err
}

func newAdviceEnv(gen Generator) (*testEnv, *AdviceService) {
	env := newTestEnv(map[string]string{"AAPL": "150"})
	return env, NewAdviceService(gen, env.accounts, env.portfolio, 4, discardLogger())
}

func TestChat_SendsTrimmedHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "Diversify."}
	_, svc := newAdviceEnv(gen)

	history := []domain.ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "system", Content: "ignored"},
		{Role: "user", Content: "three"},
		{Role: "assistant", Content: "  "},
		{Role: "assistant", Content: "four"},
		{Role: "user", Content: "five"},
	}
	reply, err := svc.Chat(context.Background(), ChatRequest{Message: "  What now? ", History: history})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Diversify." {
		t.Errorf("got reply %q", reply)
	}
	if gen.message != "What now?" {
		t.Errorf("got message %q, want trimmed", gen.message)
	}
	if gen.system != advisorPrompt {
		t.Error("expected the advisor system prompt")
	}

	want := []string{"two", "three", "four", "five"}
	if len(gen.history) != len(want) {
		t.Fatalf("got %d history turns, want %d", len(gen.history), len(want))
	}
	for i, w := range want {
		if gen.history[i].Content != w {
			t.Errorf("[%d] got %q, want %q", i, gen.history[i].Content, w)
		}
	}
}

func TestChat_Errors(t *testing.T) {
	ctx := context.Background()

	_, svc := newAdviceEnv(&fakeGenerator{})
	var ve *domain.ValidationError
	if _, err := svc.Chat(ctx, ChatRequest{Message: "   "}); !errors.As(err, &ve) {
		t.Errorf("empty message: got %v, want *domain.ValidationError", err)
	}
	long := strings.Repeat("x", maxChatMessageLen+1)
	if _, err := svc.Chat(ctx, ChatRequest{Message: long}); !errors.As(err, &ve) {
		t.Errorf("long message: got %v, want *domain.ValidationError", err)
	}

	_, svc = newAdviceEnv(nil)
	if _, err := svc.Chat(ctx, ChatRequest{Message: "hi"}); !errors.Is(err, domain.ErrAdviceUnavailable) {
		t.Errorf("no model: got %v, want ErrAdviceUnavailable", err)
	}

	_, svc = newAdviceEnv(&fakeGenerator{err: errors.New("quota exceeded")})
	if _, err := svc.Chat(ctx, ChatRequest{Message: "hi"}); !errors.Is(err, domain.ErrAdviceFailed) {
		t.Errorf("model failure: got %v, want ErrAdviceFailed", err)
	}
}

func TestTrimHistory(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	}

	if got := TrimHistory(history, 10); len(got) != 3 {
		t.Errorf("limit above length: got %d turns, want 3", len(got))
	}
	if got := TrimHistory(history, 2); len(got) != 2 || got[0].Content != "b" {
		t.Errorf("limit 2: got %+v", got)
	}
	if got := TrimHistory(history, 0); len(got) != 0 {
		t.Errorf("limit 0: got %d turns, want 0", len(got))
	}
	if got := TrimHistory(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("nil history: got %v, want empty slice", got)
	}
}

func TestInsights_ParsesModelReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure!\n```json\n" +
		`{"risk_level":"high","summary":"Concentrated in one stock.","recommendations":["Diversify"]}` +
		"\n```"}
	env, svc := newAdviceEnv(gen)
	id := env.createAccount(t, "alice", "1000", map[string]string{"AAPL": "10"})

	ins, err := svc.Insights(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ins.Fallback {
		t.Error("expected a parsed reply, got fallback")
	}
	if ins.RiskLevel != "high" || len(ins.Recommendations) != 1 {
		t.Errorf("got %+v", ins)
	}
	if !strings.Contains(gen.message, "AAPL: 10 shares at 150.00") {
		t.Errorf("prompt does not describe the position:\n%s", gen.message)
	}
	if !strings.Contains(gen.message, "Total value: 2500.00") {
		t.Errorf("prompt does not carry the total:\n%s", gen.message)
	}
}

func TestInsights_FallsBackOnUnparseableReply(t *testing.T) {
	env, svc := newAdviceEnv(&fakeGenerator{reply: "I cannot help with that."})
	id := env.createAccount(t, "bob", "1000", nil)

	ins, err := svc.Insights(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ins.Fallback {
		t.Error("expected fallback insights")
	}
}

func TestInsights_Errors(t *testing.T) {
	ctx := context.Background()

	env, svc := newAdviceEnv(nil)
	id := env.createAccount(t, "carol", "1000", nil)
	if _, err := svc.Insights(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("got %v, want ErrAccountNotFound", err)
	}
	if _, err := svc.Insights(ctx, id); !errors.Is(err, domain.ErrAdviceUnavailable) {
		t.Errorf("got %v, want ErrAdviceUnavailable", err)
	}

	env, svc = newAdviceEnv(&fakeGenerator{err: errors.New("boom")})
	id = env.createAccount(t, "dave", "1000", nil)
	if _, err := svc.Insights(ctx, id); !errors.Is(err, domain.ErrAdviceFailed) {
		t.Errorf("got %v, want ErrAdviceFailed", err)
	}
}

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantOK   bool
		wantRisk string
	}{
		{"plain object", `{"risk_level":"low","summary":"Fine.","recommendations":[]}`, true, "low"},
		{"missing risk defaults", `{"summary":"Fine."}`, true, "moderate"},
		{"empty summary", `{"risk_level":"low","summary":""}`, false, "moderate"},
		{"no braces", "just prose", false, "moderate"},
		{"broken json", `{"risk_level":`, false, "moderate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseInsights(tt.reply)
			if ok != tt.wantOK {
				t.Fatalf("got ok=%v, want %v", ok, tt.wantOK)
			}
			if got.RiskLevel != tt.wantRisk {
				t.Errorf("got risk %q, want %q", got.RiskLevel, tt.wantRisk)
			}
			if got.Recommendations == nil {
				t.Error("expected non-nil recommendations")
			}
			if got.Fallback == ok {
				t.Errorf("got fallback=%v with ok=%v", got.Fallback, ok)
			}
		})
	}
}
