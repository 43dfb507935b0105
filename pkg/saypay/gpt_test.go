package saypay

import (
	"context"
	"errors"
	"testing"
	"time"

	"saypay/pkg/services"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vmkteam/embedlog"
)

type fakeChatAPI struct {
	content string
	err     error
	calls   int
}

func (f *fakeChatAPI) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func newTestGPT(api chatAPI) *GPT {
	return &GPT{
		api:   api,
		cache: services.NewCache[services.ExtractionOutcome](services.CacheTTL, services.CacheMaxSize),
		log:   embedlog.NewLogger(false, false),
	}
}

func TestGPTExtractParsesModelJSON(t *testing.T) {
	api := &fakeChatAPI{content: `{"amount": 25.5, "currency": "usd", "description": "Lunch at cafe", "category": "Food", "date": "2026-01-15", "confidence": 0.93}`}
	g := newTestGPT(api)

	out, err := g.Extract(context.Background(), "I spent 25.50 on lunch", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != services.SourcePrimary {
		t.Fatalf("expected primary source, got %s", out.Source)
	}
	d := out.Draft
	if d.Amount != 25.5 || d.Currency != "USD" || d.Description != "Lunch at cafe" ||
		d.Category != services.CategoryFood || d.Date != "2026-01-15" || d.Confidence != 0.93 {
		t.Fatalf("unexpected draft: %+v", d)
	}
}

// Extract never fails outward: every internal error resolves to a fallback
// draft at reduced confidence.
func TestGPTExtractNeverFails(t *testing.T) {
	cases := []struct {
		name string
		api  *fakeChatAPI
	}{
		{"api error", &fakeChatAPI{err: errors.New("rate limited")}},
		{"malformed json", &fakeChatAPI{content: "here is your expense: twenty five"}},
		{"missing amount", &fakeChatAPI{content: `{"currency": "USD", "category": "Food"}`}},
		{"negative amount", &fakeChatAPI{content: `{"amount": -3, "category": "Food"}`}},
		{"zero amount", &fakeChatAPI{content: `{"amount": 0}`}},
		{"type mismatch", &fakeChatAPI{content: `{"amount": "twenty five"}`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGPT(tc.api)

			out, err := g.Extract(context.Background(), "spent twenty five on lunch", "en")
			if err != nil {
				t.Fatalf("Extract must not fail, got: %v", err)
			}
			if out.Source != services.SourceFallback {
				t.Fatalf("expected fallback source, got %s", out.Source)
			}
			if out.Draft.Amount <= 0 {
				t.Fatalf("fallback draft must carry a positive amount, got %v", out.Draft.Amount)
			}
			if out.Draft.Confidence > defaultDraftConfidence {
				t.Fatalf("fallback confidence must be reduced, got %v", out.Draft.Confidence)
			}
		})
	}
}

func TestGPTExtractDefaults(t *testing.T) {
	api := &fakeChatAPI{content: `{"amount": 10, "category": "Nonsense", "date": "not-a-date", "confidence": 7}`}
	g := newTestGPT(api)

	out, _ := g.Extract(context.Background(), "ten for something", "en")
	d := out.Draft
	if d.Currency != "USD" {
		t.Errorf("expected USD default, got %s", d.Currency)
	}
	if d.Description != "ten for something" {
		t.Errorf("expected original text as description, got %q", d.Description)
	}
	if d.Category != services.CategoryMisc {
		t.Errorf("unknown category must map to Misc, got %s", d.Category)
	}
	if d.Date != time.Now().Format("2006-01-02") {
		t.Errorf("invalid date must default to today, got %s", d.Date)
	}
	if d.Confidence != defaultDraftConfidence {
		t.Errorf("out-of-range confidence must default to %v, got %v", defaultDraftConfidence, d.Confidence)
	}
}

func TestGPTExtractCachesByNormalizedText(t *testing.T) {
	api := &fakeChatAPI{content: `{"amount": 25, "category": "Food"}`}
	g := newTestGPT(api)

	if _, err := g.Extract(context.Background(), "Lunch for 25", "en"); err != nil {
		t.Fatal(err)
	}
	// same text modulo case and surrounding space must hit the cache
	if _, err := g.Extract(context.Background(), "  lunch for 25 ", "en"); err != nil {
		t.Fatal(err)
	}
	if api.calls != 1 {
		t.Fatalf("expected 1 api call, got %d", api.calls)
	}

	if _, err := g.Extract(context.Background(), "dinner for 30", "en"); err != nil {
		t.Fatal(err)
	}
	if api.calls != 2 {
		t.Fatalf("expected 2 api calls, got %d", api.calls)
	}
}

func TestGPTExtractCancelledResultNotCached(t *testing.T) {
	api := &fakeChatAPI{content: `{"amount": 25, "category": "Food"}`}
	g := newTestGPT(api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Extract(ctx, "lunch for 25", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.cache.Len() != 0 {
		t.Fatalf("cancelled request must not populate the cache, len=%d", g.cache.Len())
	}

	// a fresh request must reach the api again
	if _, err := g.Extract(context.Background(), "lunch for 25", "en"); err != nil {
		t.Fatal(err)
	}
	if api.calls != 2 {
		t.Fatalf("expected 2 api calls, got %d", api.calls)
	}
}
