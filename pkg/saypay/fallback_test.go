package saypay

import (
	"context"
	"testing"
	"time"

	"saypay/pkg/services"

	"github.com/vmkteam/embedlog"
)

func TestParseFallbackEnglishNumberWords(t *testing.T) {
	draft := ParseFallback("I spent twenty five dollars on lunch")

	if draft.Amount != 25 {
		t.Fatalf("expected amount 25, got %v", draft.Amount)
	}
	if draft.Category != services.CategoryFood {
		t.Fatalf("expected Food, got %s", draft.Category)
	}
	if draft.Currency != "USD" {
		t.Fatalf("expected USD, got %s", draft.Currency)
	}
	if draft.Confidence != fallbackConfidenceKeyword {
		t.Fatalf("expected confidence %v, got %v", fallbackConfidenceKeyword, draft.Confidence)
	}
	if draft.Description != "I spent twenty five dollars on lunch" {
		t.Fatalf("description must keep the original text, got %q", draft.Description)
	}
	if draft.Date != time.Now().Format("2006-01-02") {
		t.Fatalf("expected today's date, got %s", draft.Date)
	}
}

func TestParseFallbackSpanish(t *testing.T) {
	draft := ParseFallback("Pagué cincuenta dólares por gasolina")

	if draft.Amount != 50 {
		t.Fatalf("expected amount 50, got %v", draft.Amount)
	}
	if draft.Category != services.CategoryTransport {
		t.Fatalf("expected Transport, got %s", draft.Category)
	}
	if draft.Currency != "USD" {
		t.Fatalf("expected USD default, got %s", draft.Currency)
	}
}

func TestParseFallbackHindi(t *testing.T) {
	draft := ParseFallback("लंच पर पचास रुपए खर्च किए")

	if draft.Amount != 50 {
		t.Fatalf("expected amount 50, got %v", draft.Amount)
	}
	if draft.Category != services.CategoryFood {
		t.Fatalf("expected Food, got %s", draft.Category)
	}
	if draft.Currency != "INR" {
		t.Fatalf("expected INR, got %s", draft.Currency)
	}
}

func TestParseFallbackFrenchCompound(t *testing.T) {
	draft := ParseFallback("J'ai payé quatre-vingt-dix euros pour le loyer")

	if draft.Amount != 90 {
		t.Fatalf("expected amount 90, got %v", draft.Amount)
	}
	if draft.Category != services.CategoryRent {
		t.Fatalf("expected Rent, got %s", draft.Category)
	}
	if draft.Currency != "EUR" {
		t.Fatalf("expected EUR, got %s", draft.Currency)
	}
}

func TestParseFallbackNumericWithSymbol(t *testing.T) {
	draft := ParseFallback("$12.50 for a taxi ride")

	if draft.Amount != 12.50 {
		t.Fatalf("expected amount 12.50, got %v", draft.Amount)
	}
	if draft.Category != services.CategoryTransport {
		t.Fatalf("expected Transport, got %s", draft.Category)
	}
}

func TestParseFallbackCurrencyDetection(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"paid £10 at the pharmacy", "GBP"},
		{"20 euro for the cinema", "EUR"},
		{"₹200 metro card", "INR"},
		{"just 15 for parking", "USD"},
	}
	for _, tc := range cases {
		if got := ParseFallback(tc.text).Currency; got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.text, tc.want, got)
		}
	}
}

func TestParseFallbackRandomAmountWhenMissing(t *testing.T) {
	for i := 0; i < 20; i++ {
		draft := ParseFallback("misc stuff")
		if draft.Amount < 5 || draft.Amount >= 105 {
			t.Fatalf("random amount out of [5,105): %v", draft.Amount)
		}
		if draft.Category != services.CategoryMisc {
			t.Fatalf("expected Misc, got %s", draft.Category)
		}
		if draft.Confidence != fallbackConfidenceGuess {
			t.Fatalf("expected confidence %v, got %v", fallbackConfidenceGuess, draft.Confidence)
		}
	}
}

// Ties on keyword hits resolve to the category declared first.
func TestParseFallbackTieBreakIsDeterministic(t *testing.T) {
	first := ParseFallback("10 for rent movie")
	if first.Category != services.CategoryRent {
		t.Fatalf("expected Rent on tie, got %s", first.Category)
	}
	for i := 0; i < 10; i++ {
		if got := ParseFallback("10 for rent movie").Category; got != first.Category {
			t.Fatalf("tie-break not deterministic: %s vs %s", got, first.Category)
		}
	}
}

func TestHeuristicExtractor(t *testing.T) {
	h := NewHeuristic(embedlog.NewLogger(false, false))

	out, err := h.Extract(context.Background(), "I spent twenty five dollars on lunch", "en")
	if err != nil {
		t.Fatalf("Extract must not fail, got: %v", err)
	}
	if out.Source != services.SourceFallback {
		t.Fatalf("expected fallback provenance, got %s", out.Source)
	}
	if out.Draft.Amount != 25 || out.Draft.Category != services.CategoryFood {
		t.Fatalf("unexpected draft: %+v", out.Draft)
	}
}

func TestReplaceNumberWords(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"twenty five dollars", "25 dollars"},
		{"fifty dollars", "50 dollars"},
		{"cincuenta dólares", "50 dólares"},
		{"veinticinco dólares", "25 dólares"},
		{"vingt-cinq euros", "25 euros"},
		{"no numbers here at all", "no numbers here at all"},
	}
	for _, tc := range cases {
		if got := replaceNumberWords(tc.in); got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
