package saypay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"saypay/pkg/services"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vmkteam/embedlog"
)

const (
	extractionModel        = openai.GPT4o
	defaultDraftConfidence = 0.85
	extractionTemperature  = 0.1
	extractionMaxTokens    = 200
)

const fewShotTemplate = `Examples of expense extraction:

English Examples:
Input: "I spent $25 on lunch at McDonald's today"
Output: {"amount": 25, "currency": "USD", "description": "Lunch at McDonald's", "category": "Food", "date": "%[1]s", "confidence": 0.95}

Input: "Paid fifty dollars for gas at the station"
Output: {"amount": 50, "currency": "USD", "description": "Gas at station", "category": "Transport", "date": "%[1]s", "confidence": 0.92}

Input: "Movie tickets cost thirty bucks last night"
Output: {"amount": 30, "currency": "USD", "description": "Movie tickets", "category": "Entertainment", "date": "%[2]s", "confidence": 0.94}

Input: "Grocery shopping at Walmart for eighty five dollars"
Output: {"amount": 85, "currency": "USD", "description": "Grocery shopping at Walmart", "category": "Shopping", "date": "%[1]s", "confidence": 0.96}

Input: "Electric bill payment of one hundred twenty dollars"
Output: {"amount": 120, "currency": "USD", "description": "Electric bill payment", "category": "Utilities", "date": "%[1]s", "confidence": 0.93}

Hindi Examples:
Input: "मैंने आज मैकडॉनल्ड्स में लंच पर 25 डॉलर खर्च किए"
Output: {"amount": 25, "currency": "USD", "description": "McDonald's में लंच", "category": "Food", "date": "%[1]s", "confidence": 0.95}

Input: "पेट्रोल स्टेशन पर पचास डॉलर का पेट्रोल भरवाया"
Output: {"amount": 50, "currency": "USD", "description": "पेट्रोल स्टेशन पर पेट्रोल", "category": "Transport", "date": "%[1]s", "confidence": 0.92}

Spanish Examples:
Input: "Gasté 25 dólares en almuerzo en McDonald's hoy"
Output: {"amount": 25, "currency": "USD", "description": "Almuerzo en McDonald's", "category": "Food", "date": "%[1]s", "confidence": 0.95}

Input: "Pagué cincuenta dólares por gasolina en la estación"
Output: {"amount": 50, "currency": "USD", "description": "Gasolina en la estación", "category": "Transport", "date": "%[1]s", "confidence": 0.92}

French Examples:
Input: "J'ai dépensé 25 dollars pour le déjeuner chez McDonald's aujourd'hui"
Output: {"amount": 25, "currency": "USD", "description": "Déjeuner chez McDonald's", "category": "Food", "date": "%[1]s", "confidence": 0.95}

Input: "J'ai payé cinquante dollars pour l'essence à la station"
Output: {"amount": 50, "currency": "USD", "description": "Essence à la station", "category": "Transport", "date": "%[1]s", "confidence": 0.92}`

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GPT extracts structured expense drafts from transcripts using a chat model
// in JSON mode with multilingual few-shot examples. It never fails outward:
// any internal error resolves to the heuristic fallback parser, so callers
// always receive a usable draft.
type GPT struct {
	api   chatAPI
	cache *services.Cache[services.ExtractionOutcome]
	log   embedlog.Logger
}

// NewGPT creates an extraction client backed by the OpenAI API.
func NewGPT(token string, cache *services.Cache[services.ExtractionOutcome], log embedlog.Logger) *GPT {
	return &GPT{
		api:   openai.NewClient(token),
		cache: cache,
		log:   log,
	}
}

// Extract implements services.Extractor. The returned error is always nil.
func (g *GPT) Extract(ctx context.Context, text, languageHint string) (services.ExtractionOutcome, error) {
	key := strings.ToLower(strings.TrimSpace(text))
	if out, ok := g.cache.Get(key); ok {
		return out, nil
	}

	out := services.ExtractionOutcome{Source: services.SourcePrimary}

	draft, err := g.callModel(ctx, text, languageHint)
	if err != nil {
		g.log.Error(ctx, "extraction fell back to heuristics", "err", err, "text", text)
		out = services.ExtractionOutcome{Draft: ParseFallback(text), Source: services.SourceFallback}
	} else {
		out.Draft = draft
	}

	// A cancelled request must never populate the cache.
	if ctx.Err() == nil {
		g.cache.Set(key, out)
	}

	return out, nil
}

func (g *GPT) callModel(ctx context.Context, text, languageHint string) (services.ExpenseDraft, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       extractionModel,
		Temperature: extractionTemperature,
		MaxTokens:   extractionMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildExtractionPrompt(text, languageHint)},
		},
	})
	if err != nil {
		return services.ExpenseDraft{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return services.ExpenseDraft{}, errors.New("no choices in model response")
	}

	return parseDraft(strings.TrimSpace(resp.Choices[0].Message.Content), text)
}

func buildExtractionPrompt(text, languageHint string) string {
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	categories := make([]string, 0, len(services.Categories()))
	for _, c := range services.Categories() {
		categories = append(categories, string(c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, fewShotTemplate, today, yesterday)
	fmt.Fprintf(&b, "\n\nExtract expense information from this %s text: %q\n\n", LanguageName(languageHint), text)
	fmt.Fprintf(&b, "Categories: %s\n\n", strings.Join(categories, ", "))
	fmt.Fprintf(&b, `Rules:
1. Convert word numbers to digits in any language (e.g., "twenty five" -> 25, "पच्चीस" -> 25, "veinticinco" -> 25, "vingt-cinq" -> 25)
2. Default currency is USD if not specified
3. Use today's date if no date mentioned: %s
4. Choose the most appropriate category
5. Keep description concise but descriptive in the original language
6. Provide confidence score (0.0-1.0)
7. Understand cultural context and local expressions

Return ONLY valid JSON format:
{"amount": number, "currency": "string", "description": "string", "category": "string", "date": "YYYY-MM-DD", "confidence": number}`, today)

	return b.String()
}

// draftWire is the untrusted model payload. Pointer fields distinguish
// omitted values from zero values; a type mismatch fails the unmarshal and
// triggers fallback.
type draftWire struct {
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Date        *string  `json:"date"`
	Confidence  *float64 `json:"confidence"`
}

// parseDraft validates the model output and fills defaults for missing
// optional fields. A missing or non-positive amount is an extraction failure.
func parseDraft(content, originalText string) (services.ExpenseDraft, error) {
	var wire draftWire
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return services.ExpenseDraft{}, fmt.Errorf("model returned malformed json: %w, response: %s", err, content)
	}

	if wire.Amount == nil || *wire.Amount <= 0 {
		return services.ExpenseDraft{}, fmt.Errorf("model returned invalid amount, response: %s", content)
	}

	draft := services.ExpenseDraft{
		Amount:      *wire.Amount,
		Currency:    "USD",
		Description: originalText,
		Category:    services.CategoryMisc,
		Date:        time.Now().Format("2006-01-02"),
		Confidence:  defaultDraftConfidence,
	}

	if wire.Currency != nil && *wire.Currency != "" {
		draft.Currency = strings.ToUpper(*wire.Currency)
	}
	if wire.Description != nil && strings.TrimSpace(*wire.Description) != "" {
		draft.Description = strings.TrimSpace(*wire.Description)
	}
	if wire.Category != nil {
		if c, ok := services.ParseCategory(*wire.Category); ok {
			draft.Category = c
		}
	}
	if wire.Date != nil {
		if _, err := time.Parse("2006-01-02", *wire.Date); err == nil {
			draft.Date = *wire.Date
		}
	}
	if wire.Confidence != nil && *wire.Confidence > 0 && *wire.Confidence <= 1 {
		draft.Confidence = *wire.Confidence
	}

	return draft, nil
}
