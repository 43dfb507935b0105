package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/vmkteam/embedlog"
)

// Recording errors reported by platform capture adapters.
var (
	ErrNoPermission = errors.New("microphone permission denied")
	ErrDevice       = errors.New("recording device error")
)

// TranscriptionError signals a failed call to the speech-to-text service.
// Low confidence is not an error, it is reported via TranscriptionResult.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return "transcription failed: " + e.Err.Error() }

func (e *TranscriptionError) Unwrap() error { return e.Err }

// RecordedAudio is an opaque handle to a finished recording. Either Data or
// URI is set depending on the capture platform.
type RecordedAudio struct {
	Data     []byte
	URI      string
	Duration time.Duration
	MIME     string
}

// Fingerprint returns a stable content key for the recording: SHA-256 of the
// bytes when the full buffer is available, a size/URI composite otherwise.
func (a RecordedAudio) Fingerprint() string {
	if len(a.Data) > 0 {
		sum := sha256.Sum256(a.Data)
		return hex.EncodeToString(sum[:])
	}

	return fmt.Sprintf("%s_%d_%d", a.URI, len(a.URI), a.Duration.Milliseconds())
}

// TranscriptionResult is the speech service output for one recording.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Category is a fixed expense category.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryRent          Category = "Rent"
	CategoryShopping      Category = "Shopping"
	CategoryHealth        Category = "Health"
	CategoryEntertainment Category = "Entertainment"
	CategoryUtilities     Category = "Utilities"
	CategoryMisc          Category = "Misc"
)

// Categories returns all categories in declaration order. The order is part
// of the contract: the fallback parser resolves keyword-count ties by it.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryRent,
		CategoryShopping,
		CategoryHealth,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryMisc,
	}
}

// ParseCategory maps a raw string to a known category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryMisc, false
}

// ExpenseDraft represents extracted expense data ready for user review.
type ExpenseDraft struct {
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Confidence  float64  `json:"confidence"`
}

// DraftSource tells which path produced a draft.
type DraftSource string

const (
	SourcePrimary  DraftSource = "primary"
	SourceFallback DraftSource = "fallback"
)

// ExtractionOutcome is a draft with its provenance.
type ExtractionOutcome struct {
	Draft  ExpenseDraft
	Source DraftSource
}

// RecordingHandle identifies an in-progress recording on the capture side.
type RecordingHandle string

// Recorder is the platform audio capture adapter. Implementations must
// auto-stop at the configured maximum duration and return whatever was
// captured up to that point.
type Recorder interface {
	StartRecording(ctx context.Context) (RecordingHandle, error)
	StopRecording(ctx context.Context, h RecordingHandle) (RecordedAudio, error)
}

// Transcriber handles voice transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, audio RecordedAudio, languageHint string) (TranscriptionResult, error)
}

// Extractor turns a transcript into an expense draft. Implementations never
// fail outward: any internal error resolves to a fallback draft, so the
// returned error is always nil and callers always get something editable.
type Extractor interface {
	Extract(ctx context.Context, text, languageHint string) (ExtractionOutcome, error)
}

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	logger embedlog.Logger
}

// NewMockRecorder creates a new mock recorder
func NewMockRecorder(logger embedlog.Logger) *MockRecorder {
	return &MockRecorder{logger: logger}
}

func (m *MockRecorder) StartRecording(ctx context.Context) (RecordingHandle, error) {
	m.logger.Print(ctx, "mock recorder start")
	return RecordingHandle("mock"), nil
}

func (m *MockRecorder) StopRecording(ctx context.Context, h RecordingHandle) (RecordedAudio, error) {
	m.logger.Print(ctx, "mock recorder stop", "handle", string(h))

	return RecordedAudio{
		Data:     []byte("mock-audio"),
		Duration: 2 * time.Second,
		MIME:     "audio/webm",
	}, nil
}

// MockTranscriber is a mock implementation of Transcriber
type MockTranscriber struct {
	logger embedlog.Logger
}

// NewMockTranscriber creates a new mock transcriber
func NewMockTranscriber(logger embedlog.Logger) *MockTranscriber {
	return &MockTranscriber{logger: logger}
}

// Transcribe mocks transcription of a recording
func (m *MockTranscriber) Transcribe(ctx context.Context, audio RecordedAudio, languageHint string) (TranscriptionResult, error) {
	m.logger.Print(ctx, "mock transcriber", "fingerprint", audio.Fingerprint(), "language", languageHint)

	return TranscriptionResult{
		Text:       "I spent twenty five dollars on lunch",
		Confidence: 0.95,
		Language:   "en",
	}, nil
}

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	logger embedlog.Logger
}

// NewMockExtractor creates a new mock extractor
func NewMockExtractor(logger embedlog.Logger) *MockExtractor {
	return &MockExtractor{logger: logger}
}

// Extract mocks expense extraction from text
func (m *MockExtractor) Extract(ctx context.Context, text, languageHint string) (ExtractionOutcome, error) {
	m.logger.Print(ctx, "mock extractor", "text", text, "language", languageHint)

	return ExtractionOutcome{
		Draft: ExpenseDraft{
			Amount:      25,
			Currency:    "USD",
			Description: text,
			Category:    CategoryFood,
			Date:        time.Now().Format("2006-01-02"),
			Confidence:  0.95,
		},
		Source: SourcePrimary,
	}, nil
}
