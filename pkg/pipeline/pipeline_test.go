package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/saypay"
	"saypay/pkg/services"

	"github.com/vmkteam/embedlog"
)

type fakeTranscriber struct {
	result services.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio services.RecordedAudio, languageHint string) (services.TranscriptionResult, error) {
	return f.result, f.err
}

type fakeExtractor struct {
	outcome services.ExtractionOutcome
}

func (f *fakeExtractor) Extract(ctx context.Context, text, languageHint string) (services.ExtractionOutcome, error) {
	return f.outcome, nil
}

type fakeSaver struct {
	err    error
	userID int
	draft  services.ExpenseDraft
	calls  int
}

func (f *fakeSaver) CreateExpense(ctx context.Context, userID int, draft services.ExpenseDraft) (*db.Expense, error) {
	f.calls++
	f.userID = userID
	f.draft = draft
	if f.err != nil {
		return &db.Expense{UserID: userID}, f.err
	}
	return &db.Expense{ID: 1, UserID: userID}, nil
}

func goodTranscriber() *fakeTranscriber {
	return &fakeTranscriber{result: services.TranscriptionResult{
		Text:       "I spent twenty five dollars on lunch",
		Confidence: 0.95,
		Language:   "en",
	}}
}

func primaryExtractor() *fakeExtractor {
	return &fakeExtractor{outcome: services.ExtractionOutcome{
		Draft: services.ExpenseDraft{
			Amount:      25,
			Currency:    "USD",
			Description: "Lunch",
			Category:    services.CategoryFood,
			Date:        time.Now().Format("2006-01-02"),
			Confidence:  0.95,
		},
		Source: services.SourcePrimary,
	}}
}

func newTestPipeline(cfg Config, tr services.Transcriber, ex services.Extractor, saver Saver) *Pipeline {
	log := embedlog.NewLogger(false, false)
	return New(cfg, services.NewMockRecorder(log), tr, ex, saver, log)
}

func testAudio() services.RecordedAudio {
	return services.RecordedAudio{Data: []byte("voice"), Duration: 3 * time.Second, MIME: "audio/ogg"}
}

func TestPipelineHappyPath(t *testing.T) {
	saver := &fakeSaver{}
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), saver)
	s := NewSession()

	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if s.State != StateReadyForReview {
		t.Fatalf("expected ReadyForReview, got %s", s.State)
	}
	if len(s.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", s.Warnings)
	}
	if s.Outcome.Source != services.SourcePrimary {
		t.Fatalf("expected primary provenance, got %s", s.Outcome.Source)
	}

	if err := p.Save(context.Background(), s, 42); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if s.State != StateSaved {
		t.Fatalf("expected Saved, got %s", s.State)
	}
	if saver.userID != 42 || saver.draft.Amount != 25 {
		t.Fatalf("saver got userID=%d draft=%+v", saver.userID, saver.draft)
	}
}

func TestPipelineRecordingFlow(t *testing.T) {
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), &fakeSaver{})
	s := NewSession()

	if err := p.StartRecording(context.Background(), s); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.State != StateRecording {
		t.Fatalf("expected Recording, got %s", s.State)
	}

	// starting again mid-recording is a transition error
	var terr *TransitionError
	if err := p.StartRecording(context.Background(), s); !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}

	if err := p.StopRecording(context.Background(), s, "en"); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if s.State != StateReadyForReview {
		t.Fatalf("expected ReadyForReview, got %s", s.State)
	}
}

func TestPipelineBlocksLowTranscriptConfidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockOnLowTranscript = true

	tr := &fakeTranscriber{result: services.TranscriptionResult{Text: "mumble", Confidence: 0.42}}
	p := newTestPipeline(cfg, tr, primaryExtractor(), &fakeSaver{})
	s := NewSession()

	err := p.Process(context.Background(), s, testAudio(), "en")
	var lowConf *LowConfidenceError
	if !errors.As(err, &lowConf) {
		t.Fatalf("expected LowConfidenceError, got %v", err)
	}
	if lowConf.Threshold != 0.90 {
		t.Fatalf("expected threshold 0.90, got %v", lowConf.Threshold)
	}
	if s.State != StateErrored {
		t.Fatalf("expected Errored, got %s", s.State)
	}

	// the session is recoverable: a new recording may start
	if err := p.StartRecording(context.Background(), s); err != nil {
		t.Fatalf("restart after error failed: %v", err)
	}
}

func TestPipelineWarnsOnLowTranscriptConfidence(t *testing.T) {
	tr := &fakeTranscriber{result: services.TranscriptionResult{Text: "mumble lunch", Confidence: 0.42}}
	p := newTestPipeline(DefaultConfig(), tr, primaryExtractor(), &fakeSaver{})
	s := NewSession()

	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatalf("warn policy must proceed, got: %v", err)
	}
	if s.State != StateReadyForReview {
		t.Fatalf("expected ReadyForReview, got %s", s.State)
	}
	if !hasWarning(s, "transcribe") {
		t.Fatalf("expected transcribe warning, got %+v", s.Warnings)
	}
}

func TestPipelineWarnsOnFallbackAndLowDraftConfidence(t *testing.T) {
	ex := &fakeExtractor{outcome: services.ExtractionOutcome{
		Draft: services.ExpenseDraft{
			Amount:      48,
			Currency:    "USD",
			Description: "stuff",
			Category:    services.CategoryMisc,
			Date:        time.Now().Format("2006-01-02"),
			Confidence:  0.60,
		},
		Source: services.SourceFallback,
	}}
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), ex, &fakeSaver{})
	s := NewSession()

	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if s.State != StateReadyForReview {
		t.Fatalf("fallback draft must still reach review, got %s", s.State)
	}
	if !hasWarning(s, "extract") {
		t.Fatalf("expected extract warnings, got %+v", s.Warnings)
	}
}

func TestPipelineTranscriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: &services.TranscriptionError{Err: errors.New("boom")}}
	p := newTestPipeline(DefaultConfig(), tr, primaryExtractor(), &fakeSaver{})
	s := NewSession()

	err := p.Process(context.Background(), s, testAudio(), "en")
	var terr *services.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if s.State != StateErrored {
		t.Fatalf("expected Errored, got %s", s.State)
	}
}

func TestValidateDraft(t *testing.T) {
	valid := services.ExpenseDraft{Amount: 10, Description: "coffee"}
	if err := ValidateDraft(valid); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	cases := []struct {
		name  string
		draft services.ExpenseDraft
	}{
		{"zero amount", services.ExpenseDraft{Amount: 0, Description: "x"}},
		{"negative amount", services.ExpenseDraft{Amount: -5, Description: "x"}},
		{"blank description", services.ExpenseDraft{Amount: 10, Description: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			if err := ValidateDraft(tc.draft); !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestPipelineUpdateDraftGate(t *testing.T) {
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), &fakeSaver{})
	s := NewSession()
	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}

	bad := s.Draft()
	bad.Amount = 0
	var verr *ValidationError
	if err := p.UpdateDraft(s, bad); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Draft().Amount != 25 {
		t.Fatalf("rejected edit must not change the draft, amount=%v", s.Draft().Amount)
	}

	good := s.Draft()
	good.Amount = 25.50
	if err := p.UpdateDraft(s, good); err != nil {
		t.Fatalf("valid edit rejected: %v", err)
	}
	if s.Draft().Amount != 25.50 {
		t.Fatalf("expected amount 25.50, got %v", s.Draft().Amount)
	}
}

func TestPipelineSaveParkedCountsAsDegradedSave(t *testing.T) {
	saver := &fakeSaver{err: &saypay.StorageError{Err: errors.New("db down")}}
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), saver)
	s := NewSession()
	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}

	if err := p.Save(context.Background(), s, 7); err != nil {
		t.Fatalf("parked save must not fail, got: %v", err)
	}
	if s.State != StateSaved {
		t.Fatalf("expected Saved, got %s", s.State)
	}
	if !hasWarning(s, "save") {
		t.Fatalf("expected save warning, got %+v", s.Warnings)
	}
}

func TestPipelineSaveHardFailure(t *testing.T) {
	saver := &fakeSaver{err: errors.New("constraint violation")}
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), saver)
	s := NewSession()
	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}

	if err := p.Save(context.Background(), s, 7); err == nil {
		t.Fatal("expected save error")
	}
	if s.State != StateErrored {
		t.Fatalf("expected Errored, got %s", s.State)
	}
}

func TestPipelineTransitionErrors(t *testing.T) {
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), &fakeSaver{})

	var terr *TransitionError
	if err := p.Save(context.Background(), NewSession(), 1); !errors.As(err, &terr) {
		t.Fatalf("save from Idle: expected TransitionError, got %v", err)
	}
	if err := p.StopRecording(context.Background(), NewSession(), "en"); !errors.As(err, &terr) {
		t.Fatalf("stop from Idle: expected TransitionError, got %v", err)
	}

	s := NewSession()
	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}
	if err := p.Save(context.Background(), s, 1); err != nil {
		t.Fatal(err)
	}
	if err := p.Process(context.Background(), s, testAudio(), "en"); !errors.As(err, &terr) {
		t.Fatalf("process from Saved: expected TransitionError, got %v", err)
	}
}

func TestPipelineCancel(t *testing.T) {
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), primaryExtractor(), &fakeSaver{})
	s := NewSession()
	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}

	p.Cancel(s)
	if s.State != StateIdle {
		t.Fatalf("expected Idle after cancel, got %s", s.State)
	}
	if s.Transcript.Text != "" || len(s.Warnings) != 0 {
		t.Fatal("cancel must clear session data")
	}
}

// Full degraded scenario: the model path is down, the heuristic draft reaches
// review, the user corrects the amount and saves.
func TestPipelineEndToEndFallbackWithEdit(t *testing.T) {
	ex := &fakeExtractor{outcome: services.ExtractionOutcome{
		Draft: services.ExpenseDraft{
			Amount:      25,
			Currency:    "USD",
			Description: "I spent twenty five dollars on lunch",
			Category:    services.CategoryFood,
			Date:        time.Now().Format("2006-01-02"),
			Confidence:  0.75,
		},
		Source: services.SourceFallback,
	}}
	saver := &fakeSaver{}
	p := newTestPipeline(DefaultConfig(), goodTranscriber(), ex, saver)
	s := NewSession()

	if err := p.Process(context.Background(), s, testAudio(), "en"); err != nil {
		t.Fatal(err)
	}
	if s.Outcome.Source != services.SourceFallback {
		t.Fatalf("expected fallback provenance, got %s", s.Outcome.Source)
	}

	edited := s.Draft()
	edited.Amount = 25.50
	if err := p.UpdateDraft(s, edited); err != nil {
		t.Fatal(err)
	}
	if err := p.Save(context.Background(), s, 3); err != nil {
		t.Fatal(err)
	}

	if saver.draft.Amount != 25.50 {
		t.Fatalf("expected edited amount saved, got %v", saver.draft.Amount)
	}
	if s.State != StateSaved {
		t.Fatalf("expected Saved, got %s", s.State)
	}
}

func hasWarning(s *Session, stage string) bool {
	for _, w := range s.Warnings {
		if w.Stage == stage {
			return true
		}
	}
	return false
}
