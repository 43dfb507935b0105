// Package pipeline drives a voice expense from recording to a saved row:
// capture, transcription, extraction, user review, storage. Each session is a
// small state machine owned by a single front-end interaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/saypay"
	"saypay/pkg/services"

	"github.com/vmkteam/embedlog"
)

// State is a session phase.
type State string

const (
	StateIdle           State = "idle"
	StateRecording      State = "recording"
	StateTranscribing   State = "transcribing"
	StateExtracting     State = "extracting"
	StateReadyForReview State = "readyForReview"
	StateSaved          State = "saved"
	StateErrored        State = "errored"
)

// Config tunes the pipeline policy.
type Config struct {
	// MaxRecordingDuration is the capture cap. Adapters auto-stop there, the
	// pipeline only annotates recordings that report a longer duration.
	MaxRecordingDuration time.Duration
	// MinTranscriptConfidence gates moving past transcription.
	MinTranscriptConfidence float64
	// BlockOnLowTranscript selects the policy: true fails the session so the
	// user re-records, false attaches a warning and proceeds.
	BlockOnLowTranscript bool
	// MinDraftConfidence marks drafts for extra review emphasis. Warn only.
	MinDraftConfidence float64
	// RequestTimeout bounds each network stage. Zero means no extra deadline.
	RequestTimeout time.Duration
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		MaxRecordingDuration:    60 * time.Second,
		MinTranscriptConfidence: 0.90,
		MinDraftConfidence:      0.85,
		RequestTimeout:          30 * time.Second,
	}
}

// Saver persists reviewed drafts.
type Saver interface {
	CreateExpense(ctx context.Context, userID int, draft services.ExpenseDraft) (*db.Expense, error)
}

// Session is one voice expense in flight.
type Session struct {
	State      State
	Handle     services.RecordingHandle
	Audio      services.RecordedAudio
	Transcript services.TranscriptionResult
	Outcome    services.ExtractionOutcome
	Warnings   []Warning
	Expense    *db.Expense
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{State: StateIdle}
}

// Draft returns the current editable draft.
func (s *Session) Draft() services.ExpenseDraft { return s.Outcome.Draft }

// Pipeline orchestrates the capture, transcription, extraction and storage
// collaborators for expense sessions.
type Pipeline struct {
	cfg         Config
	recorder    services.Recorder
	transcriber services.Transcriber
	extractor   services.Extractor
	saver       Saver
	log         embedlog.Logger
}

// New creates a pipeline.
func New(cfg Config, recorder services.Recorder, transcriber services.Transcriber, extractor services.Extractor, saver Saver, log embedlog.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		recorder:    recorder,
		transcriber: transcriber,
		extractor:   extractor,
		saver:       saver,
		log:         log,
	}
}

// StartRecording begins audio capture. Allowed from Idle and from a recovered
// Errored session.
func (p *Pipeline) StartRecording(ctx context.Context, s *Session) error {
	if s.State != StateIdle && s.State != StateErrored {
		return &TransitionError{Op: "startRecording", State: s.State}
	}

	handle, err := p.recorder.StartRecording(ctx)
	if err != nil {
		p.fail(ctx, s, errTypeRecording, err)
		return err
	}
	s.Handle = handle
	s.State = StateRecording
	stageRuns.WithLabelValues("record").Inc()

	return nil
}

// StopRecording finishes capture and runs the session through transcription
// and extraction up to ReadyForReview.
func (p *Pipeline) StopRecording(ctx context.Context, s *Session, languageHint string) error {
	if s.State != StateRecording {
		return &TransitionError{Op: "stopRecording", State: s.State}
	}

	audio, err := p.recorder.StopRecording(ctx, s.Handle)
	if err != nil {
		p.fail(ctx, s, errTypeRecording, err)
		return err
	}

	return p.Process(ctx, s, audio, languageHint)
}

// Process runs pre-captured audio through transcription and extraction. This
// is the entry point for front-ends where capture happens client-side.
func (p *Pipeline) Process(ctx context.Context, s *Session, audio services.RecordedAudio, languageHint string) error {
	switch s.State {
	case StateIdle, StateRecording, StateErrored:
	default:
		return &TransitionError{Op: "process", State: s.State}
	}

	s.Audio = audio
	s.Warnings = nil
	if p.cfg.MaxRecordingDuration > 0 && audio.Duration > p.cfg.MaxRecordingDuration {
		s.warn(Warning{
			Stage:   "record",
			Message: fmt.Sprintf("recording exceeds %s cap", p.cfg.MaxRecordingDuration),
		})
	}

	if err := p.transcribe(ctx, s, languageHint); err != nil {
		return err
	}

	return p.extract(ctx, s, languageHint)
}

func (p *Pipeline) transcribe(ctx context.Context, s *Session, languageHint string) error {
	s.State = StateTranscribing
	stageRuns.WithLabelValues("transcribe").Inc()

	stageCtx, cancel := p.stageCtx(ctx)
	defer cancel()

	started := time.Now()
	transcript, err := p.transcriber.Transcribe(stageCtx, s.Audio, languageHint)
	stageDuration.WithLabelValues("transcribe").Observe(time.Since(started).Seconds())
	if err != nil {
		p.fail(ctx, s, errTypeTranscription, err)
		return err
	}
	s.Transcript = transcript

	if transcript.Confidence < p.cfg.MinTranscriptConfidence {
		if p.cfg.BlockOnLowTranscript {
			err := &LowConfidenceError{Confidence: transcript.Confidence, Threshold: p.cfg.MinTranscriptConfidence}
			p.fail(ctx, s, errTypeTranscription, err)
			return err
		}
		s.warn(Warning{
			Stage:      "transcribe",
			Message:    "low transcript confidence, verify the text",
			Confidence: transcript.Confidence,
		})
	}

	return nil
}

func (p *Pipeline) extract(ctx context.Context, s *Session, languageHint string) error {
	s.State = StateExtracting
	stageRuns.WithLabelValues("extract").Inc()

	stageCtx, cancel := p.stageCtx(ctx)
	defer cancel()

	started := time.Now()
	outcome, err := p.extractor.Extract(stageCtx, s.Transcript.Text, languageHint)
	stageDuration.WithLabelValues("extract").Observe(time.Since(started).Seconds())
	if err != nil {
		// Extractors resolve failures to fallback drafts themselves, an error
		// here means a broken implementation.
		p.fail(ctx, s, errTypeState, err)
		return err
	}
	s.Outcome = outcome

	if outcome.Source == services.SourceFallback {
		fallbackDrafts.Inc()
		s.warn(Warning{
			Stage:   "extract",
			Message: "draft produced by heuristic fallback, check all fields",
		})
	}
	if outcome.Draft.Confidence < p.cfg.MinDraftConfidence {
		s.warn(Warning{
			Stage:      "extract",
			Message:    "low draft confidence",
			Confidence: outcome.Draft.Confidence,
		})
	}

	s.State = StateReadyForReview
	p.log.Print(ctx, "draft ready",
		"source", string(outcome.Source),
		"amount", outcome.Draft.Amount,
		"category", string(outcome.Draft.Category),
		"confidence", outcome.Draft.Confidence,
		"warnings", len(s.Warnings),
	)

	return nil
}

// UpdateDraft applies a user edit during review.
func (p *Pipeline) UpdateDraft(s *Session, draft services.ExpenseDraft) error {
	if s.State != StateReadyForReview {
		return &TransitionError{Op: "updateDraft", State: s.State}
	}
	if err := ValidateDraft(draft); err != nil {
		pipelineErrors.WithLabelValues(errTypeValidation).Inc()
		return err
	}
	s.Outcome.Draft = draft

	return nil
}

// Save persists the reviewed draft. A storage failure that parked the expense
// in memory counts as a degraded save: the session completes with a warning.
func (p *Pipeline) Save(ctx context.Context, s *Session, userID int) error {
	if s.State != StateReadyForReview {
		return &TransitionError{Op: "save", State: s.State}
	}
	if err := ValidateDraft(s.Outcome.Draft); err != nil {
		pipelineErrors.WithLabelValues(errTypeValidation).Inc()
		return err
	}
	stageRuns.WithLabelValues("save").Inc()

	expense, err := p.saver.CreateExpense(ctx, userID, s.Outcome.Draft)
	var storageErr *saypay.StorageError
	switch {
	case err == nil:
	case errors.As(err, &storageErr):
		pipelineErrors.WithLabelValues(errTypeStorage).Inc()
		s.warn(Warning{
			Stage:   "save",
			Message: "database unavailable, expense kept in memory until retry",
		})
	default:
		p.fail(ctx, s, errTypeStorage, err)
		return err
	}

	s.Expense = expense
	s.State = StateSaved
	expensesSaved.Inc()

	return nil
}

// Cancel discards the session and returns it to Idle.
func (p *Pipeline) Cancel(s *Session) {
	*s = Session{State: StateIdle}
}

// ValidateDraft is the save gate: a draft needs a positive amount and a
// non-blank description.
func ValidateDraft(draft services.ExpenseDraft) error {
	if !(draft.Amount > 0) {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if strings.TrimSpace(draft.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be blank"}
	}

	return nil
}

func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.RequestTimeout)
}

func (p *Pipeline) fail(ctx context.Context, s *Session, errType string, err error) {
	s.State = StateErrored
	pipelineErrors.WithLabelValues(errType).Inc()
	p.log.Error(ctx, "pipeline stage failed", "type", errType, "err", err)
}
