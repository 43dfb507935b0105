package saypay

import (
	"bytes"
	"context"
	"math"
	"strings"

	"saypay/pkg/services"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vmkteam/embedlog"
)

const (
	whisperModel                = openai.Whisper1
	whisperTemperature          = 0.2
	defaultTranscriptConfidence = 0.95
)

type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Whisper transcribes recordings through the OpenAI audio API. Results are
// cached by content fingerprint so a distinct recording hits the network at
// most once within the cache TTL.
type Whisper struct {
	api   transcriptionAPI
	cache *services.Cache[services.TranscriptionResult]
	log   embedlog.Logger
}

// NewWhisper creates a transcription client backed by the OpenAI API.
func NewWhisper(token string, cache *services.Cache[services.TranscriptionResult], log embedlog.Logger) *Whisper {
	return &Whisper{
		api:   openai.NewClient(token),
		cache: cache,
		log:   log,
	}
}

// Transcribe implements services.Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audio services.RecordedAudio, languageHint string) (services.TranscriptionResult, error) {
	key := audio.Fingerprint()
	if result, ok := w.cache.Get(key); ok {
		w.log.Print(ctx, "transcript cache hit", "fingerprint", key)
		return result, nil
	}

	req := openai.AudioRequest{
		Model:       whisperModel,
		Language:    languageHint,
		Temperature: whisperTemperature,
		Format:      openai.AudioResponseFormatVerboseJSON,
	}
	if len(audio.Data) > 0 {
		req.Reader = bytes.NewReader(audio.Data)
		req.FilePath = "voice." + audioExt(audio.MIME)
	} else {
		req.FilePath = audio.URI
	}

	resp, err := w.api.CreateTranscription(ctx, req)
	if err != nil {
		return services.TranscriptionResult{}, &services.TranscriptionError{Err: err}
	}

	// The service does not report a single confidence value. Derive one from
	// segment average log probabilities when present, otherwise default to an
	// optimistic fixed value and leave the accept/reject decision to the
	// orchestrator.
	confidence := defaultTranscriptConfidence
	if len(resp.Segments) > 0 {
		var total float64
		for _, s := range resp.Segments {
			total += math.Exp(s.AvgLogprob)
		}
		confidence = math.Max(0, math.Min(1, total/float64(len(resp.Segments))))
	}

	result := services.TranscriptionResult{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: confidence,
		Language:   resp.Language,
	}

	// A cancelled request must never populate the cache.
	if ctx.Err() != nil {
		return services.TranscriptionResult{}, ctx.Err()
	}
	w.cache.Set(key, result)

	return result, nil
}

// audioExt picks a filename extension for the upload, the API infers the
// container format from it.
func audioExt(mime string) string {
	switch {
	case strings.Contains(mime, "ogg"):
		return "ogg"
	case strings.Contains(mime, "wav"):
		return "wav"
	case strings.Contains(mime, "mp3"), strings.Contains(mime, "mpeg"):
		return "mp3"
	case strings.Contains(mime, "m4a"), strings.Contains(mime, "mp4"):
		return "m4a"
	default:
		return "webm"
	}
}
