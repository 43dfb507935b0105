package saypay

import (
	"context"
	"errors"
	"testing"

	"saypay/pkg/services"

	openai "github.com/sashabaranov/go-openai"
	"github.com/vmkteam/embedlog"
)

type fakeTranscriptionAPI struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriptionAPI) CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.AudioResponse{}, f.err
	}
	return openai.AudioResponse{Text: f.text, Language: "english"}, nil
}

func newTestWhisper(api transcriptionAPI) *Whisper {
	return &Whisper{
		api:   api,
		cache: services.NewCache[services.TranscriptionResult](services.CacheTTL, services.CacheMaxSize),
		log:   embedlog.NewLogger(false, false),
	}
}

func TestWhisperTranscribe(t *testing.T) {
	api := &fakeTranscriptionAPI{text: "  I spent twenty five dollars on lunch "}
	w := newTestWhisper(api)

	audio := services.RecordedAudio{Data: []byte("ogg-bytes"), MIME: "audio/ogg"}
	result, err := w.Transcribe(context.Background(), audio, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "I spent twenty five dollars on lunch" {
		t.Fatalf("expected trimmed text, got %q", result.Text)
	}
	// without segment probabilities the confidence defaults high
	if result.Confidence != defaultTranscriptConfidence {
		t.Fatalf("expected default confidence %v, got %v", defaultTranscriptConfidence, result.Confidence)
	}
	if result.Language != "english" {
		t.Fatalf("expected language from response, got %q", result.Language)
	}
}

// Transcribing the same recording twice hits the network once.
func TestWhisperCacheIdempotence(t *testing.T) {
	api := &fakeTranscriptionAPI{text: "hello"}
	w := newTestWhisper(api)

	audio := services.RecordedAudio{Data: []byte("same-recording"), MIME: "audio/ogg"}
	first, err := w.Transcribe(context.Background(), audio, "en")
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Transcribe(context.Background(), audio, "en")
	if err != nil {
		t.Fatal(err)
	}
	if api.calls != 1 {
		t.Fatalf("expected 1 api call for identical audio, got %d", api.calls)
	}
	if first != second {
		t.Fatalf("cached result differs: %+v vs %+v", first, second)
	}

	other := services.RecordedAudio{Data: []byte("different-recording"), MIME: "audio/ogg"}
	if _, err := w.Transcribe(context.Background(), other, "en"); err != nil {
		t.Fatal(err)
	}
	if api.calls != 2 {
		t.Fatalf("expected 2 api calls for distinct audio, got %d", api.calls)
	}
}

func TestWhisperErrorWrapping(t *testing.T) {
	cause := errors.New("upstream 500")
	w := newTestWhisper(&fakeTranscriptionAPI{err: cause})

	_, err := w.Transcribe(context.Background(), services.RecordedAudio{Data: []byte("x")}, "en")

	var terr *services.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscriptionError, got %T: %v", err, err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause must be reachable via errors.Is")
	}
	if w.cache.Len() != 0 {
		t.Fatalf("failed transcription must not be cached, len=%d", w.cache.Len())
	}
}

func TestWhisperCancelledResultNotCached(t *testing.T) {
	api := &fakeTranscriptionAPI{text: "hello"}
	w := newTestWhisper(api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Transcribe(ctx, services.RecordedAudio{Data: []byte("x")}, "en")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if w.cache.Len() != 0 {
		t.Fatalf("cancelled request must not populate the cache, len=%d", w.cache.Len())
	}
}

func TestAudioExt(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"audio/ogg", "ogg"},
		{"audio/ogg; codecs=opus", "ogg"},
		{"audio/wav", "wav"},
		{"audio/mpeg", "mp3"},
		{"audio/mp4", "m4a"},
		{"", "webm"},
	}
	for _, tc := range cases {
		if got := audioExt(tc.mime); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.mime, tc.want, got)
		}
	}
}
