package saypay

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"saypay/pkg/services"

	"github.com/vmkteam/embedlog"
)

// LocalWhisper transcribes recordings with a local whisper-cli binary,
// converting input to 16 kHz mono WAV via ffmpeg first. Used in devel
// deployments without an OpenAI credential. The binary reports no confidence,
// so results carry the default optimistic value.
type LocalWhisper struct {
	cache *services.Cache[services.TranscriptionResult]
	log   embedlog.Logger
}

// NewLocalWhisper creates a local transcriber.
func NewLocalWhisper(cache *services.Cache[services.TranscriptionResult], log embedlog.Logger) *LocalWhisper {
	return &LocalWhisper{cache: cache, log: log}
}

// Transcribe implements services.Transcriber.
func (w *LocalWhisper) Transcribe(ctx context.Context, audio services.RecordedAudio, languageHint string) (services.TranscriptionResult, error) {
	key := audio.Fingerprint()
	if result, ok := w.cache.Get(key); ok {
		w.log.Print(ctx, "transcript cache hit", "fingerprint", key)
		return result, nil
	}

	src := audio.URI
	if len(audio.Data) > 0 {
		tmp := filepath.Join(os.TempDir(), "saypay", key+"."+audioExt(audio.MIME))
		if err := os.MkdirAll(filepath.Dir(tmp), 0755); err != nil {
			return services.TranscriptionResult{}, &services.TranscriptionError{Err: err}
		}
		if err := os.WriteFile(tmp, audio.Data, 0644); err != nil {
			return services.TranscriptionResult{}, &services.TranscriptionError{Err: err}
		}
		defer os.Remove(tmp)
		src = tmp
	}

	wav, err := convertToWav(ctx, src)
	if err != nil {
		return services.TranscriptionResult{}, &services.TranscriptionError{Err: err}
	}
	defer os.Remove(wav)

	cmd := exec.CommandContext(ctx,
		"whisper-cli",
		"-f", wav,
		"-l", languageHint,
		"-otxt",
		"-of", "-",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.TranscriptionResult{}, &services.TranscriptionError{
			Err: fmt.Errorf("whisper-cli error: %w, output: %s", err, string(output)),
		}
	}

	result := services.TranscriptionResult{
		Text:       strings.TrimSpace(string(output)),
		Confidence: defaultTranscriptConfidence,
		Language:   languageHint,
	}

	if ctx.Err() != nil {
		return services.TranscriptionResult{}, ctx.Err()
	}
	w.cache.Set(key, result)

	return result, nil
}

// convertToWav converts any input container to 16-bit 16 kHz mono PCM WAV.
func convertToWav(ctx context.Context, srcPath string) (string, error) {
	fileBase := filepath.Base(srcPath)
	fileExt := filepath.Ext(fileBase)
	fileName := fileBase[:len(fileBase)-len(fileExt)]
	wav := filepath.Join(os.TempDir(), "saypay", fileName+".wav")
	if err := os.MkdirAll(filepath.Dir(wav), 0755); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y", // overwrite output file without asking
		"-i", srcPath,
		"-ac", "1", // 1 channel
		"-ar", "16000", // 16 kHz
		"-acodec", "pcm_s16le", // 16-bit little-endian PCM
		wav)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	return wav, nil
}
