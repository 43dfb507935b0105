package pipeline

import "fmt"

// Error type labels used in metrics and logs.
const (
	errTypeRecording     = "recording"
	errTypeTranscription = "transcription"
	errTypeValidation    = "validation"
	errTypeStorage       = "storage"
	errTypeState         = "state"
)

// TransitionError reports an operation called in the wrong session state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed in state %s", e.Op, e.State)
}

// ValidationError reports a draft that fails the save gate.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// LowConfidenceError is returned by the blocking policy when the transcript
// confidence is below the threshold. The session is recoverable, the caller
// should ask the user to re-record.
type LowConfidenceError struct {
	Confidence float64
	Threshold  float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("transcript confidence %.2f below threshold %.2f", e.Confidence, e.Threshold)
}

// Warning is a non-blocking quality note attached to a session.
type Warning struct {
	Stage      string  `json:"stage"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence,omitempty"`
}

func (s *Session) warn(w Warning) {
	s.Warnings = append(s.Warnings, w)
}
