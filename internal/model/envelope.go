package model

import (
	"errors"
	"fmt"
	"time"
)

// DefaultDisplayName is used when an upload carries no usable filename.
const DefaultDisplayName = "Unknown Session"

// ErrInvalidEnvelope marks a message body that fails schema validation.
// Workers drop (ack) these instead of requeueing them.
var ErrInvalidEnvelope = errors.New("invalid job envelope")

// BlobRef identifies stored binary content. It is produced by one stage,
// consumed by the next and never mutated.
type BlobRef struct {
	Bucket string `json:"bucket" validate:"required"`
	Key    string `json:"key" validate:"required"`
}

func (r BlobRef) String() string {
	return r.Bucket + "/" + r.Key
}

// Utterance is a single speaker-labeled segment of the transcript.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// JobEnvelope is the message body passed between pipeline stages. JobID is
// assigned once at ingestion and carried unchanged through every hop; the
// payload fields are stage-specific and exactly one set is populated per
// message.
type JobEnvelope struct {
	JobID       string    `json:"job_id" validate:"required"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`

	// StageIngested payload
	MediaRef *BlobRef `json:"media_ref,omitempty"`

	// StageAudioExtracted payload
	AudioRef *BlobRef `json:"audio_ref,omitempty"`

	// StageTranscribed payload
	TranscriptText string      `json:"transcript_text,omitempty"`
	Utterances     []Utterance `json:"utterances,omitempty"`
}

// ValidateFor checks that the envelope carries the payload the consumer of
// the given stage's output queue expects.
func (e *JobEnvelope) ValidateFor(stage Stage) error {
	if e.JobID == "" {
		return fmt.Errorf("%w: missing job_id", ErrInvalidEnvelope)
	}

	switch stage {
	case StageIngested:
		if e.MediaRef == nil || e.MediaRef.Bucket == "" || e.MediaRef.Key == "" {
			return fmt.Errorf("%w: missing media_ref", ErrInvalidEnvelope)
		}
	case StageAudioExtracted:
		if e.AudioRef == nil || e.AudioRef.Bucket == "" || e.AudioRef.Key == "" {
			return fmt.Errorf("%w: missing audio_ref", ErrInvalidEnvelope)
		}
	case StageTranscribed:
		if e.TranscriptText == "" {
			return fmt.Errorf("%w: missing transcript_text", ErrInvalidEnvelope)
		}
		if len(e.Utterances) == 0 {
			return fmt.Errorf("%w: missing utterances", ErrInvalidEnvelope)
		}
	default:
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidEnvelope, stage)
	}

	return nil
}

// Label returns the display name, falling back to the sentinel.
func (e *JobEnvelope) Label() string {
	if e.DisplayName == "" {
		return DefaultDisplayName
	}
	return e.DisplayName
}
