package model

import "time"

// PhaseEmotion is the dominant patient emotion during one quarter of the
// session.
type PhaseEmotion struct {
	Phase   Phase  `json:"phase"`
	Emotion string `json:"emotion"`
}

// Intervention is a key moment where something the therapist said caused a
// significant patient reaction.
type Intervention struct {
	TriggerTopic    string   `json:"trigger_topic"`
	PatientReaction Reaction `json:"patient_reaction"`
	Insight         string   `json:"insight"`
}

// SentenceAnalysis is the per-utterance classification, one entry per input
// utterance in transcript order.
type SentenceAnalysis struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Topic   string `json:"topic"`
	Emotion string `json:"emotion"`
}

// AnalysisResult is the structured output of the analysis provider before
// any session-specific fields are attached. This is the value stored in the
// result cache: two byte-identical transcripts map to the same result.
type AnalysisResult struct {
	Roles            map[string]Role    `json:"roles"`
	EmotionalProfile []PhaseEmotion     `json:"emotional_profile"`
	KeyInterventions []Intervention     `json:"key_interventions"`
	SentenceAnalysis []SentenceAnalysis `json:"analysis"`
}

// SessionDocument is the single accumulated analysis record per job. It does
// not exist until the analysis stage's first write; a re-run for the same
// job replaces the whole document (last writer wins, no field merge).
type SessionDocument struct {
	JobID            string             `json:"job_id"`
	DisplayName      string             `json:"display_name"`
	CreatedAt        time.Time          `json:"created_at"`
	Roles            map[string]Role    `json:"roles"`
	EmotionalProfile []PhaseEmotion     `json:"emotional_profile"`
	KeyInterventions []Intervention     `json:"key_interventions"`
	SentenceAnalysis []SentenceAnalysis `json:"sentence_analysis"`
	RawTranscript    string             `json:"raw_transcript"`
}

// SessionSummary is the bounded list projection.
type SessionSummary struct {
	JobID       string    `json:"job_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResponse is returned to the caller synchronously after ingestion;
// all further progress is observed by polling the query endpoints.
type UploadResponse struct {
	JobID       string `json:"job_id"`
	DisplayName string `json:"display_name"`
}
