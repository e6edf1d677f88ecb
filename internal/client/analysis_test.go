package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

const validAnalysisJSON = `{
	"roles": {"Speaker A": "Therapist", "Speaker B": "Patient"},
	"emotional_profile": [
		{"phase": "Start", "emotion": "Anxious"},
		{"phase": "Early-Mid", "emotion": "Sad"},
		{"phase": "Late-Mid", "emotion": "Neutral"},
		{"phase": "End", "emotion": "Hopeful"}
	],
	"key_interventions": [
		{"trigger_topic": "Family", "patient_reaction": "Negative", "insight": "Defensive about father."},
		{"trigger_topic": "Work", "patient_reaction": "Positive", "insight": "Opened up about burnout."},
		{"trigger_topic": "Sleep", "patient_reaction": "Positive", "insight": "Accepted routine change."}
	],
	"analysis": [
		{"speaker": "Speaker B", "text": "My mom makes me happy", "topic": "Family", "emotion": "Happy"}
	]
}`

func TestParseAnalysisResult_Valid(t *testing.T) {
	result, err := ParseAnalysisResult([]byte(validAnalysisJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Roles["Speaker A"] != model.RoleTherapist {
		t.Errorf("expected Speaker A to be Therapist, got %s", result.Roles["Speaker A"])
	}
	if len(result.EmotionalProfile) != 4 {
		t.Errorf("expected 4 emotional phases, got %d", len(result.EmotionalProfile))
	}
	if result.EmotionalProfile[0].Phase != model.PhaseStart {
		t.Errorf("expected first phase Start, got %s", result.EmotionalProfile[0].Phase)
	}
	if len(result.KeyInterventions) != 3 {
		t.Errorf("expected 3 interventions, got %d", len(result.KeyInterventions))
	}
	if len(result.SentenceAnalysis) != 1 {
		t.Errorf("expected 1 sentence analysis entry, got %d", len(result.SentenceAnalysis))
	}
}

func TestParseAnalysisResult_NormalizesRoles(t *testing.T) {
	data := strings.Replace(validAnalysisJSON, `"Speaker B": "Patient"`, `"Speaker B": "Client"`, 1)
	result, err := ParseAnalysisResult([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Roles["Speaker B"] != model.RoleUnknown {
		t.Errorf("expected unrecognized role to normalize to Unknown, got %s", result.Roles["Speaker B"])
	}
}

func TestParseAnalysisResult_WrongPhaseCount(t *testing.T) {
	data := `{
		"roles": {},
		"emotional_profile": [
			{"phase": "Start", "emotion": "Anxious"},
			{"phase": "End", "emotion": "Hopeful"}
		],
		"key_interventions": [
			{"trigger_topic": "Family", "patient_reaction": "Negative", "insight": "a"},
			{"trigger_topic": "Work", "patient_reaction": "Positive", "insight": "b"},
			{"trigger_topic": "Sleep", "patient_reaction": "Positive", "insight": "c"}
		],
		"analysis": []
	}`
	_, err := ParseAnalysisResult([]byte(data))
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure for 2 phases, got %v", err)
	}
}

func TestParseAnalysisResult_WrongInterventionCount(t *testing.T) {
	data := `{
		"roles": {},
		"emotional_profile": [
			{"phase": "Start", "emotion": "Anxious"},
			{"phase": "Early-Mid", "emotion": "Sad"},
			{"phase": "Late-Mid", "emotion": "Neutral"},
			{"phase": "End", "emotion": "Hopeful"}
		],
		"key_interventions": [],
		"analysis": []
	}`
	_, err := ParseAnalysisResult([]byte(data))
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure for empty interventions, got %v", err)
	}
}

func TestParseAnalysisResult_InvalidJSON(t *testing.T) {
	_, err := ParseAnalysisResult([]byte("not json"))
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure for invalid JSON, got %v", err)
	}
}

func TestBuildDialogue_TruncatesLongUtterances(t *testing.T) {
	long := strings.Repeat("x", maxUtteranceChars+200)
	dialogue := buildDialogue([]model.Utterance{
		{Speaker: "Speaker A", Text: long},
		{Speaker: "Speaker B", Text: "short"},
	})

	lines := strings.Split(strings.TrimRight(dialogue, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 dialogue lines, got %d", len(lines))
	}
	wantLen := len("Speaker A: ") + maxUtteranceChars
	if len(lines[0]) != wantLen {
		t.Errorf("expected truncated line of %d chars, got %d", wantLen, len(lines[0]))
	}
	if lines[1] != "Speaker B: short" {
		t.Errorf("unexpected second line: %q", lines[1])
	}
}
