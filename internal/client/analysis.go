package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/config"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// maxUtteranceChars bounds very long sentences before they enter the prompt.
const maxUtteranceChars = 500

const analysisSystemPrompt = `You are an expert Clinical Psychologist AI. Your task is to analyze a therapy session transcript line-by-line to extract clinical insights.

STRICT INSTRUCTIONS:

1. IDENTIFY ROLES:
Analyze speech patterns to determine who is the 'Therapist' (asks questions, guides) and who is the 'Patient' (shares feelings, answers).

2. EMOTIONAL ARC:
Divide the session roughly into 4 chronological quarters (Start, Early-Mid, Late-Mid, End).
Identify the DOMINANT emotion of the PATIENT in each quarter to show their emotional journey.

3. KEY INTERVENTIONS:
Identify exactly 3 key moments where the Therapist said something that caused a significant reaction.
- trigger_topic: What did the therapist ask about?
- patient_reaction: Did the patient open up (Positive) or shut down/become defensive (Negative)?
- insight: A short clinical note on why this happened.

4. GRANULAR ANALYSIS:
For every single utterance, assign a 'Topic' and an 'Emotion'.

Use these standard lists:
- Topics: [Family, Work, Relationships, Anxiety, Depression, Self-Esteem, Trauma, Medication, Daily Routine, Sleep]
- Emotions: [Happy, Sad, Angry, Anxious, Neutral, Hopeful, Frustrated, Confused, Guilt, Shame]

5. OUTPUT FORMAT: Return ONLY valid JSON with this exact structure:
{
    "roles": {
        "Speaker A": "Therapist",
        "Speaker B": "Patient"
    },
    "emotional_profile": [
        {"phase": "Start", "emotion": "Anxious"},
        {"phase": "Early-Mid", "emotion": "Sad"},
        {"phase": "Late-Mid", "emotion": "Neutral"},
        {"phase": "End", "emotion": "Hopeful"}
    ],
    "key_interventions": [
        {
            "trigger_topic": "Family",
            "patient_reaction": "Negative",
            "insight": "Patient became defensive when father was mentioned."
        }
    ],
    "analysis": [
        {
            "speaker": "Speaker B",
            "text": "My mom makes me happy",
            "topic": "Family",
            "emotion": "Happy"
        }
    ]
}`

// AnalysisProvider defines the interface for the structured-analysis call.
// The call is treated as a pure function of the utterances: byte-identical
// transcripts are expected to produce equivalent results.
type AnalysisProvider interface {
	Analyze(ctx context.Context, utterances []model.Utterance) (*model.AnalysisResult, error)
}

// OpenAIAnalyzer implements AnalysisProvider using a chat completion with a
// JSON response format.
type OpenAIAnalyzer struct {
	cli    *openai.Client
	model  string
	apiKey string
}

// NewOpenAIAnalyzer creates a new analysis provider client
func NewOpenAIAnalyzer(cfg *config.OpenAIConfig) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIAnalyzer{
		cli:    openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
	}
}

// Analyze sends the dialogue to the language model and parses the structured
// result, normalizing role values onto the fixed enumeration.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, utterances []model.Utterance) (*model.AnalysisResult, error) {
	dialogue := buildDialogue(utterances)

	req := openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Here is the session transcript:\n\n" + dialogue},
		},
	}

	resp, err := a.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("[OpenAI] ✗ chat completion failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrProviderFailure)
	}

	return ParseAnalysisResult([]byte(resp.Choices[0].Message.Content))
}

// ParseAnalysisResult decodes and sanity-checks the provider's JSON output.
func ParseAnalysisResult(data []byte) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: invalid analysis JSON: %v", ErrProviderFailure, err)
	}

	if len(result.EmotionalProfile) != len(model.SessionPhases) {
		return nil, fmt.Errorf("%w: expected %d emotional phases, got %d",
			ErrProviderFailure, len(model.SessionPhases), len(result.EmotionalProfile))
	}
	if len(result.KeyInterventions) != model.InterventionCount {
		return nil, fmt.Errorf("%w: expected %d key interventions, got %d",
			ErrProviderFailure, model.InterventionCount, len(result.KeyInterventions))
	}

	normalized := make(map[string]model.Role, len(result.Roles))
	for speaker, role := range result.Roles {
		normalized[speaker] = model.NormalizeRole(string(role))
	}
	result.Roles = normalized

	return &result, nil
}

func buildDialogue(utterances []model.Utterance) string {
	var b strings.Builder
	for _, u := range utterances {
		text := u.Text
		if len(text) > maxUtteranceChars {
			text = text[:maxUtteranceChars]
		}
		b.WriteString(u.Speaker)
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

// IsConfigured returns true if the client has valid configuration
func (a *OpenAIAnalyzer) IsConfigured() bool {
	return a.apiKey != ""
}
