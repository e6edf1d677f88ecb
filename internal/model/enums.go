package model

// Stage identifies where a job sits in the pipeline. Each stage transition
// corresponds to exactly one queue hop.
type Stage string

const (
	StageIngested       Stage = "ingested"
	StageAudioExtracted Stage = "audio_extracted"
	StageTranscribed    Stage = "transcribed"
	StageAnalyzed       Stage = "analyzed"
)

// Speaker roles
type Role string

const (
	RoleTherapist Role = "Therapist"
	RolePatient   Role = "Patient"
	RoleUnknown   Role = "Unknown"
)

var ValidRoles = []Role{RoleTherapist, RolePatient, RoleUnknown}

// NormalizeRole maps free-form provider output onto the role enum.
func NormalizeRole(s string) Role {
	switch Role(s) {
	case RoleTherapist, RolePatient:
		return Role(s)
	default:
		return RoleUnknown
	}
}

// Session phases for the emotional arc, in chronological order.
type Phase string

const (
	PhaseStart    Phase = "Start"
	PhaseEarlyMid Phase = "Early-Mid"
	PhaseLateMid  Phase = "Late-Mid"
	PhaseEnd      Phase = "End"
)

var SessionPhases = []Phase{PhaseStart, PhaseEarlyMid, PhaseLateMid, PhaseEnd}

// Patient reaction to a therapist intervention
type Reaction string

const (
	ReactionPositive Reaction = "Positive"
	ReactionNegative Reaction = "Negative"
)

// InterventionCount is the number of key intervention moments extracted
// per session.
const InterventionCount = 3
