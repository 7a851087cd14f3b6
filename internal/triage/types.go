package triage

import (
	"fmt"
	"strings"
	"time"
)

// AccountStatus is the account state reported by the game backend
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountLocked    AccountStatus = "locked"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

// PlayerContext is the telemetry supplied by the caller for one analysis.
// It is treated as immutable for the duration of the call.
type PlayerContext struct {
	PlayerID      string        `json:"player_id"`
	DisplayName   string        `json:"display_name,omitempty"`
	GameLevel     int           `json:"game_level"`
	VIPLevel      int           `json:"vip_level"`
	LifetimeSpend float64       `json:"lifetime_spend"`
	SessionAge    time.Duration `json:"session_age"`
	ChurnRisk     int           `json:"churn_risk"`
	SystemLogs    string        `json:"system_logs,omitempty"`
	AccountStatus AccountStatus `json:"account_status"`
	LockReason    string        `json:"lock_reason,omitempty"`
}

// Validate checks the ranges of the supplied telemetry
func (p PlayerContext) Validate() error {
	if p.VIPLevel < 0 || p.VIPLevel > 15 {
		return fmt.Errorf("%w: vip level %d outside 0-15", ErrInvalidPlayer, p.VIPLevel)
	}
	if p.ChurnRisk < 0 || p.ChurnRisk > 100 {
		return fmt.Errorf("%w: churn risk %d outside 0-100", ErrInvalidPlayer, p.ChurnRisk)
	}
	if p.LifetimeSpend < 0 {
		return fmt.Errorf("%w: negative lifetime spend", ErrInvalidPlayer)
	}
	return nil
}

// HasSystemLogs reports whether a system-log annotation was supplied
func (p PlayerContext) HasSystemLogs() bool {
	return strings.TrimSpace(p.SystemLogs) != ""
}

// IssueType is the category of a detected issue
type IssueType string

const (
	IssueNone      IssueType = ""
	IssueTechnical IssueType = "technical"
	IssueAccount   IssueType = "account"
	IssueGameplay  IssueType = "gameplay"
)

func parseIssueType(s string) IssueType {
	switch IssueType(strings.ToLower(strings.TrimSpace(s))) {
	case IssueTechnical:
		return IssueTechnical
	case IssueAccount:
		return IssueAccount
	case IssueGameplay:
		return IssueGameplay
	}
	return IssueNone
}

// Impact is the player impact level of an issue
type Impact string

const (
	ImpactNone     Impact = ""
	ImpactMinimal  Impact = "minimal"
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSevere   Impact = "severe"
	ImpactCritical Impact = "critical"
)

// Impacts lists every impact level from most to least severe
var Impacts = []Impact{ImpactCritical, ImpactSevere, ImpactModerate, ImpactMinor, ImpactMinimal}

func parseImpact(s string) Impact {
	impact := Impact(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Impacts {
		if impact == known {
			return known
		}
	}
	return ImpactNone
}

// DetectionSource records how an issue detection result was produced
type DetectionSource string

const (
	SourceClassifier      DetectionSource = "classifier"
	SourceKeywordFallback DetectionSource = "keyword_fallback"
	SourceAccountOverride DetectionSource = "account_lock_override"
)

// IssueDetectionResult is produced once per message and never mutated afterwards
type IssueDetectionResult struct {
	Detected        bool            `json:"detected"`
	IssueType       IssueType       `json:"issue_type,omitempty"`
	Description     string          `json:"description"`
	PlayerImpact    Impact          `json:"player_impact,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
	Source          DetectionSource `json:"source"`
}

// WithConfidence returns a copy of the result with the given confidence
func (r IssueDetectionResult) WithConfidence(score float64) IssueDetectionResult {
	r.ConfidenceScore = clamp01(score)
	return r
}

// Tone is the emotional tone of a message
type Tone string

const (
	ToneNeutral      Tone = "neutral"
	ToneFrustrated   Tone = "frustrated"
	ToneAngry        Tone = "angry"
	ToneConfused     Tone = "confused"
	ToneAppreciative Tone = "appreciative"
)

func parseTone(s string) Tone {
	switch tone := Tone(strings.ToLower(strings.TrimSpace(s))); tone {
	case ToneNeutral, ToneFrustrated, ToneAngry, ToneConfused, ToneAppreciative:
		return tone
	case "agitated", "annoyed", "upset":
		return ToneFrustrated
	case "furious", "hostile":
		return ToneAngry
	}
	return ToneNeutral
}

// Urgency is how soon the player expects a resolution
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

func parseUrgency(s string) Urgency {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return u
	}
	return UrgencyMedium
}

// Frequency is how often the reported issue is seen across players
type Frequency string

const (
	FrequencyUnique     Frequency = "unique"
	FrequencyUncommon   Frequency = "uncommon"
	FrequencyCommon     Frequency = "common"
	FrequencyVeryCommon Frequency = "very_common"
)

func parseFrequency(s string) Frequency {
	f := Frequency(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_"))
	switch f {
	case FrequencyUnique, FrequencyUncommon, FrequencyCommon, FrequencyVeryCommon:
		return f
	}
	return FrequencyUnique
}

// SentimentResult describes the tone of a player message
type SentimentResult struct {
	Tone           Tone      `json:"tone"`
	Urgency        Urgency   `json:"urgency"`
	RepeatIssue    bool      `json:"repeat_issue"`
	IssueFrequency Frequency `json:"issue_frequency"`
}

// ClaimValidation is the outcome of cross-checking a claim against system logs
type ClaimValidation struct {
	ContradictionDetected bool    `json:"contradiction_detected"`
	ConfidenceScore       float64 `json:"confidence_score"`
	Reasoning             string  `json:"reasoning"`
	EvidenceExists        bool    `json:"evidence_exists"`
}

// Analysis is the full output of the decision pipeline for one message
type Analysis struct {
	IssueDetected  bool                        `json:"issue_detected"`
	Issue          *IssueDetectionResult       `json:"issue,omitempty"`
	Sentiment      *SentimentResult            `json:"sentiment,omitempty"`
	Validation     *ClaimValidation            `json:"validation,omitempty"`
	Recommendation *CompensationRecommendation `json:"recommendation,omitempty"`
	AnalyzedAt     time.Time                   `json:"analyzed_at"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
