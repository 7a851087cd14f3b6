package triage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guildcare/internal/logging"
)

// ClaimValidator cross-checks the player's narrative against the system-log annotation
type ClaimValidator struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewClaimValidator creates a claim validator
func NewClaimValidator(classifier Classifier, logger *zap.Logger) *ClaimValidator {
	return &ClaimValidator{
		classifier: classifier,
		logger:     logging.OrNop(logger).Named("validator"),
	}
}

type rawValidation struct {
	ContradictionDetected bool     `json:"contradiction_detected"`
	Confidence            *float64 `json:"confidence_score"`
	Reasoning             string   `json:"reasoning"`
	EvidenceExists        bool     `json:"evidence_exists"`
}

// Validate compares the claim with systemLogs. Without an annotation there is
// nothing to contradict and no classifier call is made.
func (v *ClaimValidator) Validate(ctx context.Context, message, systemLogs string, issue IssueDetectionResult) (ClaimValidation, error) {
	if strings.TrimSpace(systemLogs) == "" {
		return ClaimValidation{Reasoning: "no system log annotation supplied"}, nil
	}

	inputs := claimInputs{
		Message:     message,
		SystemLogs:  systemLogs,
		IssueType:   string(issue.IssueType),
		Impact:      string(issue.PlayerImpact),
		Description: issue.Description,
	}

	var raw rawValidation
	outcome, err := v.classifier.Classify(ctx, claimValidationTask, inputs, &raw)
	if err != nil {
		return ClaimValidation{}, err
	}

	if !outcome.Parsed {
		result := phraseValidation(systemLogs)
		v.logger.Info("claim validation fell back to phrase scan",
			zap.Bool("contradiction", result.ContradictionDetected),
			zap.String("fallback_version", FallbackVersion),
		)
		return result, nil
	}

	confidence := 0.5
	if raw.Confidence != nil {
		confidence = clamp01(*raw.Confidence)
	}
	return ClaimValidation{
		ContradictionDetected: raw.ContradictionDetected,
		ConfidenceScore:       confidence,
		Reasoning:             strings.TrimSpace(raw.Reasoning),
		EvidenceExists:        raw.EvidenceExists,
	}, nil
}

func phraseValidation(systemLogs string) ClaimValidation {
	found := scanContradictions(systemLogs)
	if len(found) == 0 {
		return ClaimValidation{
			Reasoning: "system logs contain no contradicting entries",
		}
	}
	return ClaimValidation{
		ContradictionDetected: true,
		ConfidenceScore:       contradictionFallbackConfidence,
		Reasoning:             fmt.Sprintf("system logs state: %s", strings.Join(found, "; ")),
		EvidenceExists:        true,
	}
}
