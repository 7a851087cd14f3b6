package triage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/logging"
)

// Classifier is the part of the text classifier gateway the decision core uses
type Classifier interface {
	Classify(ctx context.Context, task llm.Task, inputs any, out any) (llm.Outcome, error)
	Generate(ctx context.Context, task llm.Task, inputs any) (string, error)
}

// IssueDetector decides whether a message describes a compensable issue
type IssueDetector struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewIssueDetector creates an issue detector
func NewIssueDetector(classifier Classifier, logger *zap.Logger) *IssueDetector {
	return &IssueDetector{
		classifier: classifier,
		logger:     logging.OrNop(logger).Named("detector"),
	}
}

type rawIssue struct {
	Detected     bool     `json:"detected"`
	IssueType    *string  `json:"issue_type"`
	Description  string   `json:"description"`
	PlayerImpact *string  `json:"player_impact"`
	Confidence   *float64 `json:"confidence_score"`
}

// Detect classifies message. A locked account with an access complaint is
// never left to the classifier.
func (d *IssueDetector) Detect(ctx context.Context, message string, player PlayerContext) (IssueDetectionResult, error) {
	if accountLocked(player) && containsAccessTerm(message) {
		d.logger.Info("account lock override applied",
			zap.String("player_id", player.PlayerID),
			zap.String("lock_reason", player.LockReason),
		)
		return lockOverride(player), nil
	}

	var raw rawIssue
	outcome, err := d.classifier.Classify(ctx, issueDetectionTask, issueInputs{Message: message}, &raw)
	if err != nil {
		return IssueDetectionResult{}, err
	}

	if !outcome.Parsed {
		result := keywordDetection(message)
		d.logger.Info("issue detection fell back to keywords",
			zap.String("player_id", player.PlayerID),
			zap.Bool("detected", result.Detected),
			zap.String("fallback_version", FallbackVersion),
		)
		return result, nil
	}

	return raw.result(), nil
}

func (r rawIssue) result() IssueDetectionResult {
	confidence := 0.5
	if r.Confidence != nil {
		confidence = clamp01(*r.Confidence)
	}

	if !r.Detected {
		return IssueDetectionResult{
			Detected:        false,
			Description:     strings.TrimSpace(r.Description),
			ConfidenceScore: confidence,
			Source:          SourceClassifier,
		}
	}

	result := IssueDetectionResult{
		Detected:        true,
		Description:     strings.TrimSpace(r.Description),
		ConfidenceScore: confidence,
		Source:          SourceClassifier,
	}
	if r.IssueType != nil {
		result.IssueType = parseIssueType(*r.IssueType)
	}
	if r.PlayerImpact != nil {
		result.PlayerImpact = parseImpact(*r.PlayerImpact)
	}
	if result.PlayerImpact == ImpactNone {
		result.PlayerImpact = keywordFallbackImpact
	}
	return result
}

func keywordDetection(message string) IssueDetectionResult {
	category, term, ok := scanIssueKeywords(message)
	if !ok {
		return IssueDetectionResult{
			Detected:    false,
			Description: "no issue keywords found",
			Source:      SourceKeywordFallback,
		}
	}
	return IssueDetectionResult{
		Detected:        true,
		IssueType:       category,
		Description:     fmt.Sprintf("player reports a problem (matched %q)", term),
		PlayerImpact:    keywordFallbackImpact,
		ConfidenceScore: keywordFallbackConfidence,
		Source:          SourceKeywordFallback,
	}
}

func lockOverride(player PlayerContext) IssueDetectionResult {
	desc := "account is locked and the player cannot sign in"
	if player.LockReason != "" {
		desc = fmt.Sprintf("%s (lock reason: %s)", desc, player.LockReason)
	}
	return IssueDetectionResult{
		Detected:        true,
		IssueType:       IssueAccount,
		Description:     desc,
		PlayerImpact:    ImpactCritical,
		ConfidenceScore: 1.0,
		Source:          SourceAccountOverride,
	}
}

func accountLocked(player PlayerContext) bool {
	return strings.EqualFold(strings.TrimSpace(string(player.AccountStatus)), string(AccountLocked))
}
