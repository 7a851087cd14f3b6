package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/logging"
)

const minReasoningLength = 10

const (
	specialistReasoning = "Thanks for your patience. Your report has been escalated to our specialist team, " +
		"who will review your account history personally and get back to you."
	denialReasoning = "Thanks for letting us know. Our system records show this item or reward was already " +
		"delivered to your account, so no compensation applies to this report."
)

// Recommender turns detection, sentiment and player context into a
// compensation recommendation
type Recommender struct {
	classifier Classifier
	policy     Policy
	logger     *zap.Logger
}

// NewRecommender creates a recommender for the given policy
func NewRecommender(classifier Classifier, policy Policy, logger *zap.Logger) *Recommender {
	return &Recommender{
		classifier: classifier,
		policy:     policy,
		logger:     logging.OrNop(logger).Named("recommender"),
	}
}

// ApplyValidation applies the contradiction branch policy. It reports false
// when the validation does not override the normal recommendation.
func (r *Recommender) ApplyValidation(validation ClaimValidation, player PlayerContext) (CompensationRecommendation, bool) {
	if !validation.ContradictionDetected {
		return CompensationRecommendation{}, false
	}

	if player.VIPLevel >= r.policy.VIPSpecialistLevel {
		r.logger.Info("contradiction on high-tier account routed to specialist",
			zap.String("player_id", player.PlayerID),
			zap.Int("vip_level", player.VIPLevel),
		)
		return CompensationRecommendation{
			Tier:                  TierP3,
			Reasoning:             specialistReasoning,
			SuggestedCompensation: r.policy.baseline(ImpactModerate).Rewards,
			RequiresHumanReview:   true,
			EstimatedReviewTime:   r.policy.SpecialistReviewTime,
		}, true
	}

	r.logger.Info("claim contradicted by system logs, denied",
		zap.String("player_id", player.PlayerID),
		zap.Bool("evidence_exists", validation.EvidenceExists),
	)
	return Denial(denialReasoning), true
}

// Recommend computes the recommendation for a validated issue
func (r *Recommender) Recommend(ctx context.Context, issue IssueDetectionResult, sentiment SentimentResult, player PlayerContext) (CompensationRecommendation, error) {
	base := r.policy.baseline(issue.PlayerImpact)
	tier := base.Tier
	if issue.IssueType == IssueAccount && issue.PlayerImpact == ImpactCritical && r.policy.AccountCriticalTier.MoreSevereThan(tier) {
		tier = r.policy.AccountCriticalTier
	}
	bundle := base.Rewards
	review := false

	if player.VIPLevel >= r.policy.VIPBonusLevel {
		bundle = bundle.ScaleGold(r.policy.VIPMultiplier).ScaleGems(r.policy.VIPMultiplier)
		tier = tier.Raise()
	}

	if player.ChurnRisk >= r.policy.ChurnRiskThreshold {
		bundle = bundle.ScaleGold(r.policy.ChurnMultiplier)
	}

	if frustration := ToneFrustration(sentiment.Tone); frustration > 5 && r.policy.FrustrationGemStep > 0 {
		bundle = bundle.With(Gems{Amount: (frustration - 5) * r.policy.FrustrationGemStep})
	}

	if sentiment.Urgency == UrgencyHigh || sentiment.Tone == ToneAngry {
		bundle = bundle.ScaleGold(r.policy.UrgencyMultiplier)
		review = true
	}

	if issue.PlayerImpact == ImpactCritical || player.VIPLevel >= r.policy.VIPSpecialistLevel {
		review = true
	}

	rec := CompensationRecommendation{
		Tier:                  tier,
		SuggestedCompensation: bundle,
		RequiresHumanReview:   review,
	}
	if review {
		rec.EstimatedReviewTime = ReviewTime(tier)
	}

	reasoning, err := r.reasoning(ctx, rec, issue, sentiment)
	if err != nil {
		return CompensationRecommendation{}, err
	}
	rec.Reasoning = reasoning

	return rec, nil
}

// reasoning asks the gateway for the player-facing explanation and falls back
// to a template. Only unavailability and caller cancellation are returned as errors.
func (r *Recommender) reasoning(ctx context.Context, rec CompensationRecommendation, issue IssueDetectionResult, sentiment SentimentResult) (string, error) {
	inputs := reasoningInputs{
		Tier:           rec.Tier.String(),
		IssueType:      string(issue.IssueType),
		Impact:         string(issue.PlayerImpact),
		Description:    issue.Description,
		Tone:           string(sentiment.Tone),
		Intensity:      ToneIntensity(sentiment.Tone),
		Urgency:        string(sentiment.Urgency),
		RepeatIssue:    sentiment.RepeatIssue,
		Compensation:   rec.SuggestedCompensation.String(),
		RequiresReview: rec.RequiresHumanReview,
	}

	text, err := r.classifier.Generate(ctx, reasoningTask, inputs)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if errors.Is(err, llm.ErrServiceUnavailable) {
		return "", err
	}
	if err != nil || len(strings.TrimSpace(text)) < minReasoningLength {
		r.logger.Debug("using template reasoning", zap.Error(err))
		return templateReasoning(rec, issue), nil
	}
	return strings.TrimSpace(text), nil
}

func templateReasoning(rec CompensationRecommendation, issue IssueDetectionResult) string {
	subject := "issue"
	if issue.IssueType != IssueNone {
		subject = string(issue.IssueType) + " issue"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "We're sorry about the %s you ran into. Based on its impact, your report was placed in compensation tier %s", subject, rec.Tier)
	if !rec.SuggestedCompensation.IsEmpty() {
		fmt.Fprintf(&b, " (%s)", rec.SuggestedCompensation)
	}
	b.WriteString(".")
	if rec.RequiresHumanReview {
		fmt.Fprintf(&b, " A support specialist will review it first, usually within %s.", rec.EstimatedReviewTime)
	}
	return b.String()
}
