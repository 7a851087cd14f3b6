package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guildcare/internal/logging"
	"github.com/guildcare/internal/metrics"
	"github.com/guildcare/internal/telemetry"
)

// Analyzer runs the decision pipeline for one message:
//
//	level 1: issue detection
//	level 2: claim validation and sentiment, concurrently
//	level 3: recommendation
type Analyzer struct {
	detector    *IssueDetector
	sentiment   *SentimentAnalyzer
	validator   *ClaimValidator
	recommender *Recommender
	policy      Policy
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalyzer wires the pipeline stages over one classifier
func NewAnalyzer(classifier Classifier, policy Policy, logger *zap.Logger) *Analyzer {
	logger = logging.OrNop(logger).Named("triage")
	return &Analyzer{
		detector:    NewIssueDetector(classifier, logger),
		sentiment:   NewSentimentAnalyzer(classifier, logger),
		validator:   NewClaimValidator(classifier, logger),
		recommender: NewRecommender(classifier, policy, logger),
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

// Analyze runs the pipeline. Bad model output never fails an analysis; an
// unreachable generation service does.
func (a *Analyzer) Analyze(ctx context.Context, message string, player PlayerContext) (*Analysis, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if err := player.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "triage.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("player_id", player.PlayerID))

	issue, err := a.detector.Detect(ctx, message, player)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, fmt.Errorf("issue detection: %w", err)
	}
	span.SetAttributes(
		attribute.Bool("issue.detected", issue.Detected),
		attribute.String("issue.source", string(issue.Source)),
	)

	if !issue.Detected {
		a.logger.Info("no issue detected",
			zap.String("player_id", player.PlayerID),
			zap.String("source", string(issue.Source)),
		)
		metrics.AnalysesTotal.WithLabelValues("none", "none").Inc()
		return &Analysis{IssueDetected: false, AnalyzedAt: a.now()}, nil
	}

	var (
		sentiment  SentimentResult
		validation *ClaimValidation
	)

	g, gctx := errgroup.WithContext(ctx)
	if player.HasSystemLogs() {
		g.Go(func() error {
			v, err := a.validator.Validate(gctx, message, player.SystemLogs, issue)
			if err != nil {
				return fmt.Errorf("claim validation: %w", err)
			}
			validation = &v
			return nil
		})
	}
	g.Go(func() error {
		s, err := a.sentiment.Analyze(gctx, message)
		if err != nil {
			return fmt.Errorf("sentiment analysis: %w", err)
		}
		sentiment = s
		return nil
	})
	if err := g.Wait(); err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	analysis := &Analysis{
		IssueDetected: true,
		Sentiment:     &sentiment,
		Validation:    validation,
	}

	var rec CompensationRecommendation
	overridden := false
	if validation != nil {
		rec, overridden = a.recommender.ApplyValidation(*validation, player)
		if overridden {
			outcome := "denied"
			if !rec.Denied {
				outcome = "specialist"
			}
			metrics.ContradictionsTotal.WithLabelValues(outcome).Inc()
		} else {
			issue = issue.WithConfidence(issue.ConfidenceScore + a.policy.ConfidenceNudge)
		}
	}

	if !overridden {
		rec, err = a.recommender.Recommend(ctx, issue, sentiment, player)
		if err != nil {
			telemetry.RecordSpanError(span, err)
			return nil, fmt.Errorf("recommendation: %w", err)
		}
	}

	analysis.Issue = &issue
	analysis.Recommendation = &rec
	analysis.AnalyzedAt = a.now()

	telemetry.AddSpanAttributes(span, map[string]string{
		"issue.type":          string(issue.IssueType),
		"issue.impact":        string(issue.PlayerImpact),
		"recommendation.tier": rec.Tier.String(),
	})
	span.SetAttributes(attribute.Bool("recommendation.review", rec.RequiresHumanReview))
	metrics.AnalysesTotal.WithLabelValues(string(issue.IssueType), rec.Tier.String()).Inc()

	a.logger.Info("analysis completed",
		zap.String("player_id", player.PlayerID),
		zap.String("issue_type", string(issue.IssueType)),
		zap.String("impact", string(issue.PlayerImpact)),
		zap.String("tier", rec.Tier.String()),
		zap.Bool("requires_review", rec.RequiresHumanReview),
		zap.Bool("denied", rec.Denied),
	)

	return analysis, nil
}
