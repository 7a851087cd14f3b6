package triage

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildcare/internal/logging"
)

// SentimentAnalyzer classifies tone and urgency. It does not depend on the
// issue detector's result.
type SentimentAnalyzer struct {
	classifier Classifier
	logger     *zap.Logger
}

// NewSentimentAnalyzer creates a sentiment analyzer
func NewSentimentAnalyzer(classifier Classifier, logger *zap.Logger) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		classifier: classifier,
		logger:     logging.OrNop(logger).Named("sentiment"),
	}
}

type rawSentiment struct {
	Tone           string `json:"tone"`
	Urgency        string `json:"urgency"`
	RepeatIssue    bool   `json:"repeat_issue"`
	IssueFrequency string `json:"issue_frequency"`
}

// Analyze classifies message
func (s *SentimentAnalyzer) Analyze(ctx context.Context, message string) (SentimentResult, error) {
	var raw rawSentiment
	outcome, err := s.classifier.Classify(ctx, sentimentTask, issueInputs{Message: message}, &raw)
	if err != nil {
		return SentimentResult{}, err
	}

	if !outcome.Parsed {
		s.logger.Info("sentiment fell back to neutral defaults",
			zap.String("fallback_version", FallbackVersion),
		)
		return sentimentFallback, nil
	}

	return SentimentResult{
		Tone:           parseTone(raw.Tone),
		Urgency:        parseUrgency(raw.Urgency),
		RepeatIssue:    raw.RepeatIssue,
		IssueFrequency: parseFrequency(raw.IssueFrequency),
	}, nil
}

// ToneIntensity maps a tone to an emotional intensity score out of 10
func ToneIntensity(t Tone) int {
	switch t {
	case ToneAngry:
		return 8
	case ToneFrustrated:
		return 6
	case ToneConfused:
		return 4
	case ToneNeutral:
		return 3
	case ToneAppreciative:
		return 2
	}
	return 3
}

// ToneFrustration maps a tone to a frustration score out of 10
func ToneFrustration(t Tone) int {
	switch t {
	case ToneAngry:
		return 8
	case ToneFrustrated:
		return 7
	case ToneConfused:
		return 4
	case ToneNeutral:
		return 2
	case ToneAppreciative:
		return 1
	}
	return 2
}
