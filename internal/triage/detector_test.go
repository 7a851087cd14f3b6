package triage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/llm/llmtest"
)

func newTestGateway(gen llm.Generator) *llm.Gateway {
	return llm.NewGateway(gen, config.LLMConfig{CallTimeout: time.Second}, nil)
}

func unavailable() llmtest.Reply {
	return llmtest.Reply{Err: fmt.Errorf("%w: connection refused", llm.ErrServiceUnavailable)}
}

func TestDetectLockedAccountSkipsClassifier(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"detected": false}`})
	detector := NewIssueDetector(newTestGateway(gen), nil)

	player := PlayerContext{PlayerID: "p1", AccountStatus: "Locked", LockReason: "suspicious login"}
	result, err := detector.Detect(context.Background(), "I can't log into my account", player)
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.Equal(t, IssueAccount, result.IssueType)
	assert.Equal(t, ImpactCritical, result.PlayerImpact)
	assert.Equal(t, 1.0, result.ConfidenceScore)
	assert.Equal(t, SourceAccountOverride, result.Source)
	assert.Contains(t, result.Description, "suspicious login")
	assert.Zero(t, gen.Calls())
}

func TestDetectLockedAccountWithoutAccessTermUsesClassifier(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"detected": true, "issue_type": "gameplay", "player_impact": "minor", "confidence_score": 0.7}`})
	detector := NewIssueDetector(newTestGateway(gen), nil)

	result, err := detector.Detect(context.Background(), "my pet vanished", PlayerContext{AccountStatus: AccountLocked})
	require.NoError(t, err)
	assert.Equal(t, SourceClassifier, result.Source)
	assert.Equal(t, IssueGameplay, result.IssueType)
	assert.Equal(t, 1, gen.CallsMatching(markerIssue))
}

func TestDetectNormalizesClassifierOutput(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		detected   bool
		issueType  IssueType
		impact     Impact
		confidence float64
	}{
		{
			name:       "well formed",
			reply:      `{"detected": true, "issue_type": "technical", "description": "crash on boot", "player_impact": "severe", "confidence_score": 0.9}`,
			detected:   true,
			issueType:  IssueTechnical,
			impact:     ImpactSevere,
			confidence: 0.9,
		},
		{
			name:       "unknown enums",
			reply:      "Here you go:\n```json\n{\"detected\": true, \"issue_type\": \"billing\", \"player_impact\": \"huge\", \"confidence_score\": 1.7}\n```",
			detected:   true,
			issueType:  IssueNone,
			impact:     ImpactModerate,
			confidence: 1.0,
		},
		{
			name:       "null fields",
			reply:      `{"detected": true, "issue_type": null, "player_impact": null}`,
			detected:   true,
			issueType:  IssueNone,
			impact:     ImpactModerate,
			confidence: 0.5,
		},
		{
			name:       "no issue",
			reply:      `{"detected": false, "issue_type": null, "player_impact": null, "confidence_score": 0.95}`,
			detected:   false,
			confidence: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := llmtest.NewGenerator(llmtest.Reply{Text: tt.reply})
			detector := NewIssueDetector(newTestGateway(gen), nil)

			result, err := detector.Detect(context.Background(), "something happened", PlayerContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.detected, result.Detected)
			assert.Equal(t, tt.issueType, result.IssueType)
			assert.Equal(t, tt.impact, result.PlayerImpact)
			assert.InDelta(t, tt.confidence, result.ConfidenceScore, 1e-9)
			assert.Equal(t, SourceClassifier, result.Source)
		})
	}
}

func TestDetectFallsBackToKeywords(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: "I think the player is upset."})
	detector := NewIssueDetector(newTestGateway(gen), nil)

	result, err := detector.Detect(context.Background(), "The game keeps crashing after the update", PlayerContext{})
	require.NoError(t, err)
	assert.True(t, result.Detected)
	assert.Equal(t, IssueTechnical, result.IssueType)
	assert.Equal(t, ImpactModerate, result.PlayerImpact)
	assert.Equal(t, 0.8, result.ConfidenceScore)
	assert.Equal(t, SourceKeywordFallback, result.Source)

	result, err = detector.Detect(context.Background(), "Thanks for the great event!", PlayerContext{})
	require.NoError(t, err)
	assert.False(t, result.Detected)
	assert.Equal(t, SourceKeywordFallback, result.Source)
}

func TestDetectSurfacesUnavailability(t *testing.T) {
	detector := NewIssueDetector(newTestGateway(llmtest.NewGenerator(unavailable())), nil)

	_, err := detector.Detect(context.Background(), "my game crashed", PlayerContext{})
	assert.ErrorIs(t, err, llm.ErrServiceUnavailable)
}

func TestSentimentNormalizesAndFallsBack(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"tone": "Agitated", "urgency": "HIGH", "repeat_issue": true, "issue_frequency": "very common"}`})
	analyzer := NewSentimentAnalyzer(newTestGateway(gen), nil)

	result, err := analyzer.Analyze(context.Background(), "third time this week!!")
	require.NoError(t, err)
	assert.Equal(t, SentimentResult{
		Tone:           ToneFrustrated,
		Urgency:        UrgencyHigh,
		RepeatIssue:    true,
		IssueFrequency: FrequencyVeryCommon,
	}, result)

	gen = llmtest.NewGenerator(llmtest.Reply{Text: ""})
	analyzer = NewSentimentAnalyzer(newTestGateway(gen), nil)
	result, err = analyzer.Analyze(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, sentimentFallback, result)
}

func TestToneMappings(t *testing.T) {
	tones := []Tone{ToneAngry, ToneFrustrated, ToneConfused, ToneNeutral, ToneAppreciative}
	intensity := []int{8, 6, 4, 3, 2}
	frustration := []int{8, 7, 4, 2, 1}

	for i, tone := range tones {
		assert.Equal(t, intensity[i], ToneIntensity(tone), tone)
		assert.Equal(t, frustration[i], ToneFrustration(tone), tone)
	}
}

func TestValidatorWithoutLogsMakesNoCall(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"contradiction_detected": true}`})
	validator := NewClaimValidator(newTestGateway(gen), nil)

	result, err := validator.Validate(context.Background(), "missing rewards", "  ", IssueDetectionResult{})
	require.NoError(t, err)
	assert.False(t, result.ContradictionDetected)
	assert.Zero(t, gen.Calls())
}

func TestValidatorPhraseFallback(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: "The logs look suspicious to me."})
	validator := NewClaimValidator(newTestGateway(gen), nil)

	result, err := validator.Validate(context.Background(), "missing my event rewards",
		"Rewards were delivered, zero errors", IssueDetectionResult{Detected: true})
	require.NoError(t, err)
	assert.True(t, result.ContradictionDetected)
	assert.True(t, result.EvidenceExists)
	assert.Equal(t, 0.7, result.ConfidenceScore)

	result, err = validator.Validate(context.Background(), "missing my event rewards",
		"grant job timed out", IssueDetectionResult{Detected: true})
	require.NoError(t, err)
	assert.False(t, result.ContradictionDetected)
}

func TestValidatorParsesClassifierOutput(t *testing.T) {
	gen := llmtest.NewGenerator(llmtest.Reply{Text: `{"contradiction_detected": false, "confidence_score": 0.8, "reasoning": "logs show a failed grant", "evidence_exists": true}`})
	validator := NewClaimValidator(newTestGateway(gen), nil)

	result, err := validator.Validate(context.Background(), "missing rewards", "grant failed", IssueDetectionResult{Detected: true})
	require.NoError(t, err)
	assert.Equal(t, ClaimValidation{
		ConfidenceScore: 0.8,
		Reasoning:       "logs show a failed grant",
		EvidenceExists:  true,
	}, result)
	assert.Equal(t, 1, gen.CallsMatching(markerClaim))
}
