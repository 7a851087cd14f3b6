package triage

import (
	"fmt"

	"github.com/guildcare/internal/config"
)

// Baseline is the starting tier and reward bundle for one impact level
type Baseline struct {
	Tier    Tier
	Rewards Bundle
}

// Policy holds the compensation policy constants. They are product decisions
// loaded from configuration.
type Policy struct {
	Baselines            map[Impact]Baseline
	AccountCriticalTier  Tier
	VIPBonusLevel        int
	VIPSpecialistLevel   int
	VIPMultiplier        float64
	UrgencyMultiplier    float64
	ChurnRiskThreshold   int
	ChurnMultiplier      float64
	FrustrationGemStep   int
	ConfidenceNudge      float64
	SpecialistReviewTime string
}

// PolicyFromConfig converts the policy section of the configuration
func PolicyFromConfig(cfg config.PolicyConfig) (Policy, error) {
	accountTier, err := ParseTier(cfg.AccountCriticalTier)
	if err != nil {
		return Policy{}, fmt.Errorf("account critical tier: %w", err)
	}

	p := Policy{
		Baselines:            make(map[Impact]Baseline, len(Impacts)),
		AccountCriticalTier:  accountTier,
		VIPBonusLevel:        cfg.VIPBonusLevel,
		VIPSpecialistLevel:   cfg.VIPSpecialistLevel,
		VIPMultiplier:        cfg.VIPMultiplier,
		UrgencyMultiplier:    cfg.UrgencyMultiplier,
		ChurnRiskThreshold:   cfg.ChurnRiskThreshold,
		ChurnMultiplier:      cfg.ChurnMultiplier,
		FrustrationGemStep:   cfg.FrustrationGemStep,
		ConfidenceNudge:      cfg.ConfidenceNudge,
		SpecialistReviewTime: cfg.SpecialistReview,
	}

	for _, impact := range Impacts {
		rc, ok := cfg.Impacts[string(impact)]
		if !ok {
			return Policy{}, fmt.Errorf("no baseline for impact %s", impact)
		}
		baseline, err := baselineFromConfig(rc)
		if err != nil {
			return Policy{}, fmt.Errorf("impact %s: %w", impact, err)
		}
		p.Baselines[impact] = baseline
	}

	return p, nil
}

// DefaultPolicy returns the policy of the built-in configuration
func DefaultPolicy() Policy {
	p, err := PolicyFromConfig(config.Default().Policy)
	if err != nil {
		panic(fmt.Sprintf("built-in policy is invalid: %v", err))
	}
	return p
}

func baselineFromConfig(rc config.RewardConfig) (Baseline, error) {
	tier, err := ParseTier(rc.Tier)
	if err != nil {
		return Baseline{}, err
	}

	var rewards []Reward
	if rc.Gold > 0 {
		rewards = append(rewards, Gold{Amount: rc.Gold})
	}
	if rc.Gems > 0 {
		rewards = append(rewards, Gems{Amount: rc.Gems})
	}
	for kind, amount := range rc.Resources {
		r, err := NewResource(kind, amount)
		if err != nil {
			return Baseline{}, err
		}
		rewards = append(rewards, r)
	}
	for name, qty := range rc.Items {
		r, err := NewItem(name, qty)
		if err != nil {
			return Baseline{}, err
		}
		rewards = append(rewards, r)
	}

	return Baseline{Tier: tier, Rewards: NewBundle(rewards...)}, nil
}

// baseline returns the baseline for impact, treating an unknown impact as moderate
func (p Policy) baseline(impact Impact) Baseline {
	if b, ok := p.Baselines[impact]; ok {
		return b
	}
	return p.Baselines[ImpactModerate]
}

// ReviewTime estimates how long human review takes for a tier
func ReviewTime(t Tier) string {
	switch t {
	case TierP0:
		return "15-30m"
	case TierP1:
		return "30-60m"
	}
	return "1-2h"
}
