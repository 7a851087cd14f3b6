package triage

// CompensationRecommendation is the recommender's proposal for one case.
// A denied recommendation always has tier P5 and an empty bundle; build one
// with Denial rather than by hand.
type CompensationRecommendation struct {
	Tier                  Tier   `json:"tier"`
	Reasoning             string `json:"reasoning"`
	SuggestedCompensation Bundle `json:"suggested_compensation"`
	RequiresHumanReview   bool   `json:"requires_human_review"`
	EstimatedReviewTime   string `json:"estimated_review_time,omitempty"`
	Denied                bool   `json:"denied"`
}

// Denial builds an automatic rejection with no compensation
func Denial(reasoning string) CompensationRecommendation {
	return CompensationRecommendation{
		Tier:      TierP5,
		Reasoning: reasoning,
		Denied:    true,
	}
}

// Consistent reports whether the denial invariant holds
func (r CompensationRecommendation) Consistent() bool {
	if !r.Denied {
		return true
	}
	return r.Tier == TierP5 && r.SuggestedCompensation.IsEmpty()
}

// GrantsCompensation reports whether accepting the recommendation grants anything
func (r CompensationRecommendation) GrantsCompensation() bool {
	return !r.Denied && !r.SuggestedCompensation.IsEmpty()
}
