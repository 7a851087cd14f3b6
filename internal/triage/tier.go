package triage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is the compensation severity ranking. P0 is the most severe and most
// generous tier; P5 means no compensation. Lower values are more severe.
type Tier int

const (
	TierP0 Tier = iota
	TierP1
	TierP2
	TierP3
	TierP4
	TierP5
)

// String returns the tier label, e.g. "P2"
func (t Tier) String() string {
	if t < TierP0 || t > TierP5 {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return fmt.Sprintf("P%d", int(t))
}

// ParseTier parses labels such as "P3" or "p3"
func ParseTier(s string) (Tier, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || s[0] != 'P' || s[1] < '0' || s[1] > '5' {
		return TierP5, fmt.Errorf("invalid tier %q", s)
	}
	return Tier(s[1] - '0'), nil
}

// Raise moves the tier one step toward P0
func (t Tier) Raise() Tier {
	if t <= TierP0 {
		return TierP0
	}
	return t - 1
}

// MoreSevereThan reports whether t ranks above other
func (t Tier) MoreSevereThan(other Tier) bool {
	return t < other
}

// AtLeast reports whether t is as severe as other or more
func (t Tier) AtLeast(other Tier) bool {
	return t <= other
}

// MarshalJSON encodes the tier as its label
func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a tier label
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
