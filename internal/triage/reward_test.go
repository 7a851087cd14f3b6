package triage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardConstructorsRejectEmptyGrants(t *testing.T) {
	_, err := NewGold(0)
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = NewGems(-5)
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = NewResource(" ", 10)
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = NewItem("revive token", 0)
	assert.ErrorIs(t, err, ErrInvalidReward)

	item, err := NewItem(" revive token ", 2)
	require.NoError(t, err)
	assert.Equal(t, Item{Name: "revive token", Qty: 2}, item)
}

func TestBundleMergesAndIsImmutable(t *testing.T) {
	base := NewBundle(Gold{Amount: 100}, Gems{Amount: 10}, Resource{Type: "energy", Amount: 5})
	more := base.With(Gold{Amount: 50}).With(Resource{Type: "energy", Amount: 5})

	assert.Equal(t, 100, base.Gold())
	assert.Equal(t, 5, base.Resources()["energy"])
	assert.Equal(t, 150, more.Gold())
	assert.Equal(t, 10, more.Resources()["energy"])

	res := more.Resources()
	res["energy"] = 999
	assert.Equal(t, 10, more.Resources()["energy"])
}

func TestBundleScaleRoundsToNearestUnit(t *testing.T) {
	b := NewBundle(Gold{Amount: 250}, Gems{Amount: 25})

	assert.Equal(t, 375, b.ScaleGold(1.5).Gold())
	assert.Equal(t, 25, b.ScaleGold(1.5).Gems())
	assert.Equal(t, 50, b.ScaleGems(2).Gems())
}

func TestBundleString(t *testing.T) {
	assert.Equal(t, "no compensation", Bundle{}.String())

	b := NewBundle(Item{Name: "skin", Qty: 1}, Gems{Amount: 20}, Gold{Amount: 250})
	assert.Equal(t, "250 gold, 20 gems, 1x skin", b.String())
}

func TestBundleJSON(t *testing.T) {
	b := NewBundle(Gold{Amount: 1000}, Resource{Type: "energy", Amount: 50}, Item{Name: "chest", Qty: 2})

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"gold":1000,"resources":{"energy":50},"items":[{"name":"chest","qty":2}]}`, string(data))

	var decoded Bundle
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b.Rewards(), decoded.Rewards())

	err = json.Unmarshal([]byte(`{"gold":-1}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestDenialIsConsistent(t *testing.T) {
	d := Denial("no")
	assert.True(t, d.Denied)
	assert.Equal(t, TierP5, d.Tier)
	assert.True(t, d.Consistent())
	assert.False(t, d.GrantsCompensation())

	broken := CompensationRecommendation{Denied: true, Tier: TierP5, SuggestedCompensation: NewBundle(Gold{Amount: 1})}
	assert.False(t, broken.Consistent())
}

func TestTierOrdering(t *testing.T) {
	assert.Equal(t, TierP1, TierP2.Raise())
	assert.Equal(t, TierP0, TierP0.Raise())
	assert.True(t, TierP0.MoreSevereThan(TierP1))
	assert.True(t, TierP1.AtLeast(TierP1))
	assert.False(t, TierP3.AtLeast(TierP1))

	tier, err := ParseTier(" p3 ")
	require.NoError(t, err)
	assert.Equal(t, TierP3, tier)

	_, err = ParseTier("P9")
	assert.Error(t, err)

	data, err := json.Marshal(TierP2)
	require.NoError(t, err)
	assert.Equal(t, `"P2"`, string(data))
}
