package triage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// RewardKind tags a reward variant
type RewardKind string

const (
	KindGold     RewardKind = "gold"
	KindGems     RewardKind = "gems"
	KindResource RewardKind = "resource"
	KindItem     RewardKind = "item"
)

// Reward is one compensation grant. The variants are Gold, Gems, Resource and
// Item; use the New* constructors, which reject empty or negative grants.
type Reward interface {
	Kind() RewardKind
	String() string
	isReward()
}

// Gold is soft currency
type Gold struct{ Amount int }

// Gems is premium currency
type Gems struct{ Amount int }

// Resource is a stackable in-game resource such as energy
type Resource struct {
	Type   string
	Amount int
}

// Item is a named inventory item
type Item struct {
	Name string
	Qty  int
}

func (Gold) Kind() RewardKind     { return KindGold }
func (Gems) Kind() RewardKind     { return KindGems }
func (Resource) Kind() RewardKind { return KindResource }
func (Item) Kind() RewardKind     { return KindItem }

func (g Gold) String() string     { return fmt.Sprintf("%d gold", g.Amount) }
func (g Gems) String() string     { return fmt.Sprintf("%d gems", g.Amount) }
func (r Resource) String() string { return fmt.Sprintf("%d %s", r.Amount, r.Type) }
func (i Item) String() string     { return fmt.Sprintf("%dx %s", i.Qty, i.Name) }

func (Gold) isReward()     {}
func (Gems) isReward()     {}
func (Resource) isReward() {}
func (Item) isReward()     {}

// NewGold creates a gold reward
func NewGold(amount int) (Gold, error) {
	if amount <= 0 {
		return Gold{}, fmt.Errorf("%w: gold amount must be positive, got %d", ErrInvalidReward, amount)
	}
	return Gold{Amount: amount}, nil
}

// NewGems creates a gems reward
func NewGems(amount int) (Gems, error) {
	if amount <= 0 {
		return Gems{}, fmt.Errorf("%w: gems amount must be positive, got %d", ErrInvalidReward, amount)
	}
	return Gems{Amount: amount}, nil
}

// NewResource creates a resource reward
func NewResource(kind string, amount int) (Resource, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return Resource{}, fmt.Errorf("%w: resource kind is required", ErrInvalidReward)
	}
	if amount <= 0 {
		return Resource{}, fmt.Errorf("%w: %s amount must be positive, got %d", ErrInvalidReward, kind, amount)
	}
	return Resource{Type: kind, Amount: amount}, nil
}

// NewItem creates an item reward
func NewItem(name string, qty int) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("%w: item name is required", ErrInvalidReward)
	}
	if qty <= 0 {
		return Item{}, fmt.Errorf("%w: %s quantity must be positive, got %d", ErrInvalidReward, name, qty)
	}
	return Item{Name: name, Qty: qty}, nil
}

// Bundle is an immutable set of rewards. Grants of the same kind are merged.
type Bundle struct {
	gold      int
	gems      int
	resources map[string]int
	items     map[string]int
}

// NewBundle builds a bundle from validated rewards
func NewBundle(rewards ...Reward) Bundle {
	var b Bundle
	for _, r := range rewards {
		b = b.With(r)
	}
	return b
}

// With returns a copy of the bundle with r merged in
func (b Bundle) With(r Reward) Bundle {
	out := b.clone()
	switch v := r.(type) {
	case Gold:
		out.gold += v.Amount
	case Gems:
		out.gems += v.Amount
	case Resource:
		if out.resources == nil {
			out.resources = make(map[string]int)
		}
		out.resources[v.Type] += v.Amount
	case Item:
		if out.items == nil {
			out.items = make(map[string]int)
		}
		out.items[v.Name] += v.Qty
	}
	return out
}

// Gold returns the total gold in the bundle
func (b Bundle) Gold() int { return b.gold }

// Gems returns the total gems in the bundle
func (b Bundle) Gems() int { return b.gems }

// Resources returns a copy of the resource grants
func (b Bundle) Resources() map[string]int { return copyCounts(b.resources) }

// Items returns a copy of the item grants
func (b Bundle) Items() map[string]int { return copyCounts(b.items) }

// IsEmpty reports whether the bundle grants nothing
func (b Bundle) IsEmpty() bool {
	return b.gold == 0 && b.gems == 0 && len(b.resources) == 0 && len(b.items) == 0
}

// Rewards returns the bundle as reward variants in a stable order
func (b Bundle) Rewards() []Reward {
	var out []Reward
	if b.gold > 0 {
		out = append(out, Gold{Amount: b.gold})
	}
	if b.gems > 0 {
		out = append(out, Gems{Amount: b.gems})
	}
	for _, k := range sortedKeys(b.resources) {
		out = append(out, Resource{Type: k, Amount: b.resources[k]})
	}
	for _, k := range sortedKeys(b.items) {
		out = append(out, Item{Name: k, Qty: b.items[k]})
	}
	return out
}

// ScaleGold multiplies gold by factor, rounding to the nearest unit
func (b Bundle) ScaleGold(factor float64) Bundle {
	out := b.clone()
	out.gold = scale(out.gold, factor)
	return out
}

// ScaleGems multiplies gems by factor, rounding to the nearest unit
func (b Bundle) ScaleGems(factor float64) Bundle {
	out := b.clone()
	out.gems = scale(out.gems, factor)
	return out
}

// String lists the rewards, e.g. "500 gold, 50 gems"
func (b Bundle) String() string {
	rewards := b.Rewards()
	if len(rewards) == 0 {
		return "no compensation"
	}
	parts := make([]string, len(rewards))
	for i, r := range rewards {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

type bundleJSON struct {
	Gold      int            `json:"gold,omitempty"`
	Gems      int            `json:"gems,omitempty"`
	Resources map[string]int `json:"resources,omitempty"`
	Items     []itemJSON     `json:"items,omitempty"`
}

type itemJSON struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// MarshalJSON encodes the bundle as {gold?, gems?, resources?, items?}
func (b Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{Gold: b.gold, Gems: b.gems, Resources: b.resources}
	for _, k := range sortedKeys(b.items) {
		out.Items = append(out.Items, itemJSON{Name: k, Qty: b.items[k]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes and validates a bundle
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var in bundleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var rewards []Reward
	if in.Gold != 0 {
		r, err := NewGold(in.Gold)
		if err != nil {
			return err
		}
		rewards = append(rewards, r)
	}
	if in.Gems != 0 {
		r, err := NewGems(in.Gems)
		if err != nil {
			return err
		}
		rewards = append(rewards, r)
	}
	for kind, amount := range in.Resources {
		r, err := NewResource(kind, amount)
		if err != nil {
			return err
		}
		rewards = append(rewards, r)
	}
	for _, it := range in.Items {
		r, err := NewItem(it.Name, it.Qty)
		if err != nil {
			return err
		}
		rewards = append(rewards, r)
	}

	*b = NewBundle(rewards...)
	return nil
}

func (b Bundle) clone() Bundle {
	return Bundle{
		gold:      b.gold,
		gems:      b.gems,
		resources: copyCounts(b.resources),
		items:     copyCounts(b.items),
	}
}

func copyCounts(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scale(v int, factor float64) int {
	return int(math.Round(float64(v) * factor))
}
