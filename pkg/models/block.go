// Package models defines the core domain models for the block marketplace.
package models

import (
	"encoding/json"
	"fmt"
)

// Scalar is a JSON-serializable scalar produced by a block run: a string,
// a number, or a boolean. Block outputs are maps of output key to Scalar.
type Scalar struct {
	value any
}

func StringScalar(s string) Scalar  { return Scalar{value: s} }
func NumberScalar(f float64) Scalar { return Scalar{value: f} }
func BoolScalar(b bool) Scalar      { return Scalar{value: b} }

// String renders the scalar the way a downstream block input sees it.
func (s Scalar) String() string {
	switch v := s.value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}

		return "false"
	case float64:
		return formatNumber(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsZero reports whether the scalar carries no value.
func (s Scalar) IsZero() bool {
	return s.value == nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch v.(type) {
	case nil, string, bool, float64:
		s.value = v

		return nil
	default:
		return fmt.Errorf("scalar must be a string, number, or boolean, got %T", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}

	return fmt.Sprintf("%g", f)
}

// BlockInput declares one input a block accepts.
type BlockInput struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required,omitempty"`
}

// BlockOutput declares one output a block produces.
type BlockOutput struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// BlockDefinition is catalog data for one block type: its identity, billing
// slugs, token cost, and declared input/output schema. Definitions are static
// and read-only once registered.
type BlockDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// FeatureSlug gates execution behind a billing entitlement; "free"
	// blocks skip the entitlement check entirely.
	FeatureSlug string `json:"feature_slug"`
	// PriceSlug identifies the checkout price used to unlock the block.
	PriceSlug string `json:"price_slug"`
	// UsageMeterSlug, when set, is reported to billing after each run.
	UsageMeterSlug string `json:"usage_meter_slug,omitempty"`

	UsesAI    bool `json:"uses_ai"`
	TokenCost int  `json:"token_cost"`

	Inputs  []BlockInput  `json:"inputs"`
	Outputs []BlockOutput `json:"outputs"`
}

// FreeFeatureSlug marks blocks that require no entitlement or tokens.
const FreeFeatureSlug = "free"

// IsFree reports whether the block runs without entitlement or token checks.
func (d *BlockDefinition) IsFree() bool {
	return d.FeatureSlug == FreeFeatureSlug
}

// Input returns the declared input with the given key, if any.
func (d *BlockDefinition) Input(key string) (BlockInput, bool) {
	for _, in := range d.Inputs {
		if in.Key == key {
			return in, true
		}
	}

	return BlockInput{}, false
}
