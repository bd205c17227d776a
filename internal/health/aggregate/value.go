package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/2beens/healthdash/internal/health"
)

// Value is a bucket value: either a plain scalar or a category breakdown.
// Which one is decided once, at aggregation time.
type Value struct {
	scalar    float64
	breakdown map[string]float64
}

func Scalar(v float64) Value {
	return Value{scalar: v}
}

// Breakdown builds a category breakdown. The Total entry is (re)computed
// as the sum of all other entries.
func Breakdown(categories map[string]float64) Value {
	b := make(map[string]float64, len(categories)+1)
	for _, category := range sortedKeys(categories) {
		if category == health.ActivityTotal {
			continue
		}
		b[category] = categories[category]
	}
	total := 0.0
	for _, category := range sortedKeys(b) {
		total += b[category]
	}
	b[health.ActivityTotal] = total
	return Value{breakdown: b}
}

func (v Value) IsBreakdown() bool {
	return v.breakdown != nil
}

// Total returns the scalar, or the Total entry of a breakdown.
func (v Value) Total() float64 {
	if v.breakdown != nil {
		return v.breakdown[health.ActivityTotal]
	}
	return v.scalar
}

// Get returns the value of a single category, 0 when absent.
// For scalars every category lookup except Total yields 0.
func (v Value) Get(category string) float64 {
	if v.breakdown == nil {
		if category == health.ActivityTotal {
			return v.scalar
		}
		return 0
	}
	return v.breakdown[category]
}

// Categories returns the breakdown categories, sorted, Total excluded.
func (v Value) Categories() []string {
	var categories []string
	for _, category := range sortedKeys(v.breakdown) {
		if category != health.ActivityTotal {
			categories = append(categories, category)
		}
	}
	return categories
}

func (v Value) String() string {
	if v.breakdown == nil {
		return fmt.Sprintf("%g", v.scalar)
	}
	return fmt.Sprintf("%v", v.breakdown)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.breakdown == nil {
		return json.Marshal(v.scalar)
	}
	return json.Marshal(v.breakdown)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var b map[string]float64
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Value{breakdown: b}
		return nil
	}
	var s float64
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Value{scalar: s}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
