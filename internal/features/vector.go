package features

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FeatureVector is one item's model input. Names and Values are parallel
// and ordered exactly like the model's columns.
type FeatureVector struct {
	Names  []string
	Values []float64
	// Fallbacks lists columns whose raw value was unseen and substituted.
	Fallbacks []string
}

func (v FeatureVector) Len() int {
	return len(v.Values)
}

// Get returns the value of the named column.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// Row returns a copy of the values for the model call.
func (v FeatureVector) Row() []float64 {
	out := make([]float64, len(v.Values))
	copy(out, v.Values)
	return out
}

type pair struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MarshalJSON keeps column order, which a JSON object would not guarantee.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	pairs := make([]pair, len(v.Names))
	for i := range v.Names {
		pairs[i] = pair{Name: v.Names[i], Value: v.Values[i]}
	}
	return json.Marshal(struct {
		Features  []pair   `json:"features"`
		Fallbacks []string `json:"fallbacks,omitempty"`
	}{pairs, v.Fallbacks})
}

func (v FeatureVector) String() string {
	var b strings.Builder
	for i := range v.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%g", v.Names[i], v.Values[i])
	}
	return b.String()
}
