// Package encoding maps categorical values to the numeric codes a trained
// price model expects.
//
// Every categorical feature has a vocabulary: the ordered list of values seen
// during training, where a value's code is its position in that list. A value
// outside the vocabulary is resolved by the feature's FallbackPolicy.
// FallbackFirst substitutes the first code, which keeps pricing running but can
// silently skew a prediction; FallbackStrict reports an encoding error.
package encoding

import (
	"sort"
	"strings"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

// Encoder is what the feature builder needs from a model's vocabularies.
type Encoder interface {
	Encode(feature, value string) (float64, error)
	KnownValues(feature string) []string
}

// FallbackPolicy decides what happens to an unseen categorical value.
type FallbackPolicy string

const (
	FallbackFirst  FallbackPolicy = "first"
	FallbackStrict FallbackPolicy = "strict"
)

// ParseFallbackPolicy accepts "first" and "strict"; empty means first.
func ParseFallbackPolicy(raw string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FallbackFirst:
		return FallbackFirst, nil
	case FallbackStrict:
		return FallbackStrict, nil
	}
	return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown fallback policy %q", raw)
}

type vocabulary struct {
	values []string
	codes  map[string]int
	policy FallbackPolicy
}

// Vocabularies is the default Encoder. It is read-only after construction.
type Vocabularies struct {
	byFeature map[string]*vocabulary
}

// NewVocabularies builds an encoder from per-feature value lists. Duplicate
// values keep their first position. policy applies to every feature unless
// overridden in overrides.
func NewVocabularies(values map[string][]string, policy FallbackPolicy, overrides map[string]FallbackPolicy) (*Vocabularies, error) {
	v := &Vocabularies{byFeature: make(map[string]*vocabulary, len(values))}
	for feature, list := range values {
		voc := &vocabulary{codes: make(map[string]int, len(list)), policy: policy}
		if p, ok := overrides[feature]; ok {
			voc.policy = p
		}
		for _, raw := range list {
			value := strings.TrimSpace(raw)
			if value == "" {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "vocabulary %s contains an empty value", feature)
			}
			if _, seen := voc.codes[value]; seen {
				continue
			}
			voc.codes[value] = len(voc.values)
			voc.values = append(voc.values, value)
		}
		v.byFeature[feature] = voc
	}
	for feature := range overrides {
		if _, ok := v.byFeature[feature]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "fallback override for unknown vocabulary %s", feature)
		}
	}
	return v, nil
}

// Encode returns the code of value in feature's vocabulary, applying the
// fallback policy to unseen values.
func (v *Vocabularies) Encode(feature, value string) (float64, error) {
	code, _, err := v.Lookup(feature, value)
	return code, err
}

// Lookup is Encode that also reports whether value was in the vocabulary.
func (v *Vocabularies) Lookup(feature, value string) (float64, bool, error) {
	voc, ok := v.byFeature[feature]
	if !ok {
		return 0, false, pkgerrors.Newf(pkgerrors.CodeEncoding, "no vocabulary for feature %s", feature).
			WithDetails(map[string]any{"feature": feature, "value": value})
	}
	if code, ok := voc.codes[strings.TrimSpace(value)]; ok {
		return float64(code), true, nil
	}
	if len(voc.values) == 0 {
		return 0, false, pkgerrors.Newf(pkgerrors.CodeEncoding, "vocabulary for %s is empty", feature).
			WithDetails(map[string]any{"feature": feature, "value": value})
	}
	if voc.policy == FallbackStrict {
		return 0, false, pkgerrors.Newf(pkgerrors.CodeEncoding, "value %q is not known for %s", value, feature).
			WithDetails(map[string]any{"feature": feature, "value": value})
	}
	return float64(voc.codes[voc.values[0]]), false, nil
}

// KnownValues returns feature's vocabulary in code order.
func (v *Vocabularies) KnownValues(feature string) []string {
	voc, ok := v.byFeature[feature]
	if !ok {
		return nil
	}
	out := make([]string, len(voc.values))
	copy(out, voc.values)
	return out
}

// Features lists the features that have a vocabulary.
func (v *Vocabularies) Features() []string {
	out := make([]string, 0, len(v.byFeature))
	for f := range v.byFeature {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
