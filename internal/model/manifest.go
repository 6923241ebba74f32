// Package model loads the price model collaborator: the manifest that
// declares the model's feature columns and vocabularies, and the model
// implementations that turn a feature row into a price.
package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/encoding"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/features"
)

// Manifest describes one trained model version.
type Manifest struct {
	Name           string              `yaml:"name"`
	Version        string              `yaml:"version"`
	Aggregate      string              `yaml:"aggregate"`
	OutcomeDefault string              `yaml:"outcome_default"`
	Fallback       string              `yaml:"fallback"`
	Strict         []string            `yaml:"strict,omitempty"`
	Features       []features.Column   `yaml:"features"`
	Vocabularies   map[string][]string `yaml:"vocabularies"`
	Linear         *LinearSpec         `yaml:"linear,omitempty"`
}

// LinearSpec holds the coefficients of the local linear model, keyed by
// column name. Columns without a coefficient contribute nothing.
type LinearSpec struct {
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses YAML data into a Manifest and applies defaults.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model manifest: %w", err)
	}
	applyDefaults(&m)
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func applyDefaults(m *Manifest) {
	if m.Version == "" {
		m.Version = "1"
	}
	if m.Aggregate == "" {
		m.Aggregate = string(cart.AggregateQuantity)
	}
	if m.OutcomeDefault == "" {
		m.OutcomeDefault = features.DefaultOutcome
	}
	if m.Fallback == "" {
		m.Fallback = string(encoding.FallbackFirst)
	}
	for i := range m.Features {
		f := &m.Features[i]
		f.Name = strings.TrimSpace(f.Name)
		if f.Source == "" {
			f.Source = features.Source(f.Name)
		}
	}
}

func (m *Manifest) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeEncoding, "model manifest has no name")
	}
	if len(m.Features) == 0 {
		return pkgerrors.Newf(pkgerrors.CodeEncoding, "model %s declares no features", m.Name)
	}
	if _, err := cart.ParseAggregateKind(m.Aggregate); err != nil {
		return err
	}
	if _, err := encoding.ParseFallbackPolicy(m.Fallback); err != nil {
		return err
	}
	if m.Linear != nil {
		names := make(map[string]bool, len(m.Features))
		for _, f := range m.Features {
			names[f.Name] = true
		}
		for col := range m.Linear.Coefficients {
			if !names[col] {
				return pkgerrors.Newf(pkgerrors.CodeEncoding, "coefficient for undeclared column %s", col)
			}
		}
	}
	return nil
}

// Label identifies the model in logs and metrics.
func (m *Manifest) Label() string {
	return m.Name + "@" + m.Version
}

// Columns returns the feature columns in model order.
func (m *Manifest) Columns() []features.Column {
	out := make([]features.Column, len(m.Features))
	copy(out, m.Features)
	return out
}

// ColumnNames returns the model's column labels in order.
func (m *Manifest) ColumnNames() []string {
	out := make([]string, len(m.Features))
	for i, f := range m.Features {
		out[i] = f.Name
	}
	return out
}

// AggregateKind returns the cart-wide aggregate the model expects. A
// non-empty override replaces the manifest value.
func (m *Manifest) AggregateKind(override string) (cart.AggregateKind, error) {
	if strings.TrimSpace(override) != "" {
		return cart.ParseAggregateKind(override)
	}
	return cart.ParseAggregateKind(m.Aggregate)
}

// Encoder builds the vocabularies. A non-empty fallback override replaces
// the manifest's default policy; per-feature strict entries always apply.
func (m *Manifest) Encoder(fallbackOverride string) (*encoding.Vocabularies, error) {
	raw := m.Fallback
	if strings.TrimSpace(fallbackOverride) != "" {
		raw = fallbackOverride
	}
	policy, err := encoding.ParseFallbackPolicy(raw)
	if err != nil {
		return nil, err
	}
	var overrides map[string]encoding.FallbackPolicy
	if len(m.Strict) > 0 {
		overrides = make(map[string]encoding.FallbackPolicy, len(m.Strict))
		for _, f := range m.Strict {
			overrides[strings.TrimSpace(f)] = encoding.FallbackStrict
		}
	}
	return encoding.NewVocabularies(m.Vocabularies, policy, overrides)
}

// Builder wires the manifest's columns and vocabularies into a feature
// builder.
func (m *Manifest) Builder(enc encoding.Encoder, aggregate cart.AggregateKind) (*features.Builder, error) {
	return features.NewBuilder(m.Columns(), enc, features.Options{
		Aggregate: aggregate,
		Outcome:   m.OutcomeDefault,
	})
}
