package model

import (
	"context"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

// LinearModel is a local price model: intercept plus a weighted sum of the
// row. It stands in when no remote model is configured.
type LinearModel struct {
	name      string
	intercept float64
	weights   []float64
}

// LinearModel builds the local model from the manifest's linear section.
func (m *Manifest) LinearModel() (*LinearModel, error) {
	if m.Linear == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeEncoding, "model %s has no linear coefficients", m.Name)
	}
	weights := make([]float64, len(m.Features))
	for i, f := range m.Features {
		weights[i] = m.Linear.Coefficients[f.Name]
	}
	return &LinearModel{
		name:      m.Label(),
		intercept: m.Linear.Intercept,
		weights:   weights,
	}, nil
}

func (l *LinearModel) Name() string {
	return l.name
}

func (l *LinearModel) Predict(ctx context.Context, row []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "prediction cancelled")
	}
	if len(row) != len(l.weights) {
		return 0, pkgerrors.Newf(pkgerrors.CodePrediction, "row has %d values, model expects %d", len(row), len(l.weights))
	}
	sum := l.intercept
	for i, v := range row {
		sum += l.weights[i] * v
	}
	return sum, nil
}
