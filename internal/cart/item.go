package cart

import (
	"strings"

	"github.com/Simplici0/partquote/internal/geometry"
	"github.com/Simplici0/partquote/internal/registry"
)

// ItemParams is what a user submits to add or replace a line item.
// Density is optional: zero means "resolve from the registry".
type ItemParams struct {
	ID              string  `json:"id" validate:"required"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	Shape           string  `json:"shape" validate:"required"`
	DiameterMM      float64 `json:"diameter_mm" validate:"gt=0"`
	LengthMM        float64 `json:"length_mm" validate:"gt=0"`
	Family          string  `json:"material_family" validate:"required"`
	Grade           string  `json:"grade"`
	Density         float64 `json:"density" validate:"gte=0"`
	MaterialCost    float64 `json:"material_cost" validate:"gte=0"`
	CooperationCost float64 `json:"cooperation_cost" validate:"gte=0"`
	TimePerUnitH    float64 `json:"time_per_unit_h" validate:"gt=0"`
	Complexity      int     `json:"complexity" validate:"min=1,max=5"`
}

func (p ItemParams) normalized() ItemParams {
	p.ID = strings.TrimSpace(p.ID)
	p.Shape = strings.TrimSpace(p.Shape)
	p.Family = strings.TrimSpace(p.Family)
	p.Grade = strings.TrimSpace(p.Grade)
	return p
}

// LineItem is one component in a cart. Weight and UnitVolume are derived
// from Shape, DiameterMM, LengthMM and Density when the item is stored and
// cannot be set directly on the cart's copy.
type LineItem struct {
	Key             string          `json:"key"`
	ID              string          `json:"id"`
	Quantity        int             `json:"quantity"`
	Shape           geometry.Shape  `json:"shape"`
	DiameterMM      float64         `json:"diameter_mm"`
	LengthMM        float64         `json:"length_mm"`
	Family          registry.Family `json:"material_family"`
	Grade           string          `json:"grade"`
	Density         float64         `json:"density"`
	MaterialCost    float64         `json:"material_cost"`
	CooperationCost float64         `json:"cooperation_cost"`
	TimePerUnitH    float64         `json:"time_per_unit_h"`
	Complexity      int             `json:"complexity"`
	WeightKg        float64         `json:"weight_kg"`
	UnitVolumeM3    float64         `json:"unit_volume_m3"`
	PredictedPrice  *float64        `json:"predicted_price"`
}

// Priced reports whether the item carries a price for the current cart.
func (i LineItem) Priced() bool {
	return i.PredictedPrice != nil
}

// LineTotal is unit price times quantity; ok is false for unpriced items.
func (i LineItem) LineTotal() (total float64, ok bool) {
	if i.PredictedPrice == nil {
		return 0, false
	}
	return *i.PredictedPrice * float64(i.Quantity), true
}

func (i *LineItem) snapshot() LineItem {
	out := *i
	if i.PredictedPrice != nil {
		p := *i.PredictedPrice
		out.PredictedPrice = &p
	}
	return out
}

func newLineItem(reg *registry.Registry, key string, raw ItemParams) (*LineItem, error) {
	p := raw.normalized()
	if err := validateStruct(p); err != nil {
		return nil, err
	}

	shape, err := geometry.ParseShape(p.Shape)
	if err != nil {
		return nil, err
	}
	family := registry.Family(p.Family)
	density, err := reg.Density(family, p.Grade, p.Density)
	if err != nil {
		return nil, err
	}
	weight, err := geometry.Weight(shape, p.DiameterMM, p.LengthMM, density)
	if err != nil {
		return nil, err
	}
	volume, err := geometry.UnitVolume(p.DiameterMM, p.LengthMM)
	if err != nil {
		return nil, err
	}

	return &LineItem{
		Key:             key,
		ID:              p.ID,
		Quantity:        p.Quantity,
		Shape:           shape,
		DiameterMM:      p.DiameterMM,
		LengthMM:        p.LengthMM,
		Family:          family,
		Grade:           p.Grade,
		Density:         density,
		MaterialCost:    p.MaterialCost,
		CooperationCost: p.CooperationCost,
		TimePerUnitH:    p.TimePerUnitH,
		Complexity:      p.Complexity,
		WeightKg:        weight,
		UnitVolumeM3:    volume,
	}, nil
}
