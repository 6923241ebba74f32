package features

// Source names a value the builder knows how to produce. A model column
// binds to exactly one source.
type Source string

// Order-level sources.
const (
	QuoteQuarter    Source = "quote_quarter"
	QuoteMonth      Source = "quote_month"
	QuoteTimestamp  Source = "quote_timestamp"
	CartAggregate   Source = "cart_aggregate"
	CustomerLoyalty Source = "customer_loyalty"
	CustomerCountry Source = "customer_country"
	Outcome         Source = "outcome"
)

// Item-level sources.
const (
	Quantity        Source = "quantity"
	TimePerUnit     Source = "time_per_unit_h"
	CooperationCost Source = "cooperation_cost"
	Complexity      Source = "complexity"
	ComplexityLabel Source = "complexity_label"
	Diameter        Source = "diameter_mm"
	Length          Source = "length_mm"
	Density         Source = "density"
	MaterialCost    Source = "material_cost"
	Weight          Source = "weight_kg"
	MaterialFamily  Source = "material_family"
	MaterialGrade   Source = "material_grade"
	Shape           Source = "shape"
)

var categorical = map[Source]bool{
	CustomerCountry: true,
	Outcome:         true,
	ComplexityLabel: true,
	MaterialFamily:  true,
	MaterialGrade:   true,
	Shape:           true,
}

var orderLevel = map[Source]bool{
	QuoteQuarter:    true,
	QuoteMonth:      true,
	QuoteTimestamp:  true,
	CartAggregate:   true,
	CustomerLoyalty: true,
	CustomerCountry: true,
	Outcome:         true,
}

var catalog = map[Source]bool{
	QuoteQuarter:    true,
	QuoteMonth:      true,
	QuoteTimestamp:  true,
	CartAggregate:   true,
	CustomerLoyalty: true,
	CustomerCountry: true,
	Outcome:         true,
	Quantity:        true,
	TimePerUnit:     true,
	CooperationCost: true,
	Complexity:      true,
	ComplexityLabel: true,
	Diameter:        true,
	Length:          true,
	Density:         true,
	MaterialCost:    true,
	Weight:          true,
	MaterialFamily:  true,
	MaterialGrade:   true,
	Shape:           true,
}

// Known reports whether s is in the builder's catalog.
func Known(s Source) bool {
	return catalog[s]
}

// Categorical reports whether s is encoded through the vocabularies.
func Categorical(s Source) bool {
	return categorical[s]
}

// itemLevel reports whether s is read from the line item rather than the order.
func itemLevel(s Source) bool {
	return catalog[s] && !orderLevel[s]
}
