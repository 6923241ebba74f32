package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/partquote/internal/cart"
	"github.com/Simplici0/partquote/internal/encoding"
	pkgerrors "github.com/Simplici0/partquote/internal/errors"
	"github.com/Simplici0/partquote/internal/registry"
)

var testColumns = []Column{
	{Name: "quote_quarter"},
	{Name: "n_komponent", Source: CartAggregate},
	{Name: "quantity"},
	{Name: "time_per_unit_h"},
	{Name: "customer_country"},
	{Name: "material_family"},
	{Name: "shape"},
	{Name: "weight_kg"},
	{Name: "outcome"},
	{Name: "customer_loyalty"},
}

func testEncoder(t *testing.T) *encoding.Vocabularies {
	t.Helper()
	enc, err := encoding.NewVocabularies(map[string][]string{
		"customer_country": {"SK", "CZ", "DE", "AT"},
		"material_family":  {"OCEL", "NEREZ", "FAREBNÉ KOVY", "PLAST"},
		"shape":            {"KR", "STV", "PL"},
		"outcome":          {"A", "N"},
	}, encoding.FallbackFirst, nil)
	require.NoError(t, err)
	return enc
}

func testCart(t *testing.T) *cart.Cart {
	t.Helper()
	c := cart.New(registry.Default())
	require.NoError(t, c.SetOrder(cart.OrderParams{
		QuoteDate: time.Date(2024, time.August, 14, 0, 0, 0, 0, time.UTC),
		Customer:  "Tatra Hydraulik",
	}))
	return c
}

func item(id string, qty int, family, shape string) cart.ItemParams {
	return cart.ItemParams{
		ID:           id,
		Quantity:     qty,
		Shape:        shape,
		DiameterMM:   20,
		LengthMM:     100,
		Family:       family,
		MaterialCost: 2,
		TimePerUnitH: 0.25,
		Complexity:   2,
	}
}

func TestBuildFollowsModelOrder(t *testing.T) {
	c := testCart(t)
	a, err := c.AddItem(item("A", 10, "OCEL", "KR"))
	require.NoError(t, err)
	b, err := c.AddItem(item("B", 25, "PLAST", "PL"))
	require.NoError(t, err)

	builder, err := NewBuilder(testColumns, testEncoder(t), Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	va, err := builder.Build(a, c)
	require.NoError(t, err)
	vb, err := builder.Build(b, c)
	require.NoError(t, err)

	expected := []string{
		"quote_quarter", "n_komponent", "quantity", "time_per_unit_h", "customer_country",
		"material_family", "shape", "weight_kg", "outcome", "customer_loyalty",
	}
	assert.Equal(t, expected, va.Names)
	assert.Equal(t, va.Names, vb.Names)
	assert.Equal(t, len(expected), va.Len())

	quarter, _ := va.Get("quote_quarter")
	assert.Equal(t, 3.0, quarter)
	total, _ := va.Get("n_komponent")
	assert.Equal(t, 35.0, total)
	qty, _ := vb.Get("quantity")
	assert.Equal(t, 25.0, qty)

	family, _ := vb.Get("material_family")
	assert.Equal(t, 3.0, family)
	shape, _ := vb.Get("shape")
	assert.Equal(t, 2.0, shape)
	outcome, _ := va.Get("outcome")
	assert.Equal(t, 0.0, outcome)
	loyalty, _ := va.Get("customer_loyalty")
	assert.Equal(t, c.Order().Loyalty, loyalty)
	assert.Empty(t, va.Fallbacks)
}

func TestAggregateTracksCartComposition(t *testing.T) {
	c := testCart(t)
	builder, err := NewBuilder(testColumns, testEncoder(t), Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	_, err = c.AddItem(item("A", 10, "OCEL", "KR"))
	require.NoError(t, err)
	_, err = c.AddItem(item("B", 25, "OCEL", "KR"))
	require.NoError(t, err)
	_, err = c.AddItem(item("C", 5, "OCEL", "KR"))
	require.NoError(t, err)

	for _, it := range c.Items() {
		vec, err := builder.Build(it, c)
		require.NoError(t, err)
		total, ok := vec.Get("n_komponent")
		require.True(t, ok)
		assert.Equal(t, 40.0, total, it.ID)
	}
}

func TestVolumeAggregate(t *testing.T) {
	c := testCart(t)
	builder, err := NewBuilder(testColumns, testEncoder(t), Options{Aggregate: cart.AggregateVolume})
	require.NoError(t, err)

	it, err := c.AddItem(item("A", 4, "OCEL", "KR"))
	require.NoError(t, err)

	vec, err := builder.Build(it, c)
	require.NoError(t, err)
	total, _ := vec.Get("n_komponent")
	assert.InDelta(t, 4*it.UnitVolumeM3, total, 1e-12)
}

func TestQuarterBoundaries(t *testing.T) {
	builder, err := NewBuilder([]Column{{Name: "q", Source: QuoteQuarter}, {Name: "m", Source: QuoteMonth}},
		testEncoder(t), Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	cases := map[time.Month]float64{
		time.January: 1, time.March: 1, time.April: 2, time.June: 2,
		time.July: 3, time.September: 3, time.October: 4, time.December: 4,
	}
	for month, quarter := range cases {
		c := cart.New(registry.Default())
		require.NoError(t, c.SetOrder(cart.OrderParams{
			QuoteDate: time.Date(2024, month, 1, 0, 0, 0, 0, time.UTC),
			Customer:  "Tatra Hydraulik",
		}))
		it, err := c.AddItem(item("A", 1, "OCEL", "KR"))
		require.NoError(t, err)

		vec, err := builder.Build(it, c)
		require.NoError(t, err)
		assert.Equal(t, []float64{quarter, float64(month)}, vec.Values, month.String())
	}
}

func TestUnknownValueFallsBackAndIsReported(t *testing.T) {
	c := cart.New(registry.Default())
	require.NoError(t, c.SetOrder(cart.OrderParams{
		QuoteDate: time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC),
		Customer:  "Nordic Pumps",
		Country:   "NO",
	}))
	it, err := c.AddItem(item("A", 1, "OCEL", "KR"))
	require.NoError(t, err)

	builder, err := NewBuilder(testColumns, testEncoder(t), Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	vec, err := builder.Build(it, c)
	require.NoError(t, err)
	country, _ := vec.Get("customer_country")
	assert.Equal(t, 0.0, country)
	assert.Equal(t, []string{"customer_country"}, vec.Fallbacks)
}

func TestStrictVocabularyRejectsUnknownValue(t *testing.T) {
	enc, err := encoding.NewVocabularies(map[string][]string{
		"customer_country": {"SK"},
		"material_family":  {"OCEL"},
		"shape":            {"KR"},
		"outcome":          {"A"},
	}, encoding.FallbackFirst, map[string]encoding.FallbackPolicy{"shape": encoding.FallbackStrict})
	require.NoError(t, err)

	c := testCart(t)
	it, err := c.AddItem(item("A", 1, "OCEL", "PL"))
	require.NoError(t, err)

	builder, err := NewBuilder(testColumns, enc, Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	_, err = builder.Build(it, c)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEncoding))
}

func TestNewBuilderRejectsBadSchema(t *testing.T) {
	enc := testEncoder(t)
	opts := Options{Aggregate: cart.AggregateQuantity}

	cases := map[string][]Column{
		"empty":          nil,
		"unknown source": {{Name: "CP_datum"}},
		"duplicate":      {{Name: "quantity"}, {Name: "quantity"}},
		"no vocabulary":  {{Name: "grade", Source: MaterialGrade}},
		"blank name":     {{Name: " ", Source: Quantity}},
	}
	for name, cols := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewBuilder(cols, enc, opts)
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEncoding))
		})
	}

	_, err := NewBuilder(testColumns, enc, Options{Aggregate: "weight"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestBuildRequiresQuoteDate(t *testing.T) {
	c := cart.New(registry.Default())
	require.NoError(t, c.SetOrder(cart.OrderParams{Customer: "Tatra Hydraulik"}))
	it, err := c.AddItem(item("A", 1, "OCEL", "KR"))
	require.NoError(t, err)

	builder, err := NewBuilder(testColumns, testEncoder(t), Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	_, err = builder.Build(it, c)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestMissingGradeIsAValidationError(t *testing.T) {
	enc, err := encoding.NewVocabularies(map[string][]string{"grade": {"1.0037"}}, encoding.FallbackFirst, nil)
	require.NoError(t, err)
	builder, err := NewBuilder([]Column{{Name: "grade", Source: MaterialGrade}}, enc, Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	c := testCart(t)
	it, err := c.AddItem(item("A", 1, "OCEL", "KR"))
	require.NoError(t, err)

	_, err = builder.Build(it, c)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestCheckItemRejectsGradelessItemAtAddTime(t *testing.T) {
	enc, err := encoding.NewVocabularies(map[string][]string{
		"grade": {"1.0037"},
		"shape": {"KR"},
	}, encoding.FallbackFirst, map[string]encoding.FallbackPolicy{"shape": encoding.FallbackStrict})
	require.NoError(t, err)
	builder, err := NewBuilder([]Column{
		{Name: "grade", Source: MaterialGrade},
		{Name: "shape"},
		{Name: "customer_loyalty"},
	}, enc, Options{Aggregate: cart.AggregateQuantity})
	require.NoError(t, err)

	c := cart.New(registry.Default(), cart.WithItemCheck(builder.CheckItem))

	_, err = c.AddItem(item("A", 1, "OCEL", "KR"))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Zero(t, c.Len())

	withGrade := item("B", 1, "OCEL", "PL")
	withGrade.Grade = "1.0503"
	_, err = c.AddItem(withGrade)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEncoding), "strict shape rejects PL: %v", err)

	withGrade.Shape = "KR"
	_, err = c.AddItem(withGrade)
	require.NoError(t, err, "unseen grade falls back")
	assert.Equal(t, 1, c.Len())
}

func TestVectorJSONKeepsOrder(t *testing.T) {
	vec := FeatureVector{Names: []string{"z", "a"}, Values: []float64{1, 2}}
	raw, err := vec.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"features":[{"name":"z","value":1},{"name":"a","value":2}]}`, string(raw))
	assert.Equal(t, "z=1, a=2", vec.String())
}
