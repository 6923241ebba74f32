// Package export renders logged quotes as documents for the customer.
package export

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/partquote/internal/quotelog"
)

const textLayout = `QUOTE {{ .Number }}
Date:      {{ .Date }}
Customer:  {{ .Customer }} ({{ .Country }}){{ if .NewCustomer }} new customer{{ end }}
Model:     {{ .Model }}

{{ printf "%3s  %-16s %6s  %-18s %-5s %15s %10s %12s %13s" "#" "Part" "Qty" "Material" "Shape" "D x L mm" "Weight kg" "Unit price" "Line total" }}
{{ range .Lines -}}
{{ printf "%3d  %-16s %6s  %-18s %-5s %15s %10s %12s %13s" .Position .ItemID .Quantity .Material .Shape .Dimensions .Weight .UnitPrice .LineTotal }}
{{ end }}
Items:         {{ len .Lines }}
Total weight:  {{ .TotalWeight }} kg
Total:         {{ .Total }}
`

var textTemplate = template.Must(template.New("quote").Parse(textLayout))

type textLine struct {
	Position   int
	ItemID     string
	Quantity   string
	Material   string
	Shape      string
	Dimensions string
	Weight     string
	UnitPrice  string
	LineTotal  string
}

type textView struct {
	Number      string
	Date        string
	Customer    string
	Country     string
	NewCustomer bool
	Model       string
	Lines       []textLine
	TotalWeight string
	Total       string
}

// RenderText writes q as a fixed-width plain-text document with prices
// shown to the given number of decimals.
func RenderText(w io.Writer, q quotelog.Quote, decimals int) error {
	view := textView{
		Number:      q.Number,
		Date:        q.QuoteDate.Format("2006-01-02"),
		Customer:    q.Customer,
		Country:     q.Country,
		NewCustomer: q.NewCustomer,
		Model:       q.Model,
		Lines:       make([]textLine, 0, len(q.Items)),
	}

	weight := decimal.Zero
	for _, rec := range q.Items {
		lineWeight := decimal.NewFromFloat(rec.WeightKg).Mul(decimal.NewFromInt(int64(rec.Quantity)))
		weight = weight.Add(lineWeight)

		view.Lines = append(view.Lines, textLine{
			Position:   rec.Position,
			ItemID:     truncate(rec.ItemID, 16),
			Quantity:   humanize.Comma(int64(rec.Quantity)),
			Material:   truncate(strings.TrimSpace(rec.Family+" "+rec.Grade), 18),
			Shape:      rec.Shape,
			Dimensions: fmt.Sprintf("%s x %s", trimFloat(rec.DiameterMM), trimFloat(rec.LengthMM)),
			Weight:     fixed(rec.WeightKg, 3),
			UnitPrice:  fixed(rec.UnitPrice, decimals),
			LineTotal:  fixed(rec.LineTotal, decimals),
		})
	}
	totalWeight, _ := weight.Float64()
	view.TotalWeight = fixed(totalWeight, 3)
	view.Total = fixed(q.Total, decimals)

	if err := textTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("render quote %s: %w", q.Number, err)
	}
	return nil
}

// fixed formats v with exactly places decimals and a thousands separator.
// The value is rounded with decimal first so halves round away from zero.
func fixed(v float64, places int) string {
	if places < 0 {
		places = 0
	}
	rounded, _ := decimal.NewFromFloat(v).Round(int32(places)).Float64()
	return humanize.FormatFloat("#,###."+strings.Repeat("#", places), rounded)
}

func trimFloat(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
