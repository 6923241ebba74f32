// Package registry holds the static reference tables used when a line item is
// added: material families with their grades and densities, and the known
// customer list. The tables are built once and never mutated, so a *Registry
// is safe for concurrent readers.
package registry

import (
	"sort"
	"strings"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

// Family is a material category as labelled in the training data.
type Family string

const (
	FamilySteel      Family = "OCEL"
	FamilyStainless  Family = "NEREZ"
	FamilyNonFerrous Family = "FAREBNÉ KOVY"
	FamilyPlastic    Family = "PLAST"
)

// DefaultLoyalty applies to customers that are not in the registry.
const DefaultLoyalty = 0.5

// Grade is one alloy or polymer grade with its density in kg/m³.
type Grade struct {
	Family  Family  `json:"family"`
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Density float64 `json:"density"`
}

// Customer is a known buyer with the country and loyalty the model was trained on.
type Customer struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Loyalty float64 `json:"loyalty"`
	New     bool    `json:"new"`
}

type familyData struct {
	nominal float64
	grades  map[string]Grade
}

type Registry struct {
	families  map[Family]familyData
	order     []Family
	customers map[string]Customer
}

// New builds a registry from explicit tables. Grades whose family has no
// nominal density are rejected.
func New(nominal map[Family]float64, grades []Grade, customers []Customer) (*Registry, error) {
	r := &Registry{
		families:  make(map[Family]familyData, len(nominal)),
		customers: make(map[string]Customer, len(customers)),
	}
	for family, density := range nominal {
		if density <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "nominal density for %s must be positive", family)
		}
		r.families[family] = familyData{nominal: density, grades: map[string]Grade{}}
		r.order = append(r.order, family)
	}
	sort.Slice(r.order, func(i, j int) bool { return r.order[i] < r.order[j] })

	for _, g := range grades {
		fd, ok := r.families[g.Family]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "grade %s references unknown family %s", g.Code, g.Family)
		}
		if g.Density <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "grade %s density must be positive", g.Code)
		}
		fd.grades[normalizeGrade(g.Code)] = g
	}

	for _, c := range customers {
		if c.Loyalty < 0 || c.Loyalty > 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "customer %s loyalty must be within [0,1]", c.Name)
		}
		r.customers[normalizeName(c.Name)] = c
	}
	return r, nil
}

// Families lists the known families in a stable order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.order))
	copy(out, r.order)
	return out
}

// Grades lists the grades of a family ordered by code.
func (r *Registry) Grades(family Family) []Grade {
	fd, ok := r.families[family]
	if !ok {
		return nil
	}
	out := make([]Grade, 0, len(fd.grades))
	for _, g := range fd.grades {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Customers lists the known customers ordered by name.
func (r *Registry) Customers() []Customer {
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// HasFamily reports whether family is a known material family.
func (r *Registry) HasFamily(family Family) bool {
	_, ok := r.families[family]
	return ok
}

// Density resolves the density for a (family, grade) pair. A positive
// override wins; otherwise the grade table is consulted, then the family's
// nominal value.
func (r *Registry) Density(family Family, grade string, override float64) (float64, error) {
	if override < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "density must be positive").
			WithDetails(map[string]any{"density": override})
	}
	fd, ok := r.families[family]
	if !ok {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown material family %q", family)
	}
	if override > 0 {
		return override, nil
	}
	if g, ok := fd.grades[normalizeGrade(grade)]; ok {
		return g.Density, nil
	}
	return fd.nominal, nil
}

// Customer looks up a known customer by name, case-insensitively.
func (r *Registry) Customer(name string) (Customer, bool) {
	c, ok := r.customers[normalizeName(name)]
	return c, ok
}

// ResolveCustomer returns the registry entry for name when one exists.
// Otherwise the caller is quoting a new customer: country is required and
// loyalty defaults to DefaultLoyalty.
func (r *Registry) ResolveCustomer(name, country string, loyalty *float64) (Customer, error) {
	if c, ok := r.Customer(name); ok {
		return c, nil
	}

	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "country is required for a new customer")
	}
	value := DefaultLoyalty
	if loyalty != nil {
		value = *loyalty
	}
	if value < 0 || value > 1 {
		return Customer{}, pkgerrors.New(pkgerrors.CodeValidation, "loyalty must be within [0,1]").
			WithDetails(map[string]any{"loyalty": value})
	}
	return Customer{
		Name:    strings.TrimSpace(name),
		Country: country,
		Loyalty: value,
		New:     true,
	}, nil
}

func normalizeGrade(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
