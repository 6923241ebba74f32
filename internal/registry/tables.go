package registry

import "sync"

var nominalDensities = map[Family]float64{
	FamilySteel:      7850,
	FamilyStainless:  7900,
	FamilyNonFerrous: 2700,
	FamilyPlastic:    1400,
}

var gradeTable = []Grade{
	{Family: FamilySteel, Code: "1.0037", Name: "S235JR", Density: 7850},
	{Family: FamilySteel, Code: "1.0038", Name: "S235JRG2", Density: 7850},
	{Family: FamilySteel, Code: "1.0503", Name: "C45", Density: 7850},
	{Family: FamilySteel, Code: "1.0570", Name: "S355J2", Density: 7850},
	{Family: FamilySteel, Code: "1.0718", Name: "11SMnPb30", Density: 7850},
	{Family: FamilySteel, Code: "1.2379", Name: "X153CrMoV12", Density: 7700},
	{Family: FamilySteel, Code: "1.7131", Name: "16MnCr5", Density: 7850},
	{Family: FamilySteel, Code: "1.7225", Name: "42CrMo4", Density: 7850},

	{Family: FamilyStainless, Code: "1.4021", Name: "X20Cr13", Density: 7700},
	{Family: FamilyStainless, Code: "1.4301", Name: "X5CrNi18-10", Density: 7900},
	{Family: FamilyStainless, Code: "1.4305", Name: "X8CrNiS18-9", Density: 7900},
	{Family: FamilyStainless, Code: "1.4404", Name: "X2CrNiMo17-12-2", Density: 8000},
	{Family: FamilyStainless, Code: "1.4571", Name: "X6CrNiMoTi17-12-2", Density: 8000},

	{Family: FamilyNonFerrous, Code: "2.0060", Name: "Cu-ETP", Density: 8930},
	{Family: FamilyNonFerrous, Code: "2.0401", Name: "CuZn39Pb3", Density: 8470},
	{Family: FamilyNonFerrous, Code: "3.1645", Name: "AlCu4PbMgMn", Density: 2850},
	{Family: FamilyNonFerrous, Code: "3.2315", Name: "AlSi1MgMn", Density: 2700},
	{Family: FamilyNonFerrous, Code: "3.3547", Name: "AlMg4.5Mn0.7", Density: 2660},
	{Family: FamilyNonFerrous, Code: "3.4365", Name: "AlZn5.5MgCu", Density: 2810},

	{Family: FamilyPlastic, Code: "PA6", Name: "Polyamide 6", Density: 1140},
	{Family: FamilyPlastic, Code: "PE-HD", Name: "Polyethylene HD", Density: 950},
	{Family: FamilyPlastic, Code: "PEEK", Name: "Polyether ether ketone", Density: 1310},
	{Family: FamilyPlastic, Code: "POM-C", Name: "Polyoxymethylene copolymer", Density: 1410},
	{Family: FamilyPlastic, Code: "PTFE", Name: "Polytetrafluoroethylene", Density: 2200},
}

var customerTable = []Customer{
	{Name: "Považská Strojáreň", Country: "SK", Loyalty: 0.9},
	{Name: "Tatra Hydraulik", Country: "SK", Loyalty: 0.75},
	{Name: "Morava Pohony", Country: "CZ", Loyalty: 0.6},
	{Name: "Brno Automation", Country: "CZ", Loyalty: 0.4},
	{Name: "Donau Antriebstechnik", Country: "AT", Loyalty: 0.55},
	{Name: "Rheinland Fördertechnik", Country: "DE", Loyalty: 0.7},
	{Name: "Schwaben Präzision", Country: "DE", Loyalty: 0.3},
	{Name: "Győr Gépgyár", Country: "HU", Loyalty: 0.5},
	{Name: "Śląsk Maszyny", Country: "PL", Loyalty: 0.35},
	{Name: "Midlands Tooling", Country: "GB", Loyalty: 0.2},
	{Name: "Lyon Mécanique", Country: "FR", Loyalty: 0.25},
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry built from the embedded tables.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := New(nominalDensities, gradeTable, customerTable)
		if err != nil {
			panic("registry: invalid embedded tables: " + err.Error())
		}
		defaultReg = r
	})
	return defaultReg
}
