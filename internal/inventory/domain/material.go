package domain

import "strings"

// Material categories used for density defaults and repair heuristics.
const (
	CategorySteel      = "Steel"
	CategoryStainless  = "Stainless"
	CategoryAluminum   = "Aluminum"
	CategoryGalvanized = "Galvanized"
)

// DefaultDensity returns the density in lb/in3 assumed for a category when a
// catalog entry has to be synthesized.
func DefaultDensity(category string) float64 {
	switch category {
	case CategoryAluminum:
		return 0.0975
	case CategoryStainless:
		return 0.289
	default:
		// Carbon and galvanized steel.
		return 0.2833
	}
}

// GuessCategory infers a material category from substrings of a drifted or
// orphaned material key. Recovery heuristic only.
func GuessCategory(materialType string) string {
	key := strings.ToUpper(materialType)
	switch {
	case strings.Contains(key, "ALUM") || strings.Contains(key, "AL-"):
		return CategoryAluminum
	case strings.Contains(key, "SS") || strings.Contains(key, "STAINLESS"):
		return CategoryStainless
	case strings.Contains(key, "GALV") || strings.Contains(key, "-G90"):
		return CategoryGalvanized
	default:
		return CategorySteel
	}
}

// MaterialCatalogEntry holds category, thickness and density for one
// material key. The core reads it to compute weight and cost, never mutates
// it outside the rebuild heuristic.
type MaterialCatalogEntry struct {
	Key             string  `json:"key"`
	Category        string  `json:"category"`
	ThicknessIn     float64 `json:"thicknessIn"`
	DensityLbPerIn3 float64 `json:"densityLbPerIn3"`
	Synthesized     bool    `json:"synthesized,omitempty"`
}

// UnitWeight returns the sheet weight in pounds.
func (m MaterialCatalogEntry) UnitWeight(u InventoryUnit) float64 {
	return m.ThicknessIn * u.Width * float64(u.Length) * m.DensityLbPerIn3
}

// UnitCost returns the sheet cost in dollars.
func (m MaterialCatalogEntry) UnitCost(u InventoryUnit) float64 {
	return m.UnitWeight(u) * u.CostPerPound
}
