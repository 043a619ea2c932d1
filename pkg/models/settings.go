package models

import (
	"math"
	"time"
)

// DefaultCategoryTotal applies when a total is absent or not a number.
const DefaultCategoryTotal = 21

// MaxCategoryTotal bounds the number of slots a category can be configured with.
const MaxCategoryTotal = 1000

// Settings holds the configured number of slots per category.
// A non-positive total means "unknown" and callers fall back to the keys
// already present in the slot store.
type Settings struct {
	MotorcycleTotal int        `json:"motorcycleTotal" db:"motorcycle_total"`
	CarTotal        int        `json:"carTotal" db:"car_total"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// DefaultSettings returns the totals used before an admin has saved anything.
func DefaultSettings() Settings {
	return Settings{
		MotorcycleTotal: DefaultCategoryTotal,
		CarTotal:        DefaultCategoryTotal,
	}
}

// Total returns the configured total for a category.
func (s Settings) Total(c Category) int {
	switch c {
	case CategoryMotorcycle:
		return s.MotorcycleTotal
	case CategoryCar:
		return s.CarTotal
	}
	return 0
}

// SettingsField is the stored field name for a category total.
func SettingsField(c Category) string {
	if c == CategoryCar {
		return "carTotal"
	}
	return "motorcycleTotal"
}

// SettingsFromMap decodes a loosely typed settings document. Missing or
// non-numeric totals become DefaultCategoryTotal; numeric values are kept as is.
func SettingsFromMap(raw map[string]interface{}) Settings {
	s := DefaultSettings()
	if raw == nil {
		return s
	}
	if v, ok := numericTotal(raw["motorcycleTotal"]); ok {
		s.MotorcycleTotal = v
	}
	if v, ok := numericTotal(raw["carTotal"]); ok {
		s.CarTotal = v
	}
	return s
}

func numericTotal(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
