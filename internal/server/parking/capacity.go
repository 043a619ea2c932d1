package parking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// ErrInvalidSlotID is returned for identifiers that are not a category
// prefix followed by a positive index.
var ErrInvalidSlotID = errors.New("invalid slot id")

// SlotID builds the identifier for the index-th slot of a category.
func SlotID(category models.Category, index int) string {
	return category.Prefix() + strconv.Itoa(index)
}

// ParseSlotID splits an identifier such as "B7" into its category and
// 1-based index.
func ParseSlotID(slotID string) (models.Category, int, error) {
	if len(slotID) < 2 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, slotID)
	}
	category, ok := models.CategoryForPrefix(slotID[:1])
	if !ok {
		return "", 0, fmt.Errorf("%w: %q has unknown prefix", ErrInvalidSlotID, slotID)
	}
	digits := slotID[1:]
	if strings.HasPrefix(digits, "0") || strings.TrimLeft(digits, "0123456789") != "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, slotID)
	}
	index, err := strconv.Atoi(digits)
	if err != nil || index < 1 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidSlotID, slotID)
	}
	return category, index, nil
}

// CountPrefixed counts stored keys that start with the category prefix,
// including stale keys past the configured total.
func CountPrefixed(category models.Category, slots map[string]models.Slot) int {
	prefix := category.Prefix()
	if prefix == "" {
		return 0
	}
	n := 0
	for key := range slots {
		if strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

// ResolveTotal returns the configured total, or the number of existing keys
// for the category when the configured value is not positive. The result
// never exceeds models.MaxCategoryTotal.
func ResolveTotal(category models.Category, settings models.Settings, slots map[string]models.Slot) int {
	total := settings.Total(category)
	if total <= 0 {
		total = CountPrefixed(category, slots)
	}
	return min(total, models.MaxCategoryTotal)
}

// SlotIDs lists {prefix}1..{prefix}total in order.
func SlotIDs(category models.Category, settings models.Settings, slots map[string]models.Slot) []string {
	total := ResolveTotal(category, settings, slots)
	ids := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		ids = append(ids, SlotID(category, i))
	}
	return ids
}
