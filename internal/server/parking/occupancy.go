package parking

import (
	"fmt"
	"strings"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// Snapshot is a consistent view of the slot mapping and the settings that
// every read-only projection is derived from. A zero Snapshot is valid and
// projects as empty.
type Snapshot struct {
	Slots    map[string]models.Slot
	Settings models.Settings
}

// Occupancy counts occupied keys carrying the category prefix. Stale keys
// beyond the configured total still count.
func (s Snapshot) Occupancy(category models.Category) models.Occupancy {
	prefix := category.Prefix()
	occupied := 0
	if prefix != "" {
		for key, slot := range s.Slots {
			if strings.HasPrefix(key, prefix) && slot.Occupied {
				occupied++
			}
		}
	}
	return models.Occupancy{
		Category: category,
		Occupied: occupied,
		Total:    ResolveTotal(category, s.Settings, s.Slots),
	}
}

// AllOccupancy returns the occupancy of every category in display order.
func (s Snapshot) AllOccupancy() []models.Occupancy {
	out := make([]models.Occupancy, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, s.Occupancy(c))
	}
	return out
}

// DisplayState resolves the single state shown for a slot; maintenance wins
// over reserved, which wins over occupied. Missing slots are available.
func DisplayState(slot *models.Slot) models.DisplayState {
	switch {
	case slot == nil:
		return models.DisplayAvailable
	case slot.Maintenance:
		return models.DisplayMaintenance
	case slot.Reserved:
		return models.DisplayReserved
	case slot.Occupied:
		return models.DisplayOccupied
	}
	return models.DisplayAvailable
}

func (s Snapshot) slot(slotID string) *models.Slot {
	slot, ok := s.Slots[slotID]
	if !ok {
		return nil
	}
	return &slot
}

func (s Snapshot) SlotDisplayState(slotID string) models.DisplayState {
	return DisplayState(s.slot(slotID))
}

// Grid lists every valid slot of the category with its display label.
func (s Snapshot) Grid(category models.Category) []models.SlotView {
	ids := SlotIDs(category, s.Settings, s.Slots)
	views := make([]models.SlotView, 0, len(ids))
	for _, id := range ids {
		slot := s.slot(id)
		state := DisplayState(slot)
		views = append(views, models.SlotView{
			SlotID:   id,
			Category: category,
			State:    state,
			Label:    gridLabel(slot, state),
		})
	}
	return views
}

func gridLabel(slot *models.Slot, state models.DisplayState) string {
	switch state {
	case models.DisplayMaintenance:
		return "MAINTENANCE"
	case models.DisplayReserved:
		return "RESERVED"
	case models.DisplayOccupied:
		if plate := models.StringValue(slot.Plate); plate != "" {
			return plate
		}
		return "PARKED"
	}
	return "AVAILABLE"
}

// Detail builds the detail panel for one slot. Vehicle fields are only
// filled in while the slot is occupied.
func (s Snapshot) Detail(slotID string) (models.SlotDetail, error) {
	category, _, err := ParseSlotID(slotID)
	if err != nil {
		return models.SlotDetail{}, err
	}
	qr, err := EncodeQRPayload(slotID)
	if err != nil {
		return models.SlotDetail{}, err
	}

	detail := models.SlotDetail{
		SlotID:   slotID,
		Category: category,
		State:    models.DisplayAvailable,
		QRData:   qr,
	}
	slot := s.slot(slotID)
	if slot == nil {
		return detail, nil
	}
	detail.State = DisplayState(slot)
	if slot.Occupied {
		slot.SlotID = slotID
		detail.Contact = models.StringValue(slot.Contact)
		detail.Plate = models.StringValue(slot.Plate)
		detail.User = slot.DisplayUser()
		detail.TimeIn = slot.TimeIn
	}
	return detail, nil
}

// Describe renders an occupancy pair as "occupied / total".
func Describe(o models.Occupancy) string {
	return fmt.Sprintf("%d / %d", o.Occupied, o.Total)
}
