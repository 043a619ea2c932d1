package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// OccupiedSlot builds an occupied slot record for seeding stores.
func OccupiedSlot(slotID string, category models.Category, vehicleID string, timeIn time.Time) models.Slot {
	t := timeIn.UTC()
	return models.Slot{
		SlotID:    slotID,
		Category:  category,
		Occupied:  true,
		VehicleID: models.StringPtr(vehicleID),
		Plate:     models.StringPtr("PLT-" + vehicleID),
		Contact:   models.StringPtr("555-0100"),
		UserName:  models.StringPtr("Test Driver"),
		TimeIn:    &t,
	}
}

// ParkedLog builds the PARKED entry that matches an occupied slot.
func ParkedLog(slot models.Slot) models.LogRecord {
	return models.LogRecord{
		SlotID:    slot.SlotID,
		Category:  slot.Category,
		VehicleID: slot.VehicleID,
		Plate:     slot.Plate,
		Contact:   slot.Contact,
		UserName:  slot.UserName,
		Status:    models.StatusParked,
		TimeIn:    slot.TimeIn,
	}
}

// SeedSlot writes slot verbatim through the store's transaction, bypassing
// the engine's preconditions. It fails the test on error.
func SeedSlot(t *testing.T, ctx context.Context, store storage.SlotStore, slot models.Slot) {
	t.Helper()

	res, err := store.Transact(ctx, slot.SlotID, func(*models.Slot, time.Time) (*models.Slot, error) {
		next := slot
		return &next, nil
	})
	if err != nil {
		t.Fatalf("Failed to seed slot %s: %v", slot.SlotID, err)
	}
	if !res.Committed {
		t.Fatalf("Failed to seed slot %s: not committed", slot.SlotID)
	}
}

// SeedOccupied seeds n occupied slots of a category starting at index 1 and,
// when withLogs is set, their PARKED entries.
func SeedOccupied(t *testing.T, ctx context.Context, store storage.Store, category models.Category, n int, withLogs bool) []models.Slot {
	t.Helper()

	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	var seeded []models.Slot
	for i := 1; i <= n; i++ {
		slotID := fmt.Sprintf("%s%d", category.Prefix(), i)
		slot := OccupiedSlot(slotID, category, fmt.Sprintf("V%d", i), base.Add(time.Duration(i)*time.Minute))
		SeedSlot(t, ctx, store, slot)
		if withLogs {
			if _, err := store.AppendLog(ctx, ParkedLog(slot)); err != nil {
				t.Fatalf("Failed to seed log for %s: %v", slotID, err)
			}
		}
		seeded = append(seeded, slot)
	}
	return seeded
}
