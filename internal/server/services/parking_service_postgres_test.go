package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/testutil"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

const postgresTestSlot = "A21"

var parkingEpoch = time.Date(2026, 2, 10, 7, 30, 0, 0, time.UTC)

func cleanupSlot(tdb *testutil.TestDB, slotID string) {
	ctx := context.Background()
	tdb.DB.ExecContext(ctx, "DELETE FROM parking_logs WHERE slot_id = $1", slotID)
	tdb.DB.ExecContext(ctx, "DELETE FROM parking_slots WHERE slot_id = $1", slotID)
}

func TestParkingService_Postgres_SingleWinner(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	defer tdb.Close()
	cleanupSlot(tdb, postgresTestSlot)
	defer cleanupSlot(tdb, postgresTestSlot)

	ctx := context.Background()
	svc := NewParkingService(tdb.Store(), nil, nil, nil)
	t.Cleanup(func() { svc.Close() })

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan parking.Result, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Bypass the in-flight guard so every racer reaches the store.
			res, err := svc.engine.Assign(ctx, postgresTestSlot, models.CategoryMotorcycle, motorcycle("V"+string(rune('a'+i)), "PG-1"))
			if err != nil {
				t.Errorf("Assign failed: %v", err)
				return
			}
			results <- res
		}(i)
	}
	wg.Wait()
	close(results)

	committed := 0
	for res := range results {
		if res.Committed {
			committed++
		} else if res.Reason != parking.ReasonAlreadyOccupied {
			t.Errorf("Expected already_occupied, got %s", res.Reason)
		}
	}
	if committed != 1 {
		t.Fatalf("Expected exactly one winner, got %d", committed)
	}

	res, err := svc.Release(ctx, postgresTestSlot)
	if err != nil || !res.Committed {
		t.Fatalf("Expected release to commit, got %+v, %v", res, err)
	}
	if res.Slot.Occupied || res.Slot.TimeIn != nil {
		t.Errorf("Expected cleared slot, got %+v", res.Slot)
	}
}

func TestParkingService_Postgres_ReconcileFindsSeededGap(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	defer tdb.Close()
	cleanupSlot(tdb, postgresTestSlot)
	defer cleanupSlot(tdb, postgresTestSlot)

	ctx := context.Background()
	store := tdb.Store()
	slot := testutil.OccupiedSlot(postgresTestSlot, models.CategoryMotorcycle, "V-gap", parkingEpoch)
	testutil.SeedSlot(t, ctx, store, slot)

	svc := NewParkingService(store, nil, nil, nil)
	t.Cleanup(func() { svc.Close() })
	found, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !hasDiscrepancy(found, postgresTestSlot) {
		t.Fatalf("Expected discrepancy for %s, got %+v", postgresTestSlot, found)
	}

	if _, err := store.AppendLog(ctx, testutil.ParkedLog(slot)); err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	found, err = svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if hasDiscrepancy(found, postgresTestSlot) {
		t.Errorf("Expected gap to close after PARKED entry, got %+v", found)
	}
}

func hasDiscrepancy(found []models.Discrepancy, slotID string) bool {
	for _, d := range found {
		if d.SlotID == slotID {
			return true
		}
	}
	return false
}
