package parking

import (
	"testing"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

func TestReconcile(t *testing.T) {
	covered := occupiedSlot("A1", "ABC-123")
	uncovered := occupiedSlot("A2", "XYZ-999")
	broken := models.Slot{SlotID: "B1", Occupied: true}

	slots := map[string]models.Slot{
		"A1": covered,
		"A2": uncovered,
		"A3": {SlotID: "A3"},
		"B1": broken,
	}
	logs := []models.LogRecord{
		{SlotID: "A1", Status: models.StatusParked, VehicleID: covered.VehicleID, TimeIn: covered.TimeIn},
		// An EXITED record never covers a current occupancy.
		{SlotID: "A2", Status: models.StatusExited, VehicleID: uncovered.VehicleID, TimeIn: uncovered.TimeIn},
	}

	got := Reconcile(slots, logs)
	if len(got) != 2 {
		t.Fatalf("Expected 2 discrepancies, got %+v", got)
	}
	if got[0].SlotID != "A2" || got[0].Reason != DiscrepancyMissingLog {
		t.Errorf("Unexpected first discrepancy %+v", got[0])
	}
	if got[1].SlotID != "B1" || got[1].Reason != DiscrepancyInconsistent {
		t.Errorf("Unexpected second discrepancy %+v", got[1])
	}
}

func TestReconcile_CleanState(t *testing.T) {
	if got := Reconcile(nil, nil); len(got) != 0 {
		t.Errorf("Expected no discrepancies, got %+v", got)
	}
}
