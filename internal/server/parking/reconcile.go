package parking

import (
	"sort"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

const (
	DiscrepancyMissingLog   = "missing_parked_log"
	DiscrepancyInconsistent = "inconsistent_record"
)

// Reconcile finds occupied slots whose PARKED record never made it into the
// log. A commit followed by a failed append leaves exactly this gap.
func Reconcile(slots map[string]models.Slot, logs []models.LogRecord) []models.Discrepancy {
	parked := make(map[string][]models.LogRecord)
	for _, rec := range logs {
		if rec.Status == models.StatusParked {
			parked[rec.SlotID] = append(parked[rec.SlotID], rec)
		}
	}

	ids := make([]string, 0, len(slots))
	for id := range slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Discrepancy
	for _, id := range ids {
		slot := slots[id]
		if !slot.Consistent() {
			out = append(out, models.Discrepancy{
				SlotID:    id,
				VehicleID: models.StringValue(slot.VehicleID),
				Reason:    DiscrepancyInconsistent,
			})
			continue
		}
		if !slot.Occupied {
			continue
		}
		if !hasParkedLog(parked[id], slot) {
			out = append(out, models.Discrepancy{
				SlotID:    id,
				VehicleID: models.StringValue(slot.VehicleID),
				Reason:    DiscrepancyMissingLog,
			})
		}
	}
	return out
}

func hasParkedLog(candidates []models.LogRecord, slot models.Slot) bool {
	for _, rec := range candidates {
		if rec.TimeIn != nil && rec.TimeIn.Equal(*slot.TimeIn) &&
			models.StringValue(rec.VehicleID) == models.StringValue(slot.VehicleID) {
			return true
		}
	}
	return false
}
