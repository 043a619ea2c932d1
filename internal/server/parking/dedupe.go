package parking

import (
	"sort"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

type logKey struct {
	slotID    string
	status    models.LogStatus
	vehicleID string
	plate     string
	timeIn    string
	timeOut   string
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func keyOf(rec models.LogRecord) logKey {
	return logKey{
		slotID:    rec.SlotID,
		status:    rec.Status,
		vehicleID: models.StringValue(rec.VehicleID),
		plate:     models.StringValue(rec.Plate),
		timeIn:    timeKey(rec.TimeIn),
		timeOut:   timeKey(rec.TimeOut),
	}
}

// DedupeLogs keeps the first record for each logical event and orders the
// result by createdAt, newest first. Equal createdAt values put the later
// input record first. Records without createdAt sort last in input order.
func DedupeLogs(logs []models.LogRecord) []models.LogRecord {
	seen := make(map[logKey]struct{}, len(logs))
	out := make([]models.LogRecord, 0, len(logs))
	for _, rec := range logs {
		k := keyOf(rec)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := out[order[i]].CreatedAt, out[order[j]].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return order[i] > order[j]
		}
		return a.After(*b)
	})

	sorted := make([]models.LogRecord, len(out))
	for i, idx := range order {
		sorted[i] = out[idx]
	}
	return sorted
}

// FilterLogs keeps records for one slot. An empty slotID keeps everything.
func FilterLogs(logs []models.LogRecord, slotID string) []models.LogRecord {
	if slotID == "" {
		return logs
	}
	out := make([]models.LogRecord, 0)
	for _, rec := range logs {
		if rec.SlotID == slotID {
			out = append(out, rec)
		}
	}
	return out
}
