package parking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

func newTestEngine(t *testing.T) (*Engine, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	tick := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	})
	return NewEngine(store, store, store), store
}

func vehicle(id, plate string) Vehicle {
	return Vehicle{VehicleID: id, Plate: plate, Contact: "555-0100"}
}

func snapshotOf(t *testing.T, store *storage.MemoryStore) Snapshot {
	t.Helper()
	ctx := context.Background()
	slots, _ := store.ListSlots(ctx)
	settings, _ := store.GetSettings(ctx)
	return Snapshot{Slots: slots, Settings: settings}
}

func assertConsistent(t *testing.T, store *storage.MemoryStore) {
	t.Helper()
	slots, _ := store.ListSlots(context.Background())
	for id, slot := range slots {
		if !slot.Consistent() {
			t.Errorf("slot %s is inconsistent: %+v", id, slot)
		}
	}
}

func TestEngine_ExampleScenario(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.Assign(ctx, "A5", models.CategoryMotorcycle, vehicle("V1", "ABC-123"))
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if !res.Committed {
		t.Fatalf("Expected assign to commit, got reason %s", res.Reason)
	}
	if got := snapshotOf(t, store).Occupancy(models.CategoryMotorcycle); got.Occupied != 1 || got.Total != 21 {
		t.Errorf("Expected occupancy 1/21, got %+v", got)
	}

	res, err = engine.Assign(ctx, "A5", models.CategoryMotorcycle, vehicle("V2", "XYZ-999"))
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if res.Committed || res.Reason != ReasonAlreadyOccupied {
		t.Fatalf("Expected already_occupied, got %+v", res)
	}
	if res.Reason.Message() != "Slot is already occupied" {
		t.Errorf("Unexpected message %q", res.Reason.Message())
	}

	res, err = engine.Release(ctx, "A5")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !res.Committed {
		t.Fatalf("Expected release to commit, got reason %s", res.Reason)
	}
	if got := snapshotOf(t, store).Occupancy(models.CategoryMotorcycle); got.Occupied != 0 {
		t.Errorf("Expected occupancy 0, got %+v", got)
	}

	logs, _ := store.ListLogs(ctx)
	deduped := FilterLogs(DedupeLogs(logs), "A5")
	if len(deduped) != 2 {
		t.Fatalf("Expected 2 logs for A5, got %d", len(deduped))
	}
	if deduped[0].Status != models.StatusExited || deduped[1].Status != models.StatusParked {
		t.Errorf("Expected [EXITED, PARKED], got [%s, %s]", deduped[0].Status, deduped[1].Status)
	}
	if !deduped[0].TimeIn.Equal(*deduped[1].TimeIn) {
		t.Errorf("EXITED time in %v does not match PARKED time in %v", deduped[0].TimeIn, deduped[1].TimeIn)
	}
	if deduped[1].TimeOut != nil {
		t.Error("PARKED record must not have a time out")
	}
	if deduped[0].TimeOut == nil || !deduped[0].TimeOut.After(*deduped[0].TimeIn) {
		t.Errorf("Expected time out after time in, got %v", deduped[0].TimeOut)
	}
	assertConsistent(t, store)
}

func TestEngine_AssignPopulatesFields(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	v := Vehicle{
		VehicleID:    "V9",
		Plate:        "CAR-9",
		Contact:      "555-0199",
		UserID:       "uid-9",
		UserName:     "Dana",
		UserImageURL: "https://example.com/dana.png",
	}
	res, err := engine.Assign(ctx, "B2", models.CategoryCar, v)
	if err != nil || !res.Committed {
		t.Fatalf("Expected commit, got %+v, %v", res, err)
	}

	slot, err := store.GetSlot(ctx, "B2")
	if err != nil {
		t.Fatalf("GetSlot failed: %v", err)
	}
	if models.StringValue(slot.UserName) != "Dana" || models.StringValue(slot.Plate) != "CAR-9" {
		t.Errorf("Unexpected slot: %+v", slot)
	}
	if slot.Category != models.CategoryCar || slot.TimeIn == nil {
		t.Errorf("Expected car slot with time in, got %+v", slot)
	}

	logs, _ := store.ListLogs(ctx)
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log, got %d", len(logs))
	}
	rec := logs[0]
	if rec.ID != res.LogID {
		t.Errorf("Result log id %s does not match %s", res.LogID, rec.ID)
	}
	if rec.Status != models.StatusParked || !rec.TimeIn.Equal(*slot.TimeIn) || models.StringValue(rec.VehicleID) != "V9" {
		t.Errorf("Unexpected PARKED record: %+v", rec)
	}
	if rec.DisplayName() != "Dana" {
		t.Errorf("Unexpected display name %q", rec.DisplayName())
	}
}

func TestEngine_AssignRejections(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	if err := store.SetCategoryTotal(ctx, models.CategoryMotorcycle, 10); err != nil {
		t.Fatalf("SetCategoryTotal failed: %v", err)
	}
	if err := store.SetFlags(ctx, "A3", models.CategoryMotorcycle, true, false); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}

	tests := []struct {
		name     string
		slotID   string
		category models.Category
		vehicle  Vehicle
		want     Reason
	}{
		{name: "invalid slot", slotID: "Z1", category: models.CategoryCar, vehicle: vehicle("V1", "P1"), want: ReasonInvalidSlot},
		{name: "category mismatch", slotID: "A1", category: models.CategoryCar, vehicle: vehicle("V1", "P1"), want: ReasonCategoryMismatch},
		{name: "missing plate", slotID: "A1", category: models.CategoryMotorcycle, vehicle: vehicle("V1", " "), want: ReasonInvalidVehicle},
		{name: "out of range", slotID: "A11", category: models.CategoryMotorcycle, vehicle: vehicle("V1", "P1"), want: ReasonSlotOutOfRange},
		{name: "maintenance", slotID: "A3", category: models.CategoryMotorcycle, vehicle: vehicle("V1", "P1"), want: ReasonUnderMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := store.GetSlot(ctx, tt.slotID)
			res, err := engine.Assign(ctx, tt.slotID, tt.category, tt.vehicle)
			if err != nil {
				t.Fatalf("Assign returned error: %v", err)
			}
			if res.Committed || res.Reason != tt.want {
				t.Errorf("Assign() = %+v, want reason %s", res, tt.want)
			}
			after, _ := store.GetSlot(ctx, tt.slotID)
			if before != nil && (after.Occupied != before.Occupied || after.Maintenance != before.Maintenance) {
				t.Errorf("slot %s mutated by rejected assign", tt.slotID)
			}
		})
	}

	logs, _ := store.ListLogs(ctx)
	if len(logs) != 0 {
		t.Errorf("Expected no logs after rejections, got %d", len(logs))
	}
}

func TestEngine_ReservedSlotIsAssignable(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.SetFlags(ctx, "B4", false, true); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}

	res, err := engine.Assign(ctx, "B4", models.CategoryCar, vehicle("V1", "P1"))
	if err != nil || !res.Committed {
		t.Fatalf("Expected reserved slot to be assignable, got %+v, %v", res, err)
	}
	if !res.Slot.Reserved {
		t.Error("Expected reserved hold to be preserved")
	}
	if got := snapshotOf(t, store).SlotDisplayState("B4"); got != models.DisplayReserved {
		t.Errorf("Expected reserved display state, got %s", got)
	}
}

func TestEngine_ReleaseRules(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.Release(ctx, "B1")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if res.Committed || res.Reason != ReasonAlreadyAvailable {
		t.Errorf("Expected already_available on missing slot, got %+v", res)
	}

	if _, err := engine.Assign(ctx, "B1", models.CategoryCar, vehicle("V1", "P1")); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if _, err := engine.SetFlags(ctx, "B1", true, false); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}

	res, err = engine.Release(ctx, "B1")
	if err != nil || !res.Committed {
		t.Fatalf("Expected release of occupied maintenance slot, got %+v, %v", res, err)
	}
	slot, _ := store.GetSlot(ctx, "B1")
	if slot.Occupied || slot.VehicleID != nil || slot.TimeIn != nil || slot.Plate != nil {
		t.Errorf("Expected vehicle fields cleared, got %+v", slot)
	}
	if !slot.Maintenance {
		t.Error("Expected maintenance hold to survive release")
	}

	res, _ = engine.Release(ctx, "B1")
	if res.Committed || res.Reason != ReasonAlreadyAvailable {
		t.Errorf("Expected second release to abort, got %+v", res)
	}

	if res, _ := engine.Release(ctx, "nope"); res.Reason != ReasonInvalidSlot {
		t.Errorf("Expected invalid_slot, got %s", res.Reason)
	}

	logs, _ := store.ListLogs(ctx)
	if len(logs) != 2 {
		t.Errorf("Expected exactly one PARKED and one EXITED, got %d logs", len(logs))
	}
	assertConsistent(t, store)
}

func TestEngine_SetFlags(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	res, err := engine.SetFlags(ctx, "A1", true, true)
	if err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}
	if res.Committed || res.Reason != ReasonConflictingHolds {
		t.Errorf("Expected conflicting_holds, got %+v", res)
	}
	if len(store.SlotIDs()) != 0 {
		t.Error("Expected no write for conflicting holds")
	}

	res, _ = engine.SetFlags(ctx, "A1", true, false)
	if !res.Committed {
		t.Fatalf("Expected commit, got %+v", res)
	}
	res, _ = engine.SetFlags(ctx, "A1", false, true)
	if !res.Committed {
		t.Fatalf("Expected commit, got %+v", res)
	}
	slot, _ := store.GetSlot(ctx, "A1")
	if slot.Maintenance || !slot.Reserved {
		t.Errorf("Expected reserved only, got %+v", slot)
	}
}

func TestEngine_UpdateCapacity(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	for _, total := range []int{0, -3, models.MaxCategoryTotal + 1, 1 << 50} {
		res, err := engine.UpdateCapacity(ctx, models.CategoryCar, total)
		if err != nil {
			t.Fatalf("UpdateCapacity failed: %v", err)
		}
		if res.Committed || res.Reason != ReasonInvalidCapacity {
			t.Errorf("UpdateCapacity(%d) = %+v, want invalid_capacity", total, res)
		}
	}

	if settings, _ := store.GetSettings(ctx); settings.CarTotal != models.DefaultCategoryTotal {
		t.Fatalf("Rejected capacity reached the store: %+v", settings)
	}

	res, _ := engine.UpdateCapacity(ctx, models.CategoryCar, 30)
	if !res.Committed {
		t.Fatalf("Expected commit, got %+v", res)
	}
	settings, _ := store.GetSettings(ctx)
	if settings.CarTotal != 30 || settings.MotorcycleTotal != 21 {
		t.Errorf("Unexpected settings %+v", settings)
	}
}

func TestEngine_ConcurrentAssignSingleWinner(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	const racers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			res, err := engine.Assign(ctx, "A7", models.CategoryMotorcycle, vehicle(id, "P-"+id))
			if err != nil {
				t.Errorf("Assign failed: %v", err)
				return
			}
			if res.Committed {
				mu.Lock()
				winners = append(winners, id)
				mu.Unlock()
			} else if res.Reason != ReasonAlreadyOccupied {
				t.Errorf("Loser got reason %s", res.Reason)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("Expected exactly one winner, got %v", winners)
	}
	slot, _ := store.GetSlot(ctx, "A7")
	if models.StringValue(slot.VehicleID) != winners[0] {
		t.Errorf("Slot holds %s, winner was %s", models.StringValue(slot.VehicleID), winners[0])
	}
	logs, _ := store.ListLogs(ctx)
	if len(logs) != 1 {
		t.Errorf("Expected one PARKED record, got %d", len(logs))
	}
}

// racingStore lets another writer occupy the slot between the first read
// and the compare-and-set.
type racingStore struct {
	*storage.MemoryStore
	once sync.Once
}

func (r *racingStore) Transact(ctx context.Context, slotID string, fn storage.TxFunc) (storage.TxResult, error) {
	return r.MemoryStore.Transact(ctx, slotID, func(current *models.Slot, txTime time.Time) (*models.Slot, error) {
		r.once.Do(func() {
			other := NewEngine(r.MemoryStore, r.MemoryStore, r.MemoryStore)
			if _, err := other.Assign(ctx, slotID, models.CategoryMotorcycle, vehicle("OTHER", "OTH-1")); err != nil {
				panic(err)
			}
		})
		return fn(current, txTime)
	})
}

func TestEngine_LoserRetriesAndAborts(t *testing.T) {
	store := storage.NewMemoryStore()
	racing := &racingStore{MemoryStore: store}
	engine := NewEngine(racing, store, store)

	res, err := engine.Assign(context.Background(), "A1", models.CategoryMotorcycle, vehicle("V1", "P1"))
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if res.Committed || res.Reason != ReasonAlreadyOccupied {
		t.Fatalf("Expected retry to observe the other writer and abort, got %+v", res)
	}
	if models.StringValue(res.Slot.VehicleID) != "OTHER" {
		t.Errorf("Expected observed value from the winner, got %+v", res.Slot)
	}
}

type failingSlots struct {
	*storage.MemoryStore
}

var errUnavailable = errors.New("connection refused")

func (f failingSlots) Transact(context.Context, string, storage.TxFunc) (storage.TxResult, error) {
	return storage.TxResult{}, errUnavailable
}

func (f failingSlots) SetFlags(context.Context, string, models.Category, bool, bool) error {
	return errUnavailable
}

type failingLogs struct {
	*storage.MemoryStore
}

func (f failingLogs) AppendLog(context.Context, models.LogRecord) (string, error) {
	return "", errUnavailable
}

func TestEngine_StoreFailureIsNotCommitted(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(failingSlots{store}, store, store)
	ctx := context.Background()

	res, err := engine.Assign(ctx, "A1", models.CategoryMotorcycle, vehicle("V1", "P1"))
	if !errors.Is(err, errUnavailable) {
		t.Fatalf("Expected transport error, got %v", err)
	}
	if res.Committed || res.Reason != ReasonStoreUnavailable {
		t.Errorf("Expected store_unavailable, got %+v", res)
	}

	res, err = engine.SetFlags(ctx, "A1", true, false)
	if !errors.Is(err, errUnavailable) || res.Committed {
		t.Errorf("Expected failed SetFlags, got %+v, %v", res, err)
	}

	logs, _ := store.ListLogs(ctx)
	if len(logs) != 0 {
		t.Errorf("Expected no logs, got %d", len(logs))
	}
}

func TestEngine_LogFailureAfterCommit(t *testing.T) {
	store := storage.NewMemoryStore()
	engine := NewEngine(store, failingLogs{store}, store)
	ctx := context.Background()

	res, err := engine.Assign(ctx, "A1", models.CategoryMotorcycle, vehicle("V1", "P1"))
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if !res.Committed {
		t.Fatal("Expected the slot transition to stand")
	}
	if !errors.Is(res.LogErr, errUnavailable) {
		t.Errorf("Expected LogErr, got %v", res.LogErr)
	}

	slots, _ := store.ListSlots(ctx)
	logs, _ := store.ListLogs(ctx)
	gaps := Reconcile(slots, logs)
	if len(gaps) != 1 || gaps[0].SlotID != "A1" || gaps[0].Reason != DiscrepancyMissingLog {
		t.Errorf("Expected reconciliation to report A1, got %+v", gaps)
	}
}
