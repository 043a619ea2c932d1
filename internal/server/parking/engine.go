package parking

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// Reason explains why an operation did not commit.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonAlreadyOccupied  Reason = "already_occupied"
	ReasonUnderMaintenance Reason = "under_maintenance"
	ReasonAlreadyAvailable Reason = "already_available"
	ReasonInvalidSlot      Reason = "invalid_slot"
	ReasonCategoryMismatch Reason = "category_mismatch"
	ReasonSlotOutOfRange   Reason = "slot_out_of_range"
	ReasonInvalidVehicle   Reason = "invalid_vehicle"
	ReasonConflictingHolds Reason = "conflicting_holds"
	ReasonInvalidCapacity  Reason = "invalid_capacity"
	ReasonStoreUnavailable Reason = "store_unavailable"
	ReasonInFlight         Reason = "in_flight"
)

var reasonMessages = map[Reason]string{
	ReasonAlreadyOccupied:  "Slot is already occupied",
	ReasonUnderMaintenance: "Slot is under maintenance",
	ReasonAlreadyAvailable: "Slot is already available",
	ReasonInvalidSlot:      "Unknown slot",
	ReasonCategoryMismatch: "Slot does not belong to this vehicle category",
	ReasonSlotOutOfRange:   "Slot is beyond the configured capacity",
	ReasonInvalidVehicle:   "Vehicle id, plate and contact are required",
	ReasonConflictingHolds: "A slot cannot be reserved and under maintenance at the same time",
	ReasonInvalidCapacity:  "Capacity must be a positive number",
	ReasonStoreUnavailable: "Parking data is unavailable, please try again",
	ReasonInFlight:         "Another request for this slot is still being processed",
}

// Message is the user-facing text for a reason.
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "OK"
}

// Invalid reports whether the reason is a rejected input rather than a
// precondition that failed against the stored slot.
func (r Reason) Invalid() bool {
	switch r {
	case ReasonInvalidSlot, ReasonCategoryMismatch, ReasonSlotOutOfRange,
		ReasonInvalidVehicle, ReasonConflictingHolds, ReasonInvalidCapacity:
		return true
	}
	return false
}

// Result is the outcome of an engine operation. Slot holds the committed
// value, or the value observed when the precondition failed.
//
// LogErr is set when the slot committed but the log append failed. The
// transition stands; reconciliation will report the gap.
type Result struct {
	Committed bool
	Reason    Reason
	Slot      *models.Slot
	LogID     string
	LogErr    error
}

func rejected(reason Reason) Result {
	return Result{Reason: reason}
}

// Vehicle is the occupant written into a slot on assign.
type Vehicle struct {
	VehicleID    string
	Plate        string
	Contact      string
	UserID       string
	UserName     string
	UserImageURL string
}

func (v Vehicle) valid() bool {
	return strings.TrimSpace(v.VehicleID) != "" &&
		strings.TrimSpace(v.Plate) != "" &&
		strings.TrimSpace(v.Contact) != ""
}

// Engine applies slot transitions as single-key optimistic transactions and
// appends a log record after every commit.
type Engine struct {
	slots    storage.SlotStore
	logs     storage.LogStore
	settings storage.SettingsStore
}

func NewEngine(slots storage.SlotStore, logs storage.LogStore, settings storage.SettingsStore) *Engine {
	return &Engine{slots: slots, logs: logs, settings: settings}
}

// Assign parks a vehicle in slotID. It commits only if the slot, as read by
// the transaction itself, is free and not under maintenance. Reserved slots
// are assignable.
func (e *Engine) Assign(ctx context.Context, slotID string, category models.Category, v Vehicle) (Result, error) {
	slotCategory, index, err := ParseSlotID(slotID)
	if err != nil {
		return rejected(ReasonInvalidSlot), nil
	}
	if category != slotCategory {
		return rejected(ReasonCategoryMismatch), nil
	}
	if !v.valid() {
		return rejected(ReasonInvalidVehicle), nil
	}

	settings, err := e.settings.GetSettings(ctx)
	if err != nil {
		return rejected(ReasonStoreUnavailable), fmt.Errorf("failed to read capacity: %w", err)
	}
	if total := min(settings.Total(category), models.MaxCategoryTotal); total > 0 && index > total {
		return rejected(ReasonSlotOutOfRange), nil
	}

	var reason Reason
	res, err := e.slots.Transact(ctx, slotID, func(current *models.Slot, txTime time.Time) (*models.Slot, error) {
		reason = ReasonNone
		next := current
		if next == nil {
			next = &models.Slot{SlotID: slotID}
		}
		if next.Occupied {
			reason = ReasonAlreadyOccupied
			return nil, storage.ErrAbort
		}
		if next.Maintenance {
			reason = ReasonUnderMaintenance
			return nil, storage.ErrAbort
		}

		timeIn := txTime
		next.Category = category
		next.Occupied = true
		next.VehicleID = models.StringPtr(v.VehicleID)
		next.Plate = models.StringPtr(v.Plate)
		next.Contact = models.StringPtr(v.Contact)
		next.UserID = models.StringPtr(v.UserID)
		next.UserName = models.StringPtr(v.UserName)
		next.UserImageURL = models.StringPtr(v.UserImageURL)
		next.TimeIn = &timeIn
		return next, nil
	})
	if err != nil {
		return rejected(ReasonStoreUnavailable), fmt.Errorf("assign %s: %w", slotID, err)
	}
	if !res.Committed {
		return Result{Reason: reason, Slot: res.Value}, nil
	}

	slot := res.Value
	result := Result{Committed: true, Slot: slot}
	result.LogID, result.LogErr = e.appendLog(ctx, models.LogRecord{
		SlotID:       slotID,
		Category:     category,
		VehicleID:    slot.VehicleID,
		Plate:        slot.Plate,
		Contact:      slot.Contact,
		UserID:       slot.UserID,
		UserName:     slot.UserName,
		UserImageURL: slot.UserImageURL,
		Status:       models.StatusParked,
		TimeIn:       slot.TimeIn,
	})
	return result, nil
}

// Release frees an occupied slot. Holds are preserved. The EXITED record
// reuses the vehicle and time in observed by the committing attempt.
func (e *Engine) Release(ctx context.Context, slotID string) (Result, error) {
	category, _, err := ParseSlotID(slotID)
	if err != nil {
		return rejected(ReasonInvalidSlot), nil
	}

	var (
		reason  Reason
		prior   *models.Slot
		timeOut time.Time
	)
	res, err := e.slots.Transact(ctx, slotID, func(current *models.Slot, txTime time.Time) (*models.Slot, error) {
		reason, prior = ReasonNone, nil
		if current == nil || !current.Occupied {
			reason = ReasonAlreadyAvailable
			return nil, storage.ErrAbort
		}
		prior = current.Clone()
		timeOut = txTime

		next := current
		next.ClearVehicle()
		if next.Category == "" {
			next.Category = category
		}
		return next, nil
	})
	if err != nil {
		return rejected(ReasonStoreUnavailable), fmt.Errorf("release %s: %w", slotID, err)
	}
	if !res.Committed {
		return Result{Reason: reason, Slot: res.Value}, nil
	}

	logCategory := prior.Category
	if logCategory == "" {
		logCategory = category
	}
	result := Result{Committed: true, Slot: res.Value}
	result.LogID, result.LogErr = e.appendLog(ctx, models.LogRecord{
		SlotID:       slotID,
		Category:     logCategory,
		VehicleID:    prior.VehicleID,
		Plate:        prior.Plate,
		Contact:      prior.Contact,
		UserID:       prior.UserID,
		UserName:     prior.UserName,
		UserImageURL: prior.UserImageURL,
		Status:       models.StatusExited,
		TimeIn:       prior.TimeIn,
		TimeOut:      &timeOut,
	})
	return result, nil
}

// SetFlags overwrites the maintenance and reserved holds without reading the
// slot first. Both holds at once are rejected.
func (e *Engine) SetFlags(ctx context.Context, slotID string, maintenance, reserved bool) (Result, error) {
	category, _, err := ParseSlotID(slotID)
	if err != nil {
		return rejected(ReasonInvalidSlot), nil
	}
	if maintenance && reserved {
		return rejected(ReasonConflictingHolds), nil
	}

	if err := e.slots.SetFlags(ctx, slotID, category, maintenance, reserved); err != nil {
		return rejected(ReasonStoreUnavailable), err
	}
	return Result{Committed: true}, nil
}

// UpdateCapacity overwrites the total for one category.
func (e *Engine) UpdateCapacity(ctx context.Context, category models.Category, total int) (Result, error) {
	if !category.Valid() || total <= 0 || total > models.MaxCategoryTotal {
		return rejected(ReasonInvalidCapacity), nil
	}
	if err := e.settings.SetCategoryTotal(ctx, category, total); err != nil {
		return rejected(ReasonStoreUnavailable), err
	}
	return Result{Committed: true}, nil
}

func (e *Engine) appendLog(ctx context.Context, rec models.LogRecord) (string, error) {
	id, err := e.logs.AppendLog(ctx, rec)
	if err != nil {
		log.Printf("Warning: slot %s committed %s but log append failed: %v", rec.SlotID, rec.Status, err)
		return "", err
	}
	return id, nil
}
