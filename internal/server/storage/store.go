package storage

import (
	"context"
	"errors"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// ErrAbort is returned by a TxFunc to leave the slot untouched. The
// transaction then resolves as not committed without an error.
var ErrAbort = errors.New("transaction aborted")

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

// ErrTooManyRetries is returned when a compare-and-set loop keeps losing.
var ErrTooManyRetries = errors.New("transaction retry limit exceeded")

// TxFunc computes the next slot value from the current one. current is nil
// when the slot has never been written. txTime is the store's clock for the
// attempt and is the value to use wherever a server timestamp is required.
//
// The function may run several times and must not have side effects.
type TxFunc func(current *models.Slot, txTime time.Time) (*models.Slot, error)

// TxResult is the outcome of Transact. Value is the committed slot, or the
// value the last attempt observed when not committed.
type TxResult struct {
	Committed bool
	Value     *models.Slot
}

// SlotStore maps slot identifiers to slot records.
type SlotStore interface {
	// Transact runs fn as an optimistic read-compute-write on one key,
	// retrying on conflicting writes until it commits or fn aborts.
	Transact(ctx context.Context, slotID string, fn TxFunc) (TxResult, error)
	// SetFlags overwrites the maintenance and reserved fields only.
	SetFlags(ctx context.Context, slotID string, category models.Category, maintenance, reserved bool) error
	GetSlot(ctx context.Context, slotID string) (*models.Slot, error)
	ListSlots(ctx context.Context) (map[string]models.Slot, error)
	// SubscribeSlots pushes the current mapping and every later change until
	// ctx is done.
	SubscribeSlots(ctx context.Context, onSnapshot func(map[string]models.Slot)) error
}

// LogStore is an insert-only list of log records.
type LogStore interface {
	// AppendLog inserts rec, stamping CreatedAt with the store clock, and
	// returns the generated id.
	AppendLog(ctx context.Context, rec models.LogRecord) (string, error)
	ListLogs(ctx context.Context) ([]models.LogRecord, error)
	SubscribeLogs(ctx context.Context, onSnapshot func([]models.LogRecord)) error
}

// SettingsStore holds the per-category totals.
type SettingsStore interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	// SetCategoryTotal overwrites a single category total.
	SetCategoryTotal(ctx context.Context, category models.Category, total int) error
	SubscribeSettings(ctx context.Context, onSnapshot func(models.Settings)) error
}

// Store bundles the three collaborators behind one backend.
type Store interface {
	SlotStore
	LogStore
	SettingsStore
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FirestoreStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
