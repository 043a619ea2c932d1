package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/lib/pq"
)

// ChangeChannel is the LISTEN/NOTIFY channel the table triggers publish to.
// The payload is the name of the table that changed.
const ChangeChannel = "parking_changes"

// PostgresStore implements Store on top of the parking_* tables. Slot
// transactions are optimistic: the row version is compared on write and the
// cycle is retried when another writer got there first.
type PostgresStore struct {
	db       *DB
	slots    *SlotRepository
	logs     *LogRepository
	settings *SettingsRepository
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		slots:    NewSlotRepository(db),
		logs:     NewLogRepository(db),
		settings: NewSettingsRepository(db),
	}
}

func (s *PostgresStore) Transact(ctx context.Context, slotID string, fn TxFunc) (TxResult, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		current, version, txTime, err := s.slots.Load(ctx, slotID)
		if err != nil {
			return TxResult{}, fmt.Errorf("failed to load slot %s: %w", slotID, err)
		}

		next, err := fn(current.Clone(), txTime)
		if errors.Is(err, ErrAbort) {
			return TxResult{Committed: false, Value: current}, nil
		}
		if err != nil {
			return TxResult{}, err
		}
		if next == nil {
			return TxResult{Committed: false, Value: current}, nil
		}
		next = next.Clone()
		next.SlotID = slotID

		var ok bool
		if current == nil {
			ok, err = s.slots.Insert(ctx, next)
		} else {
			ok, err = s.slots.CompareAndSwap(ctx, next, version)
		}
		if err != nil {
			return TxResult{}, fmt.Errorf("failed to write slot %s: %w", slotID, err)
		}
		if ok {
			return TxResult{Committed: true, Value: next}, nil
		}
	}
	return TxResult{}, ErrTooManyRetries
}

func (s *PostgresStore) SetFlags(ctx context.Context, slotID string, category models.Category, maintenance, reserved bool) error {
	if err := s.slots.SetFlags(ctx, slotID, category, maintenance, reserved); err != nil {
		return fmt.Errorf("failed to set flags on slot %s: %w", slotID, err)
	}
	return nil
}

func (s *PostgresStore) GetSlot(ctx context.Context, slotID string) (*models.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get slot %s: %w", slotID, err)
	}
	if slot == nil {
		return nil, ErrNotFound
	}
	return slot, nil
}

func (s *PostgresStore) ListSlots(ctx context.Context) (map[string]models.Slot, error) {
	list, err := s.slots.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	out := make(map[string]models.Slot, len(list))
	for _, slot := range list {
		out[slot.SlotID] = slot
	}
	return out, nil
}

func (s *PostgresStore) SubscribeSlots(ctx context.Context, onSnapshot func(map[string]models.Slot)) error {
	return s.listen(ctx, "parking_slots", func() error {
		slots, err := s.ListSlots(ctx)
		if err != nil {
			return err
		}
		onSnapshot(slots)
		return nil
	})
}

func (s *PostgresStore) AppendLog(ctx context.Context, rec models.LogRecord) (string, error) {
	if err := s.logs.Create(ctx, &rec); err != nil {
		return "", fmt.Errorf("failed to append log: %w", err)
	}
	return rec.ID, nil
}

func (s *PostgresStore) ListLogs(ctx context.Context) ([]models.LogRecord, error) {
	logs, err := s.logs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresStore) SubscribeLogs(ctx context.Context, onSnapshot func([]models.LogRecord)) error {
	return s.listen(ctx, "parking_logs", func() error {
		logs, err := s.ListLogs(ctx)
		if err != nil {
			return err
		}
		onSnapshot(logs)
		return nil
	})
}

func (s *PostgresStore) GetSettings(ctx context.Context) (models.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStore) SetCategoryTotal(ctx context.Context, category models.Category, total int) error {
	if err := s.settings.SetTotal(ctx, category, total); err != nil {
		return fmt.Errorf("failed to save %s total: %w", category, err)
	}
	return nil
}

func (s *PostgresStore) SubscribeSettings(ctx context.Context, onSnapshot func(models.Settings)) error {
	return s.listen(ctx, "parking_settings", func() error {
		settings, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}
		onSnapshot(settings)
		return nil
	})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// listen reloads once up front and again whenever table changes. A nil
// notification means the listener reconnected and events may have been
// missed, so it also triggers a reload.
func (s *PostgresStore) listen(ctx context.Context, table string, reload func() error) error {
	if s.db.URL() == "" {
		return fmt.Errorf("subscriptions need a connection URL")
	}

	listener := pq.NewListener(s.db.URL(), 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("Warning: %s listener event %d: %v", table, ev, err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err)
	}

	if err := reload(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n != nil && n.Extra != table {
				continue
			}
			if err := reload(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}
