package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/google/uuid"
)

const maxTxAttempts = 25

type versionedSlot struct {
	slot    models.Slot
	version int64
}

// MemoryStore is an in-process Store. Transact performs a real optimistic
// compare-and-set: fn runs outside the lock and the write only lands when the
// slot version is unchanged, otherwise the cycle is retried.
type MemoryStore struct {
	mu       sync.RWMutex
	slots    map[string]versionedSlot
	logs     []models.LogRecord
	settings map[string]interface{}

	nowFn func() time.Time

	subMu       sync.Mutex
	slotSubs    map[chan struct{}]struct{}
	logSubs     map[chan struct{}]struct{}
	settingSubs map[chan struct{}]struct{}
}

// NewMemoryStore creates an empty store using the wall clock in UTC.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:       make(map[string]versionedSlot),
		nowFn:       func() time.Time { return time.Now().UTC() },
		slotSubs:    make(map[chan struct{}]struct{}),
		logSubs:     make(map[chan struct{}]struct{}),
		settingSubs: make(map[chan struct{}]struct{}),
	}
}

// SetClock replaces the store clock. Used by tests to get stable timestamps.
func (s *MemoryStore) SetClock(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

func (s *MemoryStore) Transact(ctx context.Context, slotID string, fn TxFunc) (TxResult, error) {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return TxResult{}, err
		}

		s.mu.RLock()
		entry, exists := s.slots[slotID]
		now := s.nowFn()
		s.mu.RUnlock()

		var current *models.Slot
		if exists {
			current = entry.slot.Clone()
		}

		next, err := fn(current.Clone(), now)
		if errors.Is(err, ErrAbort) {
			return TxResult{Committed: false, Value: current}, nil
		}
		if err != nil {
			return TxResult{}, err
		}
		if next == nil {
			return TxResult{Committed: false, Value: current}, nil
		}

		s.mu.Lock()
		latest, stillExists := s.slots[slotID]
		if stillExists != exists || latest.version != entry.version {
			s.mu.Unlock()
			continue
		}
		stored := *next.Clone()
		stored.SlotID = slotID
		s.slots[slotID] = versionedSlot{slot: stored, version: entry.version + 1}
		s.mu.Unlock()

		s.notify(s.slotSubs)
		return TxResult{Committed: true, Value: stored.Clone()}, nil
	}
	return TxResult{}, ErrTooManyRetries
}

func (s *MemoryStore) SetFlags(_ context.Context, slotID string, category models.Category, maintenance, reserved bool) error {
	s.mu.Lock()
	entry, exists := s.slots[slotID]
	if !exists {
		entry.slot = models.Slot{SlotID: slotID, Category: category}
	}
	entry.slot.Maintenance = maintenance
	entry.slot.Reserved = reserved
	entry.version++
	s.slots[slotID] = entry
	s.mu.Unlock()

	s.notify(s.slotSubs)
	return nil
}

func (s *MemoryStore) GetSlot(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.slots[slotID]
	if !ok {
		return nil, ErrNotFound
	}
	return entry.slot.Clone(), nil
}

func (s *MemoryStore) ListSlots(_ context.Context) (map[string]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Slot, len(s.slots))
	for id, entry := range s.slots {
		out[id] = *entry.slot.Clone()
	}
	return out, nil
}

func (s *MemoryStore) SubscribeSlots(ctx context.Context, onSnapshot func(map[string]models.Slot)) error {
	return s.subscribe(ctx, s.slotSubs, func() {
		slots, _ := s.ListSlots(ctx)
		onSnapshot(slots)
	})
}

func (s *MemoryStore) AppendLog(_ context.Context, rec models.LogRecord) (string, error) {
	s.mu.Lock()
	rec.ID = uuid.New().String()
	created := s.nowFn()
	rec.CreatedAt = &created
	s.logs = append(s.logs, rec)
	s.mu.Unlock()

	s.notify(s.logSubs)
	return rec.ID, nil
}

// ListLogs returns records in insertion order.
func (s *MemoryStore) ListLogs(_ context.Context) ([]models.LogRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LogRecord, len(s.logs))
	copy(out, s.logs)
	return out, nil
}

func (s *MemoryStore) SubscribeLogs(ctx context.Context, onSnapshot func([]models.LogRecord)) error {
	return s.subscribe(ctx, s.logSubs, func() {
		logs, _ := s.ListLogs(ctx)
		onSnapshot(logs)
	})
}

func (s *MemoryStore) GetSettings(_ context.Context) (models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.SettingsFromMap(s.settings), nil
}

func (s *MemoryStore) SetCategoryTotal(_ context.Context, category models.Category, total int) error {
	s.mu.Lock()
	if s.settings == nil {
		s.settings = make(map[string]interface{})
	}
	s.settings[models.SettingsField(category)] = int64(total)
	s.mu.Unlock()

	s.notify(s.settingSubs)
	return nil
}

// SetRawSettings replaces the settings document verbatim, including values
// that are not numbers.
func (s *MemoryStore) SetRawSettings(raw map[string]interface{}) {
	s.mu.Lock()
	s.settings = raw
	s.mu.Unlock()
	s.notify(s.settingSubs)
}

func (s *MemoryStore) SubscribeSettings(ctx context.Context, onSnapshot func(models.Settings)) error {
	return s.subscribe(ctx, s.settingSubs, func() {
		settings, _ := s.GetSettings(ctx)
		onSnapshot(settings)
	})
}

// SlotIDs returns the stored keys in sorted order.
func (s *MemoryStore) SlotIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MemoryStore) Close() error {
	return nil
}

// subscribe delivers the current value, then one call per burst of changes.
// Bursts are coalesced: a listener always sees the latest state.
func (s *MemoryStore) subscribe(ctx context.Context, subs map[chan struct{}]struct{}, deliver func()) error {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	subs[ch] = struct{}{}
	s.subMu.Unlock()
	defer func() {
		s.subMu.Lock()
		delete(subs, ch)
		s.subMu.Unlock()
	}()

	deliver()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			deliver()
		}
	}
}

func (s *MemoryStore) notify(subs map[chan struct{}]struct{}) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
