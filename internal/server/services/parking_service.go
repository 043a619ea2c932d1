package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/KyooRuss/Parking-Management/internal/server/events"
	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/server/storage"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// inFlightTTL bounds how long a slot stays locked by a request that never
// finished.
const inFlightTTL = 30 * time.Second

// ParkingService wires the transition engine to its side effects and keeps a
// live projection of the store for the read-only views.
type ParkingService struct {
	store     storage.Store
	engine    *parking.Engine
	guard     *SlotGuard
	publisher events.Publisher
	alerts    Alerter
	metrics   *Metrics

	mu       sync.RWMutex
	snapshot parking.Snapshot
	logs     []models.LogRecord

	listenerMu sync.Mutex
	listeners  []func(parking.Snapshot)
}

// NewParkingService creates the service. publisher, alerts and metrics may
// be nil.
func NewParkingService(store storage.Store, publisher events.Publisher, alerts Alerter, metrics *Metrics) *ParkingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ParkingService{
		store:     store,
		engine:    parking.NewEngine(store, store, store),
		guard:     NewSlotGuard(inFlightTTL),
		publisher: publisher,
		alerts:    alerts,
		metrics:   metrics,
		snapshot:  parking.Snapshot{Slots: map[string]models.Slot{}, Settings: models.DefaultSettings()},
	}
}

// Refresh loads the current slots, settings and logs from the store.
func (s *ParkingService) Refresh(ctx context.Context) error {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	logs, err := s.store.ListLogs(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = parking.Snapshot{Slots: slots, Settings: settings}
	s.logs = logs
	s.mu.Unlock()

	s.changed()
	return nil
}

// Start loads the initial state, then follows store changes until ctx is
// done. Subscription failures are logged and retried.
func (s *ParkingService) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load parking state: %w", err)
	}

	go s.follow(ctx, "slots", func() error {
		return s.store.SubscribeSlots(ctx, func(slots map[string]models.Slot) {
			s.mu.Lock()
			s.snapshot.Slots = slots
			s.mu.Unlock()
			s.changed()
		})
	})
	go s.follow(ctx, "settings", func() error {
		return s.store.SubscribeSettings(ctx, func(settings models.Settings) {
			s.mu.Lock()
			s.snapshot.Settings = settings
			s.mu.Unlock()
			s.changed()
		})
	})
	go s.follow(ctx, "logs", func() error {
		return s.store.SubscribeLogs(ctx, func(logs []models.LogRecord) {
			s.mu.Lock()
			s.logs = logs
			s.mu.Unlock()
		})
	})
	return nil
}

func (s *ParkingService) follow(ctx context.Context, name string, subscribe func() error) {
	for {
		err := subscribe()
		if ctx.Err() != nil {
			return
		}
		log.Printf("Warning: %s subscription ended: %v (retrying in 5s)", name, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// OnChange registers fn to be called with every new projection.
func (s *ParkingService) OnChange(fn func(parking.Snapshot)) {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenerMu.Unlock()
}

func (s *ParkingService) changed() {
	snap := s.Snapshot()
	occ := snap.AllOccupancy()
	s.metrics.observeOccupancy(occ)

	s.listenerMu.Lock()
	listeners := append([]func(parking.Snapshot){}, s.listeners...)
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns the latest projection input. Slot maps are replaced on
// every change and never mutated, so the result is safe to read.
func (s *ParkingService) Snapshot() parking.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *ParkingService) Occupancy(category models.Category) models.Occupancy {
	return s.Snapshot().Occupancy(category)
}

func (s *ParkingService) AllOccupancy() []models.Occupancy {
	return s.Snapshot().AllOccupancy()
}

func (s *ParkingService) SlotDisplayState(slotID string) models.DisplayState {
	return s.Snapshot().SlotDisplayState(slotID)
}

func (s *ParkingService) Grid(category models.Category) []models.SlotView {
	return s.Snapshot().Grid(category)
}

func (s *ParkingService) Detail(slotID string) (models.SlotDetail, error) {
	return s.Snapshot().Detail(slotID)
}

func (s *ParkingService) Settings() models.Settings {
	return s.Snapshot().Settings
}

// DedupedLogs returns the deduplicated log, newest first, optionally for a
// single slot.
func (s *ParkingService) DedupedLogs(slotID string) []models.LogRecord {
	s.mu.RLock()
	logs := s.logs
	s.mu.RUnlock()
	return parking.FilterLogs(parking.DedupeLogs(logs), slotID)
}

func (s *ParkingService) Assign(ctx context.Context, slotID string, category models.Category, v parking.Vehicle) (parking.Result, error) {
	return s.guarded(ctx, "assign", slotID, func() (parking.Result, error) {
		return s.engine.Assign(ctx, slotID, category, v)
	})
}

func (s *ParkingService) Release(ctx context.Context, slotID string) (parking.Result, error) {
	return s.guarded(ctx, "release", slotID, func() (parking.Result, error) {
		return s.engine.Release(ctx, slotID)
	})
}

func (s *ParkingService) SetFlags(ctx context.Context, slotID string, maintenance, reserved bool) (parking.Result, error) {
	return s.guarded(ctx, "set_flags", slotID, func() (parking.Result, error) {
		return s.engine.SetFlags(ctx, slotID, maintenance, reserved)
	})
}

// Scan performs a park or leave from a scanned QR payload.
func (s *ParkingService) Scan(ctx context.Context, raw string, action parking.ScanAction, v parking.Vehicle) (parking.Result, error) {
	p, err := parking.ParseQRPayload(raw)
	if err != nil {
		s.metrics.observeTransition("scan", false, string(parking.ReasonInvalidSlot))
		return parking.Result{Reason: parking.ReasonInvalidSlot}, nil
	}
	var operation string
	switch action {
	case parking.ActionPark:
		operation = "assign"
	case parking.ActionLeave:
		operation = "release"
	default:
		return parking.Result{}, fmt.Errorf("unknown scan action %q", action)
	}
	return s.guarded(ctx, operation, p.Slot, func() (parking.Result, error) {
		return s.engine.Scan(ctx, raw, action, v)
	})
}

func (s *ParkingService) UpdateCapacity(ctx context.Context, category models.Category, total int) (parking.Result, error) {
	res, err := s.engine.UpdateCapacity(ctx, category, total)
	s.metrics.observeTransition("update_capacity", res.Committed, string(res.Reason))
	if err != nil || !res.Committed {
		return res, err
	}

	ev := events.NewEvent(events.TypeCapacityUpdated)
	ev.Category = category
	ev.Total = total
	s.publish(ctx, ev)
	return res, nil
}

// guarded runs op with slotID marked in flight, then records metrics and
// fans out side effects for committed results.
func (s *ParkingService) guarded(ctx context.Context, operation, slotID string, op func() (parking.Result, error)) (parking.Result, error) {
	release, ok := s.guard.TryAcquire(slotID)
	if !ok {
		s.metrics.observeTransition(operation, false, string(parking.ReasonInFlight))
		return parking.Result{Reason: parking.ReasonInFlight}, nil
	}
	defer release()

	res, err := op()
	s.metrics.observeTransition(operation, res.Committed, string(res.Reason))
	if err != nil {
		log.Printf("Warning: %s %s failed: %v", operation, slotID, err)
		return res, err
	}
	if !res.Committed {
		return res, nil
	}

	if res.LogErr != nil {
		s.metrics.observeLogFailure()
		status := models.StatusParked
		if operation == "release" {
			status = models.StatusExited
		}
		s.alert(func(a Alerter) error { return a.SendLogGapAlert(slotID, status, res.LogErr) })
	}

	ev := events.NewEvent(eventType(operation))
	ev.SlotID = slotID
	ev.Slot = res.Slot
	if category, _, err := parking.ParseSlotID(slotID); err == nil {
		ev.Category = category
	}
	s.publish(ctx, ev)
	return res, nil
}

func eventType(operation string) string {
	switch operation {
	case "assign":
		return events.TypeSlotAssigned
	case "release":
		return events.TypeSlotReleased
	}
	return events.TypeSlotFlags
}

func (s *ParkingService) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", ev.Type, err)
	}
	if ev.Category == "" {
		return
	}
	// The live snapshot may not have caught up with this commit yet.
	occ, err := s.currentOccupancy(ctx, ev.Category)
	if err != nil {
		log.Printf("Warning: failed to compute occupancy for %s: %v", ev.Category, err)
		return
	}
	if err := s.publisher.PublishOccupancy(ctx, occ); err != nil {
		log.Printf("Warning: failed to publish occupancy: %v", err)
	}
}

func (s *ParkingService) currentOccupancy(ctx context.Context, category models.Category) (models.Occupancy, error) {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return models.Occupancy{}, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return models.Occupancy{}, err
	}
	return parking.Snapshot{Slots: slots, Settings: settings}.Occupancy(category), nil
}

func (s *ParkingService) alert(send func(Alerter) error) {
	if s.alerts == nil {
		return
	}
	go func() {
		if err := send(s.alerts); err != nil {
			log.Printf("Warning: failed to send alert: %v", err)
		}
	}()
}

// Reconcile compares stored occupancy against the log, reading both fresh
// from the store.
func (s *ParkingService) Reconcile(ctx context.Context) ([]models.Discrepancy, error) {
	slots, err := s.store.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	logs, err := s.store.ListLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	found := parking.Reconcile(slots, logs)
	s.metrics.observeDiscrepancies(len(found))
	return found, nil
}

// RunReconciler reconciles every interval and emails a report whenever
// the set of discrepancies changes.
func (s *ParkingService) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastReported := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			found, err := s.Reconcile(ctx)
			if err != nil {
				log.Printf("Warning: reconciliation failed: %v", err)
				continue
			}
			key := discrepancyKey(found)
			if key == lastReported {
				continue
			}
			lastReported = key
			if len(found) == 0 {
				log.Println("Reconciliation: log is consistent with slot state")
				continue
			}
			log.Printf("Reconciliation: %d slot(s) without matching log entries", len(found))
			s.alert(func(a Alerter) error { return a.SendReconcileReport(found) })
		}
	}
}

func discrepancyKey(found []models.Discrepancy) string {
	key := ""
	for _, d := range found {
		key += d.SlotID + "/" + d.VehicleID + "/" + d.Reason + ";"
	}
	return key
}

func (s *ParkingService) Close() error {
	s.guard.Stop()
	return s.publisher.Close()
}
