package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/KyooRuss/Parking-Management/pkg/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps parking state in Firestore.
// Path: {root}/{site}/slots/{slotId}, {root}/{site}/logs/{autoId},
// {root}/{site}/settings/capacity
type FirestoreStore struct {
	client *firestore.Client
	site   *firestore.DocumentRef
}

// firestoreLog mirrors models.LogRecord so that createdAt is filled in by
// the server on insert.
type firestoreLog struct {
	SlotID       string     `firestore:"slotId"`
	Category     string     `firestore:"category"`
	VehicleID    *string    `firestore:"vehicleId"`
	Plate        *string    `firestore:"plate"`
	Contact      *string    `firestore:"contact"`
	UserID       *string    `firestore:"userId"`
	UserName     *string    `firestore:"userName"`
	UserImageURL *string    `firestore:"userImageUrl"`
	Status       string     `firestore:"status"`
	TimeIn       *time.Time `firestore:"timeIn"`
	TimeOut      *time.Time `firestore:"timeOut"`
	CreatedAt    time.Time  `firestore:"createdAt,serverTimestamp"`
}

func NewFirestoreStore(client *firestore.Client, root, site string) *FirestoreStore {
	if root == "" {
		root = "parking-management"
	}
	if site == "" {
		site = "default"
	}
	return &FirestoreStore{
		client: client,
		site:   client.Collection(root).Doc(site),
	}
}

func (s *FirestoreStore) slots() *firestore.CollectionRef {
	return s.site.Collection("slots")
}

func (s *FirestoreStore) logs() *firestore.CollectionRef {
	return s.site.Collection("logs")
}

func (s *FirestoreStore) settings() *firestore.DocumentRef {
	return s.site.Collection("settings").Doc("capacity")
}

// Transact uses a Firestore transaction, which Firestore retries by itself
// when the document changes between read and commit. The read time of the
// transaction snapshot serves as the server timestamp.
func (s *FirestoreStore) Transact(ctx context.Context, slotID string, fn TxFunc) (TxResult, error) {
	ref := s.slots().Doc(slotID)

	var result TxResult
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = TxResult{}

		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("failed to read slot %s: %w", slotID, err)
		}

		var current *models.Slot
		if snap != nil && snap.Exists() {
			var slot models.Slot
			if err := snap.DataTo(&slot); err != nil {
				return fmt.Errorf("failed to parse slot %s: %w", slotID, err)
			}
			slot.SlotID = slotID
			current = &slot
		}

		txTime := time.Now().UTC()
		if snap != nil && !snap.ReadTime.IsZero() {
			txTime = snap.ReadTime.UTC()
		}

		next, err := fn(current.Clone(), txTime)
		if err != nil {
			result.Value = current
			return err
		}
		if next == nil {
			result.Value = current
			return ErrAbort
		}
		next.SlotID = slotID

		if err := tx.Set(ref, next); err != nil {
			return err
		}
		result = TxResult{Committed: true, Value: next.Clone()}
		return nil
	})

	if errors.Is(err, ErrAbort) {
		return TxResult{Committed: false, Value: result.Value}, nil
	}
	if err != nil {
		return TxResult{}, fmt.Errorf("slot transaction failed: %w", err)
	}
	return result, nil
}

func (s *FirestoreStore) SetFlags(ctx context.Context, slotID string, category models.Category, maintenance, reserved bool) error {
	_, err := s.slots().Doc(slotID).Set(ctx, map[string]interface{}{
		"slotId":      slotID,
		"category":    string(category),
		"maintenance": maintenance,
		"reserved":    reserved,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to set flags on slot %s: %w", slotID, err)
	}
	return nil
}

func (s *FirestoreStore) GetSlot(ctx context.Context, slotID string) (*models.Slot, error) {
	doc, err := s.slots().Doc(slotID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot %s: %w", slotID, err)
	}
	var slot models.Slot
	if err := doc.DataTo(&slot); err != nil {
		return nil, fmt.Errorf("failed to parse slot %s: %w", slotID, err)
	}
	slot.SlotID = doc.Ref.ID
	return &slot, nil
}

func (s *FirestoreStore) ListSlots(ctx context.Context) (map[string]models.Slot, error) {
	docs, err := s.slots().Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return decodeSlots(docs)
}

func (s *FirestoreStore) SubscribeSlots(ctx context.Context, onSnapshot func(map[string]models.Slot)) error {
	it := s.slots().Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("slot subscription failed: %w", err)
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read slot snapshot: %w", err)
		}
		slots, err := decodeSlots(docs)
		if err != nil {
			return err
		}
		onSnapshot(slots)
	}
}

func (s *FirestoreStore) AppendLog(ctx context.Context, rec models.LogRecord) (string, error) {
	ref, _, err := s.logs().Add(ctx, firestoreLog{
		SlotID:       rec.SlotID,
		Category:     string(rec.Category),
		VehicleID:    rec.VehicleID,
		Plate:        rec.Plate,
		Contact:      rec.Contact,
		UserID:       rec.UserID,
		UserName:     rec.UserName,
		UserImageURL: rec.UserImageURL,
		Status:       string(rec.Status),
		TimeIn:       rec.TimeIn,
		TimeOut:      rec.TimeOut,
	})
	if err != nil {
		return "", fmt.Errorf("failed to append log: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) ListLogs(ctx context.Context) ([]models.LogRecord, error) {
	iter := s.logs().Documents(ctx)
	defer iter.Stop()

	var logs []models.LogRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate logs: %w", err)
		}
		rec, err := decodeLog(doc)
		if err != nil {
			return nil, err
		}
		logs = append(logs, rec)
	}
	return logs, nil
}

func (s *FirestoreStore) SubscribeLogs(ctx context.Context, onSnapshot func([]models.LogRecord)) error {
	it := s.logs().Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("log subscription failed: %w", err)
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read log snapshot: %w", err)
		}
		logs := make([]models.LogRecord, 0, len(docs))
		for _, doc := range docs {
			rec, err := decodeLog(doc)
			if err != nil {
				return err
			}
			logs = append(logs, rec)
		}
		onSnapshot(logs)
	}
}

func (s *FirestoreStore) GetSettings(ctx context.Context) (models.Settings, error) {
	doc, err := s.settings().Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return settingsFromDoc(doc), nil
}

func (s *FirestoreStore) SetCategoryTotal(ctx context.Context, category models.Category, total int) error {
	_, err := s.settings().Set(ctx, map[string]interface{}{
		models.SettingsField(category): total,
		"updatedAt":                    firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to save %s total: %w", category, err)
	}
	return nil
}

func (s *FirestoreStore) SubscribeSettings(ctx context.Context, onSnapshot func(models.Settings)) error {
	it := s.settings().Snapshots(ctx)
	defer it.Stop()

	for {
		doc, err := it.Next()
		if err != nil && status.Code(err) != codes.NotFound {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("settings subscription failed: %w", err)
		}
		onSnapshot(settingsFromDoc(doc))
	}
}

func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func decodeSlots(docs []*firestore.DocumentSnapshot) (map[string]models.Slot, error) {
	slots := make(map[string]models.Slot, len(docs))
	for _, doc := range docs {
		var slot models.Slot
		if err := doc.DataTo(&slot); err != nil {
			return nil, fmt.Errorf("failed to parse slot %s: %w", doc.Ref.ID, err)
		}
		slot.SlotID = doc.Ref.ID
		slots[doc.Ref.ID] = slot
	}
	return slots, nil
}

func decodeLog(doc *firestore.DocumentSnapshot) (models.LogRecord, error) {
	var fl firestoreLog
	if err := doc.DataTo(&fl); err != nil {
		return models.LogRecord{}, fmt.Errorf("failed to parse log %s: %w", doc.Ref.ID, err)
	}
	rec := models.LogRecord{
		ID:           doc.Ref.ID,
		SlotID:       fl.SlotID,
		Category:     models.Category(fl.Category),
		VehicleID:    fl.VehicleID,
		Plate:        fl.Plate,
		Contact:      fl.Contact,
		UserID:       fl.UserID,
		UserName:     fl.UserName,
		UserImageURL: fl.UserImageURL,
		Status:       models.LogStatus(fl.Status),
		TimeIn:       fl.TimeIn,
		TimeOut:      fl.TimeOut,
	}
	if !fl.CreatedAt.IsZero() {
		created := fl.CreatedAt
		rec.CreatedAt = &created
	}
	return rec, nil
}

func settingsFromDoc(doc *firestore.DocumentSnapshot) models.Settings {
	if doc == nil || !doc.Exists() {
		return models.DefaultSettings()
	}
	return models.SettingsFromMap(doc.Data())
}
