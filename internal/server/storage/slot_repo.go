package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

const slotColumns = `slot_id, category, occupied, vehicle_id, plate, contact, user_id,
	user_name, user_image_url, time_in, maintenance, reserved, version`

type slotRow struct {
	models.Slot
	Version int64 `db:"version"`
}

type slotReadRow struct {
	models.Slot
	Version int64     `db:"version"`
	TxTime  time.Time `db:"tx_time"`
}

type SlotRepository struct {
	db *DB
}

func NewSlotRepository(db *DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Load reads a slot together with its version and the database clock.
// slot is nil when the row does not exist.
func (r *SlotRepository) Load(ctx context.Context, slotID string) (slot *models.Slot, version int64, now time.Time, err error) {
	var row slotReadRow
	query := `SELECT ` + slotColumns + `, now() AS tx_time FROM parking_slots WHERE slot_id = $1`
	err = r.db.GetContext(ctx, &row, query, slotID)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, &now, `SELECT now()`)
		return nil, 0, now, err
	}
	if err != nil {
		return nil, 0, time.Time{}, err
	}
	s := row.Slot
	return &s, row.Version, row.TxTime, nil
}

// Insert creates a slot row. It reports false when another writer created
// the row first.
func (r *SlotRepository) Insert(ctx context.Context, slot *models.Slot) (bool, error) {
	query := `
		INSERT INTO parking_slots (slot_id, category, occupied, vehicle_id, plate, contact, user_id,
			user_name, user_image_url, time_in, maintenance, reserved, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
		ON CONFLICT (slot_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		slot.SlotID, slot.Category, slot.Occupied, slot.VehicleID, slot.Plate, slot.Contact,
		slot.UserID, slot.UserName, slot.UserImageURL, slot.TimeIn, slot.Maintenance, slot.Reserved,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CompareAndSwap overwrites the slot only if its version is still version.
func (r *SlotRepository) CompareAndSwap(ctx context.Context, slot *models.Slot, version int64) (bool, error) {
	query := `
		UPDATE parking_slots
		SET category = $2, occupied = $3, vehicle_id = $4, plate = $5, contact = $6, user_id = $7,
			user_name = $8, user_image_url = $9, time_in = $10, maintenance = $11, reserved = $12,
			version = version + 1, updated_at = NOW()
		WHERE slot_id = $1 AND version = $13
	`
	res, err := r.db.ExecContext(ctx, query,
		slot.SlotID, slot.Category, slot.Occupied, slot.VehicleID, slot.Plate, slot.Contact,
		slot.UserID, slot.UserName, slot.UserImageURL, slot.TimeIn, slot.Maintenance, slot.Reserved,
		version,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetFlags upserts the two hold flags without touching occupancy.
func (r *SlotRepository) SetFlags(ctx context.Context, slotID string, category models.Category, maintenance, reserved bool) error {
	query := `
		INSERT INTO parking_slots (slot_id, category, maintenance, reserved, version)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (slot_id) DO UPDATE
		SET maintenance = EXCLUDED.maintenance, reserved = EXCLUDED.reserved,
			version = parking_slots.version + 1, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, slotID, category, maintenance, reserved)
	return err
}

func (r *SlotRepository) GetByID(ctx context.Context, slotID string) (*models.Slot, error) {
	var row slotRow
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE slot_id = $1`
	err := r.db.GetContext(ctx, &row, query, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row.Slot, nil
}

func (r *SlotRepository) List(ctx context.Context) ([]models.Slot, error) {
	var rows []slotRow
	query := `SELECT ` + slotColumns + ` FROM parking_slots ORDER BY slot_id`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	slots := make([]models.Slot, len(rows))
	for i, row := range rows {
		slots[i] = row.Slot
	}
	return slots, nil
}
