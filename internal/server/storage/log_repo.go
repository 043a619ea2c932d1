package storage

import (
	"context"

	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/google/uuid"
)

type LogRepository struct {
	db *DB
}

func NewLogRepository(db *DB) *LogRepository {
	return &LogRepository{db: db}
}

// Create inserts rec with a fresh id; created_at comes from the database.
func (r *LogRepository) Create(ctx context.Context, rec *models.LogRecord) error {
	rec.ID = uuid.New().String()
	query := `
		INSERT INTO parking_logs (id, slot_id, category, vehicle_id, plate, contact, user_id,
			user_name, user_image_url, status, time_in, time_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		rec.ID, rec.SlotID, rec.Category, rec.VehicleID, rec.Plate, rec.Contact, rec.UserID,
		rec.UserName, rec.UserImageURL, rec.Status, rec.TimeIn, rec.TimeOut,
	).Scan(&rec.CreatedAt)
}

// List returns every record in insertion order.
func (r *LogRepository) List(ctx context.Context) ([]models.LogRecord, error) {
	var logs []models.LogRecord
	query := `
		SELECT id, slot_id, category, vehicle_id, plate, contact, user_id, user_name,
			user_image_url, status, time_in, time_out, created_at
		FROM parking_logs ORDER BY seq
	`
	err := r.db.SelectContext(ctx, &logs, query)
	return logs, err
}
