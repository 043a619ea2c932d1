package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

type settingsRow struct {
	MotorcycleTotal sql.NullInt64 `db:"motorcycle_total"`
	CarTotal        sql.NullInt64 `db:"car_total"`
	UpdatedAt       *time.Time    `db:"updated_at"`
}

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the capacity settings. Missing row or NULL columns fall back
// to the default total.
func (r *SettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	var row settingsRow
	query := `SELECT motorcycle_total, car_total, updated_at FROM parking_settings WHERE id = 1`
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}

	raw := map[string]interface{}{}
	if row.MotorcycleTotal.Valid {
		raw["motorcycleTotal"] = row.MotorcycleTotal.Int64
	}
	if row.CarTotal.Valid {
		raw["carTotal"] = row.CarTotal.Int64
	}
	settings := models.SettingsFromMap(raw)
	settings.UpdatedAt = row.UpdatedAt
	return settings, nil
}

// SetTotal overwrites one category column, creating the row if needed.
func (r *SettingsRepository) SetTotal(ctx context.Context, category models.Category, total int) error {
	var column string
	switch category {
	case models.CategoryMotorcycle:
		column = "motorcycle_total"
	case models.CategoryCar:
		column = "car_total"
	default:
		return fmt.Errorf("unknown category %q", category)
	}

	query := `
		INSERT INTO parking_settings (id, ` + column + `, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET ` + column + ` = EXCLUDED.` + column + `, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, total)
	return err
}
