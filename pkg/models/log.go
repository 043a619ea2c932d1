package models

import "time"

// LogStatus marks whether a log entry records an entry or an exit.
type LogStatus string

const (
	StatusParked LogStatus = "PARKED"
	StatusExited LogStatus = "EXITED"
)

// LogRecord is an immutable audit entry written once per committed transition.
// CreatedAt is assigned by the store and is nil until the store has resolved it.
type LogRecord struct {
	ID           string     `json:"id" db:"id"`
	SlotID       string     `json:"slotId" db:"slot_id"`
	Category     Category   `json:"category" db:"category"`
	VehicleID    *string    `json:"vehicleId" db:"vehicle_id"`
	Plate        *string    `json:"plate" db:"plate"`
	Contact      *string    `json:"contact" db:"contact"`
	UserID       *string    `json:"userId" db:"user_id"`
	UserName     *string    `json:"userName" db:"user_name"`
	UserImageURL *string    `json:"userImageUrl" db:"user_image_url"`
	Status       LogStatus  `json:"status" db:"status"`
	TimeIn       *time.Time `json:"timeIn" db:"time_in"`
	TimeOut      *time.Time `json:"timeOut" db:"time_out"`
	CreatedAt    *time.Time `json:"createdAt" db:"created_at"`
}

// DisplayName follows the log list fallback: name, then id, then "Unknown User".
func (l *LogRecord) DisplayName() string {
	if v := StringValue(l.UserName); v != "" {
		return v
	}
	if v := StringValue(l.UserID); v != "" {
		return v
	}
	return "Unknown User"
}
