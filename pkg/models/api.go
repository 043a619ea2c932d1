package models

// Slot API types
type AssignRequest struct {
	Category     string `json:"category" validate:"required,oneof=Motorcycle Car"`
	VehicleID    string `json:"vehicleId" validate:"required,max=64"`
	Plate        string `json:"plate" validate:"required,max=16"`
	Contact      string `json:"contact" validate:"required,max=32"`
	UserID       string `json:"userId,omitempty" validate:"omitempty,max=128"`
	UserName     string `json:"userName,omitempty" validate:"omitempty,max=128"`
	UserImageURL string `json:"userImageUrl,omitempty" validate:"omitempty,url"`
}

type SetFlagsRequest struct {
	Maintenance bool `json:"maintenance"`
	Reserved    bool `json:"reserved"`
}

type UpdateCapacityRequest struct {
	Total int `json:"total" validate:"required,gt=0,lte=1000"`
}

// ScanRequest is what the mobile app sends after decoding a slot QR code.
type ScanRequest struct {
	QR           string `json:"qr" validate:"required"`
	Action       string `json:"action" validate:"required,oneof=park leave"`
	VehicleID    string `json:"vehicleId,omitempty" validate:"required_if=Action park,max=64"`
	Plate        string `json:"plate,omitempty" validate:"required_if=Action park,max=16"`
	Contact      string `json:"contact,omitempty" validate:"required_if=Action park,max=32"`
	UserID       string `json:"userId,omitempty" validate:"omitempty,max=128"`
	UserName     string `json:"userName,omitempty" validate:"omitempty,max=128"`
	UserImageURL string `json:"userImageUrl,omitempty" validate:"omitempty,url"`
}

// TransitionResponse reports the outcome of an engine operation.
type TransitionResponse struct {
	Committed bool   `json:"committed"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
	Slot      *Slot  `json:"slot,omitempty"`
	LogID     string `json:"log_id,omitempty"`
}

type OccupancyResponse struct {
	Categories []Occupancy `json:"categories"`
}

type SlotGridResponse struct {
	Category Category   `json:"category"`
	Slots    []SlotView `json:"slots"`
}

type LogsResponse struct {
	Logs []LogRecord `json:"logs"`
}

// Discrepancy is an occupied slot whose PARKED entry is missing from the log.
type Discrepancy struct {
	SlotID    string `json:"slot_id"`
	VehicleID string `json:"vehicle_id"`
	Reason    string `json:"reason"`
}

type ReconcileResponse struct {
	CheckedAt     string        `json:"checked_at"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
