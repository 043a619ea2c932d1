package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the vehicle class a slot is reserved for.
type Category string

const (
	CategoryMotorcycle Category = "Motorcycle"
	CategoryCar        Category = "Car"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryMotorcycle, CategoryCar}

// Prefix returns the slot identifier prefix for the category ("A" or "B").
func (c Category) Prefix() string {
	switch c {
	case CategoryMotorcycle:
		return "A"
	case CategoryCar:
		return "B"
	}
	return ""
}

func (c Category) Valid() bool {
	return c.Prefix() != ""
}

// ParseCategory accepts the canonical names case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "motorcycle":
		return CategoryMotorcycle, nil
	case "car":
		return CategoryCar, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CategoryForPrefix maps "A"/"B" back to a category.
func CategoryForPrefix(prefix string) (Category, bool) {
	switch prefix {
	case "A":
		return CategoryMotorcycle, true
	case "B":
		return CategoryCar, true
	}
	return "", false
}

// Slot is the record stored under slots/{slotId}.
// Vehicle fields and TimeIn are nil whenever Occupied is false.
type Slot struct {
	SlotID       string     `json:"slotId" db:"slot_id" firestore:"slotId"`
	Category     Category   `json:"category" db:"category" firestore:"category"`
	Occupied     bool       `json:"occupied" db:"occupied" firestore:"occupied"`
	VehicleID    *string    `json:"vehicleId" db:"vehicle_id" firestore:"vehicleId"`
	Plate        *string    `json:"plate" db:"plate" firestore:"plate"`
	Contact      *string    `json:"contact" db:"contact" firestore:"contact"`
	UserID       *string    `json:"userId" db:"user_id" firestore:"userId"`
	UserName     *string    `json:"userName" db:"user_name" firestore:"userName"`
	UserImageURL *string    `json:"userImageUrl" db:"user_image_url" firestore:"userImageUrl"`
	TimeIn       *time.Time `json:"timeIn" db:"time_in" firestore:"timeIn"`
	Maintenance  bool       `json:"maintenance" db:"maintenance" firestore:"maintenance"`
	Reserved     bool       `json:"reserved" db:"reserved" firestore:"reserved"`
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s *Slot) Clone() *Slot {
	if s == nil {
		return nil
	}
	c := *s
	c.VehicleID = cloneString(s.VehicleID)
	c.Plate = cloneString(s.Plate)
	c.Contact = cloneString(s.Contact)
	c.UserID = cloneString(s.UserID)
	c.UserName = cloneString(s.UserName)
	c.UserImageURL = cloneString(s.UserImageURL)
	if s.TimeIn != nil {
		t := *s.TimeIn
		c.TimeIn = &t
	}
	return &c
}

// ClearVehicle nulls every vehicle field and the time in.
func (s *Slot) ClearVehicle() {
	s.Occupied = false
	s.VehicleID = nil
	s.Plate = nil
	s.Contact = nil
	s.UserID = nil
	s.UserName = nil
	s.UserImageURL = nil
	s.TimeIn = nil
}

// Consistent reports whether the occupancy fields agree with each other:
// occupied, a time in and a vehicle id are either all present or all absent,
// and the two holds are not both set.
func (s *Slot) Consistent() bool {
	if s.Maintenance && s.Reserved {
		return false
	}
	if s.Occupied {
		return s.TimeIn != nil && s.VehicleID != nil && s.Plate != nil && s.Contact != nil
	}
	return s.TimeIn == nil && s.VehicleID == nil && s.Plate == nil && s.Contact == nil &&
		s.UserID == nil && s.UserName == nil && s.UserImageURL == nil
}

// DisplayUser follows the admin console fallback: name, then id, then a slot placeholder.
func (s *Slot) DisplayUser() string {
	if v := StringValue(s.UserName); v != "" {
		return v
	}
	if v := StringValue(s.UserID); v != "" {
		return v
	}
	return "USER_" + s.SlotID
}

// DisplayState is the mutually exclusive state shown for a slot.
type DisplayState string

const (
	DisplayAvailable   DisplayState = "available"
	DisplayOccupied    DisplayState = "occupied"
	DisplayReserved    DisplayState = "reserved"
	DisplayMaintenance DisplayState = "maintenance"
)

// SlotView is one cell of the admin slot grid.
type SlotView struct {
	SlotID   string       `json:"slot_id"`
	Category Category     `json:"category"`
	State    DisplayState `json:"state"`
	Label    string       `json:"label"`
}

// SlotDetail is the detail panel for a single slot.
type SlotDetail struct {
	SlotID   string       `json:"slot_id"`
	Category Category     `json:"category"`
	State    DisplayState `json:"state"`
	Contact  string       `json:"contact"`
	Plate    string       `json:"plate"`
	User     string       `json:"user"`
	TimeIn   *time.Time   `json:"time_in,omitempty"`
	QRData   string       `json:"qr_data"`
}

// Occupancy is the per-category occupied/total pair.
type Occupancy struct {
	Category Category `json:"category"`
	Occupied int      `json:"occupied"`
	Total    int      `json:"total"`
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
