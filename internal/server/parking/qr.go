package parking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

// QRPayload is the content of the code printed on each slot.
type QRPayload struct {
	Slot     string          `json:"slot"`
	Category models.Category `json:"category"`
}

// ErrInvalidQR is returned when a scanned payload names no valid slot.
var ErrInvalidQR = errors.New("invalid QR payload")

// EncodeQRPayload returns the JSON payload for a slot code.
func EncodeQRPayload(slotID string) (string, error) {
	category, _, err := ParseSlotID(slotID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(QRPayload{Slot: slotID, Category: category})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseQRPayload accepts the JSON payload or a bare slot identifier.
func ParseQRPayload(raw string) (QRPayload, error) {
	raw = strings.TrimSpace(raw)
	var p QRPayload
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return QRPayload{}, fmt.Errorf("%w: %v", ErrInvalidQR, err)
		}
	} else {
		p.Slot = raw
	}

	category, _, err := ParseSlotID(strings.ToUpper(strings.TrimSpace(p.Slot)))
	if err != nil {
		return QRPayload{}, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}
	p.Slot = strings.ToUpper(strings.TrimSpace(p.Slot))
	if p.Category == "" {
		p.Category = category
		return p, nil
	}
	named, err := models.ParseCategory(string(p.Category))
	if err != nil || named != category {
		return QRPayload{}, fmt.Errorf("%w: slot %s is not a %s slot", ErrInvalidQR, p.Slot, p.Category)
	}
	p.Category = named
	return p, nil
}

// ScanAction is what the scanning client wants to do at the slot.
type ScanAction string

const (
	ActionPark  ScanAction = "park"
	ActionLeave ScanAction = "leave"
)

// Scan performs a park or leave from a scanned code. A payload that names
// no valid slot is reported as ReasonInvalidSlot.
func (e *Engine) Scan(ctx context.Context, raw string, action ScanAction, v Vehicle) (Result, error) {
	p, err := ParseQRPayload(raw)
	if err != nil {
		return rejected(ReasonInvalidSlot), nil
	}
	switch action {
	case ActionPark:
		return e.Assign(ctx, p.Slot, p.Category, v)
	case ActionLeave:
		return e.Release(ctx, p.Slot)
	}
	return Result{}, fmt.Errorf("unknown scan action %q", action)
}
