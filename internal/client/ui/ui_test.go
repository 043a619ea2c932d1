package ui

import (
	"strings"
	"testing"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

func TestRenderOccupancy(t *testing.T) {
	out := RenderOccupancy([]models.Occupancy{
		{Category: models.CategoryMotorcycle, Occupied: 3, Total: 21},
		{Category: models.CategoryCar, Occupied: 0, Total: 0},
	})
	if !strings.Contains(out, "3 / 21") {
		t.Errorf("expected motorcycle counts, got:\n%s", out)
	}
	if !strings.Contains(out, "0 / 0") {
		t.Errorf("expected car counts, got:\n%s", out)
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		occupied, total int
		want            string
	}{
		{occupied: 0, total: 4, want: "[....]"},
		{occupied: 2, total: 4, want: "[##..]"},
		{occupied: 9, total: 4, want: "[####]"},
		{occupied: 1, total: 0, want: ""},
	}
	for _, tt := range tests {
		if got := bar(tt.occupied, tt.total, 4); got != tt.want {
			t.Errorf("bar(%d, %d) = %q, want %q", tt.occupied, tt.total, got, tt.want)
		}
	}
}

func TestRenderGrid(t *testing.T) {
	cells := []models.SlotView{
		{SlotID: "A1", State: models.DisplayAvailable, Label: "AVAILABLE"},
		{SlotID: "A2", State: models.DisplayOccupied, Label: "ABC-123"},
		{SlotID: "A3", State: models.DisplayMaintenance, Label: "MAINTENANCE"},
	}
	out := RenderGrid(cells, 2)
	for _, want := range []string{"A1", "A2", "A3", "ABC-123", "MAINTENANCE"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in grid:\n%s", want, out)
		}
	}
}

func TestRenderTransition(t *testing.T) {
	ok := RenderTransition("Parked", &models.TransitionResponse{Committed: true, Slot: &models.Slot{SlotID: "A4"}})
	if !strings.Contains(ok, "A4") {
		t.Errorf("expected slot in message, got %q", ok)
	}
	rejected := RenderTransition("Park", &models.TransitionResponse{Message: "Slot is already occupied"})
	if !strings.Contains(rejected, "already occupied") {
		t.Errorf("expected reason message, got %q", rejected)
	}
}
