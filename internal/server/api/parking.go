package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/internal/server/services"
	"github.com/KyooRuss/Parking-Management/pkg/models"
)

const qrImageSize = 256

type ParkingHandler struct {
	parkingService *services.ParkingService
}

func NewParkingHandler(parkingService *services.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: parkingService}
}

// Routes mounts the parking API under r.
func (h *ParkingHandler) Routes(r chi.Router) {
	r.Get("/occupancy", h.GetOccupancy)
	r.Get("/occupancy/{category}", h.GetCategoryOccupancy)

	r.Get("/slots", h.GetSlotGrid)
	r.Get("/slots/{slotID}", h.GetSlot)
	r.Get("/slots/{slotID}/qr", h.GetSlotQR)
	r.Post("/slots/{slotID}/assign", h.AssignSlot)
	r.Post("/slots/{slotID}/release", h.ReleaseSlot)
	r.Put("/slots/{slotID}/flags", h.SetSlotFlags)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings/capacity/{category}", h.UpdateCapacity)

	r.Get("/logs", h.GetLogs)
	r.Post("/scan", h.Scan)

	r.Get("/admin/reconcile", h.Reconcile)
}

func (h *ParkingHandler) GetOccupancy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.OccupancyResponse{
		Categories: h.parkingService.AllOccupancy(),
	})
}

func (h *ParkingHandler) GetCategoryOccupancy(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondErrorJSON(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.parkingService.Occupancy(category))
}

func (h *ParkingHandler) GetSlotGrid(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "category query parameter must be Motorcycle or Car")
		return
	}
	respondJSON(w, http.StatusOK, models.SlotGridResponse{
		Category: category,
		Slots:    h.parkingService.Grid(category),
	})
}

func (h *ParkingHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	detail, err := h.parkingService.Detail(slotParam(r))
	if err != nil {
		respondErrorJSON(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *ParkingHandler) GetSlotQR(w http.ResponseWriter, r *http.Request) {
	payload, err := parking.EncodeQRPayload(slotParam(r))
	if err != nil {
		respondErrorJSON(w, http.StatusNotFound, err.Error())
		return
	}

	png, err := qrcode.Encode(payload, qrcode.Medium, qrImageSize)
	if err != nil {
		log.Printf("Failed to render QR code for %s: %v", slotParam(r), err)
		respondErrorJSON(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *ParkingHandler) AssignSlot(w http.ResponseWriter, r *http.Request) {
	var req models.AssignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	v := vehicleFrom(r, req.VehicleID, req.Plate, req.Contact, req.UserID, req.UserName, req.UserImageURL)
	res, err := h.parkingService.Assign(r.Context(), slotParam(r), models.Category(req.Category), v)
	respondResult(w, res, err)
}

func (h *ParkingHandler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	res, err := h.parkingService.Release(r.Context(), slotParam(r))
	respondResult(w, res, err)
}

func (h *ParkingHandler) SetSlotFlags(w http.ResponseWriter, r *http.Request) {
	var req models.SetFlagsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.parkingService.SetFlags(r.Context(), slotParam(r), req.Maintenance, req.Reserved)
	respondResult(w, res, err)
}

func (h *ParkingHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.parkingService.Settings())
}

func (h *ParkingHandler) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCapacityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	category := models.Category(chi.URLParam(r, "category"))
	if parsed, err := models.ParseCategory(string(category)); err == nil {
		category = parsed
	}
	res, err := h.parkingService.UpdateCapacity(r.Context(), category, req.Total)
	respondResult(w, res, err)
}

func (h *ParkingHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	slotID := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("slot")))
	respondJSON(w, http.StatusOK, models.LogsResponse{
		Logs: h.parkingService.DedupedLogs(slotID),
	})
}

func (h *ParkingHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req models.ScanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	v := vehicleFrom(r, req.VehicleID, req.Plate, req.Contact, req.UserID, req.UserName, req.UserImageURL)
	res, err := h.parkingService.Scan(r.Context(), req.QR, parking.ScanAction(req.Action), v)
	respondResult(w, res, err)
}

func (h *ParkingHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	found, err := h.parkingService.Reconcile(r.Context())
	if err != nil {
		log.Printf("Reconcile failed: %v", err)
		respondErrorJSON(w, http.StatusServiceUnavailable, "failed to read parking data")
		return
	}
	if found == nil {
		found = []models.Discrepancy{}
	}
	respondJSON(w, http.StatusOK, models.ReconcileResponse{
		CheckedAt:     time.Now().UTC().Format(time.RFC3339),
		Discrepancies: found,
	})
}

func slotParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "slotID")))
}

// vehicleFrom builds the occupant, filling the user from the verified
// identity when the body leaves it out.
func vehicleFrom(r *http.Request, vehicleID, plate, contact, userID, userName, imageURL string) parking.Vehicle {
	v := parking.Vehicle{
		VehicleID:    vehicleID,
		Plate:        plate,
		Contact:      contact,
		UserID:       userID,
		UserName:     userName,
		UserImageURL: imageURL,
	}
	if id := GetIdentity(r); id != nil {
		if v.UserID == "" {
			v.UserID = id.UserID
		}
		if v.UserName == "" {
			v.UserName = id.UserName
		}
	}
	return v
}
