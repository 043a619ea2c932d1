package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KyooRuss/Parking-Management/internal/server/parking"
	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/KyooRuss/Parking-Management/pkg/utils"
)

func writeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, data)
}

func respondErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeAndValidate decodes the body into v and checks its validate tags,
// writing a 400 or 422 response on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSON(r, v); err != nil {
		respondErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		var verrs utils.ValidationErrors
		if errors.As(err, &verrs) {
			respondErrorJSON(w, http.StatusUnprocessableEntity, verrs.Error())
			return false
		}
		respondErrorJSON(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// resultStatus maps an engine outcome to an HTTP status.
func resultStatus(res parking.Result, err error) int {
	switch {
	case err != nil || res.Reason == parking.ReasonStoreUnavailable:
		return http.StatusServiceUnavailable
	case res.Committed:
		return http.StatusOK
	case res.Reason.Invalid():
		return http.StatusUnprocessableEntity
	}
	return http.StatusConflict
}

func respondResult(w http.ResponseWriter, res parking.Result, err error) {
	status := resultStatus(res, err)
	reason := res.Reason
	if err != nil && reason == parking.ReasonNone {
		reason = parking.ReasonStoreUnavailable
	}
	respondJSON(w, status, models.TransitionResponse{
		Committed: res.Committed,
		Reason:    string(reason),
		Message:   reason.Message(),
		Slot:      res.Slot,
		LogID:     res.LogID,
	})
}
