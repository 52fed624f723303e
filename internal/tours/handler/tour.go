package handler

import (
	"encoding/json"
	"net/http"

	"fleetops/internal/tours/service"
	httputil "fleetops/pkg/http"
	"fleetops/pkg/logger"
	"fleetops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TourHandler struct {
	service service.TourService
	log     *logger.Logger
}

func NewTourHandler(service service.TourService, log *logger.Logger) *TourHandler {
	return &TourHandler{
		service: service,
		log:     log,
	}
}

func (h *TourHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	tour, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, tour); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) AvailableVehicles(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	result, err := h.service.AvailableVehicles(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AvailableVehicles", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "AvailableVehicles", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) ReassignVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ReassignVehicle", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.ReassignVehicle(r.Context(), id, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReassignVehicle", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "ReassignVehicle", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) Patch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var patch model.TourPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Patch", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	tour, err := h.service.Patch(r.Context(), id, &patch)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Patch", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, tour); err != nil {
		h.log.Error("failed to write success response", "handler", "Patch", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TourHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tours/id/:id", h.GetByID)
	router.GET("/api/v1/tours/id/:id/vehicles", h.AvailableVehicles)
	router.PATCH("/api/v1/tours/id/:id/vehicle", h.ReassignVehicle)
	router.PATCH("/api/v1/tours/id/:id", h.Patch)
}
