package handler

import (
	"encoding/json"
	"net/http"

	"fleetops/internal/fleet/service"
	httputil "fleetops/pkg/http"
	"fleetops/pkg/logger"
	"fleetops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AssignmentHandler struct {
	service service.AssignmentService
	log     *logger.Logger
}

func NewAssignmentHandler(service service.AssignmentService, log *logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AssignmentHandler) Assign(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Assign", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.AssignVehicle(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Assign", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Assign", "operation", "WriteCreated", "error", err)
	}
}

func (h *AssignmentHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	shiftID := ps.ByName("shiftId")

	if err := h.service.ReleaseVehicle(r.Context(), shiftID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Release", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AssignmentHandler) GetActiveByVehicle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vehicleID := ps.ByName("vehicleId")

	assignment, err := h.service.GetActiveAssignment(r.Context(), vehicleID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetActiveByVehicle", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, assignment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetActiveByVehicle", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AssignmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/assignments", h.Assign)
	router.DELETE("/api/v1/assignments/shift/:shiftId", h.Release)
	router.GET("/api/v1/assignments/vehicle/:vehicleId", h.GetActiveByVehicle)
}
