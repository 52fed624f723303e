package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"fleetops/internal/availability/service"
	apperrors "fleetops/pkg/errors"
	httputil "fleetops/pkg/http"
	"fleetops/pkg/logger"
	"fleetops/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// HeaderCleanupSecret authenticates manual cleanup triggers.
const HeaderCleanupSecret = "X-Cleanup-Secret"

type AvailabilityHandler struct {
	blocks        service.BlockService
	holds         service.HoldService
	cleanup       service.CleanupService
	cleanupSecret string
	log           *logger.Logger
}

func NewAvailabilityHandler(
	blocks service.BlockService,
	holds service.HoldService,
	cleanup service.CleanupService,
	cleanupSecret string,
	log *logger.Logger,
) *AvailabilityHandler {
	return &AvailabilityHandler{
		blocks:        blocks,
		holds:         holds,
		cleanup:       cleanup,
		cleanupSecret: cleanupSecret,
		log:           log,
	}
}

func (h *AvailabilityHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var block model.AvailabilityBlock
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.blocks.Create(r.Context(), &block); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, block); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	block, err := h.blocks.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, block); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// List returns a vehicle's blocks grouped by calendar day.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	vehicleID := r.URL.Query().Get("vehicle_id")
	if vehicleID == "" {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "The 'vehicle_id' query parameter is required",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "List", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	startDate, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	endDate, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	grouped, total, err := h.blocks.List(r.Context(), vehicleID, startDate, endDate, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, grouped, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *AvailabilityHandler) Patch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var patch model.BlockPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Patch", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	updated, err := h.blocks.Patch(r.Context(), id, &patch)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Patch", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write success response", "handler", "Patch", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.blocks.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) CreateHold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateHold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, hold); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateHold", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) ConvertHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.ConvertHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ConvertHold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	converted, err := h.holds.ConvertToBooking(r.Context(), id, req.BookingID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ConvertHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, converted); err != nil {
		h.log.Error("failed to write success response", "handler", "ConvertHold", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) CancelHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.holds.CancelHold(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CancelHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// TriggerCleanup runs the expired-hold cleanup on demand. The endpoint is
// disabled when no cleanup secret is configured.
func (h *AvailabilityHandler) TriggerCleanup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.cleanupSecret == "" {
		if writeErr := httputil.WriteError(w, apperrors.Forbidden("Manual cleanup is disabled")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "TriggerCleanup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	provided := r.Header.Get(HeaderCleanupSecret)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cleanupSecret)) != 1 {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Invalid cleanup secret")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "TriggerCleanup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	deleted, err := h.cleanup.RunCleanup(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "TriggerCleanup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int{"deleted_count": deleted}); err != nil {
		h.log.Error("failed to write success response", "handler", "TriggerCleanup", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/blocks", h.List)
	router.POST("/api/v1/blocks", h.Create)
	router.GET("/api/v1/blocks/id/:id", h.GetByID)
	router.PATCH("/api/v1/blocks/id/:id", h.Patch)
	router.DELETE("/api/v1/blocks/id/:id", h.Delete)

	router.POST("/api/v1/holds", h.CreateHold)
	router.POST("/api/v1/holds/id/:id/convert", h.ConvertHold)
	router.DELETE("/api/v1/holds/id/:id", h.CancelHold)

	router.POST("/api/v1/availability/cleanup", h.TriggerCleanup)
}
