package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sagaline/sagaline/pkg/api/middleware"
	"github.com/sagaline/sagaline/pkg/api/models"
	"github.com/sagaline/sagaline/pkg/api/response"
	"github.com/sagaline/sagaline/pkg/logger"
	"github.com/sagaline/sagaline/pkg/runtime"
	"github.com/sagaline/sagaline/pkg/saga"
)

// SagaHandler exposes the saga runtime over HTTP: command dispatch, instance
// state and history lookups, and the derived vocabulary of each saga type.
type SagaHandler struct {
	router     *runtime.Router
	dispatcher *runtime.Dispatcher
	log        logger.Logger
}

// NewSagaHandler creates a saga handler.
func NewSagaHandler(router *runtime.Router, dispatcher *runtime.Dispatcher, log logger.Logger) *SagaHandler {
	if log == nil {
		log = logger.Global()
	}
	return &SagaHandler{
		router:     router,
		dispatcher: dispatcher,
		log:        log,
	}
}

// DispatchCommand handles POST /api/v1/sagas/{saga}/commands/{command}.
func (h *SagaHandler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sagaName := chi.URLParam(r, "saga")
	commandName := chi.URLParam(r, "command")

	var req models.CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest,
			"invalid request body: "+err.Error(), requestID)
		return
	}
	req.SagaID = strings.TrimSpace(req.SagaID)
	if req.SagaID == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed,
			"saga_id is required", requestID)
		return
	}

	result, err := h.router.Dispatch(r.Context(), sagaName, commandName, req.SagaID, req.Data)
	if err != nil {
		h.writeDispatchError(w, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, models.CommandResponse{
		Saga:    result.Saga,
		Command: commandName,
		State:   result.State,
		Events:  result.Records,
	})
}

// GetInstance handles GET /api/v1/sagas/{saga}/instances/{id}.
func (h *SagaHandler) GetInstance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sagaName := chi.URLParam(r, "saga")
	sagaID := chi.URLParam(r, "id")

	state, err := h.dispatcher.State(r.Context(), sagaName, sagaID)
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, models.InstanceResponse{
		Saga:  sagaName,
		State: state,
	})
}

// GetInstanceEvents handles GET /api/v1/sagas/{saga}/instances/{id}/events.
func (h *SagaHandler) GetInstanceEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sagaName := chi.URLParam(r, "saga")
	sagaID := chi.URLParam(r, "id")

	records, err := h.dispatcher.Events(r.Context(), sagaName, sagaID)
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}

	response.JSON(w, http.StatusOK, models.EventsResponse{
		Saga:   sagaName,
		SagaID: sagaID,
		Events: records,
	})
}

// GetVocabulary handles GET /api/v1/sagas/{saga}/vocabulary.
func (h *SagaHandler) GetVocabulary(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	sagaName := chi.URLParam(r, "saga")

	machine, ok := h.dispatcher.Machine(sagaName)
	if !ok {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound,
			"unknown saga type: "+sagaName, requestID)
		return
	}
	catalog := machine.Catalog()

	response.JSON(w, http.StatusOK, models.VocabularyResponse{
		Saga:     catalog.Name(),
		Steps:    catalog.Steps(),
		Commands: catalog.CommandNames(),
		Events:   catalog.EventNames(),
	})
}

// ListSagas handles GET /api/v1/sagas.
func (h *SagaHandler) ListSagas(w http.ResponseWriter, r *http.Request) {
	names := h.dispatcher.SagaNames()
	sort.Strings(names)

	sagas := make([]models.SagaSummary, 0, len(names))
	for _, name := range names {
		machine, ok := h.dispatcher.Machine(name)
		if !ok {
			continue
		}
		sagas = append(sagas, models.SagaSummary{
			Name:  name,
			Steps: machine.Catalog().Len(),
		})
	}

	response.JSON(w, http.StatusOK, models.SagaListResponse{Sagas: sagas})
}

// writeDispatchError maps dispatch failures to HTTP statuses. Names outside
// the registered vocabulary and unknown sagas are 404s; a rejection by the
// state machine is a 409 because the command named a real operation that the
// instance's current phase does not admit.
func (h *SagaHandler) writeDispatchError(w http.ResponseWriter, err error, requestID string) {
	var unknown *runtime.UnknownCommandError
	if errors.As(err, &unknown) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, unknown.Error(), requestID)
		return
	}
	if errors.Is(err, runtime.ErrUnknownSagaType) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, err.Error(), requestID)
		return
	}
	if rejection, ok := saga.AsRejection(err); ok {
		if rejection.Reason == saga.RejectUnknownSaga {
			response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, rejection.Error(), requestID)
			return
		}
		response.ErrorWithDetails(w, http.StatusConflict, response.ErrCodeConflict,
			rejection.Error(), map[string]any{"reason": rejection.Reason.String()}, requestID)
		return
	}

	h.log.Error("dispatch failed", "error", err)
	response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer,
		"dispatch failed", requestID)
}

func (h *SagaHandler) writeLookupError(w http.ResponseWriter, err error, requestID string) {
	if errors.Is(err, runtime.ErrUnknownSagaType) || errors.Is(err, runtime.ErrInstanceNotFound) {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, err.Error(), requestID)
		return
	}
	h.log.Error("instance lookup failed", "error", err)
	response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer,
		"instance lookup failed", requestID)
}
