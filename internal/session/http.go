package session

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth"
	"github.com/gokatarajesh/code-battle/internal/battle"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for battles. All routes expect
// auth.RequireAuth in front of them.
type HTTPHandlers struct {
	coord  *Coordinator
	logger zerolog.Logger
}

func NewHTTPHandlers(coord *Coordinator, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		coord:  coord,
		logger: logger.With().Str("component", "battle_http").Logger(),
	}
}

type completeRequest struct {
	Scores *battle.Scores `json:"scores"`
}

// Create handles POST /battle/create
func (h *HTTPHandlers) Create(w http.ResponseWriter, r *http.Request) {
	who, ok := participant(w, r)
	if !ok {
		return
	}

	var req battle.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	b, err := h.coord.CreateBattle(r.Context(), req, who)
	if err != nil {
		h.logFailure(err, "create battle")
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusCreated, map[string]interface{}{"battle": b})
}

// List handles GET /battle/all
func (h *HTTPHandlers) List(w http.ResponseWriter, r *http.Request) {
	battles, err := h.coord.Manager().List(r.Context())
	if err != nil {
		h.logFailure(err, "list battles")
		respondError(w, err)
		return
	}
	if battles == nil {
		battles = []*battle.Battle{}
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"battles": battles})
}

// GetByRoomCode handles GET /battle/room/{code}
func (h *HTTPHandlers) GetByRoomCode(w http.ResponseWriter, r *http.Request) {
	b, err := h.coord.Manager().GetByRoomCode(r.Context(), r.PathValue("code"))
	if err != nil {
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"battle": b})
}

// Start handles POST /battle/start/{id}
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	who, id, ok := participantAndID(w, r)
	if !ok {
		return
	}
	b, err := h.coord.StartByID(r.Context(), id, who.ID)
	if err != nil {
		h.logFailure(err, "start battle")
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"battle": b})
}

// Complete handles PATCH /battle/complete/{id}
func (h *HTTPHandlers) Complete(w http.ResponseWriter, r *http.Request) {
	who, id, ok := participantAndID(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.Scores == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "scores are required", "scores")
		return
	}

	b, err := h.coord.CompleteByID(r.Context(), id, who.ID, *req.Scores)
	if err != nil {
		h.logFailure(err, "complete battle")
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"battle": b})
}

// Leave handles PATCH /battle/leave/{id}. The body is accepted for
// compatibility and ignored; the caller's identity decides the slot.
func (h *HTTPHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	who, id, ok := participantAndID(w, r)
	if !ok {
		return
	}
	b, err := h.coord.LeaveByID(r.Context(), id, who.ID)
	if err != nil {
		h.logFailure(err, "leave battle")
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"battle": b})
}

// Delete handles DELETE /battle/{id}
func (h *HTTPHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	who, id, ok := participantAndID(w, r)
	if !ok {
		return
	}
	if err := h.coord.DeleteByID(r.Context(), id, who.ID); err != nil {
		h.logFailure(err, "delete battle")
		respondError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"message": "Battle deleted successfully"})
}

func (h *HTTPHandlers) logFailure(err error, action string) {
	if battle.KindOf(err) != "" {
		h.logger.Debug().Err(err).Msg(action)
		return
	}
	h.logger.Error().Err(err).Msg(action + " failed")
}

func participant(w http.ResponseWriter, r *http.Request) (battle.Participant, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return battle.Participant{}, false
	}
	return battle.Participant{ID: battle.NewParticipantID(claims.UserID), Name: claims.DisplayName}, true
}

func participantAndID(w http.ResponseWriter, r *http.Request) (battle.Participant, uuid.UUID, bool) {
	who, ok := participant(w, r)
	if !ok {
		return battle.Participant{}, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		// Unknown ids and malformed ids look the same to clients.
		httperrors.RespondNotFound(w, httperrors.ErrCodeBattleNotFound, "battle not found")
		return battle.Participant{}, uuid.Nil, false
	}
	return who, id, true
}
