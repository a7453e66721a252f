package leaderboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
)

// HTTPHandler exposes the standings over REST.
type HTTPHandler struct {
	svc          *Service
	defaultLimit int
	logger       zerolog.Logger
}

func NewHTTPHandler(svc *Service, defaultLimit int, logger zerolog.Logger) *HTTPHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &HTTPHandler{
		svc:          svc,
		defaultLimit: defaultLimit,
		logger:       logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet serves GET /battle/leaderboard?limit=n.
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries := []Entry{}
	if h.svc != nil {
		top, err := h.svc.Top(r.Context(), limit)
		if err != nil {
			h.logger.Warn().Err(err).Msg("leaderboard fetch failed")
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeLeaderboardFetchFailed, "Leaderboard unavailable")
			return
		}
		entries = top
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"entries":     entries,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}
