package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/code-battle/internal/auth"
	"github.com/gokatarajesh/code-battle/internal/battle"
	"github.com/gokatarajesh/code-battle/internal/logging"
	httperrors "github.com/gokatarajesh/code-battle/pkg/http/errors"
	ws "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

// Handler manages battle WebSocket connections and routes their messages.
type Handler struct {
	coord    *Coordinator
	hub      *ws.Hub
	authSvc  *auth.Service
	upgrader *websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a battle WebSocket handler.
func NewHandler(coord *Coordinator, hub *ws.Hub, authSvc *auth.Service, upgrader *websocket.Upgrader, logger zerolog.Logger) *Handler {
	return &Handler{
		coord:    coord,
		hub:      hub,
		authSvc:  authSvc,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "battle_ws").Logger(),
	}
}

// HandleWebSocket authenticates the caller and upgrades to WebSocket.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authSvc.Authenticate(r)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.HandleConnection(conn, battle.Participant{
		ID:   battle.NewParticipantID(claims.UserID),
		Name: claims.DisplayName,
	})
}

// HandleConnection serves one connection until the peer goes away.
func (h *Handler) HandleConnection(conn *websocket.Conn, who battle.Participant) {
	wsConn := ws.NewConnection(conn, who.ID.UUID(), h.logger)
	h.hub.Register(wsConn)
	go wsConn.WritePump()

	cl := Client{ConnID: wsConn.ID, Participant: who}
	logger := h.logger.With().Str("conn_id", wsConn.ID).Str("user_id", who.ID.String()).Logger()
	ctx, cancel := context.WithCancel(logging.IntoContext(context.Background(), logger))

	// Judging can take seconds; it runs off the read loop so pongs keep flowing.
	var inflight sync.WaitGroup
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(ctx, cl, msg, &inflight)
	})

	cancel()
	inflight.Wait()
	h.coord.Disconnect(context.Background(), cl.ConnID)
	h.hub.Unregister(cl.ConnID)
	logger.Debug().Msg("connection closed")
}

func (h *Handler) handleMessage(ctx context.Context, cl Client, msg ws.Message, inflight *sync.WaitGroup) error {
	switch msg.Type {
	case ws.TypeJoinBattle:
		var req ws.JoinBattlePayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		return h.coord.Join(ctx, cl, req.RoomCode)
	case ws.TypeStartBattle:
		var req ws.StartBattlePayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		return h.coord.Start(ctx, cl, req.RoomCode)
	case ws.TypeSubmitSolution:
		var req ws.SubmitSolutionPayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			if err := h.coord.Submit(ctx, cl, req); err != nil {
				reqLog := logging.FromContext(ctx)
				reqLog.Warn().Err(err).Str("room_code", req.RoomCode).Msg("submission rejected")
			}
		}()
		return nil
	case ws.TypeQuestionExpired:
		var req ws.QuestionExpiredPayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		return h.coord.Expire(ctx, cl, req)
	case ws.TypeLeaveBattle:
		var req ws.LeaveBattlePayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		return h.coord.Leave(ctx, cl, req.RoomCode)
	case ws.TypeNewQuestion, ws.TypeScoreUpdate, ws.TypePointAwarded, ws.TypeBattleCompleted:
		var req ws.RelayPayload
		if err := h.decode(cl, msg, &req); err != nil {
			return err
		}
		return h.coord.Relay(cl, msg, req.RoomCode)
	default:
		return h.sendError(cl, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) decode(cl Client, msg ws.Message, dst interface{}) error {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		_ = h.sendError(cl, httperrors.ErrCodeInvalidPayload, fmt.Sprintf("Invalid %s payload", msg.Type))
		return fmt.Errorf("decode %s: %w", msg.Type, err)
	}
	return nil
}

func (h *Handler) sendError(cl Client, code, message string) error {
	h.coord.sendTo(cl.ConnID, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	return fmt.Errorf("%s: %s", code, message)
}
