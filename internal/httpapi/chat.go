package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/internal/transcript"
)

// TurnHandler is the transcript manager surface the transport layer needs.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (string, []transcript.Turn, error)
}

// chatRequest decodes loosely so a non-string sessionId or message is
// reported as a validation failure rather than a JSON decode error.
type chatRequest struct {
	SessionID any `json:"sessionId"`
	Message   any `json:"message"`
}

type chatResponse struct {
	Reply   string            `json:"reply"`
	History []transcript.Turn `json:"history"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

// handleCreateSession mints a fresh opaque session identifier for clients
// that do not bring their own.
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusCreated, sessionResponse{SessionID: uuid.NewString()})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	sessionID, ok := req.SessionID.(string)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing or invalid sessionId")
		return
	}
	message, ok := req.Message.(string)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing or invalid message")
		return
	}

	reply, history, err := s.manager.HandleTurn(r.Context(), sessionID, message)
	if err != nil {
		s.respondTurnError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: reply, History: history})
}

// respondTurnError maps manager failures onto the wire: validation failures
// carry their reason, everything else is an opaque internal error with the
// cause kept server-side.
func (s *Server) respondTurnError(w http.ResponseWriter, err error) {
	var verr *transcript.ValidationError
	if errors.As(err, &verr) {
		respondError(w, http.StatusBadRequest, "invalid_request", verr.Reason)
		return
	}
	log.Printf("httpapi: turn failed: %v", err)
	respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

type wsChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleChatWS serves the same turn operation over a websocket: each inbound
// text frame is one turn, answered by exactly one outbound frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	conn.SetReadLimit(1 << 20)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var req wsChatRequest
		var payload any
		if err := decodeWSRequest(data, &req); err != nil {
			payload = errorResponse{Error: err.Error(), Code: "invalid_request"}
		} else if reply, history, err := s.manager.HandleTurn(ctx, req.SessionID, req.Message); err != nil {
			payload = wsErrorPayload(err)
		} else {
			payload = chatResponse{Reply: reply, History: history}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(payload); err != nil {
			return
		}
	}
}

func decodeWSRequest(data []byte, out *wsChatRequest) error {
	var loose chatRequest
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}
	sessionID, ok := loose.SessionID.(string)
	if !ok {
		return errors.New("missing or invalid sessionId")
	}
	message, ok := loose.Message.(string)
	if !ok {
		return errors.New("missing or invalid message")
	}
	out.SessionID = sessionID
	out.Message = message
	return nil
}

func wsErrorPayload(err error) errorResponse {
	var verr *transcript.ValidationError
	if errors.As(err, &verr) {
		return errorResponse{Error: verr.Reason, Code: "invalid_request"}
	}
	log.Printf("httpapi: ws turn failed: %v", err)
	return errorResponse{Error: "internal error", Code: "internal_error"}
}
