package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/PH536-UI/mr-dom-ph-copilot/agent/agents/orchestrator"
)

const maxRequestBodyBytes = 1 << 20

// Orchestrator is the slice of the conversation service the API exposes.
type Orchestrator interface {
	HandleMessage(ctx context.Context, sessionID, text string) (orchestratorx.Reply, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Handlers exposes the HTTP handlers of the copilot API.
type Handlers struct {
	orchestrator Orchestrator
}

func NewHandlers(orchestrator Orchestrator) *Handlers {
	return &Handlers{orchestrator: orchestrator}
}

func (h *Handlers) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Mr. DOM PH Copilot API está online!",
	})
}

type processMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type processMessageResponse struct {
	SessionID string   `json:"session_id"`
	Reply     string   `json:"reply"`
	Agent     string   `json:"agent"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

func (h *Handlers) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req processMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.orchestrator.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, orchestratorx.ErrInvalidSession) || errors.Is(err, orchestratorx.ErrInvalidMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("process message failed")
		writeError(w, http.StatusInternalServerError, "falha ao processar a mensagem")
		return
	}

	respondJSON(w, http.StatusOK, processMessageResponse{
		SessionID: req.SessionID,
		Reply:     reply.Message,
		Agent:     reply.Agent,
		ToolsUsed: reply.ToolsUsed,
	})
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handlers) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req endSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.orchestrator.EndSession(r.Context(), req.SessionID); err != nil {
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("end session failed")
		writeError(w, http.StatusInternalServerError, "falha ao encerrar a sessão")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ended", "session_id": req.SessionID})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
