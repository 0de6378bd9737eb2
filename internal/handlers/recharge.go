package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/workflow"
)

type RechargeHandler struct {
	clients *Clients
	logger  *zap.Logger
}

func NewRechargeHandler(clients *Clients, logger *zap.Logger) *RechargeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RechargeHandler{clients: clients, logger: logger}
}

// Open shows the recharge surface.
func (h *RechargeHandler) Open(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	if err := client.Recharge.Open(r.Context()); err != nil {
		if errors.Is(err, workflow.ErrLoginRequired) {
			redirectToLogin(w, "Please log in")
			return
		}
		h.logger.Error("failed to open recharge", zap.String("client", client.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to open recharge")
		return
	}
	writeJSON(w, http.StatusOK, client.Recharge.Snapshot())
}

// Submit starts a recharge for the posted amount. The reply carries the
// checkout options to open the hosted widget with.
func (h *RechargeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	client := h.clients.Resolve(w, r)
	_, err := client.Recharge.Submit(r.Context(), amountText(body.Amount))
	snap := client.Recharge.Snapshot()

	var verr *workflow.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, snap)
	case errors.Is(err, workflow.ErrLoginRequired):
		redirectToLogin(w, workflow.MsgSessionExpired)
	case errors.Is(err, workflow.ErrNotOpen):
		writeMessage(w, http.StatusConflict, "Open the recharge dialog first")
	case errors.Is(err, workflow.ErrAttemptInProgress):
		writeJSON(w, http.StatusConflict, snap)
	default:
		writeJSON(w, http.StatusBadGateway, snap)
	}
}

// Status returns what the recharge surface should display.
func (h *RechargeHandler) Status(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	writeJSON(w, http.StatusOK, client.Recharge.Snapshot())
}

// Reset closes the recharge dialog. Pending checkouts are not cancelled.
func (h *RechargeHandler) Reset(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	client.Recharge.Reset()
	writeJSON(w, http.StatusOK, client.Recharge.Snapshot())
}

// amountText accepts the amount as a JSON string or number.
func amountText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}
