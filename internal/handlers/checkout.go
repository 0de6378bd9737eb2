package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/checkout"
	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// CheckoutHandler receives what the hosted widget reports and serves its script.
type CheckoutHandler struct {
	bridge        *checkout.Bridge
	clients       *Clients
	settleTimeout time.Duration
	logger        *zap.Logger
}

func NewCheckoutHandler(bridge *checkout.Bridge, clients *Clients, settleTimeout time.Duration, logger *zap.Logger) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{bridge: bridge, clients: clients, settleTimeout: settleTimeout, logger: logger}
}

// Callback takes the widget handler's payload and waits, bounded by
// settleTimeout, for the verification it triggers. Orders this browser did
// not open are unknown. A reply of 202 means the verification is still running.
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var conf models.PaymentConfirmation
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if conf.OrderID == "" || conf.PaymentID == "" || conf.Signature == "" {
		writeMessage(w, http.StatusBadRequest, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	client := h.clients.Resolve(w, r)
	if err := client.Recharge.Complete(conf); err != nil {
		h.logger.Warn("checkout callback rejected",
			zap.String("client", client.ID),
			zap.String("order_id", conf.OrderID),
			zap.Error(err))
		switch {
		case errors.Is(err, checkout.ErrUnknownOrder):
			writeMessage(w, http.StatusNotFound, "Unknown order")
		case errors.Is(err, checkout.ErrAlreadyCompleted):
			writeMessage(w, http.StatusConflict, "Payment already submitted")
		default:
			writeMessage(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.settleTimeout)
	defer cancel()
	snap, err := client.Recharge.Wait(ctx)
	if err != nil {
		writeJSON(w, http.StatusAccepted, snap)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Script serves the cached hosted-checkout script.
func (h *CheckoutHandler) Script(w http.ResponseWriter, r *http.Request) {
	if !h.bridge.EnsureLoaded(r.Context()) {
		writeMessage(w, http.StatusServiceUnavailable, "Checkout is unavailable")
		return
	}
	script, _ := h.bridge.Script()
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(script)
}
