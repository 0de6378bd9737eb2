package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/services"
	"github.com/markjakearzadon/hostel-portal.git/internal/session"
)

type DashboardHandler struct {
	backend *services.BackendClient
	clients *Clients
	logger  *zap.Logger
}

func NewDashboardHandler(backend *services.BackendClient, clients *Clients, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{backend: backend, clients: clients, logger: logger}
}

// HostelContact returns the guardian-contact record of the logged-in student.
// Any failure to fetch it ends the session.
func (h *DashboardHandler) HostelContact(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	sess, err := session.Require(r.Context(), client.Store)
	if errors.Is(err, session.ErrNotAuthenticated) {
		redirectToLogin(w, "Please log in")
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", zap.String("client", client.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to load session")
		return
	}

	resp, err := h.backend.HostelContact(r.Context(), sess.Token, sess.Student.StudentID)
	if err == nil && resp.Success && resp.Student != nil {
		writeJSON(w, http.StatusOK, resp.Student)
		return
	}

	h.logger.Warn("hostel contact unavailable, ending session",
		zap.String("client", client.ID),
		zap.String("student_id", sess.Student.StudentID),
		zap.Error(err))
	if clearErr := client.Store.Clear(r.Context()); clearErr != nil {
		h.logger.Error("failed to clear session", zap.String("client", client.ID), zap.Error(clearErr))
	}
	redirectToLogin(w, "Your session has expired. Please log in again.")
}
