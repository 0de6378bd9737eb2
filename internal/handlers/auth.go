package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
	"github.com/markjakearzadon/hostel-portal.git/internal/services"
)

type AuthHandler struct {
	backend *services.BackendClient
	clients *Clients
	logger  *zap.Logger
}

func NewAuthHandler(backend *services.BackendClient, clients *Clients, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{backend: backend, clients: clients, logger: logger}
}

// Index sends the browser to the dashboard when a token is stored, else to login.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	s, err := client.Store.Load(r.Context())
	if err == nil && s != nil && s.Token != "" {
		http.Redirect(w, r, "/student", http.StatusFound)
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusFound)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeMessage(w, http.StatusBadRequest, "Username is required.")
		return
	}
	if len(req.Password) < 6 {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters.")
		return
	}

	resp, err := h.backend.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.String("username", req.Username), zap.Error(err))
		status := http.StatusBadGateway
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && apiErr.Status != 0 {
			status = apiErr.Status
		}
		writeMessage(w, status, err.Error())
		return
	}
	if !resp.Success || resp.Token == "" || resp.Student == nil {
		message := resp.Message
		if message == "" {
			message = "Invalid username or password. Please try again."
		}
		writeMessage(w, http.StatusUnauthorized, message)
		return
	}

	client := h.clients.Resolve(w, r)
	if err := client.Store.Save(r.Context(), models.Session{Token: resp.Token, Student: *resp.Student}); err != nil {
		h.logger.Error("failed to store session", zap.String("client", client.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	h.logger.Info("student logged in", zap.String("client", client.ID), zap.String("student_id", resp.Student.StudentID))

	message := resp.Message
	if message == "" {
		message = "Login successful!"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"student": resp.Student,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	client := h.clients.Resolve(w, r)
	if err := client.Store.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear session", zap.String("client", client.ID), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	client.Recharge.Reset()
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
