// Package fakebackend serves the four portal backend endpoints in process.
// It is used by the tests and by `serve --fake-backend` for local work.
package fakebackend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// ScriptPath serves a stand-in for the hosted checkout script.
const ScriptPath = "/checkout.js"

type account struct {
	password string
	student  models.Identity
	contact  *models.HostelContact
}

type override struct {
	status int
	body   any
}

type claims struct {
	StudentID string `json:"studentId"`
	jwt.StandardClaims
}

// Server is an in-memory portal backend.
type Server struct {
	tokenSecret []byte
	keySecret   []byte
	tokenTTL    time.Duration
	script      []byte

	mu        sync.Mutex
	accounts  map[string]account
	orders    map[string]models.Order
	verified  []models.VerifyRequest
	calls     map[string]int
	overrides map[string]override

	router *mux.Router
}

func New(tokenSecret, keySecret string) *Server {
	s := &Server{
		tokenSecret: []byte(tokenSecret),
		keySecret:   []byte(keySecret),
		tokenTTL:    24 * time.Hour,
		script:      []byte("window.Razorpay = window.Razorpay || function (options) { this.options = options; };\n"),
		accounts:    map[string]account{},
		orders:      map[string]models.Order{},
		calls:       map[string]int{},
		overrides:   map[string]override{},
	}

	router := mux.NewRouter()
	router.Use(s.record)
	router.HandleFunc("/studentLogin", s.login).Methods("POST")
	router.HandleFunc("/getHostelContact/{studentID}", s.authorized(s.hostelContact)).Methods("GET")
	router.HandleFunc("/create-order-hostel-recharge", s.authorized(s.createOrder)).Methods("POST")
	router.HandleFunc("/verify-payment-hostel-recharge", s.authorized(s.verifyPayment)).Methods("POST")
	router.HandleFunc(ScriptPath, s.checkoutScript).Methods("GET")
	s.router = router

	return s
}

// Demo returns a server seeded with one student, for local runs.
func Demo() *Server {
	s := New("dev-token-secret", "dev-key-secret")
	s.AddStudent("student", "password123", models.Identity{
		StudentID:   "STU001",
		StudentName: "Demo Student",
		AdminName:   "demo-hostel",
		Username:    "student",
		Type:        "student",
	}, &models.HostelContact{
		StudentID:      "STU001",
		StudentName:    "Demo Student",
		RegistrationID: "REG-2024-001",
		AdminName:      "demo-hostel",
		GuardianNo:     []string{"9876543210"},
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// AddStudent registers credentials and, optionally, a guardian-contact record.
func (s *Server) AddStudent(username, password string, student models.Identity, contact *models.HostelContact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{password: password, student: student, contact: contact}
}

// Override makes path answer with a fixed status and body until cleared.
func (s *Server) Override(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = override{status: status, body: body}
}

func (s *Server) ClearOverride(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, path)
}

// Calls returns how many requests hit path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Verified returns the verification requests received so far.
func (s *Server) Verified() []models.VerifyRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.VerifyRequest(nil), s.verified...)
}

// IssueToken signs a bearer token for studentID.
func (s *Server) IssueToken(studentID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		StudentID: studentID,
		StandardClaims: jwt.StandardClaims{
			Subject:   studentID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
	})
	return token.SignedString(s.tokenSecret)
}

// Sign computes the checkout signature of a payment the way the gateway does.
func (s *Server) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.keySecret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Pay simulates a user completing the hosted checkout for orderID.
func (s *Server) Pay(orderID string) models.PaymentConfirmation {
	paymentID := "pay_" + compactID()
	return models.PaymentConfirmation{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: s.Sign(orderID, paymentID),
	}
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		o, ok := s.overrides[r.URL.Path]
		s.mu.Unlock()

		if ok {
			writeJSON(w, o.status, o.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authorization header required"})
			return
		}

		var c claims
		token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.tokenSecret, nil
		})
		if err != nil || !token.Valid || c.StudentID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
			return
		}
		next(w, r, c.StudentID)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acct.password != req.Password {
		writeJSON(w, http.StatusOK, models.LoginResponse{Message: "Invalid username or password"})
		return
	}

	token, err := s.IssueToken(acct.student.StudentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Failed to issue token"})
		return
	}
	student := acct.student
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Success: true,
		Token:   token,
		Student: &student,
		Message: "Login successful!",
	})
}

func (s *Server) hostelContact(w http.ResponseWriter, r *http.Request, studentID string) {
	if mux.Vars(r)["studentID"] != studentID {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.student.StudentID == studentID && acct.contact != nil {
			writeJSON(w, http.StatusOK, models.HostelContactResponse{Success: true, Student: acct.contact})
			return
		}
	}
	writeJSON(w, http.StatusOK, models.HostelContactResponse{Message: "Student not found"})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request, studentID string) {
	var req models.RechargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Amount must be positive"})
		return
	}
	if req.StudentID != studentID {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Student mismatch"})
		return
	}
	if req.Receipt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Receipt is required"})
		return
	}

	order := models.Order{
		OrderID:  "order_" + compactID(),
		Amount:   int64(math.Round(req.Amount * 100)),
		Currency: req.Currency,
	}
	s.mu.Lock()
	s.orders[order.OrderID] = order
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request, studentID string) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	s.verified = append(s.verified, req)
	order, ok := s.orders[req.OrderID]
	s.mu.Unlock()

	expected := s.Sign(req.OrderID, req.PaymentID)
	if !ok || req.StudentID != studentID || order.Amount != req.Amount ||
		!hmac.Equal([]byte(expected), []byte(req.Signature)) {
		writeJSON(w, http.StatusOK, models.VerificationResult{Status: "failed"})
		return
	}
	writeJSON(w, http.StatusOK, models.VerificationResult{Status: models.StatusVerified})
}

func (s *Server) checkoutScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(http.StatusOK)
	w.Write(s.script)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func compactID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
