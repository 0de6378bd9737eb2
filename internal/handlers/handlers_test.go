package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/hostel-portal.git/internal/checkout"
	"github.com/markjakearzadon/hostel-portal.git/internal/fakebackend"
	"github.com/markjakearzadon/hostel-portal.git/internal/models"
	"github.com/markjakearzadon/hostel-portal.git/internal/services"
	"github.com/markjakearzadon/hostel-portal.git/internal/session"
)

type portal struct {
	fake    *fakebackend.Server
	clients *Clients
	router  http.Handler
	cookie  *http.Cookie
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	fake := fakebackend.Demo()
	srv := httptest.NewServer(fake.Handler())
	t.Cleanup(srv.Close)

	backend := services.NewBackendClient(srv.URL, 5*time.Second, nil)
	bridge := checkout.NewBridge(checkout.Config{
		KeyID:          "rzp_test_key",
		ScriptURL:      srv.URL + fakebackend.ScriptPath,
		MerchantName:   "eSamwad Hostel",
		Description:    "Hostel Recharge",
		ThemeColor:     "#4F46E5",
		DefaultEmail:   "student@example.com",
		DefaultContact: "9999999999",
	}, nil)
	clients := NewClients(session.MemoryStores(), backend, bridge, nil)
	t.Cleanup(clients.Close)

	router := Router(
		NewAuthHandler(backend, clients, nil),
		NewDashboardHandler(backend, clients, nil),
		NewRechargeHandler(clients, nil),
		NewCheckoutHandler(bridge, clients, 5*time.Second, nil),
	)
	return &portal{fake: fake, clients: clients, router: router}
}

// do sends a request as the same browser every time.
func (p *portal) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if p.cookie != nil {
		req.AddCookie(p.cookie)
	}
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientCookie {
			p.cookie = c
		}
	}

	var out map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (p *portal) login(t *testing.T) {
	t.Helper()
	rec, _ := p.do(t, http.MethodPost, "/api/login", models.LoginRequest{Username: "student", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestIndexRedirects(t *testing.T) {
	p := newPortal(t)

	rec, _ := p.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	p.login(t)
	rec, _ = p.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/student", rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		req     models.LoginRequest
		status  int
		message string
	}{
		{"short password", models.LoginRequest{Username: "student", Password: "12345"}, http.StatusBadRequest, "Password must be at least 6 characters."},
		{"blank username", models.LoginRequest{Username: "  ", Password: "password123"}, http.StatusBadRequest, "Username is required."},
		{"wrong password", models.LoginRequest{Username: "student", Password: "password124"}, http.StatusUnauthorized, "Invalid username or password"},
		{"success", models.LoginRequest{Username: "student", Password: "password123"}, http.StatusOK, "Login successful!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPortal(t)
			rec, body := p.do(t, http.MethodPost, "/api/login", tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, body["message"])

			if tt.status != http.StatusOK {
				assert.Nil(t, p.cookie)
				return
			}
			require.NotNil(t, p.cookie)
			sess, err := p.clients.Get(p.cookie.Value).Store.Load(testContext(t))
			require.NoError(t, err)
			require.NotNil(t, sess)
			assert.Equal(t, "STU001", sess.Student.StudentID)
			assert.NotEmpty(t, sess.Token)
		})
	}
}

func TestDashboard(t *testing.T) {
	p := newPortal(t)

	rec, body := p.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body["redirect"])

	p.login(t)
	rec, body = p.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REG-2024-001", body["registrationId"])
}

func TestDashboardFailureEndsSession(t *testing.T) {
	p := newPortal(t)
	p.login(t)
	p.fake.Override("/getHostelContact/STU001", http.StatusInternalServerError, map[string]string{"message": "boom"})

	rec, body := p.do(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body["redirect"])

	sess, err := p.clients.Get(p.cookie.Value).Store.Load(testContext(t))
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestRechargeRequiresSession(t *testing.T) {
	p := newPortal(t)

	rec, body := p.do(t, http.MethodPost, "/api/recharge/open", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, LoginPath, body["redirect"])
}

func TestRechargeFlow(t *testing.T) {
	p := newPortal(t)
	p.login(t)

	rec, body := p.do(t, http.MethodPost, "/api/recharge", map[string]any{"amount": "100"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = p.do(t, http.MethodPost, "/api/recharge/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amount_entry", body["state"])

	rec, body = p.do(t, http.MethodPost, "/api/recharge", map[string]any{"amount": "abc"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Please enter a valid amount.", body["fieldError"])

	rec, body = p.do(t, http.MethodPost, "/api/recharge", map[string]any{"amount": 250.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_checkout", body["state"])
	opts, ok := body["checkout"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rzp_test_key", opts["key"])
	assert.EqualValues(t, 25050, opts["amount"])
	orderID, _ := opts["order_id"].(string)
	require.NotEmpty(t, orderID)

	rec, _ = p.do(t, http.MethodPost, "/api/recharge", map[string]any{"amount": "10"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, body = p.do(t, http.MethodPost, "/api/recharge/callback", p.fake.Pay(orderID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "succeeded", body["state"])
	assert.Equal(t, "Payment verified successfully!", body["message"])
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, orderID, summary["orderId"])

	// The settled checkout is released, so a replay is unknown.
	rec, _ = p.do(t, http.MethodPost, "/api/recharge/callback", p.fake.Pay(orderID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, p.fake.Verified(), 1)
	assert.EqualValues(t, 25050, p.fake.Verified()[0].Amount)

	rec, body = p.do(t, http.MethodGet, "/api/recharge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "succeeded", body["state"])
}

func TestLoginForwardsUsernameAsEntered(t *testing.T) {
	p := newPortal(t)
	p.fake.AddStudent("hostel user", "secret99", models.Identity{StudentID: "STU777", StudentName: "Ravi"}, nil)

	rec, _ := p.do(t, http.MethodPost, "/api/login", models.LoginRequest{Username: "hosteluser", Password: "secret99"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := p.do(t, http.MethodPost, "/api/login", models.LoginRequest{Username: "hostel user", Password: "secret99"})
	require.Equal(t, http.StatusOK, rec.Code)
	student, ok := body["student"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "STU777", student["studentId"])
}

func TestCallbackFromAnotherBrowserIsRejected(t *testing.T) {
	p := newPortal(t)
	p.login(t)
	rec, _ := p.do(t, http.MethodPost, "/api/recharge/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := p.do(t, http.MethodPost, "/api/recharge", map[string]any{"amount": "100"})
	require.Equal(t, http.StatusOK, rec.Code)
	opts, ok := body["checkout"].(map[string]any)
	require.True(t, ok)
	orderID, _ := opts["order_id"].(string)
	require.NotEmpty(t, orderID)
	owner := p.cookie

	// A browser that never logged in.
	p.cookie = nil
	rec, _ = p.do(t, http.MethodPost, "/api/recharge/callback", models.PaymentConfirmation{
		OrderID:   orderID,
		PaymentID: "pay_bogus",
		Signature: "bogus",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, p.cookie)
	assert.NotEqual(t, owner.Value, p.cookie.Value)

	// Another logged-in browser.
	p.cookie = nil
	p.login(t)
	rec, _ = p.do(t, http.MethodPost, "/api/recharge/callback", p.fake.Pay(orderID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, p.fake.Verified())

	p.cookie = owner
	rec, body = p.do(t, http.MethodGet, "/api/recharge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "awaiting_checkout", body["state"])

	rec, body = p.do(t, http.MethodPost, "/api/recharge/callback", p.fake.Pay(orderID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "succeeded", body["state"])
	assert.Len(t, p.fake.Verified(), 1)
}

func TestCallbackForUnknownOrder(t *testing.T) {
	p := newPortal(t)
	rec, _ := p.do(t, http.MethodPost, "/api/recharge/callback", models.PaymentConfirmation{
		OrderID:   "order_missing",
		PaymentID: "pay_1",
		Signature: "sig",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = p.do(t, http.MethodPost, "/api/recharge/callback", map[string]string{"razorpay_order_id": "order_missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutScript(t *testing.T) {
	p := newPortal(t)
	rec, _ := p.do(t, http.MethodGet, "/assets/checkout.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "window.Razorpay")
}

func TestAmountText(t *testing.T) {
	assert.Equal(t, "12.5", amountText(json.RawMessage(`"12.5"`)))
	assert.Equal(t, "12.5", amountText(json.RawMessage(`12.5`)))
	assert.Equal(t, "", amountText(json.RawMessage(`null`)))
	assert.Equal(t, "", amountText(nil))
}

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
