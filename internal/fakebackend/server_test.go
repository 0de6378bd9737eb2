package fakebackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

func call(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthorizedRoutes(t *testing.T) {
	s := Demo()

	rec := call(t, s, http.MethodGet, "/getHostelContact/STU001", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, s, http.MethodGet, "/getHostelContact/STU001", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := New("other-secret", "k").IssueToken("STU001")
	require.NoError(t, err)
	rec = call(t, s, http.MethodGet, "/getHostelContact/STU001", other, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := s.IssueToken("STU001")
	require.NoError(t, err)
	rec = call(t, s, http.MethodGet, "/getHostelContact/STU001", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, s, http.MethodGet, "/getHostelContact/STU002", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 5, s.Calls("/getHostelContact/STU001")+s.Calls("/getHostelContact/STU002"))
}

func TestVerifyChecksOrderAndSignature(t *testing.T) {
	s := Demo()
	token, err := s.IssueToken("STU001")
	require.NoError(t, err)

	rec := call(t, s, http.MethodPost, "/create-order-hostel-recharge", token, models.RechargeRequest{
		Amount: 12.34, StudentID: "STU001", Currency: models.CurrencyINR, Receipt: "receipt_1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, int64(1234), order.Amount)

	conf := s.Pay(order.OrderID)
	verify := func(req models.VerifyRequest) string {
		rec := call(t, s, http.MethodPost, "/verify-payment-hostel-recharge", token, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var result models.VerificationResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		return result.Status
	}
	good := models.VerifyRequest{
		OrderID: conf.OrderID, PaymentID: conf.PaymentID, Signature: conf.Signature,
		StudentID: "STU001", Amount: order.Amount,
	}

	forged := good
	forged.Signature = s.Sign(order.OrderID, "pay_other")
	assert.Equal(t, "failed", verify(forged))

	wrongAmount := good
	wrongAmount.Amount = 1
	assert.Equal(t, "failed", verify(wrongAmount))

	assert.Equal(t, models.StatusVerified, verify(good))
	assert.Len(t, s.Verified(), 3)
}

func TestOverride(t *testing.T) {
	s := Demo()
	s.Override("/studentLogin", http.StatusServiceUnavailable, map[string]string{"message": "down"})
	rec := call(t, s, http.MethodPost, "/studentLogin", "", models.LoginRequest{Username: "student", Password: "password123"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.ClearOverride("/studentLogin")
	rec = call(t, s, http.MethodPost, "/studentLogin", "", models.LoginRequest{Username: "student", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
}
