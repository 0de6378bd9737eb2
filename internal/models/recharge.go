package models

// CurrencyINR is the only currency hostel recharges are raised in.
const CurrencyINR = "INR"

// StatusVerified is the verification status the backend reports for a settled payment.
const StatusVerified = "ok"

// RechargeRequest is the body of POST /create-order-hostel-recharge. One per attempt.
type RechargeRequest struct {
	Amount    float64           `json:"amount"`
	StudentID string            `json:"studentId"`
	AdminName *string           `json:"adminName"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes"`
}

// Order is the backend-issued record for one payment attempt. Amount is in minor units.
type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentConfirmation is what the hosted checkout reports after the user pays.
// It is not trusted until the backend verifies it.
type PaymentConfirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// VerifyRequest is the body of POST /verify-payment-hostel-recharge.
type VerifyRequest struct {
	OrderID     string  `json:"razorpay_order_id"`
	PaymentID   string  `json:"razorpay_payment_id"`
	Signature   string  `json:"razorpay_signature"`
	StudentID   string  `json:"studentId"`
	AdminName   *string `json:"adminName"`
	Amount      int64   `json:"amount"`
	StudentName string  `json:"studentName"`
}

// VerificationResult is the terminal outcome of a recharge attempt.
type VerificationResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Verified reports whether the backend confirmed the payment.
func (v VerificationResult) Verified() bool {
	return v.Status == StatusVerified
}
