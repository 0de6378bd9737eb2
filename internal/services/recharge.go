package services

import (
	"context"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// Backend routes for hostel wallet recharges.
const (
	CreateOrderPath   = "/create-order-hostel-recharge"
	VerifyPaymentPath = "/verify-payment-hostel-recharge"
)

// CreateHostelRechargeOrder asks the backend to open a payment order. The
// returned order may lack an id; callers must check.
func (c *BackendClient) CreateHostelRechargeOrder(ctx context.Context, token string, req models.RechargeRequest) (*models.Order, error) {
	if req.Notes == nil {
		req.Notes = map[string]string{}
	}
	raw, err := c.Post(ctx, CreateOrderPath, req, token)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := decode(raw, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyHostelRecharge asks the backend whether a checkout confirmation
// corresponds to a settled payment.
func (c *BackendClient) VerifyHostelRecharge(ctx context.Context, token string, req models.VerifyRequest) (*models.VerificationResult, error) {
	raw, err := c.Post(ctx, VerifyPaymentPath, req, token)
	if err != nil {
		return nil, err
	}

	var result models.VerificationResult
	if err := decode(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
