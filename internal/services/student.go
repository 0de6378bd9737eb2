package services

import (
	"context"
	"net/url"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// Backend routes for the student account.
const (
	LoginPath         = "/studentLogin"
	HostelContactPath = "/getHostelContact/"
)

// Login exchanges credentials for a token and student record. A rejected
// login may come back as a 2xx with Success false.
func (c *BackendClient) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	raw, err := c.Post(ctx, LoginPath, models.LoginRequest{Username: username, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var resp models.LoginResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HostelContact fetches the guardian-contact record of a student.
func (c *BackendClient) HostelContact(ctx context.Context, token, studentID string) (*models.HostelContactResponse, error) {
	raw, err := c.Get(ctx, HostelContactPath+url.PathEscape(studentID), token)
	if err != nil {
		return nil, err
	}

	var resp models.HostelContactResponse
	if err := decode(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
