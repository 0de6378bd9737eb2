package models

import "time"

// Identity is the student record cached at login.
type Identity struct {
	StudentID   string `bson:"studentId" json:"studentId"`
	StudentName string `bson:"studentName" json:"studentName"`
	AdminName   string `bson:"adminuser,omitempty" json:"adminuser,omitempty"`
	Username    string `bson:"username,omitempty" json:"username,omitempty"`
	Type        string `bson:"type,omitempty" json:"type,omitempty"`
}

// Session is the locally cached proof of authentication.
type Session struct {
	Token   string   `bson:"token" json:"token"`
	Student Identity `bson:"student" json:"student"`
}

// Valid reports whether the session carries both a token and a student id.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.Student.StudentID != ""
}

// SessionDocument is the persisted form of a Session keyed by portal client id.
type SessionDocument struct {
	ClientID  string    `bson:"_id"`
	Token     string    `bson:"token"`
	Student   *Identity `bson:"student,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// LoginRequest is the body of POST /studentLogin.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the backend reply to a login attempt.
type LoginResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	Student *Identity `json:"student"`
	Message string    `json:"message"`
}

// HostelContact is the guardian-contact record shown on the dashboard.
type HostelContact struct {
	StudentID      string   `json:"studentId"`
	StudentName    string   `json:"studentName"`
	RegistrationID string   `json:"registrationId,omitempty"`
	AdminName      string   `json:"adminName,omitempty"`
	GuardianNo     []string `json:"guardianNo"`
}

// HostelContactResponse is the backend reply of GET /getHostelContact/{studentId}.
type HostelContactResponse struct {
	Success bool           `json:"success"`
	Student *HostelContact `json:"student"`
	Message string         `json:"message,omitempty"`
}
