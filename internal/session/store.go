// Package session persists the student's token and identity between requests.
//
// Stores never validate tokens. Staleness is only discovered when a protected
// backend call is rejected, at which point the caller clears the store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// Keys under which the two pieces of a session are kept.
const (
	TokenKey   = "token"
	StudentKey = "student"
)

// ErrNotAuthenticated means there is no usable session and the caller should
// send the user to the login screen.
var ErrNotAuthenticated = errors.New("not authenticated")

// Store reads and writes the current session.
type Store interface {
	// Load returns the persisted session, or nil when none is stored.
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s models.Session) error
	// Clear removes the persisted session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// Require loads the session and tears it down when it is missing a token or a
// student id. The returned session is always valid when err is nil.
func Require(ctx context.Context, store Store) (*models.Session, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.Valid() {
		return s, nil
	}
	if err := store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear invalid session: %w", err)
	}
	return nil, ErrNotAuthenticated
}

// encode flattens a session into its two fixed keys.
func encode(s models.Session) (map[string]string, error) {
	student, err := json.Marshal(s.Student)
	if err != nil {
		return nil, fmt.Errorf("failed to encode student: %w", err)
	}
	return map[string]string{
		TokenKey:   s.Token,
		StudentKey: string(student),
	}, nil
}

// decode rebuilds a session from its two keys. A student record that does not
// parse yields a session without identity, which Require treats as invalid.
func decode(kv map[string]string) *models.Session {
	token, raw := kv[TokenKey], kv[StudentKey]
	if token == "" && raw == "" {
		return nil
	}
	s := &models.Session{Token: token}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Student); err != nil {
			s.Student = models.Identity{}
		}
	}
	return s
}
