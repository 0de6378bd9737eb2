package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

// SessionsCollection holds one document per portal client.
const SessionsCollection = "sessions"

// MongoStore keeps the session of one portal client in MongoDB.
type MongoStore struct {
	collection *mongo.Collection
	clientID   string
}

func NewMongoStore(collection *mongo.Collection, clientID string) *MongoStore {
	return &MongoStore{collection: collection, clientID: clientID}
}

// MongoStores returns a factory binding stores to client ids in db's sessions collection.
func MongoStores(db *mongo.Database) func(clientID string) Store {
	collection := db.Collection(SessionsCollection)
	return func(clientID string) Store {
		return NewMongoStore(collection, clientID)
	}
}

func (m *MongoStore) Load(ctx context.Context) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc models.SessionDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": m.clientID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if doc.Token == "" && doc.Student == nil {
		return nil, nil
	}

	s := &models.Session{Token: doc.Token}
	if doc.Student != nil {
		s.Student = *doc.Student
	}
	return s, nil
}

func (m *MongoStore) Save(ctx context.Context, s models.Session) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	student := s.Student
	doc := models.SessionDocument{
		ClientID:  m.clientID,
		Token:     s.Token,
		Student:   &student,
		UpdatedAt: time.Now(),
	}
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": m.clientID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (m *MongoStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": m.clientID}); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
