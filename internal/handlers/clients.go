package handlers

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/session"
	"github.com/markjakearzadon/hostel-portal.git/internal/workflow"
)

// ClientCookie identifies a browser to the portal.
const ClientCookie = "portal_sid"

// Client is the per-browser state: its session store and recharge workflow.
type Client struct {
	ID       string
	Store    session.Store
	Recharge *workflow.Recharge
}

// Clients maps browser ids to their state, creating it on first sight.
type Clients struct {
	newStore func(clientID string) session.Store
	backend  workflow.Backend
	checkout workflow.Checkout
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

func NewClients(newStore func(clientID string) session.Store, backend workflow.Backend, co workflow.Checkout, logger *zap.Logger) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clients{
		newStore: newStore,
		backend:  backend,
		checkout: co,
		logger:   logger,
		clients:  map[string]*Client{},
	}
}

// Get returns the state of client id.
func (c *Clients) Get(id string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, ok := c.clients[id]
	if !ok {
		store := c.newStore(id)
		client = &Client{
			ID:    id,
			Store: store,
			Recharge: workflow.New(store, c.backend, c.checkout,
				workflow.WithLogger(c.logger.With(zap.String("client", id)))),
		}
		c.clients[id] = client
	}
	return client
}

// Resolve returns the client behind the request cookie, issuing a new id when
// the request has none.
func (c *Clients) Resolve(w http.ResponseWriter, r *http.Request) *Client {
	if cookie, err := r.Cookie(ClientCookie); err == nil && cookie.Value != "" {
		return c.Get(cookie.Value)
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Get(id)
}

// Close stops every client's workflow.
func (c *Clients) Close() {
	c.mu.Lock()
	clients := make([]*Client, 0, len(c.clients))
	for _, client := range c.clients {
		clients = append(clients, client)
	}
	c.mu.Unlock()

	for _, client := range clients {
		client.Recharge.Close()
	}
}
