// Package checkout bridges to the hosted payment widget.
//
// The widget runs in the student's browser. The gateway cannot drive it; it
// can only make sure the widget script is available, hand the browser the
// options object to open it with, and wait for the browser to report back
// what the widget's handler received. That report may never arrive.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/markjakearzadon/hostel-portal.git/internal/models"
)

var (
	ErrNotLoaded        = errors.New("checkout script not loaded")
	ErrDuplicateOrder   = errors.New("order already handed to checkout")
	ErrUnknownOrder     = errors.New("no checkout open for order")
	ErrAlreadyCompleted = errors.New("checkout already completed")
)

// Config describes the merchant side of the widget.
type Config struct {
	KeyID          string
	ScriptURL      string
	MerchantName   string
	Description    string
	ThemeColor     string
	DefaultEmail   string
	DefaultContact string
	LoadTimeout    time.Duration
}

// Prefill is the customer detail shown pre-filled in the widget.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

// Options is handed to the widget verbatim.
type Options struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// Handoff is one opened checkout. It completes at most once.
type Handoff struct {
	Options Options

	result chan models.PaymentConfirmation
	once   sync.Once
}

// Result yields the single confirmation of this checkout. It has no timeout
// and nothing can cancel it; it may never yield.
func (h *Handoff) Result() <-chan models.PaymentConfirmation {
	return h.result
}

// NewHandoff returns a handoff that is not tracked by any bridge.
func NewHandoff(opts Options) *Handoff {
	return &Handoff{Options: opts, result: make(chan models.PaymentConfirmation, 1)}
}

// Deliver publishes conf as the result. It reports false when a result was
// already delivered.
func (h *Handoff) Deliver(conf models.PaymentConfirmation) bool {
	delivered := false
	h.once.Do(func() {
		h.result <- conf
		delivered = true
	})
	return delivered
}

// Bridge loads the widget script and tracks open checkouts.
type Bridge struct {
	cfg    Config
	client *resty.Client
	logger *zap.Logger

	group  singleflight.Group
	loaded atomic.Bool
	loads  atomic.Int64

	mu      sync.Mutex
	script  []byte
	pending map[string]*Handoff
}

func NewBridge(cfg Config, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	return &Bridge{
		cfg:     cfg,
		client:  resty.New().SetTimeout(cfg.LoadTimeout),
		logger:  logger,
		pending: map[string]*Handoff{},
	}
}

// EnsureLoaded makes sure the widget script is available. Concurrent callers
// share a single fetch. A failed fetch is not remembered.
func (b *Bridge) EnsureLoaded(ctx context.Context) bool {
	if b.loaded.Load() {
		return true
	}

	_, err, _ := b.group.Do("script", func() (any, error) {
		if b.loaded.Load() {
			return nil, nil
		}
		// The fetch is shared, so it must outlive the caller that started it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.LoadTimeout)
		defer cancel()
		return nil, b.fetch(fetchCtx)
	})
	if err != nil {
		b.logger.Warn("checkout script unavailable", zap.String("url", b.cfg.ScriptURL), zap.Error(err))
		return false
	}
	return true
}

func (b *Bridge) fetch(ctx context.Context) error {
	b.loads.Add(1)
	resp, err := b.client.R().SetContext(ctx).Get(b.cfg.ScriptURL)
	if err != nil {
		return fmt.Errorf("failed to fetch checkout script: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("failed to fetch checkout script: status %d", resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return errors.New("checkout script is empty")
	}

	b.mu.Lock()
	b.script = resp.Body()
	b.mu.Unlock()
	b.loaded.Store(true)

	b.logger.Info("checkout script loaded", zap.String("url", b.cfg.ScriptURL), zap.Int("bytes", len(resp.Body())))
	return nil
}

// Loads returns how many times the script was fetched.
func (b *Bridge) Loads() int64 {
	return b.loads.Load()
}

// Script returns the cached widget script.
func (b *Bridge) Script() ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.script, b.script != nil
}

// Open registers a checkout for order and returns the options the widget is
// opened with.
func (b *Bridge) Open(order models.Order, prefill Prefill) (*Handoff, error) {
	if !b.loaded.Load() {
		return nil, ErrNotLoaded
	}
	if prefill.Email == "" {
		prefill.Email = b.cfg.DefaultEmail
	}
	if prefill.Contact == "" {
		prefill.Contact = b.cfg.DefaultContact
	}

	h := NewHandoff(Options{
		Key:         b.cfg.KeyID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        b.cfg.MerchantName,
		Description: b.cfg.Description,
		OrderID:     order.OrderID,
		Prefill:     prefill,
		Theme:       Theme{Color: b.cfg.ThemeColor},
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[order.OrderID]; ok {
		return nil, ErrDuplicateOrder
	}
	b.pending[order.OrderID] = h

	b.logger.Debug("checkout opened", zap.String("order_id", order.OrderID), zap.Int64("amount", order.Amount))
	return h, nil
}

// Complete delivers what the widget's handler received. Only the first
// delivery for an order counts.
func (b *Bridge) Complete(conf models.PaymentConfirmation) error {
	b.mu.Lock()
	h, ok := b.pending[conf.OrderID]
	b.mu.Unlock()
	if !ok {
		return ErrUnknownOrder
	}
	if !h.Deliver(conf) {
		b.logger.Warn("duplicate checkout completion", zap.String("order_id", conf.OrderID))
		return ErrAlreadyCompleted
	}

	b.logger.Info("checkout completed",
		zap.String("order_id", conf.OrderID),
		zap.String("payment_id", conf.PaymentID))
	return nil
}

// Release forgets the checkout h once its attempt has settled. Later
// completions for its order are unknown.
func (b *Bridge) Release(h *Handoff) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[h.Options.OrderID] == h {
		delete(b.pending, h.Options.OrderID)
	}
}

// Pending returns how many checkouts are open.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
