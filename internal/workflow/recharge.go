// Package workflow runs the hostel wallet recharge: order creation, hosted
// checkout handoff, and server-side verification of the result.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/markjakearzadon/hostel-portal.git/internal/checkout"
	"github.com/markjakearzadon/hostel-portal.git/internal/models"
	"github.com/markjakearzadon/hostel-portal.git/internal/services"
	"github.com/markjakearzadon/hostel-portal.git/internal/session"
)

// Messages shown to the student.
const (
	MsgInvalidAmount  = "Please enter a valid amount."
	MsgCheckoutFailed = "Failed to load Razorpay SDK. Please try again."
	MsgOrderFailed    = "Failed to create order. Please try again."
	MsgInitiateFailed = "Error initiating payment. Please try again."
	MsgVerified       = "Payment verified successfully!"
	MsgVerifyFailed   = "Payment verification failed."
	MsgVerifyErrored  = "Error verifying payment."
	MsgSessionExpired = "Your session has expired. Please log in again."
)

const (
	defaultPrefillName = "Student"
	amountField        = "amount"
)

// ErrDetached is returned by Submit when the attempt was abandoned (Reset or
// logout) while its order was being created.
var ErrDetached = errors.New("recharge attempt abandoned")

type State int

const (
	Idle State = iota
	AmountEntry
	OrderCreating
	AwaitingCheckout
	Verifying
	Succeeded
)

var stateNames = [...]string{
	Idle:             "idle",
	AmountEntry:      "amount_entry",
	OrderCreating:    "order_creating",
	AwaitingCheckout: "awaiting_checkout",
	Verifying:        "verifying",
	Succeeded:        "succeeded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type MessageKind string

const (
	MessageInfo  MessageKind = "info"
	MessageError MessageKind = "error"
)

// Summary is shown after a verified payment.
type Summary struct {
	Amount    float64 `json:"amount"`
	PaymentID string  `json:"paymentId"`
	OrderID   string  `json:"orderId"`
}

// Snapshot is what the recharge surface should currently display.
type Snapshot struct {
	State      State             `json:"state"`
	Message    string            `json:"message,omitempty"`
	Kind       MessageKind       `json:"kind,omitempty"`
	FieldError string            `json:"fieldError,omitempty"`
	Summary    *Summary          `json:"summary,omitempty"`
	Checkout   *checkout.Options `json:"checkout,omitempty"`
}

// Backend is the subset of the backend client the workflow calls.
type Backend interface {
	CreateHostelRechargeOrder(ctx context.Context, token string, req models.RechargeRequest) (*models.Order, error)
	VerifyHostelRecharge(ctx context.Context, token string, req models.VerifyRequest) (*models.VerificationResult, error)
}

// Checkout is the subset of the checkout bridge the workflow calls.
type Checkout interface {
	EnsureLoaded(ctx context.Context) bool
	Open(order models.Order, prefill checkout.Prefill) (*checkout.Handoff, error)
	Complete(conf models.PaymentConfirmation) error
	Release(h *checkout.Handoff)
}

type Option func(*Recharge)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Recharge) { w.logger = logger }
}

// WithReceipts replaces the receipt generator. Each call must return a new id.
func WithReceipts(next func() string) Option {
	return func(w *Recharge) { w.newReceipt = next }
}

type attempt struct {
	id      uint64
	amount  float64
	session models.Session
	order   models.Order
	handoff *checkout.Handoff

	settled    chan struct{}
	settleOnce sync.Once
}

func (a *attempt) settle() {
	a.settleOnce.Do(func() { close(a.settled) })
}

// Recharge is the recharge state machine of one portal client. At most one
// attempt is live at a time; Submit is rejected while it is outstanding.
type Recharge struct {
	store      session.Store
	backend    Backend
	checkout   Checkout
	logger     *zap.Logger
	newReceipt func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	state    State
	message  string
	kind     MessageKind
	fieldErr string
	summary  *Summary
	current  *attempt
	seq      uint64
	// awaiting holds every attempt, live or detached, whose checkout is open.
	awaiting map[string]*attempt
}

func New(store session.Store, backend Backend, co Checkout, opts ...Option) *Recharge {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Recharge{
		store:      store,
		backend:    backend,
		checkout:   co,
		logger:     zap.NewNop(),
		newReceipt: func() string { return "receipt_" + uuid.NewString() },
		ctx:        ctx,
		cancel:     cancel,
		awaiting:   map[string]*attempt{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open shows the recharge surface. Without a valid session it stays Idle,
// clears whatever partial session was stored, and returns ErrLoginRequired.
// A store failure is returned as is and leaves the state alone.
func (w *Recharge) Open(ctx context.Context) error {
	if _, err := session.Require(ctx, w.store); err != nil {
		if !errors.Is(err, session.ErrNotAuthenticated) {
			return err
		}
		w.mu.Lock()
		w.state = Idle
		w.current = nil
		w.resetDisplay()
		w.mu.Unlock()
		return ErrLoginRequired
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Idle || w.state == Succeeded {
		w.state = AmountEntry
		w.resetDisplay()
	}
	return nil
}

// Submit starts an attempt for the entered amount and returns the options to
// open the hosted checkout with. Verification runs once the checkout reports
// back through the bridge.
func (w *Recharge) Submit(ctx context.Context, input string) (*checkout.Options, error) {
	w.mu.Lock()
	switch {
	case w.closed, w.state == Idle:
		w.mu.Unlock()
		return nil, ErrNotOpen
	case w.state != AmountEntry:
		w.mu.Unlock()
		return nil, ErrAttemptInProgress
	}

	w.resetDisplay()
	amount, verr := parseAmount(input)
	if verr != nil {
		w.setError(verr.Message)
		w.fieldErr = verr.Message
		w.mu.Unlock()
		return nil, verr
	}

	w.seq++
	a := &attempt{id: w.seq, amount: amount, settled: make(chan struct{})}
	w.current = a
	w.state = OrderCreating
	w.mu.Unlock()

	opts, err := w.start(ctx, a)
	if err != nil {
		w.abort(a, err)
		return nil, err
	}
	return opts, nil
}

func (w *Recharge) start(ctx context.Context, a *attempt) (*checkout.Options, error) {
	sess, err := session.Require(ctx, w.store)
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			return nil, ErrLoginRequired
		}
		return nil, err
	}
	a.session = *sess

	req := models.RechargeRequest{
		Amount:    a.amount,
		StudentID: sess.Student.StudentID,
		AdminName: optional(sess.Student.AdminName),
		Currency:  models.CurrencyINR,
		Receipt:   w.newReceipt(),
		Notes:     map[string]string{},
	}
	w.logger.Info("creating recharge order",
		zap.Uint64("attempt", a.id),
		zap.String("student_id", req.StudentID),
		zap.String("receipt", req.Receipt),
		zap.Float64("amount", req.Amount))

	order, err := w.backend.CreateHostelRechargeOrder(ctx, sess.Token, req)
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			if clearErr := w.store.Clear(ctx); clearErr != nil {
				w.logger.Error("failed to clear expired session", zap.Error(clearErr))
			}
			return nil, fmt.Errorf("%w: %w", ErrLoginRequired, err)
		}
		return nil, err
	}
	if order == nil || order.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	a.order = *order

	if !w.checkout.EnsureLoaded(ctx) {
		return nil, ErrCheckoutUnavailable
	}
	h, err := w.checkout.Open(*order, checkout.Prefill{Name: nonEmpty(sess.Student.StudentName, defaultPrefillName)})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutUnavailable, err)
	}
	a.handoff = h

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.checkout.Release(h)
		return nil, ErrNotOpen
	}
	if w.current != a {
		w.checkout.Release(h)
		return nil, ErrDetached
	}
	w.awaiting[order.OrderID] = a
	w.state = AwaitingCheckout
	w.wg.Add(1)
	go w.await(a)

	w.logger.Info("awaiting checkout", zap.Uint64("attempt", a.id), zap.String("order_id", order.OrderID))
	return &h.Options, nil
}

// abort returns a failed attempt to amount entry. Detached attempts leave the
// visible state alone.
func (w *Recharge) abort(a *attempt, err error) {
	w.logger.Warn("recharge attempt failed", zap.Uint64("attempt", a.id), zap.Error(err))

	w.mu.Lock()
	defer w.mu.Unlock()
	defer a.settle()
	if w.current != a {
		return
	}
	w.current = nil
	if errors.Is(err, ErrLoginRequired) {
		w.state = Idle
		w.setError(MsgSessionExpired)
		return
	}
	w.state = AmountEntry
	w.setError(submitMessage(err))
}

// await holds the attempt until its checkout completes. There is no timeout;
// only Close ends the wait early.
func (w *Recharge) await(a *attempt) {
	defer w.wg.Done()
	select {
	case conf := <-a.handoff.Result():
		w.verify(a, conf)
	case <-w.ctx.Done():
		w.mu.Lock()
		w.release(a)
		w.mu.Unlock()
	}
}

// Complete hands conf to the checkout it answers. Only orders opened by one
// of this workflow's attempts, live or detached, are accepted; anything else
// is checkout.ErrUnknownOrder.
func (w *Recharge) Complete(conf models.PaymentConfirmation) error {
	w.mu.Lock()
	_, ok := w.awaiting[conf.OrderID]
	w.mu.Unlock()
	if !ok {
		return checkout.ErrUnknownOrder
	}
	return w.checkout.Complete(conf)
}

// release forgets a's checkout. w.mu must be held.
func (w *Recharge) release(a *attempt) {
	if w.awaiting[a.order.OrderID] == a {
		delete(w.awaiting, a.order.OrderID)
	}
	w.checkout.Release(a.handoff)
}

func (w *Recharge) verify(a *attempt, conf models.PaymentConfirmation) {
	w.mu.Lock()
	if w.current == a {
		w.state = Verifying
		w.resetDisplay()
	}
	w.mu.Unlock()

	student := a.session.Student
	result, err := w.backend.VerifyHostelRecharge(w.ctx, a.session.Token, models.VerifyRequest{
		OrderID:     conf.OrderID,
		PaymentID:   conf.PaymentID,
		Signature:   conf.Signature,
		StudentID:   student.StudentID,
		AdminName:   optional(student.AdminName),
		Amount:      a.order.Amount,
		StudentName: student.StudentName,
	})
	if err == nil && (result == nil || !result.Verified()) {
		err = ErrVerificationMismatch
	}

	fields := []zap.Field{
		zap.Uint64("attempt", a.id),
		zap.String("order_id", conf.OrderID),
		zap.String("payment_id", conf.PaymentID),
	}
	if err != nil {
		w.logger.Warn("payment verification failed", append(fields, zap.Error(err))...)
	} else {
		w.logger.Info("payment verified", fields...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	defer a.settle()
	w.release(a)
	if w.current != a {
		w.logger.Info("verification settled for abandoned attempt", fields...)
		return
	}
	w.current = nil
	if err != nil {
		w.state = AmountEntry
		w.setError(verifyMessage(err))
		return
	}
	w.state = Succeeded
	w.message = MsgVerified
	w.kind = MessageInfo
	w.summary = &Summary{Amount: a.amount, PaymentID: conf.PaymentID, OrderID: conf.OrderID}
}

// Reset closes the recharge surface's dialog. A pending checkout or
// verification is not cancelled; its outcome just no longer shows.
func (w *Recharge) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Idle {
		return
	}
	if w.current != nil {
		w.logger.Info("detaching recharge attempt", zap.Uint64("attempt", w.current.id), zap.Stringer("state", w.state))
	}
	w.current = nil
	w.state = AmountEntry
	w.resetDisplay()
}

// Snapshot returns the current display state.
func (w *Recharge) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		State:      w.state,
		Message:    w.message,
		Kind:       w.kind,
		FieldError: w.fieldErr,
	}
	if w.summary != nil {
		summary := *w.summary
		snap.Summary = &summary
	}
	if w.state == AwaitingCheckout && w.current != nil && w.current.handoff != nil {
		opts := w.current.handoff.Options
		snap.Checkout = &opts
	}
	return snap
}

// Wait blocks until the live attempt settles or ctx is done.
func (w *Recharge) Wait(ctx context.Context) (Snapshot, error) {
	w.mu.Lock()
	a := w.current
	w.mu.Unlock()

	if a != nil {
		select {
		case <-a.settled:
		case <-ctx.Done():
			return w.Snapshot(), ctx.Err()
		}
	}
	return w.Snapshot(), nil
}

// Close stops every waiting attempt and cancels in-flight verifications.
func (w *Recharge) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

func (w *Recharge) resetDisplay() {
	w.message = ""
	w.kind = MessageInfo
	w.fieldErr = ""
	w.summary = nil
}

func (w *Recharge) setError(msg string) {
	w.message = msg
	w.kind = MessageError
}

func parseAmount(input string) (float64, *ValidationError) {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, &ValidationError{Field: amountField, Message: MsgInvalidAmount}
	}
	return v, nil
}

func submitMessage(err error) string {
	var apiErr *services.APIError
	switch {
	case errors.Is(err, ErrMissingOrderID):
		return MsgOrderFailed
	case errors.Is(err, ErrCheckoutUnavailable):
		return MsgCheckoutFailed
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return MsgInitiateFailed
	}
}

func verifyMessage(err error) string {
	var apiErr *services.APIError
	switch {
	case errors.Is(err, ErrVerificationMismatch):
		return MsgVerifyFailed
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return MsgVerifyErrored
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
