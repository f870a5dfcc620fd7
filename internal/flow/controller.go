package flow

import (
	"context"
	"sync"
	"time"

	"ferryline/internal/availability"
	"ferryline/internal/booking"
	"ferryline/internal/cart"
	cartvalidator "ferryline/internal/cart/validator"
	"ferryline/internal/checkout"
	"ferryline/internal/countdown"
	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

// SearchClient fetches sailing results from the search collaborator.
type SearchClient interface {
	Search(ctx context.Context, params model.SearchParams) ([]*model.SailingResult, error)
	Refetch(ctx context.Context, sailingIDs []string) ([]*model.SailingResult, error)
}

// BookingClient creates bookings and confirms payment.
type BookingClient interface {
	Create(ctx context.Context, req booking.CreateRequest) (*model.BookingRecord, error)
	ConfirmPayment(ctx context.Context, reference string) (*model.BookingRecord, error)
}

// SessionStore persists the pending-booking marker across reloads.
type SessionStore interface {
	SaveBookingMarker(reference string, expiresAt time.Time) error
	LoadBookingMarker() (string, time.Time, error)
	ClearBookingMarker() error
}

// RouteSubscriber manages push-channel route interests.
type RouteSubscriber interface {
	Subscribe(routes []string)
	Unsubscribe(routes []string)
}

// Totals is a priced view of the current cart.
type Totals struct {
	Outbound    float64           `json:"outbound"`
	Return      float64           `json:"return"`
	Provisional float64           `json:"provisional"`
	Total       float64           `json:"total"`
	Promo       *model.PromoState `json:"promo,omitempty"`
}

// Controller is the single writer over the reservation state: the search
// cache, the cart, the step machine and the payment countdown. Every
// mutation — user command, push delta, operator feed event, timer expiry —
// funnels through its mutex, which is why those collaborators carry no
// locking of their own.
type Controller struct {
	mu sync.Mutex

	log       *logger.Logger
	cache     *availability.SearchCache
	cart      *cart.Cart
	machine   *checkout.Machine
	validator *cartvalidator.CartValidator
	clock     countdown.Clock

	searchClient  SearchClient
	bookingClient BookingClient
	sessions      SessionStore
	routes        RouteSubscriber

	timer       *countdown.Timer
	timerCancel context.CancelFunc
	activeRoute string
}

type Config struct {
	Log           *logger.Logger
	Cart          *cart.Cart
	SearchClient  SearchClient
	BookingClient BookingClient
	Sessions      SessionStore
	Routes        RouteSubscriber // optional
	CanGoBack     checkout.GuardFunc
	Clock         countdown.Clock // optional, defaults to system clock
}

func NewController(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = countdown.SystemClock()
	}
	return &Controller{
		log:           cfg.Log.WithComponent("flow"),
		cache:         availability.NewSearchCache(),
		cart:          cfg.Cart,
		machine:       checkout.NewMachine(cfg.Log, cfg.CanGoBack),
		validator:     cartvalidator.NewCartValidator(cfg.Log),
		clock:         clock,
		searchClient:  cfg.SearchClient,
		bookingClient: cfg.BookingClient,
		sessions:      cfg.Sessions,
		routes:        cfg.Routes,
	}
}

// Search runs a fresh search. Any previous flow state is discarded: the
// cart resets, the countdown stops, and the step machine lands on ferry
// selection with the new results cached.
func (c *Controller) Search(ctx context.Context, params model.SearchParams) ([]*model.SailingResult, error) {
	results, err := c.searchClient.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.clearMarkerLocked()
	c.cart.Reset()
	c.cart.SetSearchParams(params)
	c.cache.Seed(params, results)
	c.machine.StartNewSearch()
	c.switchRouteLocked(params.Route)

	c.log.Info("search completed", "route", params.Route, "results", len(results))
	return results, nil
}

// ApplyDelta reconciles one availability delta into the cached results.
// This is the sink for both the push channel and the operator feed.
func (c *Controller) ApplyDelta(sailingID string, delta model.AvailabilityDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Apply(sailingID, delta)
}

// Results returns the live cached results. Callers must treat the slice
// as read-only.
func (c *Controller) Results() []*model.SailingResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Results()
}

// SelectSailing picks a cached sailing for the given leg.
func (c *Controller) SelectSailing(leg, sailingID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sailing := c.cache.Find(sailingID)
	if sailing == nil {
		return apperrors.NotFoundWithID("sailing", sailingID)
	}
	return c.withCartEditLocked(func() error {
		return c.cart.SelectSailing(leg, sailing)
	})
}

func (c *Controller) SetCabinSelections(leg string, selections []model.CabinSelection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withCartEditLocked(func() error {
		return c.cart.SetCabinSelections(leg, selections)
	})
}

func (c *Controller) SetMeals(items []model.MealSelection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withCartEditLocked(func() error {
		c.cart.SetMeals(items)
		return nil
	})
}

func (c *Controller) AddPassenger(p model.Passenger) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var id string
	c.withCartEditLocked(func() error {
		id = c.cart.AddPassenger(p)
		return nil
	})
	return id
}

func (c *Controller) UpdatePassenger(id string, patch cart.PassengerPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withCartEditLocked(func() error {
		return c.cart.UpdatePassenger(id, patch)
	})
}

func (c *Controller) RemovePassenger(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withCartEditLocked(func() error {
		return c.cart.RemovePassenger(id)
	})
}

func (c *Controller) AddVehicle(v model.Vehicle) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var id string
	c.withCartEditLocked(func() error {
		id = c.cart.AddVehicle(v)
		return nil
	})
	return id
}

func (c *Controller) UpdateVehicle(id string, patch cart.VehiclePatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withCartEditLocked(func() error {
		return c.cart.UpdateVehicle(id, patch)
	})
}

func (c *Controller) RemoveVehicle(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withCartEditLocked(func() error {
		return c.cart.RemoveVehicle(id)
	})
}

func (c *Controller) SetContactInfo(info model.ContactInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withCartEditLocked(func() error {
		c.cart.SetContactInfo(info)
		return nil
	})
}

func (c *Controller) SetCancellationProtection(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withCartEditLocked(func() error {
		c.cart.SetCancellationProtection(enabled)
		return nil
	})
}

func (c *Controller) ApplyPromoCode(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart.ApplyPromoCode(ctx, code)
}

// Totals prices the current cart under the lock.
func (c *Controller) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Totals{
		Outbound:    c.cart.LegTotal(model.LegOutbound),
		Return:      c.cart.LegTotal(model.LegReturn),
		Provisional: c.cart.ProvisionalTotal(),
		Total:       c.cart.Total(),
		Promo:       c.cart.Promo(),
	}
}

func (c *Controller) CurrentStep() checkout.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

func (c *Controller) Advance() checkout.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Advance()
}

func (c *Controller) GoTo(target checkout.Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.GoTo(target)
}

// StartNewSearch abandons the current flow: cart, cache, countdown and
// pending booking marker all clear, and the machine resets to ferry
// selection.
func (c *Controller) StartNewSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.cart.Reset()
	c.cache.Clear()
	c.switchRouteLocked("")
	c.machine.StartNewSearch()
	c.clearMarkerLocked()
}

// ProceedToPayment validates the cart and creates the booking. On success
// the payment countdown starts and the machine advances to the payment
// step. A booking that is already settled short-circuits to confirmation.
func (c *Controller) ProceedToPayment(ctx context.Context) (*model.BookingRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.machine.Current(); cur != checkout.StepBookingDetails {
		return nil, apperrors.Validation("cannot proceed to payment from step "+cur.String(), nil)
	}

	if err := c.validator.ValidateForPayment(c.cart.Contact(), c.cart.Passengers(), c.cart.Vehicles()); err != nil {
		return nil, err
	}

	if existing := c.cart.Booking(); existing != nil && existing.IsSettled() {
		c.machine.CompleteBooking()
		return existing, nil
	}

	req := c.createRequestLocked()

	// The create call runs outside the lock: it is a network round trip
	// and deltas must keep reconciling meanwhile.
	c.mu.Unlock()
	record, err := c.bookingClient.Create(ctx, req)
	c.mu.Lock()

	if err != nil {
		c.refreshAfterFailureLocked(ctx)
		return nil, err
	}

	// The flow may have been reset while the create call was in flight;
	// a booking for an abandoned cart must not attach to the new one.
	if c.machine.Current() != checkout.StepBookingDetails {
		c.log.Warn("discarding booking created for an abandoned flow", "reference", record.Reference)
		return nil, apperrors.Conflict("checkout flow changed while creating the booking")
	}

	c.cart.SetBooking(record)
	if record.IsSettled() {
		c.machine.CompleteBooking()
		c.clearMarkerLocked()
		return record, nil
	}

	if err := c.sessions.SaveBookingMarker(record.Reference, record.ExpiresAt); err != nil {
		c.log.Warn("failed to persist booking marker", "error", err)
	}
	c.startTimerLocked(record.ExpiresAt)
	c.machine.Advance()

	c.log.Info("booking created", "reference", record.Reference, "expiresAt", record.ExpiresAt)
	return record, nil
}

// ConfirmPayment settles the pending booking. A missing or expired
// booking yields a session-expired error and the user must re-create it.
func (c *Controller) ConfirmPayment(ctx context.Context) (*model.BookingRecord, error) {
	c.mu.Lock()

	if cur := c.machine.Current(); cur != checkout.StepPayment {
		c.mu.Unlock()
		return nil, apperrors.Validation("cannot confirm payment from step "+cur.String(), nil)
	}
	pending := c.cart.Booking()
	if pending == nil || (c.timer != nil && c.timer.Expired()) {
		c.stopTimerLocked()
		c.cart.ClearCurrentBooking()
		c.clearMarkerLocked()
		c.mu.Unlock()
		return nil, apperrors.SessionExpired("payment session has expired, please create the booking again")
	}
	reference := pending.Reference
	c.mu.Unlock()

	record, err := c.bookingClient.ConfirmPayment(ctx, reference)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	c.stopTimerLocked()
	c.cart.SetBooking(record)
	c.clearMarkerLocked()
	c.machine.CompleteBooking()

	c.log.Info("booking confirmed", "reference", record.Reference)
	return record, nil
}

// Countdown returns the current payment-session snapshot. ok is false
// when no countdown is running.
func (c *Controller) Countdown() (countdown.Snapshot, bool) {
	c.mu.Lock()
	timer := c.timer
	c.mu.Unlock()
	if timer == nil {
		return countdown.Snapshot{}, false
	}
	return timer.Evaluate(), true
}

// ResumePendingBooking reports a booking marker left by a previous
// session, if one is still live. The cart itself is never restored; the
// caller can only surface the reference to the user.
func (c *Controller) ResumePendingBooking() (string, time.Time, bool) {
	reference, expiresAt, err := c.sessions.LoadBookingMarker()
	if err != nil {
		c.log.Warn("failed to load booking marker", "error", err)
		return "", time.Time{}, false
	}
	if reference == "" {
		return "", time.Time{}, false
	}
	return reference, expiresAt, true
}

// withCartEditLocked runs a cart mutation and reconciles the pending
// booking afterwards: when the edit detached an in-flight booking, the
// countdown and session marker go with it.
func (c *Controller) withCartEditLocked(fn func() error) error {
	hadBooking := c.cart.Booking() != nil
	err := fn()
	if hadBooking && c.cart.Booking() == nil {
		c.stopTimerLocked()
		c.clearMarkerLocked()
	}
	return err
}

func (c *Controller) createRequestLocked() booking.CreateRequest {
	req := booking.CreateRequest{
		Passengers:       c.cart.Passengers(),
		Vehicles:         c.cart.Vehicles(),
		Meals:            c.cart.Meals(),
		Protection:       c.cart.CancellationProtection(),
		ProvisionalTotal: c.cart.ProvisionalTotal(),
	}
	if out := c.cart.Outbound(); out != nil {
		req.OutboundSailingID = out.ID
	}
	if ret := c.cart.ReturnSailing(); ret != nil {
		req.ReturnSailingID = ret.ID
	}
	req.Cabins = append(c.cart.CabinSelections(model.LegOutbound), c.cart.CabinSelections(model.LegReturn)...)
	if contact := c.cart.Contact(); contact != nil {
		req.Contact = *contact
	}
	if promo := c.cart.Promo(); promo != nil {
		req.PromoCode = promo.Code
	}
	return req
}

// refreshAfterFailureLocked re-fetches authoritative availability for the
// cached sailings after a failed booking create. The cart is untouched;
// only the inventory view refreshes.
func (c *Controller) refreshAfterFailureLocked(ctx context.Context) {
	ids := make([]string, 0, c.cache.Len())
	for _, r := range c.cache.Results() {
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return
	}

	c.mu.Unlock()
	fresh, err := c.searchClient.Refetch(ctx, ids)
	c.mu.Lock()

	if err != nil {
		c.log.Warn("availability refresh after failed booking", "error", err)
		return
	}
	c.cache.Replace(fresh)
	c.log.Info("availability refreshed after failed booking", "sailings", len(fresh))
}

func (c *Controller) startTimerLocked(expiresAt time.Time) {
	c.stopTimerLocked()
	// A deadline already in the past fires the callback during
	// construction, while c.mu is held; onExpired re-locks it, so the
	// callback must leave the constructing goroutine first.
	c.timer = countdown.NewWithClock(expiresAt, func() { go c.onExpired() }, c.clock)
	ctx, cancel := context.WithCancel(context.Background())
	c.timerCancel = cancel
	go c.timer.Run(ctx)
}

func (c *Controller) stopTimerLocked() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
	}
	c.timer = nil
}

// onExpired fires at most once per booking, never on a goroutine that
// already holds c.mu.
func (c *Controller) onExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.cart.Booking()
	if pending == nil {
		return
	}
	c.log.Info("payment session expired", "reference", pending.Reference)
	c.cart.ClearCurrentBooking()
	c.clearMarkerLocked()
}

func (c *Controller) clearMarkerLocked() {
	if err := c.sessions.ClearBookingMarker(); err != nil {
		c.log.Warn("failed to clear booking marker", "error", err)
	}
}

// switchRouteLocked moves the push-channel interest to the new route.
func (c *Controller) switchRouteLocked(route string) {
	if c.routes == nil {
		return
	}
	if c.activeRoute != "" && c.activeRoute != route {
		c.routes.Unsubscribe([]string{c.activeRoute})
	}
	if route != "" && route != c.activeRoute {
		c.routes.Subscribe([]string{route})
	}
	c.activeRoute = route
}
