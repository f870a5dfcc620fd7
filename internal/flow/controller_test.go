package flow

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"ferryline/internal/booking"
	"ferryline/internal/cart"
	"ferryline/internal/checkout"
	"ferryline/internal/countdown"
	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "test"})
}

type fakeSearchClient struct {
	mu        sync.Mutex
	results   []*model.SailingResult
	refetch   []*model.SailingResult
	refetches int
	err       error
}

func (f *fakeSearchClient) Search(context.Context, model.SearchParams) ([]*model.SailingResult, error) {
	return f.results, f.err
}

func (f *fakeSearchClient) Refetch(context.Context, []string) ([]*model.SailingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refetches++
	return f.refetch, nil
}

type fakeBookingClient struct {
	record     *model.BookingRecord
	createErr  error
	confirmed  *model.BookingRecord
	confirmErr error
	creates    int
}

func (f *fakeBookingClient) Create(context.Context, booking.CreateRequest) (*model.BookingRecord, error) {
	f.creates++
	return f.record, f.createErr
}

func (f *fakeBookingClient) ConfirmPayment(context.Context, string) (*model.BookingRecord, error) {
	return f.confirmed, f.confirmErr
}

type fakeSessionStore struct {
	mu        sync.Mutex
	reference string
	expiresAt time.Time
	clears    int
}

func (f *fakeSessionStore) SaveBookingMarker(reference string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reference = reference
	f.expiresAt = expiresAt
	return nil
}

func (f *fakeSessionStore) LoadBookingMarker() (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reference, f.expiresAt, nil
}

func (f *fakeSessionStore) ClearBookingMarker() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reference = ""
	f.clears++
	return nil
}

type fakeRoutes struct {
	mu           sync.Mutex
	subscribed   [][]string
	unsubscribed [][]string
}

func (f *fakeRoutes) Subscribe(routes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, routes)
}

func (f *fakeRoutes) Unsubscribe(routes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, routes)
}

type okPromo struct{}

func (okPromo) Validate(context.Context, cart.PromoRequest) (cart.PromoResult, error) {
	return cart.PromoResult{IsValid: true, DiscountAmount: 10}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func sailings() []*model.SailingResult {
	return []*model.SailingResult{
		{
			ID:       "sail-1",
			Route:    "helsinki-tallinn",
			Operator: "nordline",
			Prices:   map[string]float64{"adult": 40},
			AvailableSpaces: model.AvailableSpaces{
				Passengers: 100, Vehicles: 20, Cabins: 10,
			},
		},
		{
			ID:     "sail-2",
			Route:  "helsinki-tallinn",
			Prices: map[string]float64{"adult": 55},
			AvailableSpaces: model.AvailableSpaces{
				Passengers: 60, Vehicles: 8, Cabins: 4,
			},
		},
	}
}

type fixture struct {
	ctrl     *Controller
	search   *fakeSearchClient
	bookings *fakeBookingClient
	sessions *fakeSessionStore
	routes   *fakeRoutes
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testLogger()
	f := &fixture{
		search:   &fakeSearchClient{results: sailings()},
		bookings: &fakeBookingClient{},
		sessions: &fakeSessionStore{},
		routes:   &fakeRoutes{},
		clock:    &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.ctrl = NewController(Config{
		Log:           log,
		Cart:          cart.New(log, okPromo{}, 12),
		SearchClient:  f.search,
		BookingClient: f.bookings,
		Sessions:      f.sessions,
		Routes:        f.routes,
		CanGoBack:     checkout.AllowBack,
		Clock:         f.clock,
	})
	return f
}

func params() model.SearchParams {
	return model.SearchParams{
		Route:         "helsinki-tallinn",
		DepartureDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Adults:        2,
	}
}

// fillDetails walks the fixture to the booking-details step with a cart
// that passes payment validation.
func fillDetails(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := f.ctrl.SelectSailing(model.LegOutbound, "sail-1"); err != nil {
		t.Fatalf("select sailing: %v", err)
	}
	f.ctrl.Advance() // select_ferry -> booking_details

	f.ctrl.AddPassenger(model.Passenger{Type: model.PassengerAdult, FirstName: "Aino", LastName: "Virtanen"})
	f.ctrl.SetContactInfo(model.ContactInfo{
		FirstName: "Aino",
		LastName:  "Virtanen",
		Email:     "aino@example.com",
		Phone:     "+358401234567",
	})
}

func pendingRecord(f *fixture) *model.BookingRecord {
	return &model.BookingRecord{
		Reference:   "FL-1001",
		TotalAmount: 92.5,
		ExpiresAt:   f.clock.Now().Add(20 * time.Minute),
		Status:      model.BookingPending,
	}
}

func TestSearchSeedsCacheAndResetsFlow(t *testing.T) {
	f := newFixture(t)

	results, err := f.ctrl.Search(context.Background(), params())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if got := f.ctrl.CurrentStep(); got != checkout.StepSelectFerry {
		t.Errorf("step = %v, want select_ferry", got)
	}
	if len(f.routes.subscribed) != 1 || f.routes.subscribed[0][0] != "helsinki-tallinn" {
		t.Errorf("expected push-channel subscription to the searched route, got %v", f.routes.subscribed)
	}
}

func TestApplyDeltaReachesCachedResults(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}

	f.ctrl.ApplyDelta("sail-1", model.AvailabilityDelta{
		ChangeType:       model.ChangeBookingCreated,
		PassengersBooked: 10,
	})

	for _, r := range f.ctrl.Results() {
		if r.ID == "sail-1" && r.AvailableSpaces.Passengers != 90 {
			t.Errorf("passengers = %d, want 90", r.AvailableSpaces.Passengers)
		}
	}
}

func TestSelectUnknownSailingRejected(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}

	err := f.ctrl.SelectSailing(model.LegOutbound, "ghost")
	if err == nil {
		t.Fatal("expected error selecting sailing absent from results")
	}
}

func TestProceedToPaymentRequiresDetailsStep(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}

	if _, err := f.ctrl.ProceedToPayment(context.Background()); err == nil {
		t.Fatal("expected error proceeding to payment from select_ferry")
	}
}

func TestProceedToPaymentValidatesCart(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := f.ctrl.SelectSailing(model.LegOutbound, "sail-1"); err != nil {
		t.Fatalf("select sailing: %v", err)
	}
	f.ctrl.Advance()

	// No passengers, no contact.
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err == nil {
		t.Fatal("expected validation error for empty cart")
	}
	if f.bookings.creates != 0 {
		t.Errorf("booking created despite failed validation")
	}
}

func TestProceedToPaymentCreatesBookingAndStartsCountdown(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)

	record, err := f.ctrl.ProceedToPayment(context.Background())
	if err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}
	if record.Reference != "FL-1001" {
		t.Errorf("reference = %q", record.Reference)
	}
	if got := f.ctrl.CurrentStep(); got != checkout.StepPayment {
		t.Errorf("step = %v, want payment", got)
	}
	if f.sessions.reference != "FL-1001" {
		t.Errorf("booking marker = %q, want FL-1001", f.sessions.reference)
	}

	snap, ok := f.ctrl.Countdown()
	if !ok {
		t.Fatal("expected a running countdown")
	}
	if snap.Urgency != countdown.UrgencyNormal {
		t.Errorf("urgency = %v, want normal at 20m", snap.Urgency)
	}
}

func TestFailedCreateRefreshesAvailability(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.createErr = apperrors.BookingFailed("capacity taken", errors.New("409"))

	fresh := sailings()
	fresh[0].AvailableSpaces.Passengers = 1
	f.search.refetch = fresh

	if _, err := f.ctrl.ProceedToPayment(context.Background()); err == nil {
		t.Fatal("expected create failure to propagate")
	}
	if f.search.refetches != 1 {
		t.Fatalf("refetches = %d, want 1", f.search.refetches)
	}
	for _, r := range f.ctrl.Results() {
		if r.ID == "sail-1" && r.AvailableSpaces.Passengers != 1 {
			t.Errorf("expected refreshed availability, got %d", r.AvailableSpaces.Passengers)
		}
	}
	// Cart survives the failure for retry.
	if got := f.ctrl.CurrentStep(); got != checkout.StepBookingDetails {
		t.Errorf("step = %v, want booking_details after failure", got)
	}
}

func TestProceedToPaymentWithPastDeadlineReturns(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	// Clock skew or a slow create call can hand back a deadline that has
	// already passed.
	f.bookings.record = &model.BookingRecord{
		Reference:   "FL-3003",
		TotalAmount: 92.5,
		ExpiresAt:   f.clock.Now().Add(-time.Minute),
		Status:      model.BookingPending,
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.ProceedToPayment(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("proceed to payment: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ProceedToPayment hung on an already-expired deadline")
	}

	// The expiry fires off the constructing goroutine; wait for it to land.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		f.sessions.mu.Lock()
		cleared := f.sessions.reference == ""
		f.sessions.mu.Unlock()
		if cleared {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("marker should clear once the expired deadline is noticed")
}

func TestSettledBookingShortCircuitsToConfirmation(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = &model.BookingRecord{
		Reference:   "FL-2002",
		TotalAmount: 92.5,
		Status:      model.BookingConfirmed,
	}

	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}
	if got := f.ctrl.CurrentStep(); got != checkout.StepConfirmation {
		t.Errorf("step = %v, want confirmation", got)
	}
	if _, ok := f.ctrl.Countdown(); ok {
		t.Error("no countdown should run for a settled booking")
	}
}

func TestConfirmPaymentSettlesBooking(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	f.bookings.confirmed = &model.BookingRecord{
		Reference:   "FL-1001",
		TotalAmount: 92.5,
		Status:      model.BookingConfirmed,
	}
	record, err := f.ctrl.ConfirmPayment(context.Background())
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	if !record.IsSettled() {
		t.Error("expected settled record")
	}
	if got := f.ctrl.CurrentStep(); got != checkout.StepConfirmation {
		t.Errorf("step = %v, want confirmation", got)
	}
	if f.sessions.reference != "" {
		t.Error("booking marker should clear after confirmation")
	}
}

func TestExpiredSessionRejectsConfirmation(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	f.clock.Advance(21 * time.Minute)
	f.ctrl.timer.Evaluate() // expiry fires deterministically off the fake clock

	_, err := f.ctrl.ConfirmPayment(context.Background())
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeSessionExpired {
		t.Fatalf("expected session-expired error, got %v", err)
	}
	if f.sessions.reference != "" {
		t.Error("marker should clear when the session expires")
	}
}

func TestCartEditDetachesBookingAndStopsCountdown(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	f.ctrl.AddPassenger(model.Passenger{Type: model.PassengerChild, FirstName: "Eero", LastName: "Virtanen"})

	if _, ok := f.ctrl.Countdown(); ok {
		t.Error("countdown should stop when an edit detaches the booking")
	}
	if f.sessions.reference != "" {
		t.Error("marker should clear when an edit detaches the booking")
	}
}

func TestStartNewSearchClearsEverything(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	f.ctrl.StartNewSearch()

	if got := f.ctrl.CurrentStep(); got != checkout.StepSelectFerry {
		t.Errorf("step = %v, want select_ferry", got)
	}
	if len(f.ctrl.Results()) != 0 {
		t.Error("cache should clear")
	}
	if _, ok := f.ctrl.Countdown(); ok {
		t.Error("countdown should stop")
	}
	if f.sessions.reference != "" {
		t.Error("marker should clear")
	}
	if len(f.routes.unsubscribed) == 0 {
		t.Error("expected unsubscribe from the previous route")
	}
}

func TestFreshSearchClearsPendingMarker(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)
	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	if _, err := f.ctrl.Search(context.Background(), params()); err != nil {
		t.Fatalf("search: %v", err)
	}

	if f.sessions.reference != "" {
		t.Error("marker should clear when a fresh search abandons the booking")
	}
	if _, _, ok := f.ctrl.ResumePendingBooking(); ok {
		t.Error("no pending booking should survive a fresh search")
	}
}

func TestTotalsUseServerAmountOncePresent(t *testing.T) {
	f := newFixture(t)
	fillDetails(t, f)

	before := f.ctrl.Totals()
	if before.Provisional != before.Total {
		t.Errorf("without a booking, total %v should equal provisional %v", before.Total, before.Provisional)
	}

	f.bookings.record = pendingRecord(f)
	if _, err := f.ctrl.ProceedToPayment(context.Background()); err != nil {
		t.Fatalf("proceed to payment: %v", err)
	}

	after := f.ctrl.Totals()
	if after.Total != 92.5 {
		t.Errorf("total = %v, want server amount 92.5", after.Total)
	}
}

func TestResumePendingBookingReportsMarker(t *testing.T) {
	f := newFixture(t)
	f.sessions.reference = "FL-7"
	f.sessions.expiresAt = time.Now().Add(10 * time.Minute)

	ref, _, ok := f.ctrl.ResumePendingBooking()
	if !ok || ref != "FL-7" {
		t.Fatalf("ResumePendingBooking = %q %v, want FL-7 true", ref, ok)
	}
}
