package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"ferryline/internal/booking"
	"ferryline/internal/cart"
	"ferryline/internal/checkout"
	"ferryline/internal/flow"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "test"})
}

type stubSearch struct{ results []*model.SailingResult }

func (s *stubSearch) Search(context.Context, model.SearchParams) ([]*model.SailingResult, error) {
	return s.results, nil
}

func (s *stubSearch) Refetch(context.Context, []string) ([]*model.SailingResult, error) {
	return s.results, nil
}

type stubBookings struct{ record *model.BookingRecord }

func (s *stubBookings) Create(context.Context, booking.CreateRequest) (*model.BookingRecord, error) {
	return s.record, nil
}

func (s *stubBookings) ConfirmPayment(context.Context, string) (*model.BookingRecord, error) {
	return s.record, nil
}

type stubSessions struct{}

func (stubSessions) SaveBookingMarker(string, time.Time) error     { return nil }
func (stubSessions) LoadBookingMarker() (string, time.Time, error) { return "", time.Time{}, nil }
func (stubSessions) ClearBookingMarker() error                     { return nil }

type stubPromo struct{}

func (stubPromo) Validate(context.Context, cart.PromoRequest) (cart.PromoResult, error) {
	return cart.PromoResult{IsValid: true, DiscountAmount: 5}, nil
}

func newTestRouter(t *testing.T) (*httprouter.Router, *flow.Controller) {
	t.Helper()
	log := testLogger()
	ctrl := flow.NewController(flow.Config{
		Log:  log,
		Cart: cart.New(log, stubPromo{}, 10),
		SearchClient: &stubSearch{results: []*model.SailingResult{
			{
				ID:     "sail-1",
				Route:  "helsinki-tallinn",
				Prices: map[string]float64{"adult": 40},
				AvailableSpaces: model.AvailableSpaces{
					Passengers: 50, Vehicles: 10, Cabins: 5,
				},
			},
		}},
		BookingClient: &stubBookings{},
		Sessions:      stubSessions{},
		CanGoBack:     checkout.AllowBack,
	})

	router := httprouter.New()
	NewHandler(ctrl, nil, log).RegisterRoutes(router)
	return router, ctrl
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpointReturnsResults(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"route":         "helsinki-tallinn",
		"departureDate": "2026-09-01T00:00:00Z",
		"adults":        2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []*model.SailingResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].ID != "sail-1" {
		t.Errorf("unexpected results: %+v", resp.Data)
	}
}

func TestSearchEndpointRequiresRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{"adults": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSelectionRejectsUnknownSailing(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"route":         "helsinki-tallinn",
		"departureDate": "2026-09-01T00:00:00Z",
	})

	rec := doJSON(t, router, http.MethodPost, "/api/v1/selection", map[string]string{
		"leg":       "outbound",
		"sailingId": "ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFlowStateReportsStep(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"route":         "helsinki-tallinn",
		"departureDate": "2026-09-01T00:00:00Z",
	})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/flow/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data struct {
			Step string `json:"step"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Step != "select_ferry" {
		t.Errorf("step = %q, want select_ferry", resp.Data.Step)
	}
}

func TestGoToRejectsUnknownStep(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/flow/goto", map[string]string{"step": "teleport"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProceedToPaymentReturns422ForInvalidCart(t *testing.T) {
	router, ctrl := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/search", map[string]any{
		"route":         "helsinki-tallinn",
		"departureDate": "2026-09-01T00:00:00Z",
	})
	if err := ctrl.SelectSailing(model.LegOutbound, "sail-1"); err != nil {
		t.Fatalf("select sailing: %v", err)
	}
	ctrl.Advance()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		FirstSection string `json:"firstSection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FirstSection == "" {
		t.Error("expected firstSection in validation response")
	}
}

func TestCountdownAbsentWithoutBooking(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/checkout/countdown", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
