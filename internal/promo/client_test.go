package promo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ferryline/internal/cart"
	"ferryline/pkg/client"
	"ferryline/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard, Service: "test"})
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(client.NewHttpClient(srv.URL, 5*time.Second), testLogger())
}

func TestValidateReturnsVerdict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/promo/validate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req cart.PromoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Code != "SUMMER10" {
			t.Errorf("code = %q, want SUMMER10", req.Code)
		}
		_ = json.NewEncoder(w).Encode(cart.PromoResult{
			IsValid:        true,
			Code:           "SUMMER10",
			DiscountAmount: 10,
		})
	})

	result, err := c.Validate(context.Background(), cart.PromoRequest{Code: "SUMMER10", BookingAmount: 100})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid || result.DiscountAmount != 10 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateInvalidCodeIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(cart.PromoResult{IsValid: false, Message: "code expired"})
	})

	result, err := c.Validate(context.Background(), cart.PromoRequest{Code: "OLD"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Error("expected invalid verdict")
	}
	if result.Message != "code expired" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestValidateServerErrorPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.Validate(context.Background(), cart.PromoRequest{Code: "X"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
