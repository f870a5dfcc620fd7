package main

import (
	"context"

	"ferryline/internal/availability"
	"ferryline/internal/booking"
	"ferryline/internal/cart"
	"ferryline/internal/checkout"
	"ferryline/internal/feed"
	"ferryline/internal/flow"
	"ferryline/internal/gateway"
	"ferryline/internal/promo"
	"ferryline/internal/search"
	"ferryline/internal/session"
	"ferryline/pkg/app"
	"ferryline/pkg/client"
	"ferryline/pkg/config"
	"ferryline/pkg/kafka"
)

const ServiceName = "ferryline"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting ferryline reservation service")

	sessions, err := session.Open(cfg.SessionDBPath, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to open session store", "error", err)
	}

	promoClient := promo.NewClient(client.NewHttpClient(cfg.PromoBaseURL, cfg.ClientTimeout), cfg.Log)
	searchClient := search.NewClient(client.NewHttpClient(cfg.SearchBaseURL, cfg.ClientTimeout), cfg.Log)
	bookingClient := booking.NewClient(client.NewHttpClient(cfg.BookingBaseURL, cfg.ClientTimeout), cfg.Log)

	canGoBack := checkout.AllowBack
	if !cfg.FreeBackNavigation {
		canGoBack = checkout.DenyBack
	}

	var channel *availability.Channel
	controller := flow.NewController(flow.Config{
		Log:           cfg.Log,
		Cart:          cart.New(cfg.Log, promoClient, cfg.ProtectionFee),
		SearchClient:  searchClient,
		BookingClient: bookingClient,
		Sessions:      sessions,
		Routes:        routeSubscriberFunc{subscribe: func(r []string) { channel.Subscribe(r) }, unsubscribe: func(r []string) { channel.Unsubscribe(r) }},
		CanGoBack:     canGoBack,
	})

	channel = availability.NewChannel(availability.Config{
		URL:                  cfg.AvailabilityURL,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectBase:        cfg.ReconnectBase,
		KeepaliveInterval:    cfg.KeepaliveInterval,
	}, cfg.Log, controller.ApplyDelta)

	ctx, cancel := context.WithCancel(context.Background())
	if err := channel.Connect(ctx); err != nil {
		cfg.Log.Fatal("Failed to start availability channel", "error", err)
	}

	var bridge *feed.Bridge
	if cfg.OperatorFeedEnabled {
		bridge, err = feed.NewBridge(
			&kafka.Config{Brokers: cfg.KafkaBrokers},
			cfg.OperatorTopic,
			cfg.OperatorGroup,
			controller.ApplyDelta,
			cfg.Log,
		)
		if err != nil {
			cfg.Log.Fatal("Failed to start operator feed", "error", err)
		}
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				cfg.Log.Error("Operator feed stopped", "error", err)
			}
		}()
	}

	if ref, expiresAt, ok := controller.ResumePendingBooking(); ok {
		cfg.Log.Info("Pending booking marker found from previous session",
			"reference", ref, "expiresAt", expiresAt)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.SetHandler(gateway.NewHandler(controller, channel, cfg.Log))
	serverApp.OnShutdown(func() { cancel() })
	serverApp.OnShutdown(channel.Close)
	if bridge != nil {
		serverApp.OnShutdown(func() {
			if err := bridge.Close(); err != nil {
				cfg.Log.Error("Operator feed close failed", "error", err)
			}
		})
	}
	serverApp.OnShutdown(func() {
		if err := sessions.Close(); err != nil {
			cfg.Log.Error("Session store close failed", "error", err)
		}
	})
	serverApp.Run()
}

// routeSubscriberFunc adapts closures over the availability channel, which
// is constructed after the controller.
type routeSubscriberFunc struct {
	subscribe   func([]string)
	unsubscribe func([]string)
}

func (r routeSubscriberFunc) Subscribe(routes []string)   { r.subscribe(routes) }
func (r routeSubscriberFunc) Unsubscribe(routes []string) { r.unsubscribe(routes) }
