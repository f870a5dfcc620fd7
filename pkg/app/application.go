package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"ferryline/pkg/config"
	"ferryline/pkg/contracts"
	"ferryline/pkg/middleware"
)

// Cleanup stops a background collaborator during shutdown.
type Cleanup func()

// Application owns the HTTP server lifecycle and shuts the background
// collaborators (push channel, operator feed, session store) down in
// reverse registration order.
type Application struct {
	cfg      *config.Config
	server   *http.Server
	cleanups []Cleanup
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// OnShutdown registers a cleanup to run during graceful shutdown.
func (a *Application) OnShutdown(fn Cleanup) {
	a.cleanups = append(a.cleanups, fn)
}

// SetHandler mounts the API handler behind the middleware stack.
func (a *Application) SetHandler(appHandler contracts.Handler) {
	router := httprouter.New()
	appHandler.RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.RequestTimeout(a.cfg.RequestTimeout)(h)
	h = middleware.ContentTypeValidation(a.cfg.Log)(h)
	h = middleware.RequestLogging(a.cfg.Log)(h)
	h = middleware.Recovery(a.cfg.Log)(h)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/", h)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}
	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}

	a.cfg.Log.Info("Server stopped gracefully")
}
