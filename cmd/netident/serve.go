package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abczzz13/netident"
)

const shutdownTimeout = 10 * time.Second

type whoamiResponse struct {
	IP       string `json:"ip"`
	Source   string `json:"source"`
	Raw      string `json:"raw,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Tor      *bool  `json:"tor,omitempty"`
}

func (a *app) handler() (http.Handler, error) {
	resolver, err := netident.NewResolver(a.provider, a.resolverOptions()...)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /whoami", resolver.Middleware(http.HandlerFunc(a.whoami)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return mux, nil
}

func (a *app) whoami(w http.ResponseWriter, r *http.Request) {
	identity, ok := netident.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "identity unavailable", http.StatusInternalServerError)
		return
	}

	resp := whoamiResponse{
		IP:       identity.String(),
		Source:   identity.Source,
		Raw:      identity.Raw,
		Fallback: identity.Fallback,
	}

	if r.URL.Query().Has("tor") && !identity.IsLoopback() {
		tor, err := a.provider.IsTor(r.Context(), identity.String())
		if err != nil {
			a.logger.WarnContext(r.Context(), "tor lookup failed", "ip", identity.String(), "error", err)
		} else {
			resp.Tor = &tor
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.logger.WarnContext(r.Context(), "write response failed", "error", err)
	}
}

func (a *app) serve(ctx context.Context) error {
	handler, err := a.handler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.settings.listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
