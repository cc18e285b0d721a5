// Package handler serves liveness and readiness for the HTTP API and the gRPC health service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"tg-otp-relay/backend/internal/server/middleware"
)

// pingTimeout bounds a single readiness probe.
const pingTimeout = 2 * time.Second

// Pinger is used for readiness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger (e.g. a Redis client's Ping).
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Checker reports liveness and storage readiness.
type Checker struct {
	storage string
	names   []string
	pingers map[string]Pinger
}

// NewChecker returns a Checker. storage is the credential-free storage identifier returned by
// the liveness probe. Nil pingers are skipped.
func NewChecker(storage string, pingers map[string]Pinger) *Checker {
	c := &Checker{storage: storage, pingers: make(map[string]Pinger)}
	for name, p := range pingers {
		if p != nil {
			c.pingers[name] = p
			c.names = append(c.names, name)
		}
	}
	sort.Strings(c.names)
	return c
}

// Storage returns the storage identifier.
func (c *Checker) Storage() string {
	return c.storage
}

// Ready pings every dependency and joins their failures.
func (c *Checker) Ready(ctx context.Context) error {
	var errs []error
	for _, name := range c.names {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.pingers[name].PingContext(pctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

type statusResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /health. It has no dependencies and always answers ok.
func (c *Checker) Liveness(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok", Storage: c.storage})
}

// Readiness handles GET /ready: 200 when every dependency answers, 503 otherwise.
func (c *Checker) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := c.Ready(r.Context()); err != nil {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable", Storage: c.storage, Error: err.Error()})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok", Storage: c.storage})
}
