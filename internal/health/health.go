// Package health tracks daemon readiness and exposes it over HTTP and the
// standard gRPC health protocol.
//
// Docker and Kubernetes probe /healthz and /readyz; both return 200 once the
// daemon is ready to accept requests. /health is the static liveness payload
// voice-platform tooling expects and never depends on readiness.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker holds the readiness flag and mirrors it into a gRPC health server.
type Checker struct {
	ready atomic.Bool
	grpc  *grpchealth.Server
}

// New creates a Checker that starts out not ready.
func New() *Checker {
	c := &Checker{grpc: grpchealth.NewServer()}
	c.grpc.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// SetReady marks the daemon as ready (or not) to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	c.grpc.SetServingStatus("", status)
}

// Ready reports the current readiness.
func (c *Checker) Ready() bool { return c.ready.Load() }

// GRPCServer returns the health service to register on a gRPC server.
func (c *Checker) GRPCServer() *grpchealth.Server { return c.grpc }

// Shutdown flips every gRPC service to NOT_SERVING and ignores later updates.
func (c *Checker) Shutdown() {
	c.ready.Store(false)
	c.grpc.Shutdown()
}

// Status is the body of every health response.
type Status struct {
	Status string `json:"status" example:"ok"`
}

// Static handles GET /health.
//
// @Summary     Liveness
// @Description Static confirmation that the process is up.
// @Tags        health
// @Produce     json
// @Success     200  {object}  health.Status
// @Router      /health [get]
func (c *Checker) Static(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ok")
}

// Readiness handles GET /healthz and GET /readyz.
//
// @Summary     Readiness
// @Description Returns 200 once every component is initialized, 503 before that and during shutdown.
// @Tags        health
// @Produce     json
// @Success     200  {object}  health.Status
// @Failure     503  {object}  health.Status
// @Router      /readyz [get]
func (c *Checker) Readiness(w http.ResponseWriter, _ *http.Request) {
	if !c.ready.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}
	writeStatus(w, http.StatusOK, "ok")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Status{Status: status})
}
