// Package dispatch implements the authenticated action proxy.
//
// A programmatic caller posts {"action": {"name", "params"}} with a shared
// secret. Allowed names map to fixed home-automation webhook paths; the
// proxy forwards the params with a bearer credential and relays the
// downstream status and body verbatim. Unlike the skill endpoint, failures
// here surface as distinct HTTP status codes.
package dispatch

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/voxbridge/internal/config"
)

// HeaderAppKey carries the shared secret.
const HeaderAppKey = "X-App-Key"

const (
	defaultTimeout   = 10 * time.Second
	maxRequestBytes  = 1 << 20
	maxRelayBodySize = 10 << 20
)

// Routes maps allowed action names to downstream webhook paths.
var Routes = map[string]string{
	"turn_off_tv":    "/api/webhook/gpt_turn_off_tv",
	"set_brightness": "/api/webhook/gpt_set_livingroom_brightness",
}

// Request is the proxy's input body.
type Request struct {
	Action *Action `json:"action"`
}

// Action names a webhook and carries its parameters.
type Action struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorResponse is the body of every proxy-generated error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// validators apply per-action parameter checks.
var validators = map[string]func(params json.RawMessage) error{
	"set_brightness": validateBrightness,
}

var errInvalidBrightness = errors.New("invalid brightness_pct")

func validateBrightness(params json.RawMessage) error {
	var p struct {
		BrightnessPct any `json:"brightness_pct"`
	}
	if len(params) == 0 || json.Unmarshal(params, &p) != nil {
		return errInvalidBrightness
	}
	pct, ok := p.BrightnessPct.(float64)
	if !ok || pct < 0 || pct > 100 {
		return errInvalidBrightness
	}
	return nil
}

// Proxy forwards allowed actions downstream.
type Proxy struct {
	appKey     []byte
	baseURL    string
	token      string
	client     *http.Client
	routes     map[string]string
	validators map[string]func(json.RawMessage) error
}

// Option customizes a Proxy.
type Option func(*Proxy)

// WithHTTPClient overrides the downstream HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// New creates a Proxy from config.
func New(cfg config.ProxyConfig, opts ...Option) (*Proxy, error) {
	if cfg.AppKey == "" {
		return nil, errors.New("dispatch: app key must not be empty")
	}
	base := strings.TrimRight(cfg.DownstreamURL, "/")
	if base == "" {
		return nil, errors.New("dispatch: downstream url must not be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	p := &Proxy{
		appKey:     []byte(cfg.AppKey),
		baseURL:    base,
		token:      cfg.DownstreamToken,
		client:     &http.Client{Timeout: timeout},
		routes:     Routes,
		validators: validators,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ServeHTTP handles POST /run.
//
// @Summary     Run a home-automation action
// @Description Forwards an allow-listed action to its downstream webhook and relays the downstream status and body verbatim.
// @Tags        proxy
// @Accept      json
// @Produce     json
// @Param       X-App-Key  header    string            true  "Shared secret"
// @Param       request    body      dispatch.Request  true  "Action to run"
// @Success     200        {string}  string            "Downstream response, relayed verbatim"
// @Failure     400        {object}  dispatch.ErrorResponse  "missing action or invalid parameters"
// @Failure     401        {object}  dispatch.ErrorResponse  "missing or wrong shared secret"
// @Failure     403        {object}  dispatch.ErrorResponse  "action not allowed"
// @Failure     500        {object}  dispatch.ErrorResponse  "downstream unreachable"
// @Router      /run [post]
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(HeaderAppKey)
	if key == "" || subtle.ConstantTimeCompare([]byte(key), p.appKey) != 1 {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil || req.Action == nil || req.Action.Name == "" {
		writeError(w, http.StatusBadRequest, "missing action")
		return
	}
	action := req.Action
	logger := slog.With("action", action.Name)

	path, ok := p.routes[action.Name]
	if !ok {
		logger.Warn("forbidden action")
		writeError(w, http.StatusForbidden, "forbidden action")
		return
	}
	if validate := p.validators[action.Name]; validate != nil {
		if err := validate(action.Params); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	start := time.Now()
	resp, err := p.forward(r, path, action.Params)
	if err != nil {
		logger.Error("downstream call failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBodySize))
	if err != nil {
		logger.Error("reading downstream response", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
	logger.Info("action relayed", "status", resp.StatusCode, "duration", time.Since(start))
}

func (p *Proxy) forward(r *http.Request, path string, params json.RawMessage) (*http.Response, error) {
	payload := []byte(params)
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = []byte("{}")
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dispatch: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return resp, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
