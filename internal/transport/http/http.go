// Package http implements the HTTP listeners for voxbridge.
//
// The public listener serves the voice-platform skill endpoint, health
// probes, published audio files and the Swagger UI. The proxy listener
// serves the authenticated action dispatch endpoint on its own port so it
// can be firewalled separately.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/voxbridge/internal/health"
	"github.com/nadzzz/voxbridge/internal/skill"
	"github.com/nadzzz/voxbridge/internal/transcode"
)

// maxSkillBody bounds inbound skill requests.
const maxSkillBody = 1 << 20

// SkillHandler answers a raw skill request body. *skill.Handler satisfies it.
type SkillHandler interface {
	Handle(ctx context.Context, body io.Reader) skill.ResponseEnvelope
}

// Options configures the public listener.
type Options struct {
	Port      int
	SkillPath string
	// StaticDir is the filesystem directory holding published audio.
	StaticDir string
	// StaticPrefix is the URL path segment audio is served under (e.g. "audio").
	StaticPrefix string
}

// Transport is one HTTP listener.
type Transport struct {
	name   string
	port   int
	router chi.Router
	server *http.Server
}

// New creates the public listener.
func New(opts Options, skillHandler SkillHandler, checker *health.Checker) *Transport {
	r := newRouter()

	skillPath := "/" + strings.Trim(opts.SkillPath, "/")
	r.Post(skillPath, func(w http.ResponseWriter, req *http.Request) {
		handleSkill(w, req, skillHandler)
	})

	r.Get("/health", checker.Static)
	r.Get("/healthz", checker.Readiness)
	r.Get("/readyz", checker.Readiness)

	if prefix := strings.Trim(opts.StaticPrefix, "/"); prefix != "" && opts.StaticDir != "" {
		r.Handle("/"+prefix+"/*", staticFiles("/"+prefix+"/", opts.StaticDir))
	}

	// Swagger UI for the generated OpenAPI docs.
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return newTransport("http", opts.Port, r)
}

// NewProxy creates the action proxy listener. proxy handles POST /run.
func NewProxy(port int, proxy http.Handler, checker *health.Checker) *Transport {
	r := newRouter()
	r.Post("/run", proxy.ServeHTTP)
	r.Get("/health", checker.Static)
	return newTransport("proxy", port, r)
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	return r
}

func newTransport(name string, port int, r chi.Router) *Transport {
	return &Transport{
		name:   name,
		port:   port,
		router: r,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return t.name }

// Handler returns the routed handler, for embedding and tests.
func (t *Transport) Handler() http.Handler { return t.router }

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	slog.Info("http transport listening", "name", t.name, "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down", "name", t.name)
		_ = t.Close()
	}()

	if err := t.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s listen: %w", t.name, err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.server.Shutdown(ctx)
}

// handleSkill processes a voice-platform request.
//
// @Summary     Voice-platform skill endpoint
// @Description Accepts an Alexa-style request envelope and answers with a spoken response envelope.
// @Description Conversational turns are answered with SSML that plays a freshly published audio file.
// @Description The status is always 200; every failure is expressed inside the envelope.
// @Tags        skill
// @Accept      json
// @Produce     json
// @Param       request  body      skill.RequestEnvelope   true  "Skill request envelope"
// @Success     200      {object}  skill.ResponseEnvelope  "Spoken response"
// @Router      /alexa [post]
func handleSkill(w http.ResponseWriter, r *http.Request, h SkillHandler) {
	env := h.Handle(r.Context(), http.MaxBytesReader(w, r.Body, maxSkillBody))

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	if err := skill.Encode(w, env); err != nil {
		slog.Error("writing skill response", "error", err, "request_id", middleware.GetReqID(r.Context()))
	}
}

// staticFiles serves published audio without directory listings.
func staticFiles(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(filepath.Clean(dir))))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		// The stdlib MIME table has no .mp3 entry on minimal images.
		if strings.EqualFold(path.Ext(r.URL.Path), ".mp3") {
			w.Header().Set("Content-Type", transcode.ContentType)
		}
		fs.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
