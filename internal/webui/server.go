// Package webui serves the viewer over HTTP: the rendered page, UI event
// endpoints, query fragments, the add-paper and upload forms, a proxy to
// the backend API, health and metrics.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/app"
	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/interact"
	"github.com/matsen/citegraph/internal/notify"
	"github.com/matsen/citegraph/internal/query"
	"github.com/matsen/citegraph/internal/state"
	"github.com/matsen/citegraph/internal/viewport"
	"github.com/matsen/citegraph/internal/viz"
)

// MaxUploadSize bounds the multipart body of POST /upload.
const MaxUploadSize = 32 << 20

// Viewer is the controller the server drives. *app.Controller satisfies it.
type Viewer interface {
	Handle(ctx context.Context, ev events.Event) error
	Page(interactive bool) (*viz.Page, error)
	SVG() ([]byte, error)
	Stats() graph.Stats
	Transform() viewport.Transform
	Notification() notify.Notification
	Loading() bool
	UploadState() forms.UploadState
	Result(kind query.Kind) query.Result
	Step() bool
}

// Server is the viewer's HTTP front end.
type Server struct {
	viewer  Viewer
	backend *url.URL
	logger  *zap.Logger
	metrics *Metrics
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics replaces the server's collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAllowedOrigins sets the CORS origins allowed to call the server.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates a server for viewer. Requests under /api/ are proxied
// to backendURL.
func NewServer(viewer Viewer, backendURL string, opts ...Option) (*Server, error) {
	u, err := url.Parse(backendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", backendURL)
	}
	s := &Server{
		viewer:  viewer,
		backend: u,
		logger:  zap.NewNop(),
		origins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("citegraph")
	}
	return s, nil
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Logger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", api.RequestIDHeader},
		ExposedHeaders: []string{api.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Get("/", s.page)
	r.Get("/graph.svg", s.svg)
	r.Get("/state", s.state)
	r.Post("/events/{name}", s.event)
	r.Get("/query/{kind}", s.query)
	r.Post("/papers", s.addPaper)
	r.Post("/upload", s.upload)

	r.Handle("/api/*", s.proxy())
	return r
}

// Animate ticks the simulation every frame until ctx ends, so layouts and
// drags settle while the server runs.
func (s *Server) Animate(ctx context.Context, frame time.Duration) {
	if frame <= 0 {
		frame = app.DefaultFrame
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.viewer.Step()
		}
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	page, err := s.viewer.Page(true)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	html, err := viz.GenerateHTML(page)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

func (s *Server) svg(w http.ResponseWriter, r *http.Request) {
	svg, err := s.viewer.SVG()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

// StateResponse is the body of GET /state and of event responses.
type StateResponse struct {
	Stats        graph.Stats         `json:"stats"`
	Transform    viewport.Transform  `json:"transform"`
	Notification notify.Notification `json:"notification"`
	Loading      bool                `json:"loading"`
	Upload       forms.UploadState   `json:"upload"`
	Error        string              `json:"error,omitempty"`
}

func (s *Server) snapshot() StateResponse {
	stats := s.viewer.Stats()
	s.metrics.GraphNodes.Set(float64(stats.Nodes))
	s.metrics.GraphLinks.Set(float64(stats.Links))
	return StateResponse{
		Stats:        stats,
		Transform:    s.viewer.Transform(),
		Notification: s.viewer.Notification(),
		Loading:      s.viewer.Loading(),
		Upload:       s.viewer.UploadState(),
	}
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) event(w http.ResponseWriter, r *http.Request) {
	var ev events.Event
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&ev); err != nil && !errors.Is(err, io.EOF) {
			s.respondError(w, http.StatusBadRequest, "invalid event body: "+err.Error())
			return
		}
	}
	ev.Name = events.Name(chi.URLParam(r, "name"))

	err := s.dispatch(r.Context(), ev)
	resp := s.snapshot()
	if err != nil {
		resp.Error = err.Error()
	}
	s.respondJSON(w, statusFor(err), resp)
}

// dispatch runs an event and counts its outcome.
func (s *Server) dispatch(ctx context.Context, ev events.Event) error {
	err := s.viewer.Handle(ctx, ev)
	outcome := "ok"
	switch {
	case errors.Is(err, events.ErrNoHandler):
		outcome = "unhandled"
	case err != nil:
		outcome = "error"
	}
	s.metrics.Events.WithLabelValues(string(ev.Name), outcome).Inc()
	if err != nil {
		s.logger.Debug("event failed", zap.String("event", string(ev.Name)), zap.Error(err))
	}
	return err
}

var queryEvents = map[query.Kind]events.Name{
	query.KindAuthor:      events.QueryAuthor,
	query.KindCitations:   events.QueryCitations,
	query.KindInfluential: events.QueryInfluential,
}

// query runs a lookup and returns its results area as an HTML fragment.
// Backend rejections are part of the fragment; validation and transport
// failures surface as notifications and a non-2xx status.
func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	kind := query.Kind(chi.URLParam(r, "kind"))
	name, ok := queryEvents[kind]
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("unknown query %q", kind))
		return
	}

	err := s.dispatch(r.Context(), events.Event{Name: name, Value: r.URL.Query().Get("q")})
	if err != nil && !api.IsAPIError(err) {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, string(s.viewer.Result(kind).HTML))
}

func (s *Server) addPaper(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	err := s.dispatch(r.Context(), events.Event{Name: events.SubmitPaper, Values: values})
	s.finishForm(w, r, err)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}

	f, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Nothing chosen: the upload event reports it.
	case err != nil:
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	default:
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		file := forms.File{Name: header.Filename, MIMEType: header.Header.Get("Content-Type"), Data: data}
		if err := s.dispatch(r.Context(), events.Event{Name: events.FileSelect, Files: []forms.File{file}}); err != nil {
			s.finishForm(w, r, err)
			return
		}
	}

	err = s.dispatch(r.Context(), events.Event{Name: events.Upload})
	s.finishForm(w, r, err)
}

// finishForm redirects browser form posts back to the page, where the
// notification shows the outcome. Other clients get the state as JSON.
func (s *Server) finishForm(w http.ResponseWriter, r *http.Request, err error) {
	if r.Header.Get("Accept") == "application/json" {
		resp := s.snapshot()
		if err != nil {
			resp.Error = err.Error()
		}
		s.respondJSON(w, statusFor(err), resp)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) proxy() http.Handler {
	rp := httputil.NewSingleHostReverseProxy(s.backend)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("backend unreachable", zap.String("path", r.URL.Path), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, "backend unreachable")
	}
	return rp
}

// statusFor maps an event error to an HTTP status.
func statusFor(err error) int {
	var apiErr *api.APIError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, events.ErrNoHandler):
		return http.StatusNotFound
	case errors.Is(err, forms.ErrValidation),
		errors.Is(err, forms.ErrNoFile),
		errors.Is(err, forms.ErrUnsupportedFile),
		errors.Is(err, query.ErrEmptyQuery),
		errors.Is(err, app.ErrUnknownTab),
		errors.Is(err, interact.ErrUnknownNode),
		errors.Is(err, state.ErrUnknownLayout):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrNetwork), errors.Is(err, api.ErrInvalidResponse), errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
