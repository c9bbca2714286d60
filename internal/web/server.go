// Package web serves the controller attributes and metrics over HTTP.
package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/fanctl/internal/errors"
	"codeberg.org/mutker/fanctl/internal/fan"
	"codeberg.org/mutker/fanctl/internal/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultAddr = ":8013"

	versionHeader   = "X-Attribute-Version"
	maxBodyBytes    = 64
	shutdownTimeout = 5 * time.Second
)

// DefaultPollTimeout bounds a blocking attribute read.
var DefaultPollTimeout = 30 * time.Second

// Controller is the surface exposed over HTTP.
type Controller interface {
	ReadAttribute(a fan.Attribute) (string, error)
	WriteAttribute(a fan.Attribute, value string) error
	AttributeVersion(a fan.Attribute) uint64
	WaitAttribute(ctx context.Context, a fan.Attribute, since uint64) (string, uint64, error)
	Frequency() fan.Frequency
	Mode() fan.Mode
	Running() bool
	Period() time.Duration
	Toggles() uint64
}

// Server serves the attribute API.
type Server struct {
	httpServer  *http.Server
	ctrl        Controller
	log         logger.Logger
	pollTimeout time.Duration
}

// New creates a Server. gatherer may be nil to disable /metrics.
func New(addr string, ctrl Controller, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		ctrl:        ctrl,
		log:         logger.New("web"),
		pollTimeout: DefaultPollTimeout,
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/attributes/{name}", s.handleRead).Methods(http.MethodGet)
	router.HandleFunc("/api/attributes/{name}", s.handleWrite).Methods(http.MethodPut, http.MethodPost)
	router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}

	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	a, err := fan.ParseAttribute(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	wait := r.URL.Query().Get("wait")
	if wait == "" {
		value, err := s.ctrl.ReadAttribute(a)
		if err != nil {
			writeError(w, err)
			return
		}
		writeValue(w, value, s.ctrl.AttributeVersion(a))
		return
	}

	since, err := strconv.ParseUint(wait, 10, 64)
	if err != nil {
		writeError(w, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.pollTimeout)
	defer cancel()

	value, version, err := s.ctrl.WaitAttribute(ctx, a, since)
	if err != nil {
		if ctx.Err() == nil {
			writeError(w, err)
			return
		}
		// Timed out: answer with the unchanged value so the client re-polls.
		value, err = s.ctrl.ReadAttribute(a)
		if err != nil {
			writeError(w, err)
			return
		}
		version = s.ctrl.AttributeVersion(a)
	}

	writeValue(w, value, version)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	a, err := fan.ParseAttribute(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, errors.New().Wrap(errors.ErrInvalidArgument, err))
		return
	}

	value := strings.TrimSpace(string(body))
	if err := s.ctrl.WriteAttribute(a, value); err != nil {
		s.log.Debug().Err(err).Str("attribute", string(a)).Str("value", value).Msg("Attribute write rejected")
		writeError(w, err)
		return
	}

	s.log.Info().Str("attribute", string(a)).Str("value", value).Msg("Attribute written")
	w.WriteHeader(http.StatusNoContent)
}

// Status is the body of /api/status.
type Status struct {
	Frequency int    `json:"frequency"`
	Mode      string `json:"mode"`
	Running   bool   `json:"running"`
	PeriodMS  int64  `json:"period_ms"`
	Toggles   uint64 `json:"toggles"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Status{
		Frequency: int(s.ctrl.Frequency()),
		Mode:      s.ctrl.Mode().String(),
		Running:   s.ctrl.Running(),
		PeriodMS:  s.ctrl.Period().Milliseconds(),
		Toggles:   s.ctrl.Toggles(),
	})
}

func writeValue(w http.ResponseWriter, value string, version uint64) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(versionHeader, strconv.FormatUint(version, 10))
	_, _ = io.WriteString(w, value+"\n")
}
