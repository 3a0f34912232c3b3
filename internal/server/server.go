// Package server exposes a backend over HTTP for the gateway's HTTP transport.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"battlelog/internal/backend"
	"battlelog/internal/gateway"
	"battlelog/internal/logging"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatcher runs one command. *backend.Handler implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string, raw json.RawMessage) (interface{}, error)
	Commands() []string
}

// Options configures a Server.
type Options struct {
	// Metrics enables GET /metrics.
	Metrics bool
	// Registry receives the server collectors and backs /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server is the HTTP command gateway.
type Server struct {
	echo     *echo.Echo
	backend  Dispatcher
	requests *prometheus.CounterVec
	started  time.Time
}

// New builds the server and its routes.
func New(d Dispatcher, opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{
		echo:    e,
		backend: d,
		started: time.Now(),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "battlelog",
				Subsystem: "server",
				Name:      "commands_total",
				Help:      "Commands served by command and result code (0 for success)",
			},
			[]string{"command", "code"},
		),
	}

	e.POST(gateway.InvokePath, s.handleInvoke)
	e.GET("/healthz", s.handleHealth)
	e.GET("/commands", s.handleCommands)
	if opts.Metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	logging.Server("Listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Server("Shutting down")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleInvoke(c echo.Context) error {
	var req gateway.Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, gateway.Response{
			Error: &gateway.ErrorObject{Code: backend.CodeParseError, Message: "malformed request: " + err.Error()},
		})
	}
	if req.Command == "" {
		return c.JSON(http.StatusBadRequest, gateway.Response{
			ID:    req.ID,
			Error: &gateway.ErrorObject{Code: backend.CodeInvalidParams, Message: "command is required"},
		})
	}

	result, err := s.backend.Dispatch(c.Request().Context(), req.Command, req.Params)
	if err != nil {
		code := backend.CodeInternal
		var cerr *backend.CommandError
		if errors.As(err, &cerr) {
			code = cerr.Code
		}
		s.requests.WithLabelValues(req.Command, strconv.Itoa(code)).Inc()
		return c.JSON(http.StatusOK, gateway.Response{
			ID:    req.ID,
			Error: &gateway.ErrorObject{Code: code, Message: errorMessage(err)},
		})
	}

	raw, err := json.Marshal(result)
	if err != nil {
		logging.ServerError("Failed to encode %s result: %v", req.Command, err)
		s.requests.WithLabelValues(req.Command, strconv.Itoa(backend.CodeInternal)).Inc()
		return c.JSON(http.StatusOK, gateway.Response{
			ID:    req.ID,
			Error: &gateway.ErrorObject{Code: backend.CodeInternal, Message: "failed to encode result"},
		})
	}

	s.requests.WithLabelValues(req.Command, "0").Inc()
	return c.JSON(http.StatusOK, gateway.Response{ID: req.ID, Result: raw})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCommands(c echo.Context) error {
	return c.JSON(http.StatusOK, s.backend.Commands())
}

func errorMessage(err error) string {
	var cerr *backend.CommandError
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return err.Error()
}

// requestLogger logs every request to the server category.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			logging.Server("%s %s -> %d (%v)", req.Method, req.URL.Path, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
