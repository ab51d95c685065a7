// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the engines over HTTP.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/johndoehack/mobile-locator/locator"
	"github.com/johndoehack/mobile-locator/providers"
	"github.com/johndoehack/mobile-locator/spatial"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// Server answers locate requests with engines built from per-provider
// options.
type Server struct {
	options  map[string]*locator.Options
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics
}

// NewServer builds a server. options maps provider names to their
// credentials and defaults; providers without an entry get empty options.
func NewServer(options map[string]*locator.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()

	return &Server{
		options:  options,
		logger:   logger.With(zap.String("component", "server")),
		registry: registry,
		metrics:  newMetrics(registry),
	}
}

// Handler returns the routes.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID, s.accessLog)

	r.GET("/healthz", func(ctx *gin.Context) { ctx.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	r.GET("/api/providers", s.listProviders)
	r.GET("/api/locate/:provider", s.locate)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))

	return s.Handler().Run(addr)
}

func (s *Server) requestID(ctx *gin.Context) {
	id := ctx.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}

	ctx.Header(requestIDHeader, id)
	ctx.Set("request_id", id)
	ctx.Next()
}

func (s *Server) accessLog(ctx *gin.Context) {
	start := time.Now()

	ctx.Next()

	route := ctx.FullPath()
	if route == "" {
		route = "unmatched"
	}

	status := ctx.Writer.Status()
	s.metrics.httpRequestsTotal.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(status)).Inc()
	s.logger.Info("request",
		zap.String("request_id", ctx.GetString("request_id")),
		zap.String("method", ctx.Request.Method),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) optionsFor(name string) *locator.Options {
	return s.options[name].Clone()
}

// ProviderInfo describes a provider to API clients.
type ProviderInfo struct {
	Name           string   `json:"name"`
	Homepage       string   `json:"homepage"`
	Credentials    []string `json:"credentials"`
	DefaultTimeout string   `json:"default_timeout"`
	Configured     bool     `json:"configured"`
}

func (s *Server) listProviders(ctx *gin.Context) {
	var infos []ProviderInfo

	_ = providers.Each(func(p providers.Provider) error {
		infos = append(infos, ProviderInfo{
			Name:           p.Name,
			Homepage:       p.Homepage,
			Credentials:    append([]string{}, p.Credentials...),
			DefaultTimeout: p.DefaultTimeout.String(),
			Configured:     configured(p, s.optionsFor(p.Name)),
		})

		return nil
	})

	ctx.JSON(http.StatusOK, infos)
}

func configured(p providers.Provider, opts *locator.Options) bool {
	for _, c := range p.Credentials {
		switch c {
		case "key":
			if opts.Key == "" {
				return false
			}
		case "token":
			if opts.Token == "" {
				return false
			}
		case "oid":
			if opts.OID == "" {
				return false
			}
		}
	}

	return true
}

// LocateResponse is the body of a successful locate call.
type LocateResponse struct {
	Provider string           `json:"provider"`
	Cell     string           `json:"cell"`
	System   spatial.System   `json:"system"`
	Location locator.Location `json:"location"`
	H3       string           `json:"h3,omitempty"`
}

var errParam = errors.New("invalid parameter")

func intParam(ctx *gin.Context, name string, required bool) (*int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		if required {
			return nil, fmt.Errorf("%w: %s is required", errParam, name)
		}

		return nil, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q is not an integer", errParam, name, raw)
	}

	return &v, nil
}

func parseCell(ctx *gin.Context) (locator.Cell, error) {
	var cell locator.Cell

	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"mcc", &cell.MCC},
		{"mnc", &cell.MNC},
		{"lac", &cell.LAC},
		{"cid", &cell.CID},
	} {
		v, err := intParam(ctx, f.name, true)
		if err != nil {
			return cell, err
		}

		*f.dst = *v
	}

	signal, err := intParam(ctx, "signal", false)
	if err != nil {
		return cell, err
	}

	cell.Signal = signal
	cell.Radio = ctx.Query("radio")

	return cell, nil
}

func (s *Server) locate(ctx *gin.Context) {
	name := ctx.Param("provider")
	if _, err := providers.Find(name); err != nil {
		s.fail(ctx, err)

		return
	}

	cell, err := parseCell(ctx)
	if err != nil {
		s.fail(ctx, locator.Wrap(locator.KindMalformedRequest, name, err, ""))

		return
	}

	opts := s.optionsFor(name)

	if raw := ctx.Query("system"); raw != "" {
		system, err := spatial.ParseSystem(raw)
		if err != nil {
			s.fail(ctx, locator.Wrap(locator.KindMalformedRequest, name, err, ""))

			return
		}

		opts.System = system
	}

	if raw := ctx.Query("timeout"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			s.fail(ctx, locator.Errorf(locator.KindMalformedRequest, name, "%v: timeout=%q is not a positive duration", errParam, raw))

			return
		}

		opts.Timeout = timeout
	}

	opts.Logger = s.logger.With(zap.String("request_id", ctx.GetString("request_id")))

	engine, err := providers.CreateEngine(name, opts)
	if err != nil {
		s.fail(ctx, err)

		return
	}

	start := time.Now()
	loc, err := engine.Locate(ctx.Request.Context(), cell)
	s.metrics.observeLocate(name, err, time.Since(start))

	if err != nil {
		s.fail(ctx, err)

		return
	}

	system := engine.Options().System
	resp := LocateResponse{
		Provider: name,
		Cell:     cell.String(),
		System:   system,
		Location: *loc,
	}

	if h3, err := spatial.H3Cell(spatial.ToWGS84(loc.Point(), system), spatial.DefaultH3Resolution); err == nil {
		resp.H3 = h3
	}

	ctx.JSON(http.StatusOK, resp)
}

// statusOf maps an error kind to the HTTP status returned to clients.
func statusOf(kind locator.ErrorKind) int {
	switch kind {
	case locator.KindUnknownProvider, locator.KindNotFound:
		return http.StatusNotFound
	case locator.KindMalformedRequest:
		return http.StatusBadRequest
	case locator.KindRateLimit:
		return http.StatusTooManyRequests
	case locator.KindTimeout:
		return http.StatusGatewayTimeout
	case locator.KindAuthentication, locator.KindNetwork, locator.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(ctx *gin.Context, err error) {
	kind := locator.KindOf(err)

	ctx.JSON(statusOf(kind), gin.H{"error": err.Error(), "kind": kind.String()})
}
