package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/confluo/confluo/internal/metrics"
	"github.com/confluo/confluo/internal/profile"
	"github.com/confluo/confluo/plugin/ai"
	apiv1 "github.com/confluo/confluo/server/router/api/v1"
	"github.com/confluo/confluo/server/service/meeting"
	"github.com/confluo/confluo/server/service/preference"
	"github.com/confluo/confluo/store"
)

// Server hosts the HTTP API.
type Server struct {
	echoServer *echo.Echo
	Profile    *profile.Profile
	Store      *store.Store
}

// NewServer assembles the echo server, the scheduling services and the v1
// routes. busy, creator and lister come from the calendar plugin and may be
// nil.
func NewServer(_ context.Context, p *profile.Profile, st *store.Store, busy meeting.BusyProvider, creator meeting.EventCreator, lister meeting.EventLister, llm ai.LLMService) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(metrics.Middleware())

	s := &Server{
		echoServer: e,
		Profile:    p,
		Store:      st,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	prefService := preference.NewService(st)
	meetingService := meeting.NewService(st, prefService, busy, creator, lister)

	var extractor *ai.Extractor
	if llm != nil {
		extractor = ai.NewExtractor(llm)
	}

	apiv1.NewAPIV1Service(p, st, prefService, meetingService, extractor).Register(e)

	return s, nil
}

// Start runs the HTTP listener until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	slog.Info("server listening", "address", address)
	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
