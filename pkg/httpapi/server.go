// Copyright 2025-2026 Chatmirror

// Package httpapi exposes the webhook endpoints the two platforms deliver
// events to, plus a health check.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/chatmirror/chatmirror/pkg/bridge"
)

// EventHandler is the part of the bridge the webhook layer drives.
type EventHandler interface {
	HandleSlackEvent(ctx context.Context, evt *bridge.SlackEvent) (string, error)
	HandleZulipEvent(ctx context.Context, evt *bridge.ZulipEvent) (string, error)
}

// Server receives webhook deliveries and feeds them to the bridge.
type Server struct {
	echo    *echo.Echo
	handler EventHandler
	log     zerolog.Logger
}

// NewServer wires the routes and middleware.
func NewServer(handler EventHandler, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	log = log.With().Str("component", "httpapi").Logger()

	e.Use(middleware.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := uuid.NewString()
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)
			start := time.Now()
			err := next(c)
			log.Info().
				Str("request_id", reqID).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Err(err).
				Msg("Request handled")
			return err
		}
	})

	s := &Server{echo: e, handler: handler, log: log}

	e.GET("/health", s.health)
	e.POST("/api/slack/events", s.slackEvents)
	e.POST("/api/zulip/events", s.zulipEvents)

	return s
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// slackPayload is the outer envelope of a Slack Events API delivery.
type slackPayload struct {
	Type      string             `json:"type"`
	Challenge string             `json:"challenge"`
	Event     *bridge.SlackEvent `json:"event"`
}

func (s *Server) slackEvents(c echo.Context) error {
	var payload slackPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	switch payload.Type {
	case "url_verification":
		return c.JSON(http.StatusOK, map[string]string{"challenge": payload.Challenge})
	case "event_callback":
		if payload.Event == nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing event"})
		}
		result, err := s.handler.HandleSlackEvent(c.Request().Context(), payload.Event)
		if err != nil {
			s.log.Error().Err(err).Str("event", payload.Event.Type).Msg("Slack event failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "result": result})
	default:
		return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
	}
}

// zulipPayload is a batch of Zulip real-time events as delivered by the
// outgoing integration.
type zulipPayload struct {
	Events []bridge.ZulipEvent `json:"events"`
}

func (s *Server) zulipEvents(c echo.Context) error {
	var payload zulipPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	results := make([]string, 0, len(payload.Events))
	for i := range payload.Events {
		result, err := s.handler.HandleZulipEvent(c.Request().Context(), &payload.Events[i])
		if err != nil {
			s.log.Error().Err(err).Str("event", payload.Events[i].Type).Msg("Zulip event failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"result": "error", "msg": err.Error()})
		}
		results = append(results, result)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"result":  "success",
		"msg":     "",
		"results": results,
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
