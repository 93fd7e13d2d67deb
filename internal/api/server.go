// Package api exposes the fetcher over HTTP for local integrations that
// prefer a request/response flow over the CLI.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/reelframe/reelframe/internal/artwork"
	"github.com/reelframe/reelframe/internal/config"
	"github.com/reelframe/reelframe/internal/logger"
	"github.com/reelframe/reelframe/internal/rank"
)

// Fetcher is the artwork operation the server exposes.
type Fetcher interface {
	Fetch(ctx context.Context, title string) (*artwork.Result, error)
}

// LogsProvider supplies the recent log entries for the logs endpoint.
type LogsProvider interface {
	RecentLogs() []logger.Entry
}

// Server handles HTTP requests for the ReelFrame API.
type Server struct {
	echo    *echo.Echo
	fetcher Fetcher
	cfg     *config.Config
	logs    LogsProvider
	logger  zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(fetcher Fetcher, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)
	api.GET("/logs", s.getLogs)
	api.POST("/artwork", s.fetchArtwork)
}

// SetLogsProvider wires the recent-logs source. Optional; the logs endpoint
// returns an empty list when unset.
func (s *Server) SetLogsProvider(p LogsProvider) {
	s.logs = p
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getLogs(c echo.Context) error {
	if s.logs == nil {
		return c.JSON(http.StatusOK, []logger.Entry{})
	}
	return c.JSON(http.StatusOK, s.logs.RecentLogs())
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":      config.Version,
		"posterDir":    s.cfg.Output.PosterDir,
		"landscapeDir": s.cfg.Output.LandscapeDir,
	})
}

type fetchRequest struct {
	Title string `json:"title"`
}

type artifactResponse struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type fetchResponse struct {
	Title     string            `json:"title"`
	Poster    *artifactResponse `json:"poster,omitempty"`
	Landscape *artifactResponse `json:"landscape,omitempty"`
}

// fetchArtwork runs a full fetch for the requested title and saves the
// artifacts to the configured output directories.
func (s *Server) fetchArtwork(c echo.Context) error {
	var req fetchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	result, err := s.fetcher.Fetch(c.Request().Context(), req.Title)
	if err != nil {
		if errors.Is(err, rank.ErrNoCandidate) || (result != nil && result.Poster == nil && result.Landscape == nil) {
			return echo.NewHTTPError(http.StatusNotFound, "no artwork found for title")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	saved, err := artwork.Save(result, artwork.SaveOptions{
		PosterDir:    s.cfg.Output.PosterDir,
		LandscapeDir: s.cfg.Output.LandscapeDir,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := fetchResponse{Title: req.Title}
	if result.Poster != nil {
		resp.Poster = &artifactResponse{
			Path:   saved.PosterPath,
			Width:  result.Poster.Width,
			Height: result.Poster.Height,
		}
	}
	if result.Landscape != nil {
		resp.Landscape = &artifactResponse{
			Path:   saved.LandscapePath,
			Width:  result.Landscape.Width,
			Height: result.Landscape.Height,
		}
	}

	return c.JSON(http.StatusOK, resp)
}
