package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/sheets"
	"github.com/gridhall/ghatz/internal/views"
)

type Server struct {
	loader  *ingest.Loader
	addr    string
	opts    views.Options
	domains []models.Domain
}

func NewServer(loader *ingest.Loader, addr string, opts views.Options) *Server {
	return &Server{loader: loader, addr: addr, opts: opts, domains: models.AllDomains}
}

func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/domains", s.handleDomains)
	api.GET("/overview", s.handleOverview)
	api.GET("/:domain/table", s.handleTable)
	api.GET("/:domain/view", s.handleView)
	api.GET("/:domain/export.csv", s.handleExport)
	api.GET("/:domain/gallery", s.handleGallery)
	api.POST("/:domain/refresh", s.handleRefresh)
	return e
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on %s", s.addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// httpError maps load and filter failures to responses. A connection failure
// stops the request with one message and nothing else rendered.
func httpError(err error) error {
	var se *ingest.SchemaError
	switch {
	case sheets.IsConnectionError(err):
		log.Printf("api: %v", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "spreadsheet backend unavailable: "+err.Error())
	case errors.As(err, &se), errors.Is(err, sheets.ErrWorksheetNotFound):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	log.Printf("api: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
