// Package server exposes the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/internal/queue"
	"github.com/bionexus/backend/pkg/graphstore"
	"github.com/bionexus/backend/pkg/logger"
	"github.com/bionexus/backend/pkg/rag"
	"github.com/bionexus/backend/pkg/retrieval"
)

const shutdownTimeout = 10 * time.Second

// CustomValidator adapts go-playground/validator to echo.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// App bundles the services behind the API. Queue is nil in single-process
// deployments, in which case Ingest runs the pipeline in-process.
type App struct {
	Graph     graphstore.GraphStore
	JobStore  jobs.JobStore
	Retriever *retrieval.Retriever
	RAG       *rag.Synthesizer
	Queue     *queue.Queue
	// Ingest runs an ingest job in-process when no queue is configured.
	Ingest func(ctx context.Context, jobID string, mode string, objectKeys []string) error
}

// Router builds the echo instance with middleware and routes.
func (a *App) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("[Server] Request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	e.GET("/health", a.handleHealth)
	api := e.Group("/api")
	api.POST("/ingest", a.handleIngest)
	api.GET("/ingest/:job_id", a.handleJobStatus)
	api.POST("/search", a.handleSearch)
	api.POST("/rag", a.handleRAG)
	api.GET("/stats", a.handleStats)
	return e
}

// Start runs the server until SIGINT or SIGTERM, then shuts down
// gracefully.
func (a *App) Start(port int) error {
	e := a.Router()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("[Server] Listen failed", "error", err)
		}
	}()
	logger.Info("[Server] Listening", "port", port)

	<-ctx.Done()
	logger.Info("[Server] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
