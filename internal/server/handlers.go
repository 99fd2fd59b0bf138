package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bionexus/backend/internal/jobs"
	"github.com/bionexus/backend/internal/queue"
	"github.com/bionexus/backend/pkg/common"
	"github.com/bionexus/backend/pkg/logger"
)

type ingestRequest struct {
	Mode       string   `json:"mode" validate:"omitempty,oneof=sample full"`
	ObjectKeys []string `json:"object_keys" validate:"omitempty,min=1"`
}

type ingestResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type searchRequest struct {
	Query     string  `json:"query" validate:"required"`
	Semantic  bool    `json:"semantic"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

type searchResponse struct {
	Results []common.RankedResult `json:"results"`
}

type ragRequest struct {
	Question string `json:"question" validate:"required"`
	PubID    string `json:"pub_id"`
}

func (a *App) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Mode == "" && len(req.ObjectKeys) == 0 {
		req.Mode = "sample"
	}

	ctx := c.Request().Context()
	now := time.Now()
	job := &jobs.Job{
		JobID:     uuid.NewString(),
		Status:    jobs.StatusPending,
		TotalDocs: len(req.ObjectKeys),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.JobStore.Create(ctx, job); err != nil {
		logger.Error("[Server] Job creation failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create job")
	}

	switch {
	case a.Queue != nil:
		err := a.Queue.PublishIngest(ctx, queue.IngestMessage{
			JobID:      job.JobID,
			Mode:       req.Mode,
			ObjectKeys: req.ObjectKeys,
		})
		if err != nil {
			logger.Error("[Server] Publish failed", "job", job.JobID, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "could not enqueue job")
		}
	case a.Ingest != nil:
		go func() {
			if err := a.Ingest(context.WithoutCancel(ctx), job.JobID, req.Mode, req.ObjectKeys); err != nil {
				logger.Error("[Server] In-process ingest failed", "job", job.JobID, "error", err)
			}
		}()
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ingestion is not configured")
	}

	return c.JSON(http.StatusAccepted, ingestResponse{JobID: job.JobID, Status: string(job.Status)})
}

func (a *App) handleJobStatus(c echo.Context) error {
	job, err := a.JobStore.Get(c.Request().Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown job")
		}
		logger.Error("[Server] Job lookup failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load job")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"job_id":         job.JobID,
		"status":         job.Status,
		"total_docs":     job.TotalDocs,
		"processed_docs": job.ProcessedDocs,
		"failed_docs":    job.FailedDocs,
		"progress":       job.Progress(),
		"error":          job.Error,
		"created_at":     job.CreatedAt,
		"completed_at":   job.CompletedAt,
	})
}

func (a *App) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	ctx := c.Request().Context()
	var results []common.RankedResult
	var err error
	if req.Semantic {
		results, err = a.Retriever.SearchSemantic(ctx, req.Query, req.Limit, req.Threshold)
	} else {
		results, err = a.Retriever.Search(ctx, req.Query, req.Limit)
	}
	if err != nil {
		logger.Error("[Server] Search failed", "query", req.Query, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	if results == nil {
		results = []common.RankedResult{}
	}
	return c.JSON(http.StatusOK, searchResponse{Results: results})
}

func (a *App) handleRAG(c echo.Context) error {
	var req ragRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	answer, err := a.RAG.Answer(c.Request().Context(), req.Question, req.PubID)
	if err != nil {
		logger.Error("[Server] Answer synthesis failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "answer synthesis failed")
	}
	return c.JSON(http.StatusOK, answer)
}

func (a *App) handleStats(c echo.Context) error {
	stats, err := a.Graph.Stats(c.Request().Context())
	if err != nil {
		logger.Error("[Server] Stats failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not load stats")
	}
	return c.JSON(http.StatusOK, stats)
}

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
