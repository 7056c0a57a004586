package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

type CreateBenchmarkRequest struct {
	CollectorID string `json:"collector_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"max=100"`
	Type        string `json:"benchmark_type" binding:"max=50"`
}

type UpdateBenchmarkRequest struct {
	Status string `json:"status" binding:"required,oneof=completed failed cancelled"`

	// Required when status=completed
	CPUScore     *int `json:"cpu_score" binding:"omitempty,min=0,max=100"`
	MemoryScore  *int `json:"memory_score" binding:"omitempty,min=0,max=100"`
	DiskScore    *int `json:"disk_score" binding:"omitempty,min=0,max=100"`
	NetworkScore *int `json:"network_score" binding:"omitempty,min=0,max=100"`
	OverallScore *int `json:"overall_score" binding:"omitempty,min=0,max=100"`

	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int       `json:"duration_seconds" binding:"omitempty,min=0"`
	ErrorMessage    string     `json:"error_message"`
}

func (h *Handler) CreateBenchmark(c *gin.Context) {
	var req CreateBenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	// The collector must exist and belong to the requester
	if _, err := h.repo.GetCollector(tenantID, userID, req.CollectorID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	benchmarkType := req.Type
	if benchmarkType == "" {
		benchmarkType = "standard"
	}

	now := time.Now()
	benchmark := &db.Benchmark{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		OwnerID:     userID,
		CollectorID: req.CollectorID,
		Name:        req.Name,
		Type:        benchmarkType,
		Status:      db.BenchmarkPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.CreateBenchmark(benchmark); err != nil {
		h.internalError(c, "Failed to create benchmark", err)
		return
	}

	c.JSON(http.StatusCreated, benchmark)
}

func (h *Handler) ListBenchmarks(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	benchmarks, err := h.repo.ListBenchmarks(tenantID, userID, db.BenchmarkFilters{
		Status:      c.Query("status"),
		CollectorID: c.Query("collector_id"),
		Limit:       limit,
		Offset:      (page - 1) * limit,
	})
	if err != nil {
		h.internalError(c, "Failed to list benchmarks", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"benchmarks": benchmarks})
}

func (h *Handler) GetBenchmark(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	benchmark, err := h.repo.GetBenchmark(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Benchmark not found"})
			return
		}
		h.internalError(c, "Failed to get benchmark", err)
		return
	}

	c.JSON(http.StatusOK, benchmark)
}

// UpdateBenchmark transitions a pending benchmark to a terminal state. A
// completed benchmark is immutable; further attempts get invalid_state.
func (h *Handler) UpdateBenchmark(c *gin.Context) {
	var req UpdateBenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	benchmark, err := h.repo.GetBenchmark(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Benchmark not found"})
			return
		}
		h.internalError(c, "Failed to get benchmark", err)
		return
	}

	if req.Status == string(db.BenchmarkCompleted) {
		missing := req.CPUScore == nil || req.MemoryScore == nil ||
			req.DiskScore == nil || req.NetworkScore == nil || req.OverallScore == nil
		if missing {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "All five scores are required to complete a benchmark",
			})
			return
		}
	}

	benchmark.Status = db.BenchmarkStatus(req.Status)
	benchmark.CPUScore = req.CPUScore
	benchmark.MemoryScore = req.MemoryScore
	benchmark.DiskScore = req.DiskScore
	benchmark.NetworkScore = req.NetworkScore
	benchmark.OverallScore = req.OverallScore
	benchmark.StartTime = req.StartTime
	benchmark.EndTime = req.EndTime
	benchmark.DurationSeconds = req.DurationSeconds
	benchmark.ErrorMessage = req.ErrorMessage
	benchmark.UpdatedAt = time.Now()

	if err := h.repo.CompleteBenchmark(tenantID, userID, benchmark.ID, benchmark); err != nil {
		if errors.Is(err, db.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"error": "invalid_state", "detail": "Benchmark already completed"})
			return
		}
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Benchmark not found"})
			return
		}
		h.internalError(c, "Failed to update benchmark", err)
		return
	}

	c.JSON(http.StatusOK, benchmark)
}

func (h *Handler) DeleteBenchmark(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	if err := h.repo.DeleteBenchmark(tenantID, userID, c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Benchmark not found"})
			return
		}
		h.internalError(c, "Failed to delete benchmark", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) BenchmarkStats(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	stats, err := h.repo.GetBenchmarkStats(tenantID, userID, c.Query("collector_id"))
	if err != nil {
		h.internalError(c, "Failed to compute benchmark stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
