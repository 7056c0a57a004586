package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Dan-MapMAchina/XATSimplified/internal/compare"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

// Decile values are stored verbatim. Monotonicity is the agent's
// responsibility; out-of-order values are never repaired server-side.
type CreateLoadTestRequest struct {
	CollectorID string  `json:"collector_id" binding:"required,uuid"`
	BenchmarkID *string `json:"benchmark_id" binding:"omitempty,uuid"`

	Units10  int `json:"units_10pct" binding:"min=0"`
	Units20  int `json:"units_20pct" binding:"min=0"`
	Units30  int `json:"units_30pct" binding:"min=0"`
	Units40  int `json:"units_40pct" binding:"min=0"`
	Units50  int `json:"units_50pct" binding:"min=0"`
	Units60  int `json:"units_60pct" binding:"min=0"`
	Units70  int `json:"units_70pct" binding:"min=0"`
	Units80  int `json:"units_80pct" binding:"min=0"`
	Units90  int `json:"units_90pct" binding:"min=0"`
	Units100 int `json:"units_100pct" binding:"min=0"`

	Notes string `json:"notes"`
}

type CompareRequest struct {
	CollectorIDs []string `json:"collector_ids" binding:"required,min=1,dive,uuid"`
}

func (h *Handler) CreateLoadTest(c *gin.Context) {
	var req CreateLoadTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	if _, err := h.repo.GetCollector(tenantID, userID, req.CollectorID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	result := &db.LoadTestResult{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		OwnerID:     userID,
		CollectorID: req.CollectorID,
		BenchmarkID: req.BenchmarkID,
		Units10:     req.Units10,
		Units20:     req.Units20,
		Units30:     req.Units30,
		Units40:     req.Units40,
		Units50:     req.Units50,
		Units60:     req.Units60,
		Units70:     req.Units70,
		Units80:     req.Units80,
		Units90:     req.Units90,
		Units100:    req.Units100,
		Notes:       req.Notes,
		CreatedAt:   time.Now(),
	}

	if err := h.repo.CreateLoadTest(result); err != nil {
		h.internalError(c, "Failed to create load test result", err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ListLoadTests(c *gin.Context) {
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

	results, err := h.repo.ListLoadTests(tenantID, userID, c.Query("collector_id"), limit, (page-1)*limit)
	if err != nil {
		h.internalError(c, "Failed to list load test results", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) GetLoadTest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	result, err := h.repo.GetLoadTest(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Load test result not found"})
			return
		}
		h.internalError(c, "Failed to get load test result", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) DeleteLoadTest(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	if err := h.repo.DeleteLoadTest(tenantID, userID, c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Load test result not found"})
			return
		}
		h.internalError(c, "Failed to delete load test result", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CompareLoadTests joins each requested collector with its latest load-test
// curve and ranks them. Missing data yields a per-id marker instead of
// failing the whole request.
func (h *Handler) CompareLoadTests(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	rows := make([]compare.Row, 0, len(req.CollectorIDs))
	for _, id := range req.CollectorIDs {
		row := compare.Row{CollectorID: id}

		collector, err := h.repo.GetCollector(tenantID, userID, id)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				h.internalError(c, "Failed to get collector", err)
				return
			}
			rows = append(rows, row)
			continue
		}
		row.Collector = collector

		latest, err := h.repo.LatestLoadTest(collector.ID)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				h.internalError(c, "Failed to get latest load test", err)
				return
			}
		} else {
			row.Latest = latest
		}

		rows = append(rows, row)
	}

	result := compare.Rank(rows)
	h.metrics.ComparisonRun()

	c.JSON(http.StatusOK, gin.H{
		"comparison": result.Entries,
		"count":      result.Count,
	})
}
