package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

type CreateCollectorRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateCollectorRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	HourlyCost  *float64 `json:"hourly_cost" binding:"omitempty,min=0"`
}

// CreateCollector registers a new monitored machine. The API key is returned
// in clear exactly once, here; list and detail responses never include it.
func (h *Handler) CreateCollector(c *gin.Context) {
	var req CreateCollectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	now := time.Now()
	collector := &db.Collector{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		OwnerID:        userID,
		Name:           req.Name,
		Description:    req.Description,
		APIKey:         db.GenerateAPIKey(),
		Status:         db.CollectorPending,
		VMBrand:        "unknown",
		ProcessorBrand: "unknown",
		StorageType:    "unknown",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.CreateCollector(collector); err != nil {
		var dup *db.DuplicateError
		if errors.As(err, &dup) {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": gin.H{"name": "A collector with this name already exists"},
			})
			return
		}
		h.internalError(c, "Failed to create collector", err)
		return
	}

	h.logger.Info("Collector created",
		zap.String("collector_id", collector.ID),
		zap.String("user_id", userID),
	)

	c.JSON(http.StatusCreated, gin.H{
		"id":              collector.ID,
		"name":            collector.Name,
		"description":     collector.Description,
		"status":          collector.Status,
		"api_key":         collector.APIKey,
		"install_command": installCommand(c.Request.Host, collector.APIKey),
		"created_at":      collector.CreatedAt,
	})
}

func installCommand(host, apiKey string) string {
	if host == "" {
		return fmt.Sprintf("API_KEY=%s pcc", apiKey)
	}
	return fmt.Sprintf("curl -s http://%s/install.sh | API_KEY=%s bash", host, apiKey)
}

func (h *Handler) ListCollectors(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	offset := (page - 1) * limit

	collectors, err := h.repo.ListCollectors(tenantID, userID, limit, offset)
	if err != nil {
		h.internalError(c, "Failed to list collectors", err)
		return
	}

	total, _ := h.repo.CountCollectors(tenantID, userID)

	c.JSON(http.StatusOK, gin.H{
		"collectors": collectors,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *Handler) GetCollector(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	collector, err := h.repo.GetCollector(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	c.JSON(http.StatusOK, collector)
}

func (h *Handler) UpdateCollector(c *gin.Context) {
	var req UpdateCollectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	collector, err := h.repo.GetCollector(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	if req.Name != nil {
		collector.Name = *req.Name
	}
	if req.Description != nil {
		collector.Description = *req.Description
	}
	if req.HourlyCost != nil {
		collector.HourlyCost = req.HourlyCost
	}
	collector.UpdatedAt = time.Now()

	if err := h.repo.UpdateCollector(collector); err != nil {
		var dup *db.DuplicateError
		if errors.As(err, &dup) {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": gin.H{"name": "A collector with this name already exists"},
			})
			return
		}
		h.internalError(c, "Failed to update collector", err)
		return
	}

	c.JSON(http.StatusOK, collector)
}

func (h *Handler) DeleteCollector(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	if err := h.repo.DeleteCollector(tenantID, userID, c.Param("id")); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to delete collector", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegenerateAPIKey swaps the collector credential atomically; the old key is
// rejected from the moment the new one exists.
func (h *Handler) RegenerateAPIKey(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")
	collectorID := c.Param("id")

	newKey := db.GenerateAPIKey()
	if err := h.repo.RegenerateAPIKey(tenantID, userID, collectorID, newKey); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to regenerate API key", err)
		return
	}

	h.logger.Info("API key regenerated",
		zap.String("collector_id", collectorID),
		zap.String("user_id", userID),
	)

	c.JSON(http.StatusOK, gin.H{
		"api_key": newKey,
		"message": "API key regenerated successfully",
	})
}
