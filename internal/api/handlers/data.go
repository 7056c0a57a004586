package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/files"
)

func (h *Handler) ListCollectedData(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")
	collectorID := c.Param("id")

	// Distinguish an empty list from a collector the user cannot see
	if _, err := h.repo.GetCollector(tenantID, userID, collectorID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	data, err := h.repo.ListCollectedData(tenantID, userID, collectorID)
	if err != nil {
		h.internalError(c, "Failed to list collected data", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
}

// UploadCollectedData is the dashboard-side upload path; the agent-side
// equivalent lives on the key-authenticated metrics endpoint.
func (h *Handler) UploadCollectedData(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")
	collectorID := c.Param("id")

	collector, err := h.repo.GetCollector(tenantID, userID, collectorID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collector not found"})
			return
		}
		h.internalError(c, "Failed to get collector", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}

	if !files.AllowedExtension(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File extension not allowed"})
		return
	}
	if fileHeader.Size > h.config.Storage.MaxUploadMB*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.internalError(c, "Failed to open upload", err)
		return
	}
	defer f.Close()

	path, size, err := h.files.Save(collector.ID, fileHeader.Filename, f)
	if err != nil {
		h.internalError(c, "Failed to store upload", err)
		return
	}

	data := &db.CollectedData{
		ID:          uuid.New().String(),
		CollectorID: collector.ID,
		Description: c.PostForm("description"),
		FileName:    fileHeader.Filename,
		FilePath:    path,
		FileSize:    size,
		CreatedAt:   time.Now(),
	}

	if err := h.repo.CreateCollectedData(data); err != nil {
		h.internalError(c, "Failed to record upload", err)
		return
	}

	h.metrics.FileUploaded(size)

	c.JSON(http.StatusCreated, data)
}

func (h *Handler) GetCollectedData(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	data, err := h.repo.GetCollectedData(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collected data not found"})
			return
		}
		h.internalError(c, "Failed to get collected data", err)
		return
	}

	c.JSON(http.StatusOK, data)
}

func (h *Handler) DeleteCollectedData(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	data, err := h.repo.GetCollectedData(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Collected data not found"})
			return
		}
		h.internalError(c, "Failed to get collected data", err)
		return
	}

	if err := h.repo.DeleteCollectedData(tenantID, userID, data.ID); err != nil {
		h.internalError(c, "Failed to delete collected data", err)
		return
	}

	// DB row is gone; a leftover file is only disk waste
	if err := h.files.Remove(data.FilePath); err != nil {
		h.logger.Warn("Failed to remove data file",
			zap.String("path", data.FilePath),
			zap.Error(err),
		)
	}

	c.Status(http.StatusNoContent)
}
