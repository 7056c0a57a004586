package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dan-MapMAchina/XATSimplified/internal/api/middleware"
	"github.com/Dan-MapMAchina/XATSimplified/internal/cubing"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
	"github.com/Dan-MapMAchina/XATSimplified/internal/storage/files"
)

type AgentRegisterRequest struct {
	Hostname      string  `json:"hostname" binding:"required,max=255"`
	IPAddress     *string `json:"ip_address" binding:"omitempty,ip"`
	OSName        string  `json:"os_name" binding:"max=100"`
	OSVersion     string  `json:"os_version" binding:"max=50"`
	KernelVersion string  `json:"kernel_version" binding:"max=100"`

	ProcessorBrand string   `json:"processor_brand" binding:"omitempty,oneof=intel amd arm ampere other unknown"`
	ProcessorModel string   `json:"processor_model" binding:"max=200"`
	VCPUs          *int     `json:"vcpus" binding:"omitempty,min=1"`
	MemoryGiB      *float64 `json:"memory_gib" binding:"omitempty,min=0"`
	StorageGiB     *float64 `json:"storage_gib" binding:"omitempty,min=0"`
	StorageType    string   `json:"storage_type" binding:"omitempty,oneof=nvme ssd hdd block other unknown"`
}

type MetricSample struct {
	Timestamp time.Time `json:"timestamp" binding:"required"`

	// Raw counters from agents that do not cube locally. The server deltas
	// cpu_jiffies against the preceding sample in the batch, so the first
	// raw sample of a batch yields no CPU percentages.
	CPUJiffies []float64      `json:"cpu_jiffies"`
	Meminfo    *MeminfoSample `json:"meminfo"`

	CPUUser   *float64 `json:"cpu_user"`
	CPUSystem *float64 `json:"cpu_system"`
	CPUIOWait *float64 `json:"cpu_iowait"`
	CPUIdle   *float64 `json:"cpu_idle"`
	CPUSteal  *float64 `json:"cpu_steal"`

	MemTotal     *float64 `json:"mem_total"`
	MemUsed      *float64 `json:"mem_used"`
	MemAvailable *float64 `json:"mem_available"`
	MemBuffers   *float64 `json:"mem_buffers"`
	MemCached    *float64 `json:"mem_cached"`

	DiskReadBytes  *int64 `json:"disk_read_bytes"`
	DiskWriteBytes *int64 `json:"disk_write_bytes"`
	DiskReadOps    *int64 `json:"disk_read_ops"`
	DiskWriteOps   *int64 `json:"disk_write_ops"`
	NetRxBytes     *int64 `json:"net_rx_bytes"`
	NetTxBytes     *int64 `json:"net_tx_bytes"`
	NetRxPackets   *int64 `json:"net_rx_packets"`
	NetTxPackets   *int64 `json:"net_tx_packets"`
}

// MeminfoSample carries raw /proc/meminfo values in MB.
type MeminfoSample struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	BuffersMB   float64 `json:"buffers_mb"`
	CachedMB    float64 `json:"cached_mb"`
	SlabMB      float64 `json:"slab_mb"`
	AvailableMB float64 `json:"available_mb"`
}

// cubeSamples fills in CPU percentages and memory usage for samples that
// arrived with raw counters only. Already-cubed fields are left untouched.
func cubeSamples(samples []MetricSample) {
	var prev *cubing.Jiffies
	for i := range samples {
		s := &samples[i]

		if s.Meminfo != nil && s.MemTotal == nil {
			if m := cubing.Memory(&cubing.Meminfo{
				Total:     s.Meminfo.TotalMB,
				Free:      s.Meminfo.FreeMB,
				Buffers:   s.Meminfo.BuffersMB,
				Cached:    s.Meminfo.CachedMB,
				Slab:      s.Meminfo.SlabMB,
				Available: s.Meminfo.AvailableMB,
			}); m != nil {
				s.MemTotal = &m.Total
				s.MemUsed = &m.Used
				s.MemAvailable = &m.Available
				s.MemBuffers = &m.Buffers
				s.MemCached = &m.Cached
			}
		}

		if len(s.CPUJiffies) == len(cubing.Jiffies{}) {
			var j cubing.Jiffies
			copy(j[:], s.CPUJiffies)
			if s.CPUUser == nil {
				if p := cubing.CPU(prev, &j); p != nil {
					s.CPUUser = &p.User
					s.CPUSystem = &p.System
					s.CPUIOWait = &p.IOWait
					s.CPUIdle = &p.Idle
					s.CPUSteal = &p.Steal
				}
			}
			prev = &j
		}
	}
}

// AgentRegister upserts the self-reported hardware descriptor onto the
// collector owning the presented key. Repeated calls with the same payload
// are idempotent.
func (h *Handler) AgentRegister(c *gin.Context) {
	collector := middleware.CollectorFrom(c)
	if collector == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var req AgentRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collector.ApplyRegistration(db.RegistrationUpdate{
		Hostname:       req.Hostname,
		IPAddress:      req.IPAddress,
		OSName:         req.OSName,
		OSVersion:      req.OSVersion,
		KernelVersion:  req.KernelVersion,
		ProcessorBrand: req.ProcessorBrand,
		ProcessorModel: req.ProcessorModel,
		VCPUs:          req.VCPUs,
		MemoryGiB:      req.MemoryGiB,
		StorageGiB:     req.StorageGiB,
		StorageType:    req.StorageType,
	})

	now := time.Now()
	collector.Status = db.CollectorConnected
	collector.LastSeen = &now
	collector.UpdatedAt = now

	if err := h.repo.SaveRegistration(collector); err != nil {
		h.internalError(c, "Failed to save registration", err)
		return
	}

	h.logger.Info("Collector registered",
		zap.String("collector_id", collector.ID),
		zap.String("hostname", collector.Hostname),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":       "registered",
		"collector_id": collector.ID,
		"name":         collector.Name,
		"message":      "Collector registered successfully",
	})
}

// AgentMetrics accepts either a multipart file upload or a JSON trickle
// batch. The owning collector is always the one resolved from the API key.
func (h *Handler) AgentMetrics(c *gin.Context) {
	collector := middleware.CollectorFrom(c)
	if collector == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	now := time.Now()
	if err := h.repo.TouchCollector(collector.ID, db.CollectorConnected, now); err != nil {
		h.logger.Warn("Failed to touch collector", zap.Error(err))
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.agentFileUpload(c, collector)
		return
	}

	h.agentTrickle(c, collector, now)
}

func (h *Handler) agentFileUpload(c *gin.Context, collector *db.Collector) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file or metrics provided"})
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

	c.JSON(http.StatusCreated, gin.H{
		"status":    "uploaded",
		"data_id":   data.ID,
		"file_size": data.FileSize,
	})
}

func (h *Handler) agentTrickle(c *gin.Context, collector *db.Collector, now time.Time) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payload struct {
		Metrics []MetricSample `json:"metrics"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}
	if len(payload.Metrics) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file or metrics provided"})
		return
	}

	cubeSamples(payload.Metrics)

	batch := make([]*db.PerformanceMetric, 0, len(payload.Metrics))
	for _, s := range payload.Metrics {
		if s.Timestamp.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Every sample needs a timestamp"})
			return
		}
		batch = append(batch, &db.PerformanceMetric{
			ID:             uuid.New().String(),
			CollectorID:    collector.ID,
			Timestamp:      s.Timestamp,
			CPUUser:        s.CPUUser,
			CPUSystem:      s.CPUSystem,
			CPUIOWait:      s.CPUIOWait,
			CPUIdle:        s.CPUIdle,
			CPUSteal:       s.CPUSteal,
			MemTotal:       s.MemTotal,
			MemUsed:        s.MemUsed,
			MemAvailable:   s.MemAvailable,
			MemBuffers:     s.MemBuffers,
			MemCached:      s.MemCached,
			DiskReadBytes:  s.DiskReadBytes,
			DiskWriteBytes: s.DiskWriteBytes,
			DiskReadOps:    s.DiskReadOps,
			DiskWriteOps:   s.DiskWriteOps,
			NetRxBytes:     s.NetRxBytes,
			NetTxBytes:     s.NetTxBytes,
			NetRxPackets:   s.NetRxPackets,
			NetTxPackets:   s.NetTxPackets,
		})
	}

	if err := h.repo.InsertMetrics(batch); err != nil {
		h.internalError(c, "Failed to store metrics", err)
		return
	}

	session, err := h.upkeepSession(c.Request.Context(), collector.ID, now, len(batch))
	if err != nil {
		h.logger.Warn("Trickle session upkeep failed", zap.Error(err))
	}

	h.metrics.TrickleBatch(len(batch))

	resp := gin.H{
		"status":        "received",
		"metrics_count": len(batch),
	}
	if session != nil {
		resp["session_id"] = session.ID
	}
	c.JSON(http.StatusOK, resp)
}

// upkeepSession opens a trickle session on first contact and refreshes it on
// every batch.
func (h *Handler) upkeepSession(ctx context.Context, collectorID string, at time.Time, samples int) (*db.TrickleSession, error) {
	session, err := h.repo.ActiveSession(collectorID)
	if errors.Is(err, db.ErrNotFound) {
		session = &db.TrickleSession{
			ID:          uuid.New().String(),
			CollectorID: collectorID,
			Status:      db.SessionActive,
			StartedAt:   at,
			LastDataAt:  &at,
			SampleCount: samples,
		}
		if err := h.repo.CreateSession(session); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	} else {
		if err := h.repo.TouchSession(session.ID, at, samples); err != nil {
			return nil, err
		}
	}

	if h.cache != nil {
		ttl := h.config.Trickle.SessionTimeout
		if err := h.cache.BumpSessionLive(ctx, session.ID, samples, ttl); err != nil {
			h.logger.Debug("Live session cache update failed", zap.Error(err))
		}
	}

	return session, nil
}

// readBody returns the raw request body, transparently decoding snappy when
// the agent sent Content-Encoding: snappy.
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}

	if strings.EqualFold(c.GetHeader("Content-Encoding"), "snappy") {
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, errors.New("invalid snappy payload")
		}
		return decoded, nil
	}

	return body, nil
}
