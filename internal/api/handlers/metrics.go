package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dan-MapMAchina/XATSimplified/internal/cubing"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

const defaultLiveWindowMinutes = 10

type cpuSeries struct {
	User   []float64 `json:"user"`
	System []float64 `json:"system"`
	IOWait []float64 `json:"iowait"`
	Idle   []float64 `json:"idle"`
	Steal  []float64 `json:"steal"`
}

type memorySeries struct {
	TotalMB     []float64 `json:"total_mb"`
	UsedMB      []float64 `json:"used_mb"`
	AvailableMB []float64 `json:"available_mb"`
	BuffersMB   []float64 `json:"buffers_mb"`
	CachedMB    []float64 `json:"cached_mb"`
}

type diskSeries struct {
	ReadIOPS  []float64 `json:"read_iops"`
	WriteIOPS []float64 `json:"write_iops"`
	ReadMBps  []float64 `json:"read_mbps"`
	WriteMBps []float64 `json:"write_mbps"`
}

type networkSeries struct {
	RxMbps []float64 `json:"rx_mbps"`
	TxMbps []float64 `json:"tx_mbps"`
	RxPPS  []float64 `json:"rx_pps"`
	TxPPS  []float64 `json:"tx_pps"`
}

type metricSeries struct {
	SampleCount int           `json:"sample_count"`
	Timestamps  []time.Time   `json:"timestamps"`
	CPU         cpuSeries     `json:"cpu"`
	Memory      memorySeries  `json:"memory"`
	Disk        diskSeries    `json:"disk"`
	Network     networkSeries `json:"network"`
}

// buildMetricSeries turns stored samples into chart-ready parallel arrays.
// CPU and memory come back as stored; disk and network are cubed from the
// cumulative counters of consecutive samples, so the first sample carries
// zero rates.
func buildMetricSeries(samples []*db.PerformanceMetric) metricSeries {
	s := metricSeries{SampleCount: len(samples)}

	var prevDisk *cubing.DiskCounters
	var prevNet *cubing.NetCounters
	var prevAt time.Time

	for i, m := range samples {
		s.Timestamps = append(s.Timestamps, m.Timestamp)

		s.CPU.User = append(s.CPU.User, f64(m.CPUUser))
		s.CPU.System = append(s.CPU.System, f64(m.CPUSystem))
		s.CPU.IOWait = append(s.CPU.IOWait, f64(m.CPUIOWait))
		s.CPU.Idle = append(s.CPU.Idle, f64(m.CPUIdle))
		s.CPU.Steal = append(s.CPU.Steal, f64(m.CPUSteal))

		s.Memory.TotalMB = append(s.Memory.TotalMB, f64(m.MemTotal))
		s.Memory.UsedMB = append(s.Memory.UsedMB, f64(m.MemUsed))
		s.Memory.AvailableMB = append(s.Memory.AvailableMB, f64(m.MemAvailable))
		s.Memory.BuffersMB = append(s.Memory.BuffersMB, f64(m.MemBuffers))
		s.Memory.CachedMB = append(s.Memory.CachedMB, f64(m.MemCached))

		disk := &cubing.DiskCounters{
			ReadOps:    i64(m.DiskReadOps),
			WriteOps:   i64(m.DiskWriteOps),
			ReadBytes:  i64(m.DiskReadBytes),
			WriteBytes: i64(m.DiskWriteBytes),
		}
		net := &cubing.NetCounters{
			RxBytes:   i64(m.NetRxBytes),
			TxBytes:   i64(m.NetTxBytes),
			RxPackets: i64(m.NetRxPackets),
			TxPackets: i64(m.NetTxPackets),
		}

		var dr *cubing.DiskRates
		var nr *cubing.NetworkRates
		if i > 0 {
			interval := m.Timestamp.Sub(prevAt)
			dr = cubing.Disk(prevDisk, disk, interval)
			nr = cubing.Network(prevNet, net, interval)
		}
		if dr == nil {
			dr = &cubing.DiskRates{}
		}
		if nr == nil {
			nr = &cubing.NetworkRates{}
		}

		s.Disk.ReadIOPS = append(s.Disk.ReadIOPS, dr.ReadIOPS)
		s.Disk.WriteIOPS = append(s.Disk.WriteIOPS, dr.WriteIOPS)
		s.Disk.ReadMBps = append(s.Disk.ReadMBps, dr.ReadMBps)
		s.Disk.WriteMBps = append(s.Disk.WriteMBps, dr.WriteMBps)

		s.Network.RxMbps = append(s.Network.RxMbps, nr.RxMbps)
		s.Network.TxMbps = append(s.Network.TxMbps, nr.TxMbps)
		s.Network.RxPPS = append(s.Network.RxPPS, nr.RxPPS)
		s.Network.TxPPS = append(s.Network.TxPPS, nr.TxPPS)

		prevDisk, prevNet, prevAt = disk, net, m.Timestamp
	}

	return s
}

func f64(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func i64(p *int64) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

// CollectorMetrics serves the live trickle window for one collector. The
// window is the last `minutes` (default 10), or everything after `since`
// when a parseable RFC3339 value is given.
func (h *Handler) CollectorMetrics(c *gin.Context) {
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

	start := time.Now().Add(-liveWindow(c))
	if raw := c.Query("since"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			start = t
		}
	}

	samples, err := h.repo.ListMetricsSince(collector.ID, start)
	if err != nil {
		h.internalError(c, "Failed to load metrics", err)
		return
	}

	if len(samples) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"collector_id":   collector.ID,
			"collector_name": collector.Name,
			"has_live_data":  false,
			"message":        "No metrics received in this window",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"collector_id":   collector.ID,
		"collector_name": collector.Name,
		"has_live_data":  true,
		"window_start":   start,
		"metrics":        buildMetricSeries(samples),
	})
}

// SessionMetrics serves the full series for one trickle session, from its
// start to its end, or to the last received sample while still active.
func (h *Handler) SessionMetrics(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	session, err := h.repo.GetSession(tenantID, userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.internalError(c, "Failed to get session", err)
		return
	}

	end := time.Now()
	switch {
	case session.EndedAt != nil:
		end = *session.EndedAt
	case session.LastDataAt != nil:
		end = *session.LastDataAt
	}

	samples, err := h.repo.ListMetricsBetween(session.CollectorID, session.StartedAt, end)
	if err != nil {
		h.internalError(c, "Failed to load metrics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"metrics": buildMetricSeries(samples),
	})
}

func liveWindow(c *gin.Context) time.Duration {
	minutes := defaultLiveWindowMinutes
	if raw := c.Query("minutes"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * time.Minute
}
