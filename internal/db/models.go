package db

import (
	"fmt"
	"strings"
	"time"
)

type CollectorStatus string

const (
	CollectorPending      CollectorStatus = "pending"
	CollectorConnected    CollectorStatus = "connected"
	CollectorDisconnected CollectorStatus = "disconnected"
	CollectorError        CollectorStatus = "error"
)

type BenchmarkStatus string

const (
	BenchmarkPending    BenchmarkStatus = "pending"
	BenchmarkCollecting BenchmarkStatus = "collecting"
	BenchmarkRunning    BenchmarkStatus = "running"
	BenchmarkCompleted  BenchmarkStatus = "completed"
	BenchmarkFailed     BenchmarkStatus = "failed"
	BenchmarkCancelled  BenchmarkStatus = "cancelled"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionSaved     SessionStatus = "saved"
)

type Tenant struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type User struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"-" db:"tenant_id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Collector is a monitored server or VM. Hardware fields start empty and are
// filled in by the pcc agent on self-registration.
type Collector struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"-" db:"tenant_id"`
	OwnerID     string          `json:"-" db:"owner_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	APIKey      string          `json:"-" db:"api_key"`
	Status      CollectorStatus `json:"status" db:"status"`
	LastSeen    *time.Time      `json:"last_seen" db:"last_seen"`

	Hostname      string  `json:"hostname" db:"hostname"`
	IPAddress     *string `json:"ip_address" db:"ip_address"`
	OSName        string  `json:"os_name" db:"os_name"`
	OSVersion     string  `json:"os_version" db:"os_version"`
	KernelVersion string  `json:"kernel_version" db:"kernel_version"`

	VMBrand        string   `json:"vm_brand" db:"vm_brand"`
	ProcessorBrand string   `json:"processor_brand" db:"processor_brand"`
	ProcessorModel string   `json:"processor_model" db:"processor_model"`
	VCPUs          *int     `json:"vcpus" db:"vcpus"`
	MemoryGiB      *float64 `json:"memory_gib" db:"memory_gib"`
	StorageGiB     *float64 `json:"storage_gib" db:"storage_gib"`
	StorageType    string   `json:"storage_type" db:"storage_type"`

	HourlyCost *float64 `json:"hourly_cost" db:"hourly_cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SpecsSummary renders the hardware fields as a single display string.
func (c *Collector) SpecsSummary() string {
	var parts []string
	if c.VCPUs != nil {
		parts = append(parts, fmt.Sprintf("%d vCPUs", *c.VCPUs))
	}
	if c.MemoryGiB != nil {
		parts = append(parts, fmt.Sprintf("%g GiB RAM", *c.MemoryGiB))
	}
	if c.ProcessorModel != "" {
		parts = append(parts, c.ProcessorModel)
	}
	if len(parts) == 0 {
		return "Specs pending"
	}
	return strings.Join(parts, " | ")
}

// RegistrationUpdate carries the hardware descriptor a pcc agent reports.
// Nil pointers and empty strings mean "not reported" and leave the stored
// value untouched.
type RegistrationUpdate struct {
	Hostname       string
	IPAddress      *string
	OSName         string
	OSVersion      string
	KernelVersion  string
	ProcessorBrand string
	ProcessorModel string
	VCPUs          *int
	MemoryGiB      *float64
	StorageGiB     *float64
	StorageType    string
}

// ApplyRegistration merges a self-registration payload onto the collector.
// Latest write wins per field; repeated calls with the same payload are
// idempotent.
func (c *Collector) ApplyRegistration(r RegistrationUpdate) {
	if r.Hostname != "" {
		c.Hostname = r.Hostname
	}
	if r.IPAddress != nil {
		c.IPAddress = r.IPAddress
	}
	if r.OSName != "" {
		c.OSName = r.OSName
	}
	if r.OSVersion != "" {
		c.OSVersion = r.OSVersion
	}
	if r.KernelVersion != "" {
		c.KernelVersion = r.KernelVersion
	}
	if r.ProcessorBrand != "" {
		c.ProcessorBrand = r.ProcessorBrand
	}
	if r.ProcessorModel != "" {
		c.ProcessorModel = r.ProcessorModel
	}
	if r.VCPUs != nil {
		c.VCPUs = r.VCPUs
	}
	if r.MemoryGiB != nil {
		c.MemoryGiB = r.MemoryGiB
	}
	if r.StorageGiB != nil {
		c.StorageGiB = r.StorageGiB
	}
	if r.StorageType != "" {
		c.StorageType = r.StorageType
	}
}

// CollectedData is an uploaded performance data file.
type CollectedData struct {
	ID          string     `json:"id" db:"id"`
	CollectorID string     `json:"collector_id" db:"collector_id"`
	Description string     `json:"description" db:"description"`
	FileName    string     `json:"file_name" db:"file_name"`
	FilePath    string     `json:"-" db:"file_path"`
	FileSize    int64      `json:"file_size" db:"file_size"`
	RowCount    *int       `json:"row_count" db:"row_count"`
	DataStart   *time.Time `json:"data_start" db:"data_start"`
	DataEnd     *time.Time `json:"data_end" db:"data_end"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type Benchmark struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"-" db:"tenant_id"`
	OwnerID     string          `json:"-" db:"owner_id"`
	CollectorID string          `json:"collector_id" db:"collector_id"`
	Name        string          `json:"name" db:"name"`
	Type        string          `json:"benchmark_type" db:"benchmark_type"`
	Status      BenchmarkStatus `json:"status" db:"status"`

	StartTime       *time.Time `json:"start_time" db:"start_time"`
	EndTime         *time.Time `json:"end_time" db:"end_time"`
	DurationSeconds *int       `json:"duration_seconds" db:"duration_seconds"`

	// Scores on a 0-100 scale, set only when status becomes completed
	CPUScore     *int `json:"cpu_score" db:"cpu_score"`
	MemoryScore  *int `json:"memory_score" db:"memory_score"`
	DiskScore    *int `json:"disk_score" db:"disk_score"`
	NetworkScore *int `json:"network_score" db:"network_score"`
	OverallScore *int `json:"overall_score" db:"overall_score"`

	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// LoadTestResult records CPU work units completed at each utilization decile.
// Deciles are stored verbatim; monotonicity is the caller's responsibility.
type LoadTestResult struct {
	ID          string  `json:"id" db:"id"`
	TenantID    string  `json:"-" db:"tenant_id"`
	OwnerID     string  `json:"-" db:"owner_id"`
	CollectorID string  `json:"collector_id" db:"collector_id"`
	BenchmarkID *string `json:"benchmark_id" db:"benchmark_id"`

	Units10  int `json:"units_10pct" db:"units_10pct"`
	Units20  int `json:"units_20pct" db:"units_20pct"`
	Units30  int `json:"units_30pct" db:"units_30pct"`
	Units40  int `json:"units_40pct" db:"units_40pct"`
	Units50  int `json:"units_50pct" db:"units_50pct"`
	Units60  int `json:"units_60pct" db:"units_60pct"`
	Units70  int `json:"units_70pct" db:"units_70pct"`
	Units80  int `json:"units_80pct" db:"units_80pct"`
	Units90  int `json:"units_90pct" db:"units_90pct"`
	Units100 int `json:"units_100pct" db:"units_100pct"`

	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type DataPoint struct {
	Utilization int `json:"utilization"`
	WorkUnits   int `json:"work_units"`
}

func (r *LoadTestResult) units() [10]int {
	return [10]int{
		r.Units10, r.Units20, r.Units30, r.Units40, r.Units50,
		r.Units60, r.Units70, r.Units80, r.Units90, r.Units100,
	}
}

// DataPoints returns the decile curve as (utilization, work units) pairs.
func (r *LoadTestResult) DataPoints() []DataPoint {
	points := make([]DataPoint, 0, 10)
	for i, u := range r.units() {
		points = append(points, DataPoint{Utilization: (i + 1) * 10, WorkUnits: u})
	}
	return points
}

func (r *LoadTestResult) MaxUnits() int {
	max := 0
	for _, u := range r.units() {
		if u > max {
			max = u
		}
	}
	return max
}

func (r *LoadTestResult) AvgUnits() int {
	total := 0
	for _, u := range r.units() {
		total += u
	}
	return total / 10
}

// PerformanceMetric is one trickled time-series sample.
type PerformanceMetric struct {
	ID          string    `json:"id" db:"id"`
	CollectorID string    `json:"collector_id" db:"collector_id"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`

	// CPU percentages
	CPUUser   *float64 `json:"cpu_user" db:"cpu_user"`
	CPUSystem *float64 `json:"cpu_system" db:"cpu_system"`
	CPUIOWait *float64 `json:"cpu_iowait" db:"cpu_iowait"`
	CPUIdle   *float64 `json:"cpu_idle" db:"cpu_idle"`
	CPUSteal  *float64 `json:"cpu_steal" db:"cpu_steal"`

	// Memory in MB
	MemTotal     *float64 `json:"mem_total" db:"mem_total"`
	MemUsed      *float64 `json:"mem_used" db:"mem_used"`
	MemAvailable *float64 `json:"mem_available" db:"mem_available"`
	MemBuffers   *float64 `json:"mem_buffers" db:"mem_buffers"`
	MemCached    *float64 `json:"mem_cached" db:"mem_cached"`

	// Cumulative counters
	DiskReadBytes  *int64 `json:"disk_read_bytes" db:"disk_read_bytes"`
	DiskWriteBytes *int64 `json:"disk_write_bytes" db:"disk_write_bytes"`
	DiskReadOps    *int64 `json:"disk_read_ops" db:"disk_read_ops"`
	DiskWriteOps   *int64 `json:"disk_write_ops" db:"disk_write_ops"`
	NetRxBytes     *int64 `json:"net_rx_bytes" db:"net_rx_bytes"`
	NetTxBytes     *int64 `json:"net_tx_bytes" db:"net_tx_bytes"`
	NetRxPackets   *int64 `json:"net_rx_packets" db:"net_rx_packets"`
	NetTxPackets   *int64 `json:"net_tx_packets" db:"net_tx_packets"`
}

// TrickleSession groups a continuous run of trickled samples from one
// collector. A session opens on the first sample and is completed once no
// data arrives for the configured timeout.
type TrickleSession struct {
	ID          string        `json:"id" db:"id"`
	CollectorID string        `json:"collector_id" db:"collector_id"`
	Status      SessionStatus `json:"status" db:"status"`
	Name        string        `json:"name" db:"name"`
	StartedAt   time.Time     `json:"started_at" db:"started_at"`
	EndedAt     *time.Time    `json:"ended_at" db:"ended_at"`
	LastDataAt  *time.Time    `json:"last_data_at" db:"last_data_at"`
	SampleCount int           `json:"sample_count" db:"sample_count"`
}

type BenchmarkStats struct {
	Total    int                     `json:"total"`
	ByStatus map[BenchmarkStatus]int `json:"by_status"`
	Avg      *ScoreAverages          `json:"avg_scores,omitempty"`
}

type ScoreAverages struct {
	CPU     float64 `json:"cpu"`
	Memory  float64 `json:"memory"`
	Disk    float64 `json:"disk"`
	Network float64 `json:"network"`
	Overall float64 `json:"overall"`
}
