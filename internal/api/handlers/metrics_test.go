package handlers

import (
	"testing"
	"time"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

func fp(v float64) *float64 { return &v }
func ip(v int64) *int64     { return &v }

func sample(at time.Time) *db.PerformanceMetric {
	return &db.PerformanceMetric{
		ID:          "m-" + at.Format("150405"),
		CollectorID: "col-1",
		Timestamp:   at,
	}
}

func TestBuildMetricSeriesCubesCounterDeltas(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first := sample(base)
	first.CPUUser = fp(12.5)
	first.MemUsed = fp(2048)
	first.DiskReadOps = ip(0)
	first.DiskReadBytes = ip(0)
	first.NetRxBytes = ip(0)

	second := sample(base.Add(time.Second))
	second.CPUUser = fp(14)
	second.MemUsed = fp(2100)
	second.DiskReadOps = ip(1000)
	second.DiskReadBytes = ip(1024 * 1024)
	second.NetRxBytes = ip(125000)

	got := buildMetricSeries([]*db.PerformanceMetric{first, second})

	if got.SampleCount != 2 {
		t.Fatalf("SampleCount = %d, want 2", got.SampleCount)
	}
	if got.CPU.User[0] != 12.5 || got.CPU.User[1] != 14 {
		t.Errorf("CPU.User = %v, want [12.5 14]", got.CPU.User)
	}
	if got.Memory.UsedMB[1] != 2100 {
		t.Errorf("Memory.UsedMB[1] = %v, want 2100", got.Memory.UsedMB[1])
	}

	if got.Disk.ReadIOPS[0] != 0 {
		t.Errorf("first sample ReadIOPS = %v, want 0", got.Disk.ReadIOPS[0])
	}
	if got.Disk.ReadIOPS[1] != 1000 {
		t.Errorf("ReadIOPS[1] = %v, want 1000", got.Disk.ReadIOPS[1])
	}
	if got.Disk.ReadMBps[1] != 1.0 {
		t.Errorf("ReadMBps[1] = %v, want 1.0", got.Disk.ReadMBps[1])
	}
	if got.Network.RxMbps[1] != 1.0 {
		t.Errorf("RxMbps[1] = %v, want 1.0", got.Network.RxMbps[1])
	}
}

func TestBuildMetricSeriesEmpty(t *testing.T) {
	got := buildMetricSeries(nil)
	if got.SampleCount != 0 {
		t.Errorf("SampleCount = %d, want 0", got.SampleCount)
	}
	if len(got.Timestamps) != 0 {
		t.Errorf("Timestamps = %v, want empty", got.Timestamps)
	}
}

func TestBuildMetricSeriesNilFieldsReadAsZero(t *testing.T) {
	got := buildMetricSeries([]*db.PerformanceMetric{sample(time.Now())})
	if got.CPU.Idle[0] != 0 || got.Memory.TotalMB[0] != 0 {
		t.Errorf("nil fields should serialize as zero, got cpu idle %v total %v",
			got.CPU.Idle[0], got.Memory.TotalMB[0])
	}
}

func TestCubeSamplesFillsCPUFromJiffies(t *testing.T) {
	base := time.Now()
	samples := []MetricSample{
		{Timestamp: base, CPUJiffies: []float64{100, 0, 0, 100, 0, 0, 0, 0}},
		{Timestamp: base.Add(time.Second), CPUJiffies: []float64{200, 0, 0, 200, 0, 0, 0, 0}},
	}

	cubeSamples(samples)

	if samples[0].CPUUser != nil {
		t.Errorf("first raw sample CPUUser = %v, want nil", *samples[0].CPUUser)
	}
	if samples[1].CPUUser == nil || *samples[1].CPUUser != 50 {
		t.Fatalf("second sample CPUUser = %v, want 50", samples[1].CPUUser)
	}
	if *samples[1].CPUIdle != 50 {
		t.Errorf("second sample CPUIdle = %v, want 50", *samples[1].CPUIdle)
	}
}

func TestCubeSamplesFillsMemoryFromMeminfo(t *testing.T) {
	samples := []MetricSample{{
		Timestamp: time.Now(),
		Meminfo: &MeminfoSample{
			TotalMB: 16384, FreeMB: 4096, BuffersMB: 512,
			CachedMB: 4096, SlabMB: 256, AvailableMB: 8448,
		},
	}}

	cubeSamples(samples)

	if samples[0].MemUsed == nil || *samples[0].MemUsed != 7424 {
		t.Fatalf("MemUsed = %v, want 7424", samples[0].MemUsed)
	}
	if *samples[0].MemTotal != 16384 {
		t.Errorf("MemTotal = %v, want 16384", *samples[0].MemTotal)
	}
}

func TestCubeSamplesLeavesExplicitValuesAlone(t *testing.T) {
	user := 33.0
	total := 4096.0
	samples := []MetricSample{
		{Timestamp: time.Now(), CPUJiffies: []float64{1, 0, 0, 1, 0, 0, 0, 0}},
		{
			Timestamp:  time.Now().Add(time.Second),
			CPUJiffies: []float64{2, 0, 0, 2, 0, 0, 0, 0},
			CPUUser:    &user,
			MemTotal:   &total,
			Meminfo:    &MeminfoSample{TotalMB: 999},
		},
	}

	cubeSamples(samples)

	if *samples[1].CPUUser != 33.0 {
		t.Errorf("CPUUser = %v, want untouched 33.0", *samples[1].CPUUser)
	}
	if *samples[1].MemTotal != 4096.0 {
		t.Errorf("MemTotal = %v, want untouched 4096.0", *samples[1].MemTotal)
	}
}
