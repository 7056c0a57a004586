package db

import (
	"strings"
	"testing"
)

func intPtr(v int) *int         { return &v }
func f64Ptr(v float64) *float64 { return &v }
func strPtr(v string) *string   { return &v }

func TestApplyRegistrationMergesReportedFields(t *testing.T) {
	c := &Collector{
		Hostname:    "old-host",
		OSName:      "Ubuntu",
		StorageType: "nvme",
	}

	c.ApplyRegistration(RegistrationUpdate{
		Hostname:       "new-host",
		IPAddress:      strPtr("10.0.0.5"),
		ProcessorBrand: "intel",
		VCPUs:          intPtr(4),
		MemoryGiB:      f64Ptr(16),
	})

	if c.Hostname != "new-host" {
		t.Errorf("Hostname = %q, want new-host", c.Hostname)
	}
	if c.IPAddress == nil || *c.IPAddress != "10.0.0.5" {
		t.Errorf("IPAddress = %v, want 10.0.0.5", c.IPAddress)
	}
	if c.VCPUs == nil || *c.VCPUs != 4 {
		t.Errorf("VCPUs = %v, want 4", c.VCPUs)
	}
	// Fields absent from the payload keep their stored values
	if c.OSName != "Ubuntu" {
		t.Errorf("OSName = %q, want Ubuntu", c.OSName)
	}
	if c.StorageType != "nvme" {
		t.Errorf("StorageType = %q, want nvme", c.StorageType)
	}
}

func TestApplyRegistrationIsIdempotent(t *testing.T) {
	update := RegistrationUpdate{
		Hostname:       "host-a",
		ProcessorModel: "Xeon E5",
		VCPUs:          intPtr(8),
		MemoryGiB:      f64Ptr(32),
	}

	c := &Collector{}
	c.ApplyRegistration(update)
	first := *c
	c.ApplyRegistration(update)

	if *c != first {
		t.Errorf("second ApplyRegistration changed the collector: %+v vs %+v", *c, first)
	}
}

func TestSpecsSummary(t *testing.T) {
	tests := []struct {
		name string
		c    Collector
		want string
	}{
		{
			name: "nothing reported",
			c:    Collector{},
			want: "Specs pending",
		},
		{
			name: "full specs",
			c: Collector{
				VCPUs:          intPtr(4),
				MemoryGiB:      f64Ptr(16),
				ProcessorModel: "EPYC 7763",
			},
			want: "4 vCPUs | 16 GiB RAM | EPYC 7763",
		},
		{
			name: "partial specs",
			c: Collector{
				VCPUs: intPtr(2),
			},
			want: "2 vCPUs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.SpecsSummary(); got != tt.want {
				t.Errorf("SpecsSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadTestResultDataPoints(t *testing.T) {
	r := &LoadTestResult{
		Units10: 100, Units20: 200, Units30: 300, Units40: 400, Units50: 500,
		Units60: 600, Units70: 700, Units80: 800, Units90: 900, Units100: 1000,
	}

	points := r.DataPoints()
	if len(points) != 10 {
		t.Fatalf("len(points) = %d, want 10", len(points))
	}
	for i, p := range points {
		wantUtil := (i + 1) * 10
		if p.Utilization != wantUtil {
			t.Errorf("points[%d].Utilization = %d, want %d", i, p.Utilization, wantUtil)
		}
		if p.WorkUnits != wantUtil*10 {
			t.Errorf("points[%d].WorkUnits = %d, want %d", i, p.WorkUnits, wantUtil*10)
		}
	}
}

func TestLoadTestResultAggregates(t *testing.T) {
	// A non-monotonic curve; deciles are stored verbatim
	r := &LoadTestResult{
		Units10: 50, Units20: 80, Units30: 120, Units40: 90, Units50: 200,
		Units60: 180, Units70: 210, Units80: 250, Units90: 240, Units100: 230,
	}

	if got := r.MaxUnits(); got != 250 {
		t.Errorf("MaxUnits() = %d, want 250", got)
	}
	if got := r.AvgUnits(); got != 165 {
		t.Errorf("AvgUnits() = %d, want 165", got)
	}
}

func TestLoadTestResultZeroCurve(t *testing.T) {
	r := &LoadTestResult{}
	if got := r.MaxUnits(); got != 0 {
		t.Errorf("MaxUnits() = %d, want 0", got)
	}
	if got := r.AvgUnits(); got != 0 {
		t.Errorf("AvgUnits() = %d, want 0", got)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := GenerateAPIKey()
		if len(key) < 40 {
			t.Fatalf("key %q shorter than expected", key)
		}
		if strings.ContainsAny(key, "+/=") {
			t.Errorf("key %q contains non-URL-safe characters", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key generated: %q", key)
		}
		seen[key] = true
	}
}
