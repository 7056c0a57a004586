// Package cubing converts raw /proc cumulative counters into
// visualization-ready rates and percentages using deltas between consecutive
// samples. CPU needs a jiffies delta, disk and network need a counter delta
// over elapsed time, memory is a direct conversion.
package cubing

import (
	"math"
	"time"
)

const (
	// Jiffies per second on x86 Linux
	userHZ = 100
)

// Svalue is the core normalization: (curr - prev) / tvi * 100, with tvi in
// hundredths of a second. The *100 and /USER_HZ cancel, leaving delta per
// second. Negative results mean the counter wrapped; callers clamp.
func Svalue(prev, curr float64, tvi int) float64 {
	if tvi == 0 {
		return 0
	}
	return (curr - prev) / float64(tvi) * 100
}

// Jiffies is one /proc/stat cpu line: user, nice, system, idle, iowait, irq,
// softirq, steal.
type Jiffies [8]float64

const (
	jiffyUser = iota
	jiffyNice
	jiffySystem
	jiffyIdle
	jiffyIOWait
	jiffyIRQ
	jiffySoftIRQ
	jiffySteal
)

func (j Jiffies) totals() (total, busy float64) {
	busy = j[jiffyUser] + j[jiffyNice] + j[jiffySystem] +
		j[jiffyIOWait] + j[jiffyIRQ] + j[jiffySoftIRQ] + j[jiffySteal]
	return busy + j[jiffyIdle], busy
}

// CPUPercentages is a cubed CPU sample on a 0-100 scale. User folds in nice.
type CPUPercentages struct {
	User   float64
	System float64
	IOWait float64
	Steal  float64
	Idle   float64
}

func component(prev, curr Jiffies, idx int) float64 {
	prevTotal, prevBusy := prev.totals()
	currTotal, currBusy := curr.totals()

	if currBusy <= prevBusy {
		return 0
	}
	if currTotal <= prevTotal {
		return 100
	}

	delta := curr[idx] - prev[idx]
	return math.Min(100, math.Max(0, delta/(currTotal-prevTotal)*100))
}

// CPU cubes two consecutive jiffies samples into percentages. Returns nil
// when there is no previous sample to delta against.
func CPU(prev, curr *Jiffies) *CPUPercentages {
	if prev == nil || curr == nil {
		return nil
	}

	user := component(*prev, *curr, jiffyUser)
	nice := component(*prev, *curr, jiffyNice)
	system := component(*prev, *curr, jiffySystem)
	iowait := component(*prev, *curr, jiffyIOWait)
	steal := component(*prev, *curr, jiffySteal)

	prevTotal, prevBusy := prev.totals()
	currTotal, currBusy := curr.totals()

	var busy float64
	switch {
	case currBusy <= prevBusy:
		busy = 0
	case currTotal <= prevTotal:
		busy = 100
	default:
		busy = math.Min(100, math.Max(0, (currBusy-prevBusy)/(currTotal-prevTotal)*100))
	}

	return &CPUPercentages{
		User:   round2(user + nice),
		System: round2(system),
		IOWait: round2(iowait),
		Steal:  round2(steal),
		Idle:   round2(100 - busy),
	}
}

// DiskCounters are cumulative values from /proc/diskstats.
type DiskCounters struct {
	ReadOps    float64
	WriteOps   float64
	ReadBytes  float64
	WriteBytes float64
}

// DiskRates is a cubed disk sample: operations and megabytes per second.
type DiskRates struct {
	ReadIOPS  float64
	WriteIOPS float64
	ReadMBps  float64
	WriteMBps float64
}

// Disk converts cumulative disk counters into IOPS and MB/s over the
// interval. Returns nil without a previous sample or a positive interval;
// counter rollover clamps to zero.
func Disk(prev, curr *DiskCounters, interval time.Duration) *DiskRates {
	if prev == nil || curr == nil || interval <= 0 {
		return nil
	}
	tvi := int(interval.Seconds() * userHZ)
	if tvi == 0 {
		return nil
	}

	const mb = 1024 * 1024
	return &DiskRates{
		ReadIOPS:  round2(clamp(Svalue(prev.ReadOps, curr.ReadOps, tvi))),
		WriteIOPS: round2(clamp(Svalue(prev.WriteOps, curr.WriteOps, tvi))),
		ReadMBps:  round4(clamp(Svalue(prev.ReadBytes, curr.ReadBytes, tvi) / mb)),
		WriteMBps: round4(clamp(Svalue(prev.WriteBytes, curr.WriteBytes, tvi) / mb)),
	}
}

// NetCounters are cumulative values from /proc/net/dev.
type NetCounters struct {
	RxBytes   float64
	TxBytes   float64
	RxPackets float64
	TxPackets float64
}

// NetworkRates is a cubed network sample: megabits and packets per second.
type NetworkRates struct {
	RxMbps float64
	TxMbps float64
	RxPPS  float64
	TxPPS  float64
}

// Network converts cumulative network counters into Mbit/s and packets/s
// over the interval. Same nil and rollover rules as Disk.
func Network(prev, curr *NetCounters, interval time.Duration) *NetworkRates {
	if prev == nil || curr == nil || interval <= 0 {
		return nil
	}
	tvi := int(interval.Seconds() * userHZ)
	if tvi == 0 {
		return nil
	}

	const mbit = 1000 * 1000
	return &NetworkRates{
		RxMbps: round4(clamp(Svalue(prev.RxBytes, curr.RxBytes, tvi) * 8 / mbit)),
		TxMbps: round4(clamp(Svalue(prev.TxBytes, curr.TxBytes, tvi) * 8 / mbit)),
		RxPPS:  round2(clamp(Svalue(prev.RxPackets, curr.RxPackets, tvi))),
		TxPPS:  round2(clamp(Svalue(prev.TxPackets, curr.TxPackets, tvi))),
	}
}

// Meminfo is one /proc/meminfo sample. All fields share one unit; callers
// pass MB.
type Meminfo struct {
	Total     float64
	Free      float64
	Buffers   float64
	Cached    float64
	Slab      float64
	Available float64
}

// MemoryUsage is a cubed memory sample in MB.
type MemoryUsage struct {
	Total     float64
	Used      float64
	Available float64
	Buffers   float64
	Cached    float64
}

// Memory converts a meminfo sample. No delta needed:
// used = total - min(total, free + buffers + cached + slab).
func Memory(m *Meminfo) *MemoryUsage {
	if m == nil || m.Total <= 0 {
		return nil
	}

	notUsed := m.Free + m.Buffers + m.Cached + m.Slab
	if notUsed > m.Total {
		notUsed = m.Total
	}

	return &MemoryUsage{
		Total:     round2(m.Total),
		Used:      round2(m.Total - notUsed),
		Available: round2(m.Available),
		Buffers:   round2(m.Buffers),
		Cached:    round2(m.Cached),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
