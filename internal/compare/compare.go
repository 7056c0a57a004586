// Package compare ranks collectors by their most recent load-test curves.
// It is a pure join-and-sort over rows the caller already fetched; no
// normalization or scoring happens here.
package compare

import (
	"sort"
	"time"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

const (
	ErrNoData   = "no_data"
	ErrNotFound = "not_found"
)

// Row is one requested collector id with whatever the caller could resolve
// for it. Collector is nil when the id was unknown or not visible to the
// requester; Latest is nil when the collector has no load-test results.
type Row struct {
	CollectorID string
	Collector   *db.Collector
	Latest      *db.LoadTestResult
}

// Entry is one element of the comparison response. The numeric curve fields
// always serialize, so an all-zero curve stays distinguishable from an error
// marker; markers are flagged by Error alone.
type Entry struct {
	CollectorID   string         `json:"collector_id"`
	CollectorName string         `json:"collector_name,omitempty"`
	Specs         string         `json:"specs,omitempty"`
	DataPoints    []db.DataPoint `json:"data_points,omitempty"`
	MaxUnits      int            `json:"max_units"`
	AvgUnits      int            `json:"avg_units"`
	Units100      int            `json:"units_100pct"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
	Error         string         `json:"error,omitempty"`

	collectorCreated time.Time
}

type Result struct {
	Entries []Entry
	// Count is the number of comparable entries (error markers excluded)
	Count int
}

// Rank builds the side-by-side comparison. Comparable entries come first,
// ordered by units_100pct descending so the fastest observed machine leads;
// ties break by collector creation time ascending, then by collector id.
// Error markers follow in request order; one missing curve never fails the
// whole comparison.
func Rank(rows []Row) Result {
	var ranked []Entry
	var failed []Entry

	for _, row := range rows {
		if row.Collector == nil {
			failed = append(failed, Entry{
				CollectorID: row.CollectorID,
				Error:       ErrNotFound,
			})
			continue
		}
		if row.Latest == nil {
			failed = append(failed, Entry{
				CollectorID:   row.Collector.ID,
				CollectorName: row.Collector.Name,
				Specs:         row.Collector.SpecsSummary(),
				Error:         ErrNoData,
			})
			continue
		}

		created := row.Latest.CreatedAt
		ranked = append(ranked, Entry{
			CollectorID:      row.Collector.ID,
			CollectorName:    row.Collector.Name,
			Specs:            row.Collector.SpecsSummary(),
			DataPoints:       row.Latest.DataPoints(),
			MaxUnits:         row.Latest.MaxUnits(),
			AvgUnits:         row.Latest.AvgUnits(),
			Units100:         row.Latest.Units100,
			CreatedAt:        &created,
			collectorCreated: row.Collector.CreatedAt,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Units100 != ranked[j].Units100 {
			return ranked[i].Units100 > ranked[j].Units100
		}
		if !ranked[i].collectorCreated.Equal(ranked[j].collectorCreated) {
			return ranked[i].collectorCreated.Before(ranked[j].collectorCreated)
		}
		return ranked[i].CollectorID < ranked[j].CollectorID
	})

	return Result{
		Entries: append(ranked, failed...),
		Count:   len(ranked),
	}
}
