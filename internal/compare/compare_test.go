package compare

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

func collector(id, name string, createdAt time.Time) *db.Collector {
	return &db.Collector{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

func result(units100 int) *db.LoadTestResult {
	return &db.LoadTestResult{
		Units10:  units100 / 10,
		Units50:  units100 / 2,
		Units100: units100,
	}
}

func TestRankOrdersByUnits100Descending(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{CollectorID: "a", Collector: collector("a", "small", base), Latest: result(10500)},
		{CollectorID: "b", Collector: collector("b", "big", base), Latest: result(21000)},
	}

	res := Rank(rows)

	if res.Count != 2 {
		t.Fatalf("Count = %d, want 2", res.Count)
	}
	if res.Entries[0].CollectorID != "b" || res.Entries[1].CollectorID != "a" {
		t.Errorf("order = [%s %s], want [b a]",
			res.Entries[0].CollectorID, res.Entries[1].CollectorID)
	}
	if res.Entries[0].Units100 != 21000 {
		t.Errorf("Units100 = %d, want 21000", res.Entries[0].Units100)
	}
}

func TestRankTieBreaksByCollectorAge(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	rows := []Row{
		{CollectorID: "new", Collector: collector("new", "new", newer), Latest: result(5000)},
		{CollectorID: "old", Collector: collector("old", "old", older), Latest: result(5000)},
	}

	res := Rank(rows)

	if res.Entries[0].CollectorID != "old" {
		t.Errorf("first = %s, want old (earlier created_at wins ties)", res.Entries[0].CollectorID)
	}
}

func TestRankTieBreaksByIDWhenSameAge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{CollectorID: "zzz", Collector: collector("zzz", "z", base), Latest: result(5000)},
		{CollectorID: "aaa", Collector: collector("aaa", "a", base), Latest: result(5000)},
	}

	res := Rank(rows)

	if res.Entries[0].CollectorID != "aaa" {
		t.Errorf("first = %s, want aaa", res.Entries[0].CollectorID)
	}
}

func TestRankAppendsNoDataMarker(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{CollectorID: "empty", Collector: collector("empty", "no-results", base)},
		{CollectorID: "full", Collector: collector("full", "has-results", base), Latest: result(8000)},
	}

	res := Rank(rows)

	if res.Count != 1 {
		t.Fatalf("Count = %d, want 1 (error markers are not comparable)", res.Count)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(res.Entries))
	}
	if res.Entries[0].CollectorID != "full" {
		t.Errorf("ranked entry = %s, want full", res.Entries[0].CollectorID)
	}
	marker := res.Entries[1]
	if marker.Error != ErrNoData {
		t.Errorf("marker.Error = %q, want %q", marker.Error, ErrNoData)
	}
	if marker.CollectorName != "no-results" {
		t.Errorf("marker keeps the collector name, got %q", marker.CollectorName)
	}
}

func TestRankAppendsNotFoundMarker(t *testing.T) {
	rows := []Row{
		{CollectorID: "ghost"},
	}

	res := Rank(rows)

	if res.Count != 0 {
		t.Errorf("Count = %d, want 0", res.Count)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(res.Entries))
	}
	if res.Entries[0].Error != ErrNotFound {
		t.Errorf("Error = %q, want %q", res.Entries[0].Error, ErrNotFound)
	}
	if res.Entries[0].CollectorID != "ghost" {
		t.Errorf("CollectorID = %q, want ghost", res.Entries[0].CollectorID)
	}
}

func TestRankKeepsMarkersInRequestOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{CollectorID: "missing-1"},
		{CollectorID: "ok", Collector: collector("ok", "ok", base), Latest: result(100)},
		{CollectorID: "empty", Collector: collector("empty", "empty", base)},
		{CollectorID: "missing-2"},
	}

	res := Rank(rows)

	want := []string{"ok", "missing-1", "empty", "missing-2"}
	if len(res.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(res.Entries), len(want))
	}
	for i, id := range want {
		if res.Entries[i].CollectorID != id {
			t.Errorf("Entries[%d] = %s, want %s", i, res.Entries[i].CollectorID, id)
		}
	}
}

func TestRankEmptyInput(t *testing.T) {
	res := Rank(nil)
	if res.Count != 0 || len(res.Entries) != 0 {
		t.Errorf("Rank(nil) = %+v, want empty result", res)
	}
}

func TestRankZeroCurveKeepsNumericJSONKeys(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []Row{
		{CollectorID: "idle", Collector: collector("idle", "idle-box", base), Latest: result(0)},
	}

	res := Rank(rows)
	if res.Count != 1 {
		t.Fatalf("Count = %d, want 1", res.Count)
	}

	body, err := json.Marshal(res.Entries[0])
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{`"units_100pct":0`, `"max_units":0`, `"avg_units":0`} {
		if !strings.Contains(string(body), key) {
			t.Errorf("entry JSON missing %s: %s", key, body)
		}
	}
	if strings.Contains(string(body), `"error"`) {
		t.Errorf("comparable entry must not look like a marker: %s", body)
	}
}
