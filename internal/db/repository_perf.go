package db

import (
	"database/sql"
	"time"
)

// Collected data

func (r *Repository) CreateCollectedData(d *CollectedData) error {
	query := `
        INSERT INTO collected_data (
            id, collector_id, description, file_name, file_path, file_size,
            row_count, data_start, data_end, created_at
        ) VALUES (
            :id, :collector_id, :description, :file_name, :file_path, :file_size,
            :row_count, :data_start, :data_end, :created_at
        )`

	_, err := r.db.NamedExec(query, d)
	return err
}

func (r *Repository) ListCollectedData(tenantID, ownerID, collectorID string) ([]*CollectedData, error) {
	data := []*CollectedData{}
	query := `
        SELECT d.* FROM collected_data d
        JOIN collectors c ON d.collector_id = c.id
        WHERE d.collector_id = $1 AND c.tenant_id = $2 AND c.owner_id = $3
        ORDER BY d.created_at DESC`

	err := r.db.Select(&data, query, collectorID, tenantID, ownerID)
	return data, err
}

func (r *Repository) GetCollectedData(tenantID, ownerID, id string) (*CollectedData, error) {
	var d CollectedData
	query := `
        SELECT d.* FROM collected_data d
        JOIN collectors c ON d.collector_id = c.id
        WHERE d.id = $1 AND c.tenant_id = $2 AND c.owner_id = $3`

	err := r.db.Get(&d, query, id, tenantID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) DeleteCollectedData(tenantID, ownerID, id string) error {
	res, err := r.db.Exec(`
        DELETE FROM collected_data d
        USING collectors c
        WHERE d.collector_id = c.id
          AND d.id = $1 AND c.tenant_id = $2 AND c.owner_id = $3`,
		id, tenantID, ownerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Benchmarks

func (r *Repository) CreateBenchmark(b *Benchmark) error {
	query := `
        INSERT INTO benchmarks (
            id, tenant_id, owner_id, collector_id, name, benchmark_type, status,
            error_message, created_at, updated_at
        ) VALUES (
            :id, :tenant_id, :owner_id, :collector_id, :name, :benchmark_type, :status,
            :error_message, :created_at, :updated_at
        )`

	_, err := r.db.NamedExec(query, b)
	return err
}

func (r *Repository) GetBenchmark(tenantID, ownerID, id string) (*Benchmark, error) {
	var b Benchmark
	query := `SELECT * FROM benchmarks WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`
	err := r.db.Get(&b, query, id, tenantID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

type BenchmarkFilters struct {
	Status      string
	CollectorID string
	Limit       int
	Offset      int
}

func (r *Repository) ListBenchmarks(tenantID, ownerID string, f BenchmarkFilters) ([]*Benchmark, error) {
	benchmarks := []*Benchmark{}
	query := `
        SELECT * FROM benchmarks
        WHERE tenant_id = $1 AND owner_id = $2
          AND ($3 = '' OR status = $3)
          AND ($4 = '' OR collector_id::text = $4)
        ORDER BY created_at DESC
        LIMIT $5 OFFSET $6`

	err := r.db.Select(&benchmarks, query, tenantID, ownerID, f.Status, f.CollectorID, f.Limit, f.Offset)
	return benchmarks, err
}

// CompleteBenchmark attaches scores and flips status in one conditional
// UPDATE. A benchmark that already reached completed is immutable; a second
// attempt returns ErrInvalidState.
func (r *Repository) CompleteBenchmark(tenantID, ownerID, id string, b *Benchmark) error {
	query := `
        UPDATE benchmarks SET
            status = :status,
            start_time = :start_time,
            end_time = :end_time,
            duration_seconds = :duration_seconds,
            cpu_score = :cpu_score,
            memory_score = :memory_score,
            disk_score = :disk_score,
            network_score = :network_score,
            overall_score = :overall_score,
            error_message = :error_message,
            updated_at = :updated_at
        WHERE id = :id AND tenant_id = :tenant_id AND owner_id = :owner_id
          AND status <> 'completed'`

	res, err := r.db.NamedExec(query, b)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish immutable-after-completion from a foreign id
		if _, err := r.GetBenchmark(tenantID, ownerID, id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

func (r *Repository) DeleteBenchmark(tenantID, ownerID, id string) error {
	res, err := r.db.Exec(
		`DELETE FROM benchmarks WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`,
		id, tenantID, ownerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) GetBenchmarkStats(tenantID, ownerID, collectorID string) (*BenchmarkStats, error) {
	stats := &BenchmarkStats{ByStatus: map[BenchmarkStatus]int{}}

	rows, err := r.db.Queryx(`
        SELECT status, COUNT(*) AS count FROM benchmarks
        WHERE tenant_id = $1 AND owner_id = $2
          AND ($3 = '' OR collector_id::text = $3)
        GROUP BY status`,
		tenantID, ownerID, collectorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status BenchmarkStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var avg struct {
		CPU     *float64 `db:"cpu"`
		Memory  *float64 `db:"memory"`
		Disk    *float64 `db:"disk"`
		Network *float64 `db:"network"`
		Overall *float64 `db:"overall"`
	}
	err = r.db.Get(&avg, `
        SELECT AVG(cpu_score) AS cpu, AVG(memory_score) AS memory,
               AVG(disk_score) AS disk, AVG(network_score) AS network,
               AVG(overall_score) AS overall
        FROM benchmarks
        WHERE tenant_id = $1 AND owner_id = $2 AND status = 'completed'
          AND ($3 = '' OR collector_id::text = $3)`,
		tenantID, ownerID, collectorID,
	)
	if err != nil {
		return nil, err
	}

	if stats.ByStatus[BenchmarkCompleted] > 0 {
		stats.Avg = &ScoreAverages{
			CPU:     round1(avg.CPU),
			Memory:  round1(avg.Memory),
			Disk:    round1(avg.Disk),
			Network: round1(avg.Network),
			Overall: round1(avg.Overall),
		}
	}
	return stats, nil
}

func round1(v *float64) float64 {
	if v == nil {
		return 0
	}
	return float64(int(*v*10+0.5)) / 10
}

// Load tests

func (r *Repository) CreateLoadTest(lt *LoadTestResult) error {
	query := `
        INSERT INTO loadtest_results (
            id, tenant_id, owner_id, collector_id, benchmark_id,
            units_10pct, units_20pct, units_30pct, units_40pct, units_50pct,
            units_60pct, units_70pct, units_80pct, units_90pct, units_100pct,
            notes, created_at
        ) VALUES (
            :id, :tenant_id, :owner_id, :collector_id, :benchmark_id,
            :units_10pct, :units_20pct, :units_30pct, :units_40pct, :units_50pct,
            :units_60pct, :units_70pct, :units_80pct, :units_90pct, :units_100pct,
            :notes, :created_at
        )`

	_, err := r.db.NamedExec(query, lt)
	return err
}

func (r *Repository) GetLoadTest(tenantID, ownerID, id string) (*LoadTestResult, error) {
	var lt LoadTestResult
	query := `SELECT * FROM loadtest_results WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`
	err := r.db.Get(&lt, query, id, tenantID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (r *Repository) ListLoadTests(tenantID, ownerID, collectorID string, limit, offset int) ([]*LoadTestResult, error) {
	results := []*LoadTestResult{}
	query := `
        SELECT * FROM loadtest_results
        WHERE tenant_id = $1 AND owner_id = $2
          AND ($3 = '' OR collector_id::text = $3)
        ORDER BY created_at DESC
        LIMIT $4 OFFSET $5`

	err := r.db.Select(&results, query, tenantID, ownerID, collectorID, limit, offset)
	return results, err
}

func (r *Repository) DeleteLoadTest(tenantID, ownerID, id string) error {
	res, err := r.db.Exec(
		`DELETE FROM loadtest_results WHERE id = $1 AND tenant_id = $2 AND owner_id = $3`,
		id, tenantID, ownerID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestLoadTest returns the newest result for a collector; ties on
// created_at break toward the highest id.
func (r *Repository) LatestLoadTest(collectorID string) (*LoadTestResult, error) {
	var lt LoadTestResult
	query := `
        SELECT * FROM loadtest_results
        WHERE collector_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1`

	err := r.db.Get(&lt, query, collectorID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

// Performance metrics (trickle)

func (r *Repository) InsertMetrics(batch []*PerformanceMetric) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO performance_metrics (
            id, collector_id, timestamp,
            cpu_user, cpu_system, cpu_iowait, cpu_idle, cpu_steal,
            mem_total, mem_used, mem_available, mem_buffers, mem_cached,
            disk_read_bytes, disk_write_bytes, disk_read_ops, disk_write_ops,
            net_rx_bytes, net_tx_bytes, net_rx_packets, net_tx_packets
        ) VALUES (
            :id, :collector_id, :timestamp,
            :cpu_user, :cpu_system, :cpu_iowait, :cpu_idle, :cpu_steal,
            :mem_total, :mem_used, :mem_available, :mem_buffers, :mem_cached,
            :disk_read_bytes, :disk_write_bytes, :disk_read_ops, :disk_write_ops,
            :net_rx_bytes, :net_tx_bytes, :net_rx_packets, :net_tx_packets
        ) ON CONFLICT (collector_id, timestamp) DO NOTHING`

	for _, m := range batch {
		if _, err := tx.NamedExec(query, m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListMetricsSince returns a collector's samples from the given instant
// onward, oldest first.
func (r *Repository) ListMetricsSince(collectorID string, since time.Time) ([]*PerformanceMetric, error) {
	query := `
        SELECT * FROM performance_metrics
        WHERE collector_id = $1 AND timestamp >= $2
        ORDER BY timestamp ASC`

	metrics := []*PerformanceMetric{}
	if err := r.db.Select(&metrics, query, collectorID, since); err != nil {
		return nil, err
	}
	return metrics, nil
}

// ListMetricsBetween returns a collector's samples inside [start, end],
// oldest first.
func (r *Repository) ListMetricsBetween(collectorID string, start, end time.Time) ([]*PerformanceMetric, error) {
	query := `
        SELECT * FROM performance_metrics
        WHERE collector_id = $1 AND timestamp >= $2 AND timestamp <= $3
        ORDER BY timestamp ASC`

	metrics := []*PerformanceMetric{}
	if err := r.db.Select(&metrics, query, collectorID, start, end); err != nil {
		return nil, err
	}
	return metrics, nil
}

// Trickle sessions

func (r *Repository) CreateSession(s *TrickleSession) error {
	query := `
        INSERT INTO trickle_sessions (
            id, collector_id, status, name, started_at, last_data_at, sample_count
        ) VALUES (
            :id, :collector_id, :status, :name, :started_at, :last_data_at, :sample_count
        )`

	_, err := r.db.NamedExec(query, s)
	return err
}

func (r *Repository) ActiveSession(collectorID string) (*TrickleSession, error) {
	var s TrickleSession
	query := `
        SELECT * FROM trickle_sessions
        WHERE collector_id = $1 AND status = 'active'
        ORDER BY started_at DESC
        LIMIT 1`

	err := r.db.Get(&s, query, collectorID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) TouchSession(id string, at time.Time, samples int) error {
	_, err := r.db.Exec(
		`UPDATE trickle_sessions SET last_data_at = $1, sample_count = sample_count + $2 WHERE id = $3`,
		at, samples, id,
	)
	return err
}

func (r *Repository) CompleteSession(id string) error {
	res, err := r.db.Exec(`
        UPDATE trickle_sessions
        SET status = 'completed', ended_at = COALESCE(last_data_at, NOW())
        WHERE id = $1 AND status = 'active'`,
		id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidState
	}
	return nil
}

// CompleteIdleSessions sweeps active sessions whose last sample is older than
// the timeout. Returns how many were closed.
func (r *Repository) CompleteIdleSessions(timeout time.Duration) (int, error) {
	res, err := r.db.Exec(`
        UPDATE trickle_sessions
        SET status = 'completed', ended_at = last_data_at
        WHERE status = 'active' AND last_data_at < $1`,
		time.Now().Add(-timeout),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Repository) ListSessions(tenantID, ownerID, collectorID string) ([]*TrickleSession, error) {
	sessions := []*TrickleSession{}
	query := `
        SELECT s.* FROM trickle_sessions s
        JOIN collectors c ON s.collector_id = c.id
        WHERE s.collector_id = $1 AND c.tenant_id = $2 AND c.owner_id = $3
        ORDER BY s.started_at DESC`

	err := r.db.Select(&sessions, query, collectorID, tenantID, ownerID)
	return sessions, err
}

func (r *Repository) ActiveSessionsForOwner(tenantID, ownerID string) ([]*TrickleSession, error) {
	sessions := []*TrickleSession{}
	query := `
        SELECT s.* FROM trickle_sessions s
        JOIN collectors c ON s.collector_id = c.id
        WHERE s.status = 'active' AND c.tenant_id = $1 AND c.owner_id = $2
        ORDER BY s.started_at DESC`

	err := r.db.Select(&sessions, query, tenantID, ownerID)
	return sessions, err
}

// GetSession returns a session scoped to the requesting user via its owning
// collector.
func (r *Repository) GetSession(tenantID, ownerID, id string) (*TrickleSession, error) {
	var s TrickleSession
	query := `
        SELECT s.* FROM trickle_sessions s
        JOIN collectors c ON s.collector_id = c.id
        WHERE s.id = $1 AND c.tenant_id = $2 AND c.owner_id = $3`

	err := r.db.Get(&s, query, id, tenantID, ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
