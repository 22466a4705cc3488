// Package analytics aggregates pipeline outcomes from the SQLite
// mirror: per-stage success and degrade rates plus duration stats.
package analytics

import (
	"fmt"
	"sort"

	"github.com/lucasnoah/tracefix/internal/db"
)

// StageStats summarizes all recorded finishes of one stage.
type StageStats struct {
	Stage         string
	Runs          int
	Succeeded     int
	Degraded      int
	Failed        int
	SuccessRate   float64
	DegradeRate   float64
	AvgDurationMs float64
	P95DurationMs int64
}

// RunSummary summarizes the runs table.
type RunSummary struct {
	TotalRuns     int
	SucceededRuns int
	FailedRuns    int
}

// stageOrder keeps the report in pipeline order.
var stageOrder = map[string]int{"rca": 0, "fix": 1, "patch": 2}

// Stages computes per-stage stats from stage_end events.
func Stages(d *db.DB) ([]StageStats, error) {
	rows, err := d.Conn().Query(
		`SELECT stage, status, COALESCE(duration_ms, 0)
		 FROM stage_events WHERE event = 'stage_end'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage ends: %w", err)
	}
	defer rows.Close()

	type acc struct {
		stats     StageStats
		durations []int64
	}
	byStage := map[string]*acc{}

	for rows.Next() {
		var stage, status string
		var durationMs int64
		if err := rows.Scan(&stage, &status, &durationMs); err != nil {
			return nil, fmt.Errorf("scan stage end: %w", err)
		}
		a, ok := byStage[stage]
		if !ok {
			a = &acc{stats: StageStats{Stage: stage}}
			byStage[stage] = a
		}
		a.stats.Runs++
		switch status {
		case "succeeded":
			a.stats.Succeeded++
		case "degraded":
			a.stats.Degraded++
		case "failed":
			a.stats.Failed++
		}
		a.durations = append(a.durations, durationMs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StageStats, 0, len(byStage))
	for _, a := range byStage {
		s := a.stats
		if s.Runs > 0 {
			s.SuccessRate = float64(s.Succeeded) / float64(s.Runs)
			s.DegradeRate = float64(s.Degraded) / float64(s.Runs)
			s.AvgDurationMs = avg(a.durations)
			s.P95DurationMs = percentile(a.durations, 0.95)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := stageOrder[out[i].Stage]
		oj, jok := stageOrder[out[j].Stage]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return out[i].Stage < out[j].Stage
	})
	return out, nil
}

// Runs computes the overall run summary.
func Runs(d *db.DB) (RunSummary, error) {
	var s RunSummary
	rows, err := d.Conn().Query(`SELECT success FROM runs WHERE ended_at IS NOT NULL`)
	if err != nil {
		return s, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var success bool
		if err := rows.Scan(&success); err != nil {
			return s, fmt.Errorf("scan run: %w", err)
		}
		s.TotalRuns++
		if success {
			s.SucceededRuns++
		} else {
			s.FailedRuns++
		}
	}
	return s, rows.Err()
}

func avg(vals []int64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum int64
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

// percentile returns the p-th percentile using nearest-rank on a sorted
// copy.
func percentile(vals []int64, p float64) int64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]int64, len(vals))
	copy(sorted, vals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
