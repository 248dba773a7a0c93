package report

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dev-tams/offhours/internal/config"
)

// ObjectInfo describes one stored run report.
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Prunable is implemented by sinks whose old reports can be listed and
// removed.
type Prunable interface {
	List(ctx context.Context) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type reportEntry struct {
	obj ObjectInfo
	t   time.Time
}

// RetentionStats summarizes one retention pass.
type RetentionStats struct {
	Kept    int
	Deleted int
	Skipped int
}

// ApplyRetention prunes old run reports from the sink, keeping the
// newest report per day, ISO week and month up to the configured
// counts. A sink that cannot list its reports is left alone.
func ApplyRetention(ctx context.Context, sink Sink, r config.RetentionConfig) (RetentionStats, error) {
	var stats RetentionStats
	if r.KeepDaily <= 0 && r.KeepWeekly <= 0 && r.KeepMonthly <= 0 {
		return stats, nil
	}

	pr, ok := sink.(Prunable)
	if !ok {
		return stats, nil
	}

	objects, err := pr.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("retention list: %w", err)
	}
	if len(objects) == 0 {
		return stats, nil
	}

	entries := make([]reportEntry, 0, len(objects))
	for _, o := range objects {
		t, ok := parseReportTimeFromKey(o.Key)
		if !ok {
			stats.Skipped++
			continue
		}
		entries = append(entries, reportEntry{obj: o, t: t})
	}

	// newest first
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].t.After(entries[j].t)
	})

	keep := selectKeep(entries, r.KeepDaily, r.KeepWeekly, r.KeepMonthly)

	for _, e := range entries {
		if keep[e.obj.Key] {
			continue
		}
		if err := pr.Delete(ctx, e.obj.Key); err != nil {
			return stats, fmt.Errorf("retention delete: %w", err)
		}
		stats.Deleted++
	}

	stats.Kept = len(keep)
	return stats, nil
}

func selectKeep(entries []reportEntry, keepDaily, keepWeekly, keepMonthly int) map[string]bool {
	keep := make(map[string]bool, len(entries))

	daily := make(map[string]bool)
	weekly := make(map[string]bool)
	monthly := make(map[string]bool)

	dCount, wCount, mCount := 0, 0, 0

	for _, e := range entries {
		t := e.t.UTC()

		// daily bucket
		if keepDaily > 0 && dCount < keepDaily {
			b := t.Format("2006-01-02")
			if !daily[b] {
				daily[b] = true
				keep[e.obj.Key] = true
				dCount++
			}
		}

		// weekly bucket (ISO week)
		if keepWeekly > 0 && wCount < keepWeekly {
			y, w := t.ISOWeek()
			b := fmt.Sprintf("%04d-W%02d", y, w)
			if !weekly[b] {
				weekly[b] = true
				keep[e.obj.Key] = true
				wCount++
			}
		}

		// monthly bucket
		if keepMonthly > 0 && mCount < keepMonthly {
			b := t.Format("2006-01")
			if !monthly[b] {
				monthly[b] = true
				keep[e.obj.Key] = true
				mCount++
			}
		}

		if (keepDaily <= 0 || dCount >= keepDaily) &&
			(keepWeekly <= 0 || wCount >= keepWeekly) &&
			(keepMonthly <= 0 || mCount >= keepMonthly) {
			break
		}
	}

	return keep
}

func parseReportTimeFromKey(key string) (time.Time, bool) {
	base := path.Base(key)
	ts := strings.TrimSuffix(base, ".json")
	if ts == base {
		return time.Time{}, false
	}

	// Example: 20260829_120000Z
	t, err := time.Parse("20060102_150405Z", ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
