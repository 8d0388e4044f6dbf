// Package stats records pipeline activity for the analytics endpoint and
// pushes incremental counters onto the live event stream.
package stats

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"FeedWatcher/internal/domain"
	"FeedWatcher/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS stat_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at INTEGER NOT NULL,
	event_type  TEXT NOT NULL,
	details     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS daily_counters (
	day   TEXT NOT NULL,
	kind  TEXT NOT NULL,
	key   TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (day, kind, key)
);
`

// Counter kinds in daily_counters.
const (
	kindTotal             = "total"
	kindScansBySource     = "scans_by_source"
	kindMatchesByLabel    = "matches_by_label"
	kindMatchesBySrcLabel = "matches_by_source_label"
	kindHourly            = "hourly"
)

// DailyStats is one day of aggregated activity.
type DailyStats struct {
	Date                 string         `json:"date"`
	ScansStarted         int            `json:"scans_started"`
	ItemsMatched         int            `json:"items_matched"`
	SummariesGenerated   int            `json:"summaries_generated"`
	ScansBySource        map[string]int `json:"scans_by_source"`
	MatchesByLabel       map[string]int `json:"matches_by_label"`
	MatchesBySourceLabel map[string]int `json:"matches_by_source_label"`
	HourlyActivity       map[string]int `json:"hourly_activity"`
}

func emptyStats(day string) DailyStats {
	return DailyStats{
		Date:                 day,
		ScansBySource:        map[string]int{},
		MatchesByLabel:       map[string]int{},
		MatchesBySourceLabel: map[string]int{},
		HourlyActivity:       map[string]int{},
	}
}

// Sink persists stat events and daily counters. With a nil database it
// degrades to in-memory counters so the live stream still carries
// analytics updates.
type Sink struct {
	db     *sql.DB
	events ports.EventSink
	logger *slog.Logger

	mu  sync.Mutex
	mem map[string]DailyStats
}

var _ ports.StatsSink = (*Sink)(nil)

// NewSink prepares the stats tables. db may be nil.
func NewSink(db *sql.DB, events ports.EventSink, logger *slog.Logger) (*Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if db != nil {
		if _, err := db.Exec(schema); err != nil {
			return nil, err
		}
	}
	return &Sink{
		db:     db,
		events: events,
		logger: logger,
		mem:    map[string]DailyStats{},
	}, nil
}

// Record logs one pipeline event. Failures are logged and swallowed; the
// pipeline never stalls on analytics.
func (s *Sink) Record(eventType string, details map[string]any) {
	now := time.Now().UTC()
	day := now.Format("2006-01-02")

	s.persistEvent(now, eventType, details)
	s.bump(day, now, eventType, details)

	stats, err := s.DailyStatsFor(day)
	if err != nil {
		s.logger.Error("daily stats read failed", "error", err)
		return
	}
	if s.events != nil {
		s.events.Publish(domain.Event{
			Type:      domain.EventLocalAnalytics,
			EventType: eventType,
			Details:   statsDetails(stats),
		})
	}
}

// DailyStatsFor assembles the counters for one YYYY-MM-DD day.
func (s *Sink) DailyStatsFor(day string) (DailyStats, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cached, ok := s.mem[day]; ok {
			return cached, nil
		}
		return emptyStats(day), nil
	}

	query, args, err := sq.Select("kind", "key", "count").
		From("daily_counters").
		Where(sq.Eq{"day": day}).
		ToSql()
	if err != nil {
		return DailyStats{}, err
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return DailyStats{}, err
	}
	defer rows.Close()

	stats := emptyStats(day)
	for rows.Next() {
		var kind, key string
		var count int
		if err := rows.Scan(&kind, &key, &count); err != nil {
			return DailyStats{}, err
		}
		switch kind {
		case kindTotal:
			switch key {
			case "scans_started":
				stats.ScansStarted = count
			case "items_matched":
				stats.ItemsMatched = count
			case "summaries_generated":
				stats.SummariesGenerated = count
			}
		case kindScansBySource:
			stats.ScansBySource[key] = count
		case kindMatchesByLabel:
			stats.MatchesByLabel[key] = count
		case kindMatchesBySrcLabel:
			stats.MatchesBySourceLabel[key] = count
		case kindHourly:
			stats.HourlyActivity[key] = count
		}
	}
	return stats, rows.Err()
}

func (s *Sink) persistEvent(now time.Time, eventType string, details map[string]any) {
	if s.db == nil {
		return
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		encoded = []byte("{}")
	}
	query, args, err := sq.Insert("stat_events").
		Columns("occurred_at", "event_type", "details").
		Values(now.Unix(), eventType, string(encoded)).
		ToSql()
	if err == nil {
		_, err = s.db.Exec(query, args...)
	}
	if err != nil {
		s.logger.Error("stat event insert failed", "event_type", eventType, "error", err)
	}
}

// bump translates one event into counter increments.
func (s *Sink) bump(day string, now time.Time, eventType string, details map[string]any) {
	source, _ := details["sourceName"].(string)
	label, _ := details["matchedLabel"].(string)

	type inc struct{ kind, key string }
	var incs []inc
	switch eventType {
	case "scan_started":
		incs = append(incs, inc{kindTotal, "scans_started"})
		if source != "" {
			incs = append(incs, inc{kindScansBySource, source})
		}
	case "item_matched":
		incs = append(incs, inc{kindTotal, "items_matched"})
		incs = append(incs, inc{kindHourly, now.Format("15")})
		if label != "" {
			incs = append(incs, inc{kindMatchesByLabel, label})
		}
		if source != "" && label != "" {
			incs = append(incs, inc{kindMatchesBySrcLabel, source + "|" + label})
		}
	case "summary_generated":
		if success, _ := details["success"].(bool); success {
			incs = append(incs, inc{kindTotal, "summaries_generated"})
		}
	}
	if len(incs) == 0 {
		return
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		stats, ok := s.mem[day]
		if !ok {
			stats = emptyStats(day)
		}
		for _, i := range incs {
			applyMem(&stats, i.kind, i.key)
		}
		s.mem[day] = stats
		return
	}

	for _, i := range incs {
		query, args, err := sq.Insert("daily_counters").
			Columns("day", "kind", "key", "count").
			Values(day, i.kind, i.key, 1).
			Suffix("ON CONFLICT(day, kind, key) DO UPDATE SET count = count + 1").
			ToSql()
		if err == nil {
			_, err = s.db.Exec(query, args...)
		}
		if err != nil {
			s.logger.Error("counter update failed", "kind", i.kind, "key", i.key, "error", err)
		}
	}
}

func applyMem(stats *DailyStats, kind, key string) {
	switch kind {
	case kindTotal:
		switch key {
		case "scans_started":
			stats.ScansStarted++
		case "items_matched":
			stats.ItemsMatched++
		case "summaries_generated":
			stats.SummariesGenerated++
		}
	case kindScansBySource:
		stats.ScansBySource[key]++
	case kindMatchesByLabel:
		stats.MatchesByLabel[key]++
	case kindMatchesBySrcLabel:
		stats.MatchesBySourceLabel[key]++
	case kindHourly:
		stats.HourlyActivity[key]++
	}
}

// statsDetails flattens DailyStats into the event details map the stream
// clients consume.
func statsDetails(stats DailyStats) map[string]any {
	return map[string]any{
		"date":                    stats.Date,
		"scans_started":           stats.ScansStarted,
		"items_matched":           stats.ItemsMatched,
		"summaries_generated":     stats.SummariesGenerated,
		"scans_by_source":         stats.ScansBySource,
		"matches_by_label":        stats.MatchesByLabel,
		"matches_by_source_label": stats.MatchesBySourceLabel,
		"hourly_activity":         stats.HourlyActivity,
	}
}
