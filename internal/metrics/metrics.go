package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wikiweaver"

// Snapshot holds crawl statistics for export on exit
type Snapshot struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Rounds            int       `json:"rounds"`
	ExplorersSpawned  int       `json:"explorers_spawned"`
	ExplorersFinished int       `json:"explorers_finished"`
	PagesFetched      int       `json:"pages_fetched"`
	PagesFailed       int       `json:"pages_failed"`
	LinksExtracted    int       `json:"links_extracted"`
	LinksDiscovered   int       `json:"links_discovered"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	TerminationReason string    `json:"termination_reason"`
}

// Tracker holds and manages crawl metrics. Every update is mirrored into a
// private Prometheus registry served by Handler.
type Tracker struct {
	mu               sync.Mutex
	data             Snapshot
	totalFetchTimeMs int64
	fetchCount       int

	registry          *prometheus.Registry
	rounds            prometheus.Counter
	explorersSpawned  prometheus.Counter
	explorersFinished prometheus.Counter
	pagesFetched      prometheus.Counter
	pagesFailed       prometheus.Counter
	linksExtracted    prometheus.Counter
	linksDiscovered   prometheus.Counter
	fetchDuration     prometheus.Histogram
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		})
	}

	t := &Tracker{
		data: Snapshot{
			StartTime: time.Now(),
		},
		registry:          prometheus.NewRegistry(),
		rounds:            counter("rounds_total", "Frontier rounds started by the coordinator."),
		explorersSpawned:  counter("explorers_spawned_total", "Explorer goroutines started."),
		explorersFinished: counter("explorers_finished_total", "Explorer goroutines observed finishing."),
		pagesFetched:      counter("pages_fetched_total", "Pages fetched and parsed."),
		pagesFailed:       counter("pages_failed_total", "Pages that could not be fetched."),
		linksExtracted:    counter("links_extracted_total", "Article links extracted from fetched pages."),
		linksDiscovered:   counter("links_discovered_total", "Article links seen for the first time."),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching and parsing one page.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	t.registry.MustRegister(
		t.rounds,
		t.explorersSpawned,
		t.explorersFinished,
		t.pagesFetched,
		t.pagesFailed,
		t.linksExtracted,
		t.linksDiscovered,
		t.fetchDuration,
	)

	return t
}

// IncrementRounds increments the rounds counter
func (t *Tracker) IncrementRounds() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Rounds++
	t.rounds.Inc()
}

// IncrementExplorersSpawned increments the spawned explorers counter
func (t *Tracker) IncrementExplorersSpawned() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ExplorersSpawned++
	t.explorersSpawned.Inc()
}

// IncrementExplorersFinished increments the finished explorers counter
func (t *Tracker) IncrementExplorersFinished() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ExplorersFinished++
	t.explorersFinished.Inc()
}

// IncrementPagesFetched increments the successful fetch counter
func (t *Tracker) IncrementPagesFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
	t.pagesFetched.Inc()
}

// IncrementPagesFailed increments the failed fetch counter
func (t *Tracker) IncrementPagesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
	t.pagesFailed.Inc()
}

// AddLinks records the links extracted from one page and how many were new
func (t *Tracker) AddLinks(extracted, discovered int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksExtracted += extracted
	t.data.LinksDiscovered += discovered
	t.linksExtracted.Add(float64(extracted))
	t.linksDiscovered.Add(float64(discovered))
}

// RecordFetchTime records a page fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
	t.fetchDuration.Observe(duration.Seconds())
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	// Calculate average fetch time
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.mu.Unlock()

	jsonData, err := json.MarshalIndent(t.GetSnapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress returns a one-line summary for periodic updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Rounds: %d | Explorers: %d spawned, %d finished | Pages: %d fetched, %d failed | Links: %d extracted, %d new",
		t.data.Rounds,
		t.data.ExplorersSpawned,
		t.data.ExplorersFinished,
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.LinksExtracted,
		t.data.LinksDiscovered,
	)
}

// Handler serves the tracker's metrics in the Prometheus exposition format
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
