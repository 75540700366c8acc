package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pyscope_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyscope_phase_seconds",
		Help:    "Time spent per per-file analysis phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	AnalyzePassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyscope_analyze_pass_seconds",
		Help:    "Duration of one cooperative analyze pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"bucket"})

	TrackedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyscope_tracked_files",
		Help: "Number of tracked files in the registry.",
	})

	RegistryFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyscope_registry_files_total",
		Help: "Total number of file records in the registry.",
	})

	ImportEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyscope_import_edges_total",
		Help: "Total number of import edges in the dependency graph.",
	})

	CacheFullness = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyscope_cache_fullness_ratio",
		Help: "Evaluator cache entries plus parsed files over the configured ceiling.",
	})

	EvaluatorResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyscope_evaluator_resets_total",
		Help: "Total evaluator discard-and-rebuild events.",
	}, []string{"reason"})

	EvictedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_evicted_files_total",
		Help: "Total file records removed by the reachability sweep.",
	})

	DiagnosticsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyscope_diagnostics_published_total",
		Help: "Total diagnostics published, by severity.",
	}, []string{"severity"})

	ImportCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_import_cycles_total",
		Help: "Total import cycles reported.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	IndexedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyscope_indexed_files_total",
		Help: "Total files admitted by workspace indexing.",
	})
)
