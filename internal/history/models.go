package history

import "time"

const SchemaVersion = 1

// Snapshot is the outcome of one analysis run, persisted for trend
// reporting across sessions.
type Snapshot struct {
	RunID             string    `json:"run_id"`
	SchemaVersion     int       `json:"schema_version"`
	Timestamp         time.Time `json:"timestamp"`
	CommitHash        string    `json:"commit_hash,omitempty"`
	CommitTimestamp   time.Time `json:"commit_timestamp,omitempty"`
	TrackedFiles      int       `json:"tracked_files"`
	RegistryFiles     int       `json:"registry_files"`
	ImportEdges       int       `json:"import_edges"`
	ErrorCount        int       `json:"error_count"`
	WarningCount      int       `json:"warning_count"`
	CycleCount        int       `json:"cycle_count"`
	UnusedImportCount int       `json:"unused_import_count"`
	EvaluatorResets   int       `json:"evaluator_resets"`
	AnalysisMs        int64     `json:"analysis_ms"`
}

type TrendPoint struct {
	Timestamp          time.Time `json:"timestamp"`
	CommitHash         string    `json:"commit_hash,omitempty"`
	TrackedFiles       int       `json:"tracked_files"`
	RegistryFiles      int       `json:"registry_files"`
	ImportEdges        int       `json:"import_edges"`
	ErrorCount         int       `json:"error_count"`
	WarningCount       int       `json:"warning_count"`
	CycleCount         int       `json:"cycle_count"`
	UnusedImportCount  int       `json:"unused_import_count"`
	DeltaTrackedFiles  int       `json:"delta_tracked_files"`
	DeltaErrors        int       `json:"delta_errors"`
	DeltaWarnings      int       `json:"delta_warnings"`
	DeltaCycles        int       `json:"delta_cycles"`
	DeltaUnusedImports int       `json:"delta_unused_imports"`
	AvgErrors          float64   `json:"avg_errors"`
	AvgCycles          float64   `json:"avg_cycles"`
	WindowHours        float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
