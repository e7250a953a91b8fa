package model

import "time"

// RunStatus represents the current state of an import run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
)

// ImportRun represents a single execution of the import pipeline.
type ImportRun struct {
	ID         string      `json:"id"`
	SourceFile string      `json:"source_file"`
	Status     RunStatus   `json:"status"`
	Summary    *RunSummary `json:"summary,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RunSummary holds the final counts of a run.
type RunSummary struct {
	RowsRead        int             `json:"rows_read"`
	AlreadyImported int             `json:"already_imported"`
	Malformed       int             `json:"malformed"`
	ImageOnly       int             `json:"image_only"`
	Enriched        int             `json:"enriched"`
	Failed          int             `json:"failed"`
	Banks           map[string]int  `json:"banks,omitempty"`
	InputTokens     int             `json:"input_tokens"`
	OutputTokens    int             `json:"output_tokens"`
	Cost            float64         `json:"cost"`
	Failures        []RecordFailure `json:"failures,omitempty"`
}

// RecordFailure identifies a source row whose enrichment failed.
type RecordFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}
