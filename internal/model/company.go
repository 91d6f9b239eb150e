package model

import (
	"time"
)

// RunStatus represents the current state of a collection run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusCollecting RunStatus = "collecting"
	RunStatusMerging    RunStatus = "merging"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// MergeStats counts the outcome of one reconciliation.
type MergeStats struct {
	Added    int `json:"added"`
	Replaced int `json:"replaced"`
	Kept     int `json:"kept"`
	// Collapsed counts stored points dropped because their year repeated.
	Collapsed int `json:"collapsed,omitempty"`
}

// Total is the number of incoming points the merge considered.
func (s MergeStats) Total() int {
	return s.Added + s.Replaced + s.Kept
}

// ValidationIssue is an advisory finding about one data point.
type ValidationIssue struct {
	Year        int    `json:"year"`
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

// Run records one company's collect-and-merge pass.
type Run struct {
	ID        string     `json:"id"`
	Ticker    string     `json:"ticker"`
	Years     []int      `json:"years"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Collected      int               `json:"collected"`
	Stats          MergeStats        `json:"stats"`
	Issues         []ValidationIssue `json:"issues,omitempty"`
	ManualResearch []int             `json:"manual_research,omitempty"`
	Unresolved     []int             `json:"unresolved,omitempty"`
	Calls          map[string]int    `json:"calls,omitempty"`
	BackupPath     string            `json:"backup_path,omitempty"`
}
