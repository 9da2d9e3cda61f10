package model

import "time"

// RunReport summarizes one scrape or download pass
type RunReport struct {
	Action     string    `json:"action"` // "scrape" or "download"
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`       // Rows (scrape) or records (download) seen
	Accepted   int       `json:"accepted"`        // Records emitted or updated
	Problems   []Problem `json:"problems"`        // Per-record and per-document errors
	Fatal      string    `json:"fatal,omitempty"` // Set when the run was aborted
}

// Problem is one recorded per-item error
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Ref     string      `json:"ref"`     // URL or document path responsible
	Message string      `json:"message"`
}

// NewRunReport starts a report for the named action
func NewRunReport(action string) *RunReport {
	return &RunReport{
		Action:    action,
		StartedAt: time.Now().UTC(),
		Problems:  []Problem{},
	}
}

// Record appends err as a problem attributed to ref
func (r *RunReport) Record(ref string, err error) {
	if err == nil {
		return
	}
	r.Problems = append(r.Problems, Problem{
		Kind:    KindOf(err),
		Ref:     ref,
		Message: err.Error(),
	})
}

// Finish stamps the report, noting a fatal error if any
func (r *RunReport) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Fatal = err.Error()
	}
}

// CountByKind tallies problems per kind
func (r *RunReport) CountByKind() map[ProblemKind]int {
	counts := make(map[ProblemKind]int)
	for _, p := range r.Problems {
		counts[p.Kind]++
	}
	return counts
}
