package model

import "time"

// ExamExport is the top-level JSON structure for result export.
type ExamExport struct {
	ExamID   string         `json:"exam_id"`
	Subject  string         `json:"subject"`
	Date     string         `json:"date"`
	NumCases int            `json:"num_cases"`
	Reports  []StoredReport `json:"reports"`
}

// StoredReport pairs a persisted report with its audit events.
type StoredReport struct {
	Report    ExamReport   `json:"report"`
	Events    []AuditEvent `json:"events,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// ExamInfo identifies one exam run in export metadata.
type ExamInfo struct {
	ExamID   string
	Subject  string
	Date     string
	NumCases int
}

// ReportSummary is the dashboard row for one stored report.
type ReportSummary struct {
	ID           string    `json:"id"`
	StudentName  string    `json:"student_name"`
	StudentCarne string    `json:"student_carne"`
	GrandTotal   float64   `json:"grand_total"`
	MaxPossible  float64   `json:"max_possible"`
	CreatedAt    time.Time `json:"created_at"`
}
