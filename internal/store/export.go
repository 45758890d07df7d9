package store

import (
	"fmt"

	"github.com/mrodas/legalexam/internal/model"
)

// ExportAll builds export-ready records for every stored report, including
// its audit events.
func (s *Store) ExportAll() ([]model.StoredReport, error) {
	summaries, err := s.ListReports()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var out []model.StoredReport
	for _, sum := range summaries {
		report, createdAt, err := s.GetReport(sum.ID)
		if err != nil {
			return nil, fmt.Errorf("get report %s: %w", sum.ID, err)
		}
		events, err := s.GetEvents(sum.ID)
		if err != nil {
			return nil, fmt.Errorf("get events for %s: %w", sum.ID, err)
		}
		out = append(out, model.StoredReport{
			Report:    *report,
			Events:    events,
			CreatedAt: createdAt,
		})
	}
	return out, nil
}
