package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type document struct {
	ExportedAt string      `json:"exported_at" yaml:"exported_at"`
	Count      int         `json:"count" yaml:"count"`
	Records    []docRecord `json:"records" yaml:"records"`
}

type docRecord struct {
	ID             string        `json:"id" yaml:"id"`
	Task           string        `json:"task" yaml:"task"`
	CreatedAt      string        `json:"created_at" yaml:"created_at"`
	TotalUnits     int           `json:"total_units" yaml:"total_units"`
	CompletedCount int           `json:"completed_count" yaml:"completed_count"`
	UnitLabel      string        `json:"unit_label" yaml:"unit_label"`
	BudgetSeconds  int64         `json:"budget_seconds" yaml:"budget_seconds"`
	AverageSeconds float64       `json:"average_unit_seconds" yaml:"average_unit_seconds"`
	Snapshots      []docSnapshot `json:"snapshots,omitempty" yaml:"snapshots,omitempty"`
}

type docSnapshot struct {
	Sequence          int    `json:"sequence" yaml:"sequence"`
	UnitSeconds       int64  `json:"unit_seconds" yaml:"unit_seconds"`
	Unit              string `json:"unit" yaml:"unit"`
	CumulativeSeconds int64  `json:"cumulative_seconds" yaml:"cumulative_seconds"`
	Cumulative        string `json:"cumulative" yaml:"cumulative"`
}

func buildDocument(records []Record) document {
	doc := document{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(records),
	}
	for _, r := range records {
		dr := docRecord{
			ID:             r.ID,
			Task:           r.TaskName,
			CreatedAt:      r.CreatedAt.Local().Format(time.RFC3339),
			TotalUnits:     r.TotalUnits,
			CompletedCount: r.CompletedCount,
			UnitLabel:      r.UnitLabel,
			BudgetSeconds:  r.TotalBudgetSeconds,
			AverageSeconds: r.AverageUnitSeconds(),
		}
		for _, s := range r.Snapshots {
			dr.Snapshots = append(dr.Snapshots, docSnapshot{
				Sequence:          s.Sequence,
				UnitSeconds:       s.UnitSeconds,
				Unit:              formatDuration(s.UnitSeconds),
				CumulativeSeconds: s.CumulativeSeconds,
				Cumulative:        formatDuration(s.CumulativeSeconds),
			})
		}
		doc.Records = append(doc.Records, dr)
	}
	return doc
}

func ToJSON(records []Record, path string) error {
	data, err := json.MarshalIndent(buildDocument(records), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
