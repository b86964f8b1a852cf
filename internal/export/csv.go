package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"Record", "Task", "Created", "Target", "Completed", "Label", "Budget (s)",
	"Sequence", "Unit (s)", "Unit", "Cumulative (s)", "Cumulative",
}

// ToCSV writes one row per snapshot. A record without snapshots still gets a
// row with the snapshot columns empty.
func ToCSV(records []Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range records {
		base := []string{
			r.ID,
			r.TaskName,
			r.CreatedAt.Local().Format(time.RFC3339),
			strconv.Itoa(r.TotalUnits),
			strconv.Itoa(r.CompletedCount),
			r.UnitLabel,
			strconv.FormatInt(r.TotalBudgetSeconds, 10),
		}
		if len(r.Snapshots) == 0 {
			if err := w.Write(append(base, "", "", "", "", "")); err != nil {
				return err
			}
			continue
		}
		for _, s := range r.Snapshots {
			row := append(append([]string(nil), base...),
				strconv.Itoa(s.Sequence),
				strconv.FormatInt(s.UnitSeconds, 10),
				formatDuration(s.UnitSeconds),
				strconv.FormatInt(s.CumulativeSeconds, 10),
				formatDuration(s.CumulativeSeconds),
			)
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}
