package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

var exportHeader = []string{
	"ID", "Fecha", "Patente", "RUT Conductor", "Conductor", "Cargo",
	"Tripulación presente", "Tripulación ausente", "RUT Part Time", "Part Time",
	"Estado", "Creado",
}

// WriteCSV writes records as a spreadsheet-friendly CSV for the fleet panel.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		var auxRUT, auxName string
		if r.Auxiliary != nil {
			auxRUT, auxName = r.Auxiliary.RUT, r.Auxiliary.FullName()
		}
		created := ""
		if r.CreatedAt != nil {
			created = r.CreatedAt.Format(time.RFC3339)
		}
		row := []string{
			r.ID, r.Timestamp, r.Plate, r.Driver.RUT, r.Driver.Name, r.Driver.Role,
			crewCell(r.PresentCrew), crewCell(r.AbsentCrew), auxRUT, auxName,
			r.Status, created,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}
	return nil
}

func crewCell(names []string) string {
	if len(names) == 0 {
		return noneLabel
	}
	return strings.Join(names, ", ")
}
