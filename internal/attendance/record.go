package attendance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"crewlog/internal/roster"
)

// Record statuses as the worker moves them along.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusRejected  = "rejected"
)

const noneLabel = "Ninguno"

// AuxiliaryWorker is the part-time helper who rode along, if any.
type AuxiliaryWorker struct {
	RUT           string `json:"rut"`
	FirstName     string `json:"primer_nombre"`
	SecondName    string `json:"segundo_nombre"`
	FirstSurname  string `json:"primer_apellido"`
	SecondSurname string `json:"segundo_apellido"`
}

// FullName joins the non-empty name parts.
func (a AuxiliaryWorker) FullName() string {
	return strings.Join(strings.Fields(strings.Join([]string{a.FirstName, a.SecondName, a.FirstSurname, a.SecondSurname}, " ")), " ")
}

// Record is one attendance submission. It is never mutated after confirmation.
type Record struct {
	ID          string           `json:"id,omitempty"`
	Timestamp   string           `json:"fecha"`
	Driver      Driver           `json:"conductor"`
	PresentCrew []string         `json:"tripulacion_presente"`
	AbsentCrew  []string         `json:"tripulacion_ausente"`
	Plate       string           `json:"patente"`
	Auxiliary   *AuxiliaryWorker `json:"part_time,omitempty"`
	Status      string           `json:"status,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
}

// SummaryLine is one labeled row of the confirmation view.
type SummaryLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func namesOrNone(names []string) string {
	if len(names) == 0 {
		return noneLabel
	}
	return strings.Join(names, "\n")
}

// Summary lays the record out for the confirmation dialog.
func (r Record) Summary() []SummaryLine {
	lines := []SummaryLine{
		{Label: "Fecha", Value: r.Timestamp},
		{Label: "RUT Conductor", Value: r.Driver.RUT},
		{Label: "Conductor", Value: r.Driver.Name},
		{Label: "Tripulación presente", Value: namesOrNone(r.PresentCrew)},
		{Label: "Tripulación ausente", Value: namesOrNone(r.AbsentCrew)},
		{Label: "Patente", Value: r.Plate},
	}
	if r.Auxiliary != nil {
		lines = append(lines,
			SummaryLine{Label: "RUT Part Time", Value: r.Auxiliary.RUT},
			SummaryLine{Label: "Part Time", Value: r.Auxiliary.FullName()},
		)
	}
	return lines
}

// Verify re-checks record invariants against crew: present and absent
// partition the roster, at least one member is present, and the plate fits.
func Verify(crew []roster.CrewMember, r Record) error {
	var errs []error
	if r.Plate == "" || len([]rune(r.Plate)) > MaxPlateLength {
		errs = append(errs, fmt.Errorf("plate %q out of range", r.Plate))
	}
	if len(r.PresentCrew) == 0 {
		errs = append(errs, errors.New("no crew present"))
	}

	seen := make(map[string]int, len(crew))
	for _, n := range r.PresentCrew {
		seen[n]++
	}
	for _, n := range r.AbsentCrew {
		seen[n]++
	}
	for _, m := range crew {
		switch seen[m.Name] {
		case 0:
			errs = append(errs, fmt.Errorf("crew member %q missing", m.Name))
		case 1:
		default:
			errs = append(errs, fmt.Errorf("crew member %q listed twice", m.Name))
		}
		delete(seen, m.Name)
	}
	for n := range seen {
		errs = append(errs, fmt.Errorf("crew member %q not in roster", n))
	}
	return errors.Join(errs...)
}
