package attendance

import (
	"sort"
	"strings"
	"unicode/utf8"

	"crewlog/internal/roster"
)

// TimestampLayout is the wire format of a record timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// MaxPlateLength is the longest accepted plate, counted in characters.
const MaxPlateLength = 6

// FieldError is a stable code for one violated form rule.
type FieldError string

const (
	PlateRequired     FieldError = "plate_required"
	PlateTooLong      FieldError = "plate_too_long"
	NoCrewPresent     FieldError = "no_crew_present"
	UnknownCrewMember FieldError = "unknown_crew_member"
)

var fieldMessages = map[FieldError]string{
	NoCrewPresent:     "Debes catalogar al menos un miembro de la tripulación como 'Presente'.",
	PlateRequired:     "Patente de la Unidad de Transporte",
	PlateTooLong:      "La patente admite como máximo 6 caracteres",
	UnknownCrewMember: "La tripulación incluye nombres fuera de la nómina",
}

// messageOrder fixes the bullet order of the aggregated message.
var messageOrder = []FieldError{NoCrewPresent, UnknownCrewMember, PlateRequired, PlateTooLong}

// ValidationError lists every rule a form submission violated.
type ValidationError struct {
	Codes []FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.Codes) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v.Codes))
	for i, c := range v.Codes {
		parts[i] = string(c)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether code was recorded.
func (v *ValidationError) Has(code FieldError) bool {
	if v == nil {
		return false
	}
	for _, c := range v.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// Message renders one user-facing message enumerating every problem.
func (v *ValidationError) Message() string {
	var b strings.Builder
	b.WriteString("Completa los siguientes campos obligatorios:\n")
	for _, code := range messageOrder {
		if v.Has(code) {
			b.WriteString("\n• ")
			b.WriteString(fieldMessages[code])
		}
	}
	return b.String()
}

// Validator checks form input against a crew roster.
type Validator struct {
	crew []roster.CrewMember
}

// NewValidator returns a validator for crew.
func NewValidator(crew []roster.CrewMember) *Validator {
	return &Validator{crew: append([]roster.CrewMember(nil), crew...)}
}

// Validate evaluates every rule and, when all pass, builds the record.
// Crew members missing from the input count as Absent.
func (v *Validator) Validate(in FormInput) (Record, error) {
	verr := &ValidationError{}

	plate := strings.TrimSpace(in.Plate)
	switch {
	case plate == "":
		verr.Codes = append(verr.Codes, PlateRequired)
	case utf8.RuneCountInString(plate) > MaxPlateLength:
		verr.Codes = append(verr.Codes, PlateTooLong)
	}

	known := make(map[string]bool, len(v.crew))
	present := make([]string, 0, len(v.crew))
	absent := make([]string, 0, len(v.crew))
	for _, m := range v.crew {
		known[m.Name] = true
		if in.CrewAttendance[m.Name] == Present {
			present = append(present, m.Name)
		} else {
			absent = append(absent, m.Name)
		}
	}
	if len(present) == 0 {
		verr.Codes = append(verr.Codes, NoCrewPresent)
	}

	var unknown []string
	for name := range in.CrewAttendance {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		verr.Codes = append(verr.Codes, UnknownCrewMember)
	}

	if len(verr.Codes) > 0 {
		sort.Slice(verr.Codes, func(i, j int) bool { return verr.Codes[i] < verr.Codes[j] })
		return Record{}, verr
	}

	rec := Record{
		Timestamp:   in.CapturedAt.Format(TimestampLayout),
		Driver:      in.Driver,
		PresentCrew: present,
		AbsentCrew:  absent,
		Plate:       strings.ToUpper(plate),
	}
	if in.Auxiliary != nil {
		if aux := in.Auxiliary.trimmed(); !aux.empty() {
			rec.Auxiliary = &AuxiliaryWorker{
				RUT:           aux.RUT,
				FirstName:     aux.FirstName,
				SecondName:    aux.SecondName,
				FirstSurname:  aux.FirstSurname,
				SecondSurname: aux.SecondSurname,
			}
		}
	}
	return rec, nil
}
