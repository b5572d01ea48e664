package attendance

import (
	"strings"
	"time"

	"crewlog/internal/roster"
)

// Presence is the two-state toggle recorded for each crew member.
type Presence string

const (
	Absent  Presence = "Ausente"
	Present Presence = "Presente"
)

// Toggle flips Absent to Present and back. Anything else becomes Present.
func (p Presence) Toggle() Presence {
	if p == Present {
		return Absent
	}
	return Present
}

// CrewAttendance maps crew member names to their presence.
type CrewAttendance map[string]Presence

// NewCrewAttendance marks every member of crew Absent.
func NewCrewAttendance(crew []roster.CrewMember) CrewAttendance {
	att := make(CrewAttendance, len(crew))
	for _, m := range crew {
		att[m.Name] = Absent
	}
	return att
}

// Toggle flips the presence of name.
func (a CrewAttendance) Toggle(name string) Presence {
	next := a[name].Toggle()
	a[name] = next
	return next
}

// AnyPresent reports whether at least one entry is Present.
func (a CrewAttendance) AnyPresent() bool {
	for _, p := range a {
		if p == Present {
			return true
		}
	}
	return false
}

// AuxiliaryInput holds the optional part-time worker fields as typed.
type AuxiliaryInput struct {
	RUT           string `json:"rut"`
	FirstName     string `json:"primer_nombre"`
	SecondName    string `json:"segundo_nombre"`
	FirstSurname  string `json:"primer_apellido"`
	SecondSurname string `json:"segundo_apellido"`
}

func (a AuxiliaryInput) trimmed() AuxiliaryInput {
	return AuxiliaryInput{
		RUT:           strings.TrimSpace(a.RUT),
		FirstName:     strings.TrimSpace(a.FirstName),
		SecondName:    strings.TrimSpace(a.SecondName),
		FirstSurname:  strings.TrimSpace(a.FirstSurname),
		SecondSurname: strings.TrimSpace(a.SecondSurname),
	}
}

func (a AuxiliaryInput) empty() bool {
	return a.RUT == "" && a.FirstName == "" && a.SecondName == "" && a.FirstSurname == "" && a.SecondSurname == ""
}

// Driver identifies who fills the form; it comes from the session.
type Driver struct {
	RUT  string `json:"rut"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// FormInput is everything the form holds at submit time.
type FormInput struct {
	CapturedAt     time.Time
	Driver         Driver
	Plate          string
	CrewAttendance CrewAttendance
	Auxiliary      *AuxiliaryInput
}
