package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewlog/internal/roster"
)

var capturedAt = time.Date(2024, 10, 12, 8, 15, 30, 0, time.UTC)

func driver() Driver {
	return Driver{RUT: "11129781-9", Name: "Luis Cardenas Bahamonde", Role: "Conductor"}
}

func crewNames(crew []roster.CrewMember) []string {
	names := make([]string, len(crew))
	for i, m := range crew {
		names[i] = m.Name
	}
	return names
}

func validationCodes(t *testing.T, err error) []FieldError {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	return verr.Codes
}

func TestValidate_SplitsCrewInRosterOrder(t *testing.T) {
	crew := roster.Default().Crew()
	att := NewCrewAttendance(crew)
	att.Toggle("Osvaldo Ojeda")
	att.Toggle("Daniel Alvaro Delgado")

	rec, err := NewValidator(crew).Validate(FormInput{
		CapturedAt:     capturedAt,
		Driver:         driver(),
		Plate:          "  ghjk12 ",
		CrewAttendance: att,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-10-12 08:15:30", rec.Timestamp)
	assert.Equal(t, "GHJK12", rec.Plate)
	assert.Equal(t, driver(), rec.Driver)
	assert.Equal(t, []string{"Daniel Alvaro Delgado", "Osvaldo Ojeda"}, rec.PresentCrew)
	assert.Equal(t, []string{"Pedro Guerrero Barria", "Cludio Sanhueza Millatureo", "Luis Gonzalez Talma", "Hermi Vargas Garriel"}, rec.AbsentCrew)
	assert.Nil(t, rec.Auxiliary)
}

func TestValidate_PartitionCoversRoster(t *testing.T) {
	crew := roster.Default().Crew()
	v := NewValidator(crew)

	// Every non-empty subset of the crew marked present.
	for mask := 1; mask < 1<<len(crew); mask++ {
		att := CrewAttendance{}
		for i, m := range crew {
			if mask&(1<<i) != 0 {
				att[m.Name] = Present
			}
		}
		rec, err := v.Validate(FormInput{CapturedAt: capturedAt, Plate: "AB1234", CrewAttendance: att})
		require.NoError(t, err, "mask %b", mask)

		union := append(append([]string{}, rec.PresentCrew...), rec.AbsentCrew...)
		assert.ElementsMatch(t, crewNames(crew), union)
		assert.Len(t, union, len(crew))
		assert.NoError(t, Verify(crew, rec))
	}
}

func TestValidate_AllPresentLeavesNoAbsentees(t *testing.T) {
	crew := roster.Default().Crew()
	att := CrewAttendance{}
	for _, m := range crew {
		att[m.Name] = Present
	}
	rec, err := NewValidator(crew).Validate(FormInput{Plate: "X", CrewAttendance: att})
	require.NoError(t, err)
	assert.Empty(t, rec.AbsentCrew)
	assert.NotNil(t, rec.AbsentCrew)
}

func TestValidate_ErrorsAreAdditive(t *testing.T) {
	crew := roster.Default().Crew()
	_, err := NewValidator(crew).Validate(FormInput{
		Plate:          "   ",
		CrewAttendance: NewCrewAttendance(crew),
	})
	assert.ElementsMatch(t, []FieldError{PlateRequired, NoCrewPresent}, validationCodes(t, err))
}

func TestValidate_SingleErrors(t *testing.T) {
	crew := roster.Default().Crew()
	v := NewValidator(crew)

	_, err := v.Validate(FormInput{Plate: "", CrewAttendance: CrewAttendance{"Osvaldo Ojeda": Present}})
	assert.Equal(t, []FieldError{PlateRequired}, validationCodes(t, err))

	_, err = v.Validate(FormInput{Plate: "AB12"})
	assert.Equal(t, []FieldError{NoCrewPresent}, validationCodes(t, err))

	_, err = v.Validate(FormInput{Plate: "ABCD123", CrewAttendance: CrewAttendance{"Osvaldo Ojeda": Present}})
	assert.Equal(t, []FieldError{PlateTooLong}, validationCodes(t, err))
}

func TestValidate_UnknownCrewMember(t *testing.T) {
	crew := roster.Default().Crew()
	_, err := NewValidator(crew).Validate(FormInput{
		Plate:          "AB12",
		CrewAttendance: CrewAttendance{"Osvaldo Ojeda": Present, "Juan Nadie": Present},
	})
	assert.Equal(t, []FieldError{UnknownCrewMember}, validationCodes(t, err))
}

func TestValidate_AuxiliaryOnlyWhenFilled(t *testing.T) {
	crew := roster.Default().Crew()
	v := NewValidator(crew)
	base := FormInput{Plate: "ab12", CrewAttendance: CrewAttendance{"Osvaldo Ojeda": Present}}

	base.Auxiliary = &AuxiliaryInput{RUT: "  ", FirstName: ""}
	rec, err := v.Validate(base)
	require.NoError(t, err)
	assert.Nil(t, rec.Auxiliary)

	base.Auxiliary = &AuxiliaryInput{FirstName: " Rosa ", FirstSurname: "Diaz"}
	rec, err = v.Validate(base)
	require.NoError(t, err)
	require.NotNil(t, rec.Auxiliary)
	assert.Equal(t, AuxiliaryWorker{FirstName: "Rosa", FirstSurname: "Diaz"}, *rec.Auxiliary)
}

func TestValidationError_Message(t *testing.T) {
	verr := &ValidationError{Codes: []FieldError{PlateRequired, NoCrewPresent}}
	assert.Equal(t,
		"Completa los siguientes campos obligatorios:\n\n"+
			"• Debes catalogar al menos un miembro de la tripulación como 'Presente'.\n"+
			"• Patente de la Unidad de Transporte",
		verr.Message())
	assert.Equal(t, "validation failed: plate_required, no_crew_present", verr.Error())
	assert.True(t, verr.Has(NoCrewPresent))
	assert.False(t, verr.Has(PlateTooLong))
}

func TestPresence_Toggle(t *testing.T) {
	assert.Equal(t, Present, Absent.Toggle())
	assert.Equal(t, Absent, Present.Toggle())
	assert.Equal(t, Absent, Absent.Toggle().Toggle())

	att := NewCrewAttendance(roster.Default().Crew())
	assert.False(t, att.AnyPresent())
	assert.Equal(t, Present, att.Toggle("Osvaldo Ojeda"))
	assert.True(t, att.AnyPresent())
	assert.Equal(t, Absent, att.Toggle("Osvaldo Ojeda"))
	assert.False(t, att.AnyPresent())
}
