package roster

import (
	"errors"
	"strings"
)

var (
	ErrMissingCredentials = errors.New("ingresa tu RUT y clave")
	ErrInvalidCredentials = errors.New("RUT o clave incorrectos")
)

// User is an entry of the fixed user directory. The RUT is an opaque key.
type User struct {
	RUT    string `yaml:"rut" json:"rut"`
	Secret string `yaml:"clave" json:"-"`
	Name   string `yaml:"name" json:"name"`
	Role   Role   `yaml:"-" json:"-"`
}

// CrewMember is a potential attendee of a truck crew.
type CrewMember struct {
	ID   int    `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Directory resolves credentials against an immutable roster.
type Directory struct {
	users []User
	crew  []CrewMember
}

// NewDirectory copies users and crew into a new Directory.
func NewDirectory(users []User, crew []CrewMember) *Directory {
	return &Directory{
		users: append([]User(nil), users...),
		crew:  append([]CrewMember(nil), crew...),
	}
}

// Default returns the directory built into the app.
func Default() *Directory {
	return NewDirectory(defaultUsers, defaultCrew)
}

// Authenticate matches identifier and secret exactly against every user.
func (d *Directory) Authenticate(identifier, secret string) (User, error) {
	if strings.TrimSpace(identifier) == "" || strings.TrimSpace(secret) == "" {
		return User{}, ErrMissingCredentials
	}
	for _, u := range d.users {
		if u.RUT == identifier && u.Secret == secret {
			return u, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

// Crew returns a copy of the crew roster in display order.
func (d *Directory) Crew() []CrewMember {
	return append([]CrewMember(nil), d.crew...)
}

// CrewByID finds a crew member by id.
func (d *Directory) CrewByID(id int) (CrewMember, bool) {
	for _, m := range d.crew {
		if m.ID == id {
			return m, true
		}
	}
	return CrewMember{}, false
}

var defaultUsers = []User{
	{RUT: "10628303-6", Secret: "1062", Name: "Alex Salgado Aguilar", Role: FleetCoordinator},
	{RUT: "11129781-9", Secret: "1112", Name: "Luis Cardenas Bahamonde", Role: Driver},
	{RUT: "12070161-4", Secret: "1207", Name: "Jorge Fuentes Masias", Role: Driver},
	{RUT: "13166565-2", Secret: "1316", Name: "Ermi Cavada Igor", Role: Driver},
	{RUT: "13324036-5", Secret: "1332", Name: "Daniel Alvaro Delgado", Role: PartTimeAux},
	{RUT: "14227723-9", Secret: "1422", Name: "Pedro Guerrero Barria", Role: PartTimeAux},
	{RUT: "15508916-4", Secret: "1550", Name: "Osvaldo Ojeda", Role: PartTimeAux},
	{RUT: "16136678-1", Secret: "1613", Name: "Cludio Sanhueza Millatureo", Role: PartTimeAux},
	{RUT: "16158779-6", Secret: "1615", Name: "Luis Gonzalez Talma", Role: PartTimeAux},
	{RUT: "16893853-5", Secret: "1689", Name: "Hermi Vargas Garriel", Role: PartTimeAux},
}

var defaultCrew = []CrewMember{
	{ID: 1, Name: "Daniel Alvaro Delgado"},
	{ID: 2, Name: "Pedro Guerrero Barria"},
	{ID: 3, Name: "Osvaldo Ojeda"},
	{ID: 4, Name: "Cludio Sanhueza Millatureo"},
	{ID: 5, Name: "Luis Gonzalez Talma"},
	{ID: 6, Name: "Hermi Vargas Garriel"},
}
